package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.World.Depth)
	assert.Equal(t, []int64{0, 1, 2, 4}, cfg.LOD.Ranges)
	assert.Len(t, cfg.Mesh.Palette, 5)
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	t.Setenv("TERRAIN_CONFIG", "")
	t.Setenv("TERRAIN_SEED", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("TERRAIN_SEED", "")
	path := writeConfig(t, `
world:
  depth: 5
  seed: 7
  compression: representative
  min_key_y: -1
  max_key_y: 2
lod:
  ranges: [0, 2, 4, 8]
storage:
  in_memory: true
viewers:
  backend: mysql
  dsn: "terrain:secret@tcp(db:3306)/terrain"
  id: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.World.Depth)
	assert.Equal(t, int64(7), cfg.World.Seed)
	assert.Equal(t, "representative", cfg.World.Compression)
	require.NotNil(t, cfg.World.MinKeyY)
	require.NotNil(t, cfg.World.MaxKeyY)
	assert.Equal(t, int64(-1), *cfg.World.MinKeyY)
	assert.Equal(t, int64(2), *cfg.World.MaxKeyY)
	assert.Equal(t, []int64{0, 2, 4, 8}, cfg.LOD.Ranges)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, "mysql", cfg.Viewers.Backend)
	assert.Equal(t, "terrain:secret@tcp(db:3306)/terrain", cfg.Viewers.DSN)
	assert.Equal(t, uint64(7), cfg.Viewers.ID)
	assert.Equal(t, 86400, cfg.Viewers.TTLSeconds)

	// Незаданные секции остаются по умолчанию
	assert.Equal(t, 0.05, cfg.Generator.NoiseScale)
	assert.Equal(t, 4, cfg.Streaming.Workers)
}

func TestLoadFromEnvPathAndSeed(t *testing.T) {
	path := writeConfig(t, "world:\n  seed: 1\n")
	t.Setenv("TERRAIN_CONFIG", path)
	t.Setenv("TERRAIN_SEED", "99")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.World.Seed, "TERRAIN_SEED имеет приоритет над файлом")

	t.Setenv("TERRAIN_SEED", "не число")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.World.Seed, "Некорректный TERRAIN_SEED игнорируется")
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("TERRAIN_SEED", "")

	_, err := Load(filepath.Join(t.TempDir(), "нет.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "world: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "lod:\n  ranges: [0, 3, 4, 8]\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"глубина":       func(c *Config) { c.World.Depth = 1 },
		"глубина макс":  func(c *Config) { c.World.Depth = 9 },
		"сжатие":        func(c *Config) { c.World.Compression = "lossy" },
		"масштаб шума":  func(c *Config) { c.Generator.NoiseScale = 0 },
		"дальности":     func(c *Config) { c.LOD.Ranges = []int64{1, 2} },
		"масштаб сетки": func(c *Config) { c.Mesh.Scale = -1 },
		"воркеры":       func(c *Config) { c.Streaming.Workers = -2 },
		"наблюдатели":   func(c *Config) { c.Viewers.Backend = "etcd" },
		"mysql без dsn": func(c *Config) { c.Viewers.Backend = "mysql" },
		"ttl":           func(c *Config) { c.Viewers.TTLSeconds = -1 },
		"границы y": func(c *Config) {
			lo, hi := int64(3), int64(1)
			c.World.MinKeyY, c.World.MaxKeyY = &lo, &hi
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
