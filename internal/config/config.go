package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxel-terrain/internal/lod"
)

// ErrInvalid оборачивает все ошибки валидации конфигурации
var ErrInvalid = errors.New("некорректная конфигурация")

// Config корневая структура конфигурации редактора ландшафта.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Generator GeneratorConfig `yaml:"generator"`
	LOD       LODConfig       `yaml:"lod"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Storage   StorageConfig   `yaml:"storage"`
	Streaming StreamingConfig `yaml:"streaming"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Viewers   ViewersConfig   `yaml:"viewers"`
	Log       LogConfig       `yaml:"log"`
}

// WorldConfig общие параметры мира. Depth не меняется после создания мира.
type WorldConfig struct {
	Depth       int    `yaml:"depth"`
	Seed        int64  `yaml:"seed"`
	Compression string `yaml:"compression"` // exact | representative
	MinKeyY     *int64 `yaml:"min_key_y,omitempty"`
	MaxKeyY     *int64 `yaml:"max_key_y,omitempty"`
}

type GeneratorConfig struct {
	NoiseScale float64 `yaml:"noise_scale"`
	Alpha      float64 `yaml:"alpha"`
	Beta       float64 `yaml:"beta"`
	Octaves    int     `yaml:"octaves"`
	BaseHeight float64 `yaml:"base_height"`
	Amplitude  float64 `yaml:"amplitude"`
	Material   uint8   `yaml:"material"`
}

type LODConfig struct {
	Ranges []int64 `yaml:"ranges"`
}

type MeshConfig struct {
	Scale   float32      `yaml:"scale"`
	Palette [][3]float32 `yaml:"palette"`
}

type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	Compress bool   `yaml:"compress"`
}

type StreamingConfig struct {
	Workers int `yaml:"workers"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ViewersConfig хранилище центров наблюдателей
type ViewersConfig struct {
	Backend    string `yaml:"backend"` // memory | redis | mysql
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	DSN        string `yaml:"dsn"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	ID         uint64 `yaml:"id"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию: глубина 4 (сетка 16, бесшовный размер 14).
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Depth:       4,
			Seed:        12345,
			Compression: "exact",
		},
		Generator: GeneratorConfig{
			NoiseScale: 0.05,
			Alpha:      2.0,
			Beta:       2.0,
			Octaves:    3,
			BaseHeight: 4,
			Amplitude:  12,
			Material:   1,
		},
		LOD: LODConfig{
			Ranges: []int64{0, 1, 2, 4},
		},
		Mesh: MeshConfig{
			Scale: 1.0,
			Palette: [][3]float32{
				{0, 0, 0},
				{0.36, 0.62, 0.24}, // трава
				{0.52, 0.37, 0.26}, // земля
				{0.5, 0.5, 0.5},    // камень
				{0.86, 0.8, 0.55},  // песок
			},
		},
		Storage: StorageConfig{
			Path:     "data",
			Compress: true,
		},
		Streaming: StreamingConfig{
			Workers: 4,
		},
		Viewers: ViewersConfig{
			Backend:    "memory",
			Addr:       "localhost:6379",
			TTLSeconds: 86400,
			ID:         1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV TERRAIN_CONFIG; если и он пуст,
// возвращает Default(). TERRAIN_SEED переопределяет сид мира.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TERRAIN_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
		}
	}

	cfg.World.Seed = getSeedWithEnvFallback(cfg.World.Seed, "TERRAIN_SEED")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getSeedWithEnvFallback возвращает сид с приоритетом: env -> config
func getSeedWithEnvFallback(configSeed int64, envVar string) int64 {
	if envVal := os.Getenv(envVar); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return configSeed
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	if c.World.Depth < 2 || c.World.Depth > 8 {
		return fmt.Errorf("%w: world.depth=%d вне диапазона 2..8", ErrInvalid, c.World.Depth)
	}
	switch c.World.Compression {
	case "", "exact", "representative":
	default:
		return fmt.Errorf("%w: неизвестная политика сжатия %q", ErrInvalid, c.World.Compression)
	}
	if c.World.MinKeyY != nil && c.World.MaxKeyY != nil && *c.World.MinKeyY > *c.World.MaxKeyY {
		return fmt.Errorf("%w: world.min_key_y больше world.max_key_y", ErrInvalid)
	}
	if c.Generator.NoiseScale <= 0 {
		return fmt.Errorf("%w: generator.noise_scale должен быть положительным", ErrInvalid)
	}
	if err := lod.Ranges(c.LOD.Ranges).Validate(); err != nil {
		return fmt.Errorf("%w: lod.ranges: %v", ErrInvalid, err)
	}
	if c.Mesh.Scale <= 0 {
		return fmt.Errorf("%w: mesh.scale должен быть положительным", ErrInvalid)
	}
	if c.Streaming.Workers < 0 {
		return fmt.Errorf("%w: streaming.workers не может быть отрицательным", ErrInvalid)
	}
	switch c.Viewers.Backend {
	case "", "memory", "redis":
	case "mysql":
		if c.Viewers.DSN == "" {
			return fmt.Errorf("%w: viewers.dsn обязателен для mysql", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: неизвестный viewers.backend %q", ErrInvalid, c.Viewers.Backend)
	}
	if c.Viewers.TTLSeconds < 0 {
		return fmt.Errorf("%w: viewers.ttl_seconds не может быть отрицательным", ErrInvalid)
	}
	return nil
}
