package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-terrain/internal/config"
	"github.com/annel0/voxel-terrain/internal/vec"
)

// exerciseViewerRepo общий сценарий для всех реализаций
func exerciseViewerRepo(t *testing.T, repo ViewerRepo, base uint64) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		want := vec.Vec3{X: -3, Y: 1, Z: 40}
		require.NoError(t, repo.Save(ctx, base+1, want))

		got, found, err := repo.Load(ctx, base+1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, want, got)
	})

	t.Run("Load unknown viewer", func(t *testing.T) {
		got, found, err := repo.Load(ctx, base+999)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, vec.Vec3{}, got)
	})

	t.Run("Update center", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, base+2, vec.Vec3{X: 1}))
		require.NoError(t, repo.Save(ctx, base+2, vec.Vec3{X: 2, Z: -2}))

		got, _, err := repo.Load(ctx, base+2)
		require.NoError(t, err)
		assert.Equal(t, vec.Vec3{X: 2, Z: -2}, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, base+3, vec.Vec3{Y: 5}))
		require.NoError(t, repo.Delete(ctx, base+3))

		_, found, err := repo.Load(ctx, base+3)
		require.NoError(t, err)
		assert.False(t, found)

		assert.ErrorIs(t, repo.Delete(ctx, base+3), ErrViewerNotFound)
	})

	t.Run("BatchSave", func(t *testing.T) {
		centers := map[uint64]vec.Vec3{
			base + 10: {X: 1, Y: 2, Z: 3},
			base + 11: {X: -1, Y: -2, Z: -3},
			base + 12: {},
		}
		require.NoError(t, repo.BatchSave(ctx, centers))
		for id, want := range centers {
			got, found, err := repo.Load(ctx, id)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, want, got)
		}
		assert.NoError(t, repo.BatchSave(ctx, nil))
	})

	t.Run("Invalid viewer id", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, 0, vec.Vec3{}))
		_, _, err := repo.Load(ctx, 0)
		assert.Error(t, err)
		assert.Error(t, repo.Delete(ctx, 0))
		assert.Error(t, repo.BatchSave(ctx, map[uint64]vec.Vec3{0: {}, base + 20: {X: 1}}))

		_, found, err := repo.Load(ctx, base+20)
		require.NoError(t, err)
		assert.False(t, found, "Пакет с ошибкой не сохраняется частично")
	})
}

func TestMemoryViewerRepo(t *testing.T) {
	repo := NewMemoryViewerRepo()
	exerciseViewerRepo(t, repo, 0)
	assert.Equal(t, 5, repo.Count())
	assert.NoError(t, repo.Close())
}

func TestMemoryViewerRepoCancelledContext(t *testing.T) {
	repo := NewMemoryViewerRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Save(ctx, 1, vec.Vec3{}), context.Canceled)
	_, _, err := repo.Load(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.BatchSave(ctx, map[uint64]vec.Vec3{1: {}}), context.Canceled)
	assert.Equal(t, 0, repo.Count())
}

func TestNewViewerRepoBackends(t *testing.T) {
	repo, err := NewViewerRepo(config.ViewersConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryViewerRepo{}, repo)

	_, err = NewViewerRepo(config.ViewersConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestRedisViewerRepo(t *testing.T) {
	addr := os.Getenv("TERRAIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TERRAIN_TEST_REDIS_ADDR не задан")
	}

	repo, err := NewRedisViewerRepo(&RedisConfig{
		Addr:      addr,
		KeyPrefix: "terrain:test:viewer:",
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	defer repo.Close()

	exerciseViewerRepo(t, repo, uint64(time.Now().UnixNano()%1_000_000)*1000)
}

func TestMySQLViewerRepo(t *testing.T) {
	dsn := os.Getenv("TERRAIN_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TERRAIN_TEST_MYSQL_DSN не задан")
	}

	repo, err := NewMySQLViewerRepo(dsn)
	require.NoError(t, err)
	defer repo.Close()

	exerciseViewerRepo(t, repo, uint64(time.Now().UnixNano()%1_000_000)*1000)
}
