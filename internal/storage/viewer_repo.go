package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxel-terrain/internal/config"
	"github.com/annel0/voxel-terrain/internal/vec"
)

// ErrViewerNotFound возвращается Delete для неизвестного наблюдателя
var ErrViewerNotFound = errors.New("центр наблюдателя не найден")

// ViewerRepo хранит последний центр (ключ чанка) каждого наблюдателя.
// После перезапуска стриминг продолжается с сохранённого центра,
// а не с начала координат.
type ViewerRepo interface {
	// Save сохраняет центр наблюдателя
	Save(ctx context.Context, viewerID uint64, center vec.Vec3) error

	// Load возвращает центр; found=false, если наблюдатель новый
	Load(ctx context.Context, viewerID uint64) (center vec.Vec3, found bool, err error)

	// Delete удаляет центр наблюдателя
	Delete(ctx context.Context, viewerID uint64) error

	// BatchSave сохраняет центры нескольких наблюдателей за одну операцию
	BatchSave(ctx context.Context, centers map[uint64]vec.Vec3) error

	Close() error
}

func validateViewerID(viewerID uint64) error {
	if viewerID == 0 {
		return fmt.Errorf("недействительный viewerID: %d", viewerID)
	}
	return nil
}

// NewViewerRepo создаёт репозиторий по секции viewers конфигурации
func NewViewerRepo(cfg config.ViewersConfig) (ViewerRepo, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryViewerRepo(), nil
	case "redis":
		return NewRedisViewerRepo(&RedisConfig{
			Addr:      cfg.Addr,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: "terrain:viewer:",
			TTL:       time.Duration(cfg.TTLSeconds) * time.Second,
		})
	case "mysql":
		return NewMySQLViewerRepo(cfg.DSN)
	default:
		return nil, fmt.Errorf("неизвестный backend наблюдателей %q", cfg.Backend)
	}
}
