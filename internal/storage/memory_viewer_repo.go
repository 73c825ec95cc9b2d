package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/voxel-terrain/internal/vec"
)

// MemoryViewerRepo реализует ViewerRepo в памяти.
// Используется по умолчанию и в тестах. Данные теряются при перезапуске.
type MemoryViewerRepo struct {
	mu   sync.RWMutex
	data map[uint64]vec.Vec3
}

// NewMemoryViewerRepo создает пустой репозиторий
func NewMemoryViewerRepo() *MemoryViewerRepo {
	return &MemoryViewerRepo{
		data: make(map[uint64]vec.Vec3),
	}
}

// Save сохраняет центр наблюдателя в памяти
func (r *MemoryViewerRepo) Save(ctx context.Context, viewerID uint64, center vec.Vec3) error {
	if err := validateViewerID(viewerID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[viewerID] = center
	return nil
}

// Load загружает центр наблюдателя
func (r *MemoryViewerRepo) Load(ctx context.Context, viewerID uint64) (vec.Vec3, bool, error) {
	if err := validateViewerID(viewerID); err != nil {
		return vec.Vec3{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return vec.Vec3{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	center, exists := r.data[viewerID]
	return center, exists, nil
}

// Delete удаляет центр наблюдателя
func (r *MemoryViewerRepo) Delete(ctx context.Context, viewerID uint64) error {
	if err := validateViewerID(viewerID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[viewerID]; !exists {
		return fmt.Errorf("%w: %d", ErrViewerNotFound, viewerID)
	}
	delete(r.data, viewerID)
	return nil
}

// BatchSave сохраняет все центры или ни одного
func (r *MemoryViewerRepo) BatchSave(ctx context.Context, centers map[uint64]vec.Vec3) error {
	if len(centers) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Валидация всех записей перед сохранением
	for viewerID := range centers {
		if err := validateViewerID(viewerID); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for viewerID, center := range centers {
		r.data[viewerID] = center
	}
	return nil
}

// Count возвращает количество сохранённых центров
func (r *MemoryViewerRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func (r *MemoryViewerRepo) Close() error { return nil }
