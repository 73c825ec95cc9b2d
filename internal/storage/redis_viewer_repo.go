package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/voxel-terrain/internal/logging"
	"github.com/annel0/voxel-terrain/internal/vec"
)

// RedisViewerRepo хранит центры наблюдателей в Redis с TTL
type RedisViewerRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// viewerRecord значение ключа наблюдателя
type viewerRecord struct {
	ViewerID  uint64    `json:"viewer_id"`
	Center    vec.Vec3  `json:"center"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей; 0 без ограничения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "terrain:viewer:",
		TTL:       24 * time.Hour,
	}
}

// NewRedisViewerRepo подключается к Redis и проверяет соединение
func NewRedisViewerRepo(cfg *RedisConfig) (*RedisViewerRepo, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultRedisConfig().KeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.Info("Подключено к Redis %s", cfg.Addr)
	return &RedisViewerRepo{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}, nil
}

func (r *RedisViewerRepo) key(viewerID uint64) string {
	return r.keyPrefix + strconv.FormatUint(viewerID, 10)
}

func (r *RedisViewerRepo) encode(viewerID uint64, center vec.Vec3) ([]byte, error) {
	return json.Marshal(viewerRecord{
		ViewerID:  viewerID,
		Center:    center,
		UpdatedAt: time.Now().UTC(),
	})
}

// Save сохраняет центр наблюдателя
func (r *RedisViewerRepo) Save(ctx context.Context, viewerID uint64, center vec.Vec3) error {
	if err := validateViewerID(viewerID); err != nil {
		return err
	}
	data, err := r.encode(viewerID, center)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(viewerID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения центра наблюдателя %d: %w", viewerID, err)
	}
	return nil
}

// Load загружает центр наблюдателя
func (r *RedisViewerRepo) Load(ctx context.Context, viewerID uint64) (vec.Vec3, bool, error) {
	if err := validateViewerID(viewerID); err != nil {
		return vec.Vec3{}, false, err
	}

	data, err := r.client.Get(ctx, r.key(viewerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return vec.Vec3{}, false, nil
	}
	if err != nil {
		return vec.Vec3{}, false, fmt.Errorf("ошибка загрузки центра наблюдателя %d: %w", viewerID, err)
	}

	var rec viewerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return vec.Vec3{}, false, fmt.Errorf("ошибка десериализации центра наблюдателя %d: %w", viewerID, err)
	}
	return rec.Center, true, nil
}

// Delete удаляет центр наблюдателя
func (r *RedisViewerRepo) Delete(ctx context.Context, viewerID uint64) error {
	if err := validateViewerID(viewerID); err != nil {
		return err
	}
	n, err := r.client.Del(ctx, r.key(viewerID)).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления центра наблюдателя %d: %w", viewerID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrViewerNotFound, viewerID)
	}
	return nil
}

// BatchSave записывает центры одной транзакцией MULTI/EXEC
func (r *RedisViewerRepo) BatchSave(ctx context.Context, centers map[uint64]vec.Vec3) error {
	if len(centers) == 0 {
		return nil
	}
	for viewerID := range centers {
		if err := validateViewerID(viewerID); err != nil {
			return err
		}
	}

	pipe := r.client.TxPipeline()
	for viewerID, center := range centers {
		data, err := r.encode(viewerID, center)
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(viewerID), data, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка пакетного сохранения центров: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisViewerRepo) Close() error {
	return r.client.Close()
}
