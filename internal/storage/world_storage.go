package storage

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxel-terrain/internal/logging"
	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/world"
)

var (
	// ErrNotReady возвращается после Close
	ErrNotReady = errors.New("хранилище не готово")
	// ErrWorldMismatch база создана для мира с другой глубиной сеток
	ErrWorldMismatch = errors.New("база принадлежит другому миру")
)

const (
	chunkPrefix = "chunk:"
	metaKey     = "world:meta"
)

// Статусы записи чанка
const (
	StatusEdited    = "edited"
	StatusGenerated = "generated"
)

// ChunkRecord запись чанка в базе. Data содержит hex сетки, при Compressed сжатой zstd.
type ChunkRecord struct {
	Key        vec.Vec3  `json:"key"`
	Position   vec.Vec3  `json:"position"` // мировая координата локального (0,0,0)
	Status     string    `json:"status"`
	Mode       string    `json:"mode"`
	LOD        int       `json:"lod"`
	Compressed bool      `json:"compressed"`
	Data       string    `json:"data"`
	SavedAt    time.Time `json:"saved_at"`
}

// WorldMeta описание мира, которому принадлежит база
type WorldMeta struct {
	ID        string    `json:"id"`
	Seed      int64     `json:"seed"`
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"created_at"`
}

// Options параметры открытия хранилища
type Options struct {
	Path     string // каталог данных; база лежит в Path/world
	InMemory bool   // badger без диска (тесты, пробные прогоны)
	Compress bool   // сжимать сетки zstd

	// Logger логгер компонента; nil пишет в глобальный логгер
	Logger *logging.Logger
}

// ChunkStorage сохраняет отредактированные чанки в BadgerDB.
// Ядро мира о хранилище не знает: сюда попадают байты сетки и запись о статусе.
type ChunkStorage struct {
	db       *badger.DB
	dbPath   string
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	logger   *logging.Logger
	mutex    sync.RWMutex
	isReady  bool
}

// NewChunkStorage открывает (или создаёт) хранилище чанков
func NewChunkStorage(opts Options) (*ChunkStorage, error) {
	dbPath := ""
	badgerOpts := badger.DefaultOptions("").WithInMemory(true)
	if !opts.InMemory {
		dbPath = filepath.Join(opts.Path, "world")
		badgerOpts = badger.DefaultOptions(dbPath)
	}
	badgerOpts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &ChunkStorage{
		db:       db,
		dbPath:   dbPath,
		compress: opts.Compress,
		encoder:  encoder,
		decoder:  decoder,
		logger:   opts.Logger,
		isReady:  true,
	}, nil
}

// Close закрывает хранилище
func (cs *ChunkStorage) Close() error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if !cs.isReady {
		return nil
	}

	cs.isReady = false
	cs.encoder.Close()
	cs.decoder.Close()
	return cs.db.Close()
}

// EnsureWorld читает описание мира или создаёт новое с уникальным ID.
// База мира другой глубины отвергается: сохранённые сетки ей не подойдут.
func (cs *ChunkStorage) EnsureWorld(seed int64, depth int) (*WorldMeta, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, ErrNotReady
	}

	var meta WorldMeta
	err := cs.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			meta = WorldMeta{
				ID:        uuid.NewString(),
				Seed:      seed,
				Depth:     depth,
				CreatedAt: time.Now().UTC(),
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			return txn.Set([]byte(metaKey), data)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения описания мира: %w", err)
	}

	if meta.Depth != depth {
		return nil, fmt.Errorf("%w: мир %s глубины %d, ожидалась %d", ErrWorldMismatch, meta.ID, meta.Depth, depth)
	}
	return &meta, nil
}

func chunkKey(key vec.Vec3) []byte {
	return []byte(fmt.Sprintf("%s%d:%d:%d", chunkPrefix, key.X, key.Y, key.Z))
}

func parseChunkKey(raw []byte) (vec.Vec3, error) {
	var key vec.Vec3
	_, err := fmt.Sscanf(string(raw), chunkPrefix+"%d:%d:%d", &key.X, &key.Y, &key.Z)
	return key, err
}

// encodeRecord собирает запись чанка
func (cs *ChunkStorage) encodeRecord(c *world.Chunk) ([]byte, error) {
	raw, err := c.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации сетки %s: %w", c.Key, err)
	}
	if cs.compress {
		raw = cs.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))
	}

	status := StatusGenerated
	if c.Edited {
		status = StatusEdited
	}
	rec := ChunkRecord{
		Key:        c.Key,
		Position:   world.KeyOrigin(c.Key, world.SeamlessSize(c.Grid.Depth())),
		Status:     status,
		Mode:       c.Mode.String(),
		LOD:        c.LOD,
		Compressed: cs.compress,
		Data:       hex.EncodeToString(raw),
		SavedAt:    time.Now().UTC(),
	}
	return json.Marshal(rec)
}

// decodeRecord разбирает запись и возвращает байты сетки
func (cs *ChunkStorage) decodeRecord(data []byte) (*ChunkRecord, []byte, error) {
	var rec ChunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("ошибка десериализации записи: %w", err)
	}
	raw, err := hex.DecodeString(rec.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка декодирования hex: %w", err)
	}
	if rec.Compressed {
		raw, err = cs.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка распаковки zstd: %w", err)
		}
	}
	return &rec, raw, nil
}

// SaveChunk сохраняет чанк
func (cs *ChunkStorage) SaveChunk(c *world.Chunk) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return ErrNotReady
	}

	data, err := cs.encodeRecord(c)
	if err != nil {
		return err
	}

	err = cs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(c.Key), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	cs.logger.Debug("Чанк %s сохранён (%d байт)", c.Key, len(data))
	return nil
}

// SaveEdited сохраняет все отредактированные чанки хранилища мира одним пакетом.
// Возвращает число записанных чанков.
func (cs *ChunkStorage) SaveEdited(store *world.ChunkStore) (int, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return 0, ErrNotReady
	}

	wb := cs.db.NewWriteBatch()
	defer wb.Cancel()

	saved := 0
	for _, key := range store.Keys() {
		c, ok := store.Get(key)
		if !ok || !c.Edited {
			continue
		}
		data, err := cs.encodeRecord(c)
		if err != nil {
			return saved, err
		}
		if err := wb.Set(chunkKey(key), data); err != nil {
			return saved, fmt.Errorf("ошибка записи пакета: %w", err)
		}
		saved++
	}

	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка сохранения пакета в BadgerDB: %w", err)
	}
	cs.logger.Info("Сохранено чанков: %d", saved)
	return saved, nil
}

// LoadChunk читает чанк. found=false, если записи нет.
// Повреждённая запись логируется и возвращается ошибкой, чанк не создаётся.
func (cs *ChunkStorage) LoadChunk(key vec.Vec3, depth int) (*world.Chunk, bool, error) {
	rec, raw, found, err := cs.loadRaw(key)
	if err != nil || !found {
		return nil, false, err
	}

	c, err := world.ChunkFromBytes(key, raw, depth)
	if err != nil {
		logging.LogCorruptBlob(string(chunkKey(key)), err, raw)
		return nil, false, err
	}
	c.LOD = rec.LOD
	return c, true, nil
}

// RestoreInto загружает чанк в хранилище мира, если он сохранён
func (cs *ChunkStorage) RestoreInto(store *world.ChunkStore, key vec.Vec3) (bool, error) {
	rec, raw, found, err := cs.loadRaw(key)
	if err != nil || !found {
		return false, err
	}

	if _, err := store.Restore(key, raw, rec.LOD); err != nil {
		logging.LogCorruptBlob(string(chunkKey(key)), err, raw)
		return false, err
	}
	return true, nil
}

// loadRaw читает запись и возвращает распакованные байты сетки
func (cs *ChunkStorage) loadRaw(key vec.Vec3) (*ChunkRecord, []byte, bool, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, nil, false, ErrNotReady
	}

	var data []byte
	err := cs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	rec, raw, err := cs.decodeRecord(data)
	if err == nil && rec.Key != key {
		err = fmt.Errorf("ключ записи %s не совпадает с %s", rec.Key, key)
	}
	if err != nil {
		logging.LogCorruptBlob(string(chunkKey(key)), err, data)
		return nil, nil, false, err
	}
	return rec, raw, true, nil
}

// LoadAll восстанавливает в хранилище мира все сохранённые чанки.
// Повреждённые записи пропускаются и логируются; возвращается число восстановленных.
func (cs *ChunkStorage) LoadAll(store *world.ChunkStore) (int, error) {
	keys, err := cs.ChunkKeys()
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, key := range keys {
		ok, err := cs.RestoreInto(store, key)
		if err != nil {
			cs.logger.Warn("Чанк %s пропущен: %v", key, err)
			continue
		}
		if ok {
			restored++
		}
	}
	return restored, nil
}

// ChunkKeys возвращает ключи всех сохранённых чанков в порядке байтов ключа badger
func (cs *ChunkStorage) ChunkKeys() ([]vec.Vec3, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, ErrNotReady
	}

	var keys []vec.Vec3
	err := cs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(chunkPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key, err := parseChunkKey(it.Item().Key())
			if err != nil {
				cs.logger.Warn("Некорректный ключ %q: %v", it.Item().Key(), err)
				continue
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода BadgerDB: %w", err)
	}
	return keys, nil
}

// DeleteChunk удаляет сохранённый чанк
func (cs *ChunkStorage) DeleteChunk(key vec.Vec3) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return ErrNotReady
	}

	err := cs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(key))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}
