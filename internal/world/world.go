package world

import (
	"sort"
	"sync"

	"github.com/annel0/voxel-terrain/internal/logging"
	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
)

// RemoveResult итог попытки удалить чанк
type RemoveResult int

const (
	Removed RemoveResult = iota
	RemoveMissing
	// RemoveRefused чанк содержит правки или вариации и не может быть выброшен молча
	RemoveRefused
)

// String возвращает название результата
func (r RemoveResult) String() string {
	switch r {
	case Removed:
		return "removed"
	case RemoveMissing:
		return "missing"
	case RemoveRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// KeyedChunk чанк вместе с ключом, под которым он хранится
type KeyedChunk struct {
	Key   vec.Vec3
	Chunk *Chunk
}

// ChunkStore владеет всеми резидентными чанками мира.
//
// На каждый ключ приходится не больше одного чанка. Карта защищена мьютексом,
// но сами сетки чанков не синхронизированы: правку и построение сетки одного
// чанка вызывающий должен разводить во времени.
type ChunkStore struct {
	chunks    map[vec.Vec3]*Chunk
	generator *Generator
	depth     int
	size      int64
	seamless  int64
	minKeyY   *int64
	maxKeyY   *int64
	mu        sync.RWMutex
}

// NewChunkStore создаёт пустое хранилище с генератором мира
func NewChunkStore(generator *Generator) *ChunkStore {
	depth := generator.Depth()
	return &ChunkStore{
		chunks:    make(map[vec.Vec3]*Chunk),
		generator: generator,
		depth:     depth,
		size:      int64(1) << depth,
		seamless:  SeamlessSize(depth),
	}
}

// SetVerticalBounds ограничивает мир по оси Y ключей: правки за пределами
// игнорируются, чтение возвращает воздух. nil снимает ограничение.
func (s *ChunkStore) SetVerticalBounds(minKeyY, maxKeyY *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minKeyY = minKeyY
	s.maxKeyY = maxKeyY
}

// Depth возвращает глубину сеток
func (s *ChunkStore) Depth() int {
	return s.depth
}

// SeamlessSize возвращает бесшовный размер чанка
func (s *ChunkStore) SeamlessSize() int64 {
	return s.seamless
}

// Generator возвращает генератор мира
func (s *ChunkStore) Generator() *Generator {
	return s.generator
}

// Generate строит чанк без вставки в хранилище
func (s *ChunkStore) Generate(key vec.Vec3, lod int) *Chunk {
	return s.generator.Generate(key, lod)
}

// Get возвращает резидентный чанк
func (s *ChunkStore) Get(key vec.Vec3) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[key]
	return c, ok
}

// Len возвращает число резидентных чанков
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Keys возвращает ключи резидентных чанков в порядке x, y, z
func (s *ChunkStore) Keys() []vec.Vec3 {
	s.mu.RLock()
	keys := make([]vec.Vec3, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Insert кладёт чанк под его ключ. Чанк по умолчанию не заменяет чанк с
// вариациями, а неотредактированный не заменяет отредактированный.
// Возвращает false, если вставка отклонена.
func (s *ChunkStore) Insert(c *Chunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(c)
}

func (s *ChunkStore) insertLocked(c *Chunk) bool {
	if old, ok := s.chunks[c.Key]; ok && old != c {
		if (!old.IsDefault && c.IsDefault) || (old.Edited && !c.Edited) {
			logging.Debug("Вставка чанка %s отклонена: на месте чанк с правками", c.Key)
			return false
		}
	}
	s.chunks[c.Key] = c
	return true
}

// Remove удаляет чанк, только если он по умолчанию
func (s *ChunkStore) Remove(key vec.Vec3) RemoveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chunks[key]
	if !ok {
		return RemoveMissing
	}
	if !c.IsDefault {
		logging.Debug("Удаление чанка %s отклонено: чанк не по умолчанию", key)
		return RemoveRefused
	}
	delete(s.chunks, key)
	return Removed
}

// Take забирает чанк из хранилища независимо от его состояния.
// После Take вызывающий отвечает за сохранность правок (например, пишет их на диск).
func (s *ChunkStore) Take(key vec.Vec3) (*Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chunks[key]
	if !ok {
		return nil, false
	}
	delete(s.chunks, key)
	if !c.IsDefault {
		logging.Debug("Чанк %s передан вызывающему (edited=%v)", key, c.Edited)
	}
	return c, true
}

// Load возвращает резидентный чанк или генерирует и вставляет новый.
// Отредактированный чанк возвращается как есть на любом уровне детализации.
func (s *ChunkStore) Load(key vec.Vec3, lod int) *Chunk {
	s.mu.RLock()
	c, ok := s.chunks[key]
	s.mu.RUnlock()
	if ok && (c.Edited || c.LOD == lod) {
		return c
	}

	generated := s.generator.Generate(key, lod)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Пока шла генерация, чанк могли отредактировать
	if current, ok := s.chunks[key]; ok && current.Edited {
		return current
	}
	// Сгенерированный чанк другого LOD заменяется целиком: правок в нём нет
	s.chunks[key] = generated
	logging.LogChunkLoaded(key.X, key.Y, key.Z, generated.LOD, generated.Mode.String())
	return generated
}

// Restore восстанавливает чанк уровня lod из сохранённых байтов и ставит его
// в хранилище уже заполненным. Повреждённые данные не устанавливаются.
func (s *ChunkStore) Restore(key vec.Vec3, raw []byte, lod int) (*Chunk, error) {
	c, err := ChunkFromBytes(key, raw, s.depth)
	if err != nil {
		return nil, err
	}
	c.LOD = lod

	s.mu.Lock()
	s.chunks[key] = c
	s.mu.Unlock()
	return c, nil
}

// GetVoxel возвращает материал по мировой координате.
// Если чанк не загружен, возвращается воздух; генерации при чтении нет.
func (s *ChunkStore) GetVoxel(pos vec.Vec3) voxel.Material {
	key := VoxelPosToKey(pos, s.seamless)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.keyInBoundsLocked(key) {
		return voxel.Air
	}
	c, ok := s.chunks[key]
	if !ok {
		return voxel.Air
	}
	return c.Get(LocalCoord(pos, key, s.seamless))
}

// SetVoxel записывает материал во все чанки, в сетку которых попадает координата.
// Из-за дублирования границы это до восьми чанков. Отсутствующие чанки
// генерируются на LOD 0; неотредактированный чанк грубого LOD перегенерируется
// на LOD 0 перед правкой. Возвращает все изменённые чанки в порядке ключей.
func (s *ChunkStore) SetVoxel(pos vec.Vec3, m voxel.Material) []KeyedChunk {
	xLo, xHi := keyRange(pos.X, s.size, s.seamless)
	yLo, yHi := keyRange(pos.Y, s.size, s.seamless)
	zLo, zHi := keyRange(pos.Z, s.size, s.seamless)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []KeyedChunk
	for x := xLo; x <= xHi; x++ {
		for y := yLo; y <= yHi; y++ {
			for z := zLo; z <= zHi; z++ {
				key := vec.Vec3{X: x, Y: y, Z: z}
				if !s.keyInBoundsLocked(key) {
					continue
				}

				c, ok := s.chunks[key]
				if !ok || (!c.Edited && c.LOD != 0) {
					c = s.generator.Generate(key, 0)
					s.chunks[key] = c
				}

				local := LocalCoord(pos, key, s.seamless)
				if !c.InBounds(local) {
					continue
				}
				c.set(local, m)
				c.Classify()
				out = append(out, KeyedChunk{Key: key, Chunk: c})
			}
		}
	}

	if len(out) == 0 {
		logging.Debug("Правка %s вне границ мира проигнорирована", pos)
	}
	return out
}

func (s *ChunkStore) keyInBoundsLocked(key vec.Vec3) bool {
	if s.minKeyY != nil && key.Y < *s.minKeyY {
		return false
	}
	if s.maxKeyY != nil && key.Y > *s.maxKeyY {
		return false
	}
	return true
}
