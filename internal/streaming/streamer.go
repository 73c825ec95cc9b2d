// Package streaming держит резидентным набор чанков вокруг наблюдателя:
// при смене центра догружает вошедшие в оболочки LOD ключи, строит их сетки
// на пуле воркеров и выгружает ключи, покинувшие все оболочки.
package streaming

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxel-terrain/internal/lod"
	"github.com/annel0/voxel-terrain/internal/logging"
	"github.com/annel0/voxel-terrain/internal/mesh"
	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
	"github.com/annel0/voxel-terrain/internal/world"
)

// EvictFunc получает отредактированный чанк перед выгрузкой (обычно пишет его
// на диск). При ошибке чанк остаётся резидентным.
type EvictFunc func(c *world.Chunk) error

// Options параметры стримера
type Options struct {
	Ranges  lod.Ranges
	Workers int // 0 = GOMAXPROCS
	OnEvict EvictFunc
	Metrics *Metrics
	Logger  *logging.Logger
}

// MoveResult итог одного перемещения центра
type MoveResult struct {
	Loaded  int              // ключей загружено или перегенерировано
	Meshes  []*mesh.MeshData // непустые сетки, по возрастанию ключа
	Evicted []vec.Vec3       // ключей выгружено, по возрастанию
	Kept    []vec.Vec3       // отредактированные чанки вне оболочек, оставшиеся в памяти
}

// Streamer связывает хранилище мира, мешер и оболочки LOD.
// Move и Edit сериализуются: правка не пересекается с построением сеток.
type Streamer struct {
	store   *world.ChunkStore
	mesher  *mesh.SurfaceMesher
	opts    Options
	metrics *Metrics
	logger  *logging.Logger

	mu      sync.Mutex
	center  vec.Vec3
	started bool
	scratch chan *mesh.Scratch
}

// NewStreamer создаёт стример; таблица дальностей должна быть корректной
func NewStreamer(store *world.ChunkStore, mesher *mesh.SurfaceMesher, opts Options) (*Streamer, error) {
	if err := opts.Ranges.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	// Один буфер на воркера и один для правок
	size := 1 << store.Depth()
	scratch := make(chan *mesh.Scratch, opts.Workers+1)
	for i := 0; i < opts.Workers+1; i++ {
		scratch <- mesh.NewScratch(size)
	}

	return &Streamer{
		store:   store,
		mesher:  mesher,
		opts:    opts,
		metrics: metrics,
		logger:  opts.Logger,
		scratch: scratch,
	}, nil
}

// Center возвращает текущий центр; ok=false до первого Move
func (s *Streamer) Center() (vec.Vec3, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center, s.started
}

// Move перемещает центр наблюдателя. Первый вызов загружает все оболочки
// целиком, последующие только разницу. При ошибке центр не меняется,
// и следующий Move повторит работу: загрузка уже резидентных ключей идемпотентна.
func (s *Streamer) Move(ctx context.Context, center vec.Vec3) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &MoveResult{}
	var resultMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for level := 0; level < s.opts.Ranges.Levels(); level++ {
		var keys []vec.Vec3
		if s.started {
			keys = lod.DeltaKeys(s.center, center, s.opts.Ranges, level)
		} else {
			keys = lod.KeysInShell(center, s.opts.Ranges, level)
		}

		for _, key := range keys {
			key, level := key, level // per-iteration copies (pre-Go 1.22 loop semantics)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := s.store.Load(key, level)
				s.metrics.ChunksLoaded.Inc()

				md := s.meshChunk(c)

				resultMu.Lock()
				result.Loaded++
				if md != nil {
					result.Meshes = append(result.Meshes, md)
				}
				resultMu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("перемещение в %s прервано: %w", center, err)
	}

	if s.started {
		s.evict(s.center, center, result)
	}

	s.center = center
	s.started = true
	s.metrics.Resident.Set(float64(s.store.Len()))

	sort.Slice(result.Meshes, func(i, j int) bool { return result.Meshes[i].Key.Less(result.Meshes[j].Key) })
	sort.Slice(result.Evicted, func(i, j int) bool { return result.Evicted[i].Less(result.Evicted[j]) })
	sort.Slice(result.Kept, func(i, j int) bool { return result.Kept[i].Less(result.Kept[j]) })

	s.logger.Debug("Центр %s: загружено %d, сеток %d, выгружено %d, оставлено %d",
		center, result.Loaded, len(result.Meshes), len(result.Evicted), len(result.Kept))
	return result, nil
}

// evict выгружает ключи, покинувшие все оболочки.
// Ключ принадлежал ровно одной оболочке прежнего центра, поэтому обход
// LeavingKeys по уровням не даёт повторов.
func (s *Streamer) evict(prev, center vec.Vec3, result *MoveResult) {
	for level := 0; level < s.opts.Ranges.Levels(); level++ {
		for _, key := range lod.LeavingKeys(prev, center, s.opts.Ranges, level) {
			if _, stays := lod.LevelOf(center, key, s.opts.Ranges); stays {
				continue
			}
			c, ok := s.store.Get(key)
			if !ok {
				continue
			}

			if !c.Edited {
				// Сгенерированный чанк восстановим генератором
				if s.store.Remove(key) == world.RemoveRefused {
					s.store.Take(key)
				}
				result.Evicted = append(result.Evicted, key)
				s.metrics.ChunksEvicted.WithLabelValues(evictRemoved).Inc()
				continue
			}

			if s.opts.OnEvict == nil {
				result.Kept = append(result.Kept, key)
				s.metrics.ChunksEvicted.WithLabelValues(evictKept).Inc()
				continue
			}
			if err := s.opts.OnEvict(c); err != nil {
				s.logger.Warn("Чанк %s оставлен в памяти: %v", key, err)
				result.Kept = append(result.Kept, key)
				s.metrics.ChunksEvicted.WithLabelValues(evictKept).Inc()
				continue
			}
			s.store.Take(key)
			result.Evicted = append(result.Evicted, key)
			s.metrics.ChunksEvicted.WithLabelValues(evictPersisted).Inc()
		}
	}
}

// Edit применяет правку и возвращает новые сетки всех затронутых чанков,
// включая пустые: старую сетку чанка, ставшего однородным, нужно убрать.
func (s *Streamer) Edit(pos vec.Vec3, m voxel.Material) []*mesh.MeshData {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.store.SetVoxel(pos, m)
	s.metrics.Edits.Inc()

	meshes := make([]*mesh.MeshData, 0, len(changed))
	for _, kc := range changed {
		md := s.meshChunk(kc.Chunk)
		if md == nil {
			md = &mesh.MeshData{Key: kc.Key, LOD: kc.Chunk.LOD}
		}
		meshes = append(meshes, md)
	}
	return meshes
}

// meshChunk строит сетку на свободном буфере; nil для чанков без поверхности
func (s *Streamer) meshChunk(c *world.Chunk) *mesh.MeshData {
	if !c.NeedsMesh() {
		return nil
	}

	scratch := <-s.scratch
	defer func() { s.scratch <- scratch }()

	start := time.Now()
	md := s.mesher.MeshChunk(c, scratch)
	s.metrics.MeshSeconds.Observe(time.Since(start).Seconds())

	if md.IsEmpty() {
		return nil
	}
	s.metrics.ChunksMeshed.Inc()
	return md
}
