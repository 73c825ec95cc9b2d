// terrainctl генерирует мир вокруг наблюдателя, применяет правки,
// строит сетки и сохраняет отредактированные чанки в BadgerDB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/annel0/voxel-terrain/internal/config"
	"github.com/annel0/voxel-terrain/internal/logging"
	"github.com/annel0/voxel-terrain/internal/mesh"
	"github.com/annel0/voxel-terrain/internal/storage"
	"github.com/annel0/voxel-terrain/internal/streaming"
	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/world"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain возвращает код выхода, чтобы отложенные закрытия логов успели выполниться
func realMain(args []string) int {
	fs := flag.NewFlagSet("terrainctl", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Путь к YAML конфигурации (по умолчанию TERRAIN_CONFIG)")
		centerFlag = fs.String("center", "", "Ключ чанка центра x,y,z (по умолчанию сохранённый центр наблюдателя)")
		viewerID   = fs.Uint64("viewer", 0, "ID наблюдателя (по умолчанию viewers.id)")
		hold       = fs.Duration("hold", 0, "Сколько держать /metrics после прогона")
		edits      editList
	)
	fs.Var(&edits, "edit", "Правка x,y,z=материал в мировых координатах (можно повторять)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := logging.InitDefaultLogger("terrainctl"); err != nil {
		log.Printf("❌ Ошибка инициализации логирования: %v", err)
		return 1
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Ошибка загрузки конфигурации: %v", err)
		log.Printf("❌ Ошибка загрузки конфигурации: %v", err)
		return 1
	}
	level := logging.ParseLevel(cfg.Log.Level)
	logging.Default().SetConsoleLevel(level)
	logging.GetLoggerManager().SetConsoleLevel(level)
	defer logging.GetLoggerManager().CloseAll()
	if *viewerID == 0 {
		*viewerID = cfg.Viewers.ID
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *centerFlag, *viewerID, edits, *hold); err != nil {
		logging.Error("❌ %v", err)
		log.Printf("❌ %v", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, centerFlag string, viewerID uint64, edits editList, hold time.Duration) error {
	store := world.NewChunkStore(world.NewGeneratorFromConfig(cfg))
	store.SetVerticalBounds(cfg.World.MinKeyY, cfg.World.MaxKeyY)

	// === ХРАНИЛИЩЕ ===
	chunks, err := storage.NewChunkStorage(storage.Options{
		Path:     cfg.Storage.Path,
		InMemory: cfg.Storage.InMemory,
		Compress: cfg.Storage.Compress,
		Logger:   logging.GetStorageLogger(),
	})
	if err != nil {
		return err
	}
	defer chunks.Close()

	meta, err := chunks.EnsureWorld(cfg.World.Seed, cfg.World.Depth)
	if err != nil {
		return err
	}
	restored, err := chunks.LoadAll(store)
	if err != nil {
		return err
	}
	logging.Info("🌍 Мир %s (seed=%d, depth=%d): восстановлено чанков %d", meta.ID, meta.Seed, meta.Depth, restored)

	viewers, err := storage.NewViewerRepo(cfg.Viewers)
	if err != nil {
		return err
	}
	defer viewers.Close()

	center, err := resolveCenter(ctx, viewers, viewerID, centerFlag)
	if err != nil {
		return err
	}

	// === МЕТРИКИ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := streaming.NewMetrics(registry)
	if cfg.Metrics.Addr != "" {
		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
		go func() {
			logging.Info("📈 Prometheus /metrics доступен по адресу %s", cfg.Metrics.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
			}
		}()
		defer server.Close()
	}

	// === СТРИМИНГ ===
	mesher := mesh.NewSurfaceMesher(mesh.NewPalette(cfg.Mesh.Palette), cfg.Mesh.Scale)
	streamer, err := streaming.NewStreamer(store, mesher, streaming.Options{
		Ranges:  cfg.LOD.Ranges,
		Workers: cfg.Streaming.Workers,
		OnEvict: chunks.SaveChunk,
		Metrics: metrics,
		Logger:  logging.GetStreamingLogger(),
	})
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := streamer.Move(ctx, center)
	if err != nil {
		return err
	}
	triangles := 0
	for _, md := range res.Meshes {
		triangles += md.TriangleCount()
	}
	logging.Info("Центр %s: загружено %d чанков, сеток %d, треугольников %d за %v",
		center, res.Loaded, len(res.Meshes), triangles, time.Since(start))

	for _, e := range edits {
		pos := world.VoxelFromWorld(e.Pos, float64(cfg.Mesh.Scale))
		meshes := streamer.Edit(pos, e.Material)
		logging.Info("Правка %s = %d: перестроено сеток %d", pos, e.Material, len(meshes))
	}

	saved, err := chunks.SaveEdited(store)
	if err != nil {
		return err
	}
	if err := viewers.Save(ctx, viewerID, center); err != nil {
		logging.Warn("Центр наблюдателя %d не сохранён: %v", viewerID, err)
	}

	fmt.Printf("world=%s center=%s resident=%d meshes=%d triangles=%d saved=%d rss=%s\n",
		meta.ID, center, store.Len(), len(res.Meshes), triangles, saved, rssString())

	if hold > 0 && cfg.Metrics.Addr != "" {
		select {
		case <-ctx.Done():
		case <-time.After(hold):
		}
	}
	return nil
}

// resolveCenter берёт центр из флага, иначе из сохранённого центра наблюдателя
func resolveCenter(ctx context.Context, viewers storage.ViewerRepo, viewerID uint64, flagValue string) (vec.Vec3, error) {
	if flagValue != "" {
		return parseKey(flagValue)
	}
	center, found, err := viewers.Load(ctx, viewerID)
	if err != nil {
		return vec.Vec3{}, err
	}
	if found {
		logging.Info("Наблюдатель %d продолжает с центра %s", viewerID, center)
	}
	return center, nil
}

// rssString возвращает резидентную память процесса
func rssString() string {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return "n/a"
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1fMiB", float64(info.RSS)/(1<<20))
}
