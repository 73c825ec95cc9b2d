package streaming

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики стриминга чанков.
type Metrics struct {
	ChunksLoaded  prometheus.Counter
	ChunksMeshed  prometheus.Counter
	ChunksEvicted *prometheus.CounterVec
	Edits         prometheus.Counter
	MeshSeconds   prometheus.Histogram
	Resident      prometheus.Gauge
}

// Причины в метке outcome у ChunksEvicted
const (
	evictRemoved   = "removed"
	evictPersisted = "persisted"
	evictKept      = "kept"
)

// NewMetrics создаёт метрики и регистрирует их в reg. При reg == nil
// метрики работают, но никуда не экспортируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunksLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Subsystem: "streaming",
			Name:      "chunks_loaded_total",
			Help:      "Чанков, загруженных или сгенерированных при смене центра.",
		}),
		ChunksMeshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Subsystem: "streaming",
			Name:      "chunks_meshed_total",
			Help:      "Чанков, для которых построена непустая сетка.",
		}),
		ChunksEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Subsystem: "streaming",
			Name:      "chunks_evicted_total",
			Help:      "Чанков, покинувших все оболочки, по исходу выгрузки.",
		}, []string{"outcome"}),
		Edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Subsystem: "streaming",
			Name:      "edits_total",
			Help:      "Применённых правок вокселей.",
		}),
		MeshSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "terrain",
			Subsystem: "streaming",
			Name:      "mesh_duration_seconds",
			Help:      "Время построения сетки одного чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		Resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Subsystem: "streaming",
			Name:      "chunks_resident",
			Help:      "Чанков в хранилище мира после последнего перемещения.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.ChunksLoaded, m.ChunksMeshed, m.ChunksEvicted, m.Edits, m.MeshSeconds, m.Resident)
	}
	return m
}
