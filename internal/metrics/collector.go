// Package metrics содержит Prometheus-метрики сборки вокселей и статистику процесса
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/voxelcore/internal/logging"
)

const namespace = "voxelcore"

// Collector метрики конвейера сборки
type Collector struct {
	chunksBuilt   prometheus.Counter
	chunksEmpty   prometheus.Counter
	boxesEmitted  prometheus.Counter
	bricks        *prometheus.CounterVec
	volumeBytes   prometheus.Counter
	octreeNodes   prometheus.Gauge
	chunkDuration prometheus.Histogram
}

// NewCollector создает метрики и регистрирует их в reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		chunksBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_built_total",
			Help:      "Общее число собранных чанков.",
		}),
		chunksEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_empty_total",
			Help:      "Чанков без единого занятого вокселя.",
		}),
		boxesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "greedy_boxes_total",
			Help:      "Боксов, выданных жадным мешером.",
		}),
		bricks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sdf_bricks_total",
			Help:      "Бриков поля расстояний по мипам.",
		}, []string{"mip"}),
		volumeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sdf_bytes_total",
			Help:      "Байт упакованных полей расстояний.",
		}),
		octreeNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "octree_nodes",
			Help:      "Количество узлов октодерева.",
		}),
		chunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_build_seconds",
			Help:      "Время сборки одного чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}

	reg.MustRegister(c.chunksBuilt, c.chunksEmpty, c.boxesEmitted, c.bricks, c.volumeBytes, c.octreeNodes, c.chunkDuration)
	return c
}

// ObserveChunk учитывает собранный чанк
func (c *Collector) ObserveChunk(boxes int, empty bool, took time.Duration) {
	c.chunksBuilt.Inc()
	if empty {
		c.chunksEmpty.Inc()
	}
	c.boxesEmitted.Add(float64(boxes))
	c.chunkDuration.Observe(took.Seconds())
}

// ObserveVolume учитывает собранное поле расстояний
func (c *Collector) ObserveVolume(bricksPerMip []int, bytes int) {
	for mip, n := range bricksPerMip {
		c.bricks.WithLabelValues(strconv.Itoa(mip)).Add(float64(n))
	}
	c.volumeBytes.Add(float64(bytes))
}

// SetOctreeNodes обновляет количество узлов
func (c *Collector) SetOctreeNodes(n int) {
	c.octreeNodes.Set(float64(n))
}

// StartHTTP запускает HTTP-эндпоинт /metrics для gatherer на addr.
// Метод неблокирующий; возвращает сервер для остановки.
func StartHTTP(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return srv
}
