// Package metrics holds the Prometheus instruments shared by the ingestion
// worker and the retrieval path. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "caso"

type Metrics struct {
	registry *prometheus.Registry

	ingestions          *prometheus.CounterVec
	ingestionDuration   prometheus.Histogram
	chunksWritten       prometheus.Counter
	upsertBatchDuration *prometheus.HistogramVec
	searches            *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	embeddedTexts       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Documents that reached a terminal ingestion status",
		}, []string{"status"}),
		ingestionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Time from claim to terminal status for one document",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		chunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Chunk points written to the vector store",
		}),
		upsertBatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upsert_batch_duration_seconds",
			Help:      "Vector store batch write latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mode"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Similarity searches by outcome",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
		embeddedTexts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedded_texts_total",
			Help:      "Texts sent to the embedding provider after cache misses",
		}),
	}

	reg.MustRegister(
		m.ingestions,
		m.ingestionDuration,
		m.chunksWritten,
		m.upsertBatchDuration,
		m.searches,
		m.cacheLookups,
		m.embeddedTexts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) IngestionFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(status).Inc()
	m.ingestionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ChunksWritten(n int) {
	if m == nil {
		return
	}
	m.chunksWritten.Add(float64(n))
}

// BatchWritten records one vector store batch; mode is "async" or "sync".
func (m *Metrics) BatchWritten(mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upsertBatchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) Search(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(cache, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) TextsEmbedded(n int) {
	if m == nil {
		return
	}
	m.embeddedTexts.Add(float64(n))
}
