package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	questions       *prometheus.CounterVec
	answerLatency   *prometheus.HistogramVec
	reindexRuns     *prometheus.CounterVec
	reindexDuration prometheus.Histogram
	indexChunks     prometheus.Gauge
	docsSkipped     prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amitybot",
			Name:      "questions_total",
			Help:      "Questions answered, by route and outcome.",
		}, []string{"kind", "outcome"}),
		answerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amitybot",
			Name:      "answer_duration_seconds",
			Help:      "Time to produce a complete answer.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		reindexRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amitybot",
			Name:      "reindex_runs_total",
			Help:      "Knowledge base rebuilds, by outcome.",
		}, []string{"outcome"}),
		reindexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "amitybot",
			Name:      "reindex_duration_seconds",
			Help:      "Wall time of successful rebuilds.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		indexChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amitybot",
			Name:      "index_chunks",
			Help:      "Chunks in the active index generation.",
		}),
		docsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amitybot",
			Name:      "ingest_documents_skipped_total",
			Help:      "Documents skipped during ingestion.",
		}),
	}
	reg.MustRegister(m.questions, m.answerLatency, m.reindexRuns, m.reindexDuration, m.indexChunks, m.docsSkipped)
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) ObserveQuestion(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(kind, outcome).Inc()
	m.answerLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveReindex(chunks, skipped int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reindexRuns.WithLabelValues("error").Inc()
		return
	}
	m.reindexRuns.WithLabelValues("ok").Inc()
	m.reindexDuration.Observe(elapsed.Seconds())
	m.indexChunks.Set(float64(chunks))
	m.docsSkipped.Add(float64(skipped))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
