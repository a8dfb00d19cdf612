package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters. A nil *Metrics records nothing, so
// CLI runs that never expose /metrics can pass nil.
type Metrics struct {
	RowsInserted   *prometheus.CounterVec
	RowsFailed     *prometheus.CounterVec
	GenerationRuns *prometheus.CounterVec
	RPCDuration    *prometheus.HistogramVec
	CacheHits      *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingops_rows_inserted_total",
			Help: "Rows written to the backend, by table",
		}, []string{"table"}),

		RowsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingops_rows_failed_total",
			Help: "Rows whose insert request failed, by table",
		}, []string{"table"}),

		GenerationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingops_generation_runs_total",
			Help: "Generator runs by generator and outcome",
		}, []string{"generator", "status"}),

		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trainingops_rpc_duration_seconds",
			Help:    "Stored procedure latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"function"}),

		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trainingops_cache_hits_total",
			Help: "In-process cache hits, by cache",
		}, []string{"cache"}),
	}
}

func (m *Metrics) inserted(table string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsInserted.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) failed(table string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsFailed.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) generation(generator, status string) {
	if m == nil {
		return
	}
	m.GenerationRuns.WithLabelValues(generator, status).Inc()
}

func (m *Metrics) rpc(function string, started time.Time) {
	if m == nil {
		return
	}
	m.RPCDuration.WithLabelValues(function).Observe(time.Since(started).Seconds())
}

func (m *Metrics) cacheHit(name string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(name).Inc()
}
