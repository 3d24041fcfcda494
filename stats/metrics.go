package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs     *prometheus.CounterVec
	Fetches  *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pnodelogger_stats_job_runs_total",
			Help: "Enrichment job invocations by outcome.",
		}, []string{"outcome"}),
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pnodelogger_stats_fetches_total",
			Help: "Per-node get-stats attempts by result.",
		}, []string{"result"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pnodelogger_stats_job_duration_seconds",
			Help:    "Wall time of a complete enrichment run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

func (m *Metrics) observe(r RunReport) {
	m.Runs.WithLabelValues("completed").Inc()
	m.Fetches.WithLabelValues("fetched").Add(float64(r.Fetched))
	m.Fetches.WithLabelValues("warm").Add(float64(r.Warm))
	m.Fetches.WithLabelValues("skipped").Add(float64(r.Skipped))
	m.Fetches.WithLabelValues("failed").Add(float64(r.Failed))
	m.Duration.Observe(r.Duration.Seconds())
}
