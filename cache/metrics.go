package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the fallback cache does. Remote write failures never
// reach the caller and are only visible here.
type Metrics struct {
	Hits                prometheus.Counter
	LocalHits           prometheus.Counter
	Misses              prometheus.Counter
	RemoteReadFailures  prometheus.Counter
	RemoteWriteFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Name: "pnodelogger_cache_remote_hits_total",
			Help: "Cache lookups served by the remote tier.",
		}),
		LocalHits: f.NewCounter(prometheus.CounterOpts{
			Name: "pnodelogger_cache_local_hits_total",
			Help: "Cache lookups served by the in-process tier.",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Name: "pnodelogger_cache_misses_total",
			Help: "Cache lookups found in neither tier.",
		}),
		RemoteReadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pnodelogger_cache_remote_read_failures_total",
			Help: "Remote tier reads that failed or were skipped while disconnected.",
		}),
		RemoteWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pnodelogger_cache_remote_write_failures_total",
			Help: "Remote tier writes that failed and were swallowed.",
		}),
	}
}
