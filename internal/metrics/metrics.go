package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons recorded by discovery
const (
	SkipNoOwnerID    = "no_owner_id"
	SkipUnresolved   = "unresolved_owner"
	SkipEmptyOrError = "empty_or_unreadable"
)

// Metrics holds the Prometheus collectors for discovery, windows and search.
type Metrics struct {
	DiscoveryRuns     prometheus.Counter
	RegisteredFiles   prometheus.Gauge
	SkippedFiles      *prometheus.CounterVec
	DiscoveryDuration prometheus.Histogram
	WindowReads       *prometheus.CounterVec
	Searches          *prometheus.CounterVec
	SearchDuration    prometheus.Histogram
	SearchMatches     prometheus.Counter
	FileErrors        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DiscoveryRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logan",
			Subsystem: "discovery",
			Name:      "runs_total",
			Help:      "Total number of completed discovery passes.",
		}),
		RegisteredFiles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "logan",
			Subsystem: "registry",
			Name:      "files",
			Help:      "Number of log files in the published registry.",
		}),
		SkippedFiles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logan",
			Subsystem: "discovery",
			Name:      "skipped_files_total",
			Help:      "Candidate files excluded from the registry by reason.",
		}, []string{"reason"}),
		DiscoveryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logan",
			Subsystem: "discovery",
			Name:      "duration_seconds",
			Help:      "Duration of discovery passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		WindowReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logan",
			Subsystem: "window",
			Name:      "reads_total",
			Help:      "Window reads by mode and status.",
		}, []string{"mode", "status"}),
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logan",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Searches by status.",
		}, []string{"status"}), // status: ok, empty, invalid, error
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logan",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Duration of multi-file searches.",
			Buckets:   prometheus.DefBuckets,
		}),
		SearchMatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logan",
			Subsystem: "search",
			Name:      "matches_total",
			Help:      "Total number of matches reported.",
		}),
		FileErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logan",
			Subsystem: "files",
			Name:      "errors_total",
			Help:      "Per-file errors recovered locally, by operation.",
		}, []string{"op"}), // op: discover, search, window, follow
	}
}

// Noop returns unregistered collectors, for tests and library use
func Noop() *Metrics {
	return New(nil)
}
