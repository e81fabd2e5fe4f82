package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "grantcore"

var (
	// DocumentWrites counts document writes.
	// Labels: op (create, update, transition, soft_delete, erase), outcome
	// (ok, noop, conflict, sealed, invalid, error)
	DocumentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "documents",
		Name:      "writes_total",
		Help:      "Document writes by operation and outcome",
	}, []string{"op", "outcome"})

	// VersionCacheLookups counts version LRU lookups.
	// Labels: result (hit, miss)
	VersionCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "documents",
		Name:      "version_cache_lookups_total",
		Help:      "Immutable version cache lookups",
	}, []string{"result"})

	// SearchLatency measures index searches.
	// Labels: filtered (true, false)
	SearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "search_seconds",
		Help:      "Vector index search latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"filtered"})

	// IndexEntries tracks the number of indexed embeddings.
	IndexEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "entries",
		Help:      "Embeddings in the vector index",
	})

	// IndexLists tracks the number of centroid lists.
	IndexLists = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "lists",
		Help:      "Centroid lists in the current index generation",
	})

	// IndexRebuilds measures index rebuilds.
	IndexRebuilds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "rebuild_seconds",
		Help:      "Vector index rebuild duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	// ReferencesDecayed counts system references whose score was decayed.
	ReferencesDecayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "references",
		Name:      "decayed_total",
		Help:      "System references decayed",
	})

	// TrendRuns counts trend aggregation runs.
	// Labels: status (ok, error)
	TrendRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "trends",
		Name:      "runs_total",
		Help:      "Trend aggregation runs",
	}, []string{"status"})

	// EventPublishFailures counts document events that could not be
	// delivered.
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Document events that failed to publish",
	})

	// RPCDuration measures gRPC handlers.
	// Labels: method, code
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "duration_seconds",
		Help:      "gRPC handler latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "code"})
)

// ObserveSearch records the latency of a search that started at start.
func ObserveSearch(start time.Time, filtered bool) {
	label := "false"
	if filtered {
		label = "true"
	}
	SearchLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

// SetIndexSize records the shape of the index.
func SetIndexSize(entries, lists int) {
	IndexEntries.Set(float64(entries))
	IndexLists.Set(float64(lists))
}
