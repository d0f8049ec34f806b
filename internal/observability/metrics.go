package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// catalog service.
type Metrics struct {
	FeaturesProcessed prometheus.Counter
	EventsInserted    prometheus.Counter
	EventsSkipped     *prometheus.CounterVec // label: reason={unsupported_geometry,missing_id,invalid_coordinates,duplicate_id,insert_failed}
	SyncRuns          *prometheus.CounterVec // label: outcome={success,error}
	SyncDuration      prometheus.Histogram
	SyncRunning       prometheus.Gauge

	Queries       *prometheus.CounterVec   // label: operation={list,radius,polygon,boundary,summary}
	QueryDuration *prometheus.HistogramVec // label: operation
	StatsCache    *prometheus.CounterVec   // label: result={hit,miss,bypass}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeaturesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_api",
			Name:      "features_processed_total",
			Help:      "Total feed features examined by the ingestion pipeline.",
		}),
		EventsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_api",
			Name:      "events_inserted_total",
			Help:      "Total events persisted to the catalog.",
		}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_api",
			Name:      "events_skipped_total",
			Help:      "Feed features skipped during ingestion, by reason.",
		}, []string{"reason"}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_api",
			Name:      "sync_runs_total",
			Help:      "Feed synchronization runs, by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_api",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete fetch-parse-insert sync run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_api",
			Name:      "sync_running",
			Help:      "1 while a sync run is in progress, 0 otherwise.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_api",
			Name:      "queries_total",
			Help:      "Catalog queries served, by operation.",
		}, []string{"operation"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quake_api",
			Name:      "query_duration_seconds",
			Help:      "Catalog query duration in seconds, by operation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"operation"}),
		StatsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_api",
			Name:      "stats_cache_total",
			Help:      "Summary statistics cache lookups, by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.FeaturesProcessed,
		m.EventsInserted,
		m.EventsSkipped,
		m.SyncRuns,
		m.SyncDuration,
		m.SyncRunning,
		m.Queries,
		m.QueryDuration,
		m.StatsCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeaturesProcessed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_api", Name: "features_processed_total"}),
		EventsInserted:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_api", Name: "events_inserted_total"}),
		EventsSkipped:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_api", Name: "events_skipped_total"}, []string{"reason"}),
		SyncRuns:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_api", Name: "sync_runs_total"}, []string{"outcome"}),
		SyncDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_api", Name: "sync_duration_seconds"}),
		SyncRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_api", Name: "sync_running"}),
		Queries:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_api", Name: "queries_total"}, []string{"operation"}),
		QueryDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "quake_api", Name: "query_duration_seconds"}, []string{"operation"}),
		StatsCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_api", Name: "stats_cache_total"}, []string{"result"}),
	}
}
