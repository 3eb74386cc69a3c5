// Package metrics exposes Prometheus collectors for the scoring pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Event results.
const (
	EventScored   = "scored"
	EventFiltered = "filtered"
	EventFailed   = "failed"
)

// Window statuses.
const (
	WindowScored  = "scored"
	WindowSkipped = "skipped"
	WindowFailed  = "failed"
)

// Cache results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds all IPS collectors
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	WindowsTotal     *prometheus.CounterVec
	Score            *prometheus.HistogramVec
	SnapshotDuration *prometheus.HistogramVec
	ActorStatsCache  *prometheus.CounterVec
	SnapshotCache    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ips_events_total",
				Help: "Processed posts by result",
			},
			[]string{"result"},
		),
		WindowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ips_windows_total",
				Help: "Evaluated windows by status",
			},
			[]string{"window", "status"},
		),
		Score: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ips_score",
				Help:    "Distribution of IPS values",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"window"},
		),
		SnapshotDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ips_snapshot_duration_seconds",
				Help:    "Market snapshot latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"window"},
		),
		ActorStatsCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ips_actor_stats_cache_total",
				Help: "Actor stats cache lookups by result",
			},
			[]string{"result"},
		),
		SnapshotCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ips_snapshot_cache_total",
				Help: "Market snapshot cache lookups by result",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.EventsTotal,
			m.WindowsTotal,
			m.Score,
			m.SnapshotDuration,
			m.ActorStatsCache,
			m.SnapshotCache,
		)
	}
	return m
}

func (m *Metrics) ObserveEvent(result string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveWindow(window, status string) {
	if m == nil {
		return
	}
	m.WindowsTotal.WithLabelValues(window, status).Inc()
}

func (m *Metrics) ObserveScore(window string, ips float64) {
	if m == nil {
		return
	}
	m.Score.WithLabelValues(window).Observe(ips)
}

func (m *Metrics) ObserveSnapshot(window string, d time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotDuration.WithLabelValues(window).Observe(d.Seconds())
}

func (m *Metrics) ObserveActorStatsCache(result string) {
	if m == nil {
		return
	}
	m.ActorStatsCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSnapshotCache(result string) {
	if m == nil {
		return
	}
	m.SnapshotCache.WithLabelValues(result).Inc()
}
