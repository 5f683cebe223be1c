// Package metrics provides Prometheus metrics for vendor screening runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups screening collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	StageOutcomesTotal     *prometheus.CounterVec   // Stage completions by stage and outcome
	StageDurationSeconds   *prometheus.HistogramVec // Stage latency by stage
	FlagsAppendedTotal     *prometheus.CounterVec   // Persisted flags by stage
	RunDurationSeconds     prometheus.Histogram
	TokenRefreshesTotal    *prometheus.CounterVec // Registry token exchanges by result
	CacheHitsTotal         *prometheus.CounterVec
	CacheMissesTotal       *prometheus.CounterVec
	NotificationsSentTotal *prometheus.CounterVec // Flag notifications by channel and result
}

// New registers the collectors with reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		StageOutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quickfi_screening_stage_outcomes_total",
			Help: "Total number of screening stage completions by stage and outcome",
		}, []string{"stage", "outcome"}),

		StageDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quickfi_screening_stage_duration_seconds",
			Help:    "Duration of screening stages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),

		FlagsAppendedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quickfi_screening_flags_appended_total",
			Help: "Total number of flags appended to vendors by stage",
		}, []string{"stage"}),

		RunDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quickfi_screening_run_duration_seconds",
			Help:    "Duration of full vendor screening runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		TokenRefreshesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quickfi_registry_token_refreshes_total",
			Help: "Total number of registry access token exchanges by result",
		}, []string{"result"}),

		CacheHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quickfi_source_cache_hits_total",
			Help: "Total number of source cache hits by cache",
		}, []string{"cache"}),

		CacheMissesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quickfi_source_cache_misses_total",
			Help: "Total number of source cache misses by cache",
		}, []string{"cache"}),

		NotificationsSentTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quickfi_notifications_total",
			Help: "Total number of vendor flag notifications by channel and result",
		}, []string{"channel", "result"}),
	}
}

// RecordStage records one stage completion.
func (m *Metrics) RecordStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageOutcomesTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFlagsAppended counts flags persisted for stage.
func (m *Metrics) RecordFlagsAppended(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FlagsAppendedTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordRun observes the duration of a whole run.
func (m *Metrics) RecordRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDurationSeconds.Observe(d.Seconds())
}

// RecordTokenRefresh counts a token exchange; ok=false records a failure.
func (m *Metrics) RecordTokenRefresh(ok bool) {
	if m == nil {
		return
	}
	m.TokenRefreshesTotal.WithLabelValues(result(ok)).Inc()
}

// RecordCacheHit records a hit in the named cache.
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a miss in the named cache.
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordNotification counts a notification attempt on channel.
func (m *Metrics) RecordNotification(channel string, ok bool) {
	if m == nil {
		return
	}
	m.NotificationsSentTotal.WithLabelValues(channel, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
