package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordStage("sanctions", "FLAGGED", 2*time.Second)
	m.RecordStage("sanctions", "FLAGGED", time.Second)
	m.RecordFlagsAppended("sanctions", 2)
	m.RecordFlagsAppended("sanctions", 0)
	m.RecordTokenRefresh(true)
	m.RecordTokenRefresh(false)
	m.RecordCacheHit("registry")
	m.RecordCacheMiss("registry")
	m.RecordNotification("email", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageOutcomesTotal.WithLabelValues("sanctions", "FLAGGED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FlagsAppendedTotal.WithLabelValues("sanctions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshesTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("registry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSentTotal.WithLabelValues("email", "success")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStage("identity", "PASS", time.Millisecond)
		m.RecordFlagsAppended("identity", 1)
		m.RecordRun(time.Second)
		m.RecordTokenRefresh(true)
		m.RecordCacheHit("registry")
		m.RecordCacheMiss("registry")
		m.RecordNotification("kafka", false)
	})
}
