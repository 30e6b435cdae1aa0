package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.SessionStarted("kick")
	m.SessionEnded("kick", "cancelled")
	m.SaveResult("kick", nil)
	m.SaveResult("kick", errors.New("boom"))
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.FlowOpened()
	m.FlowOpened()
	m.FlowClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsStarted.WithLabelValues("kick")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("kick", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.LockRejected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "guildsettings_lock_rejections_total 1"), string(body))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SessionStarted("ban")
	m.LockExpired()
	m.CacheLookup(true)
	assert.Nil(t, m.Registry())
}
