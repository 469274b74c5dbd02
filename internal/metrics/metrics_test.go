package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugless/internal/history"
	"github.com/joescharf/bugless/internal/identity"
	"github.com/joescharf/bugless/internal/review"
)

var (
	_ review.Observer   = (*Metrics)(nil)
	_ history.Observer  = (*Metrics)(nil)
	_ identity.Observer = (*Metrics)(nil)
)

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveAnalysis("ok", 2*time.Second)
	m.ObserveAnalysis("ok", time.Second)
	m.ObserveAnalysis("validation", time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("validation")))

	m.ObserveHistoryRead("unindexed", "ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyReads.WithLabelValues("unindexed", "ok")))

	m.ObserveHistorySave(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historySaves.WithLabelValues("false")))

	m.ObserveAuth("login", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authOps.WithLabelValues("login", "true")))

	m.SetClients(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.clients))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAuth("signup", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `bugless_auth_operations_total{ok="true",op="signup"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
