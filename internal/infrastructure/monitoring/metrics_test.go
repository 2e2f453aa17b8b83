package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordCompile("ok", time.Millisecond)
		m.RecordCycle("mounted", time.Millisecond)
		m.RecordMount(true)
		m.RecordEvent("click")
		m.IncInterrupts()
		m.RecordPlaceholder("Widget")
		m.IncLayoutRefreshes()
		m.SetSessionsActive(1)
		m.IncWSConnections()
		m.DecWSConnections()
		m.RecordAPICall("render", "ok", time.Millisecond)
		m.RecordDiagnostic("compile_error")
	})
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}

func TestRecordCompile(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCompile("ok", 10*time.Millisecond)
	m.RecordCompile("error", 5*time.Millisecond)
	m.RecordCompile("cached", 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CompilesTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CompilesTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CompilesTotal.WithLabelValues("cached")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.Compiles)
	assert.Equal(t, int64(1), snap.CompileErrors)
}

func TestRecordAPICallAndDiagnostic(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAPICall("compile", "ok", time.Millisecond)
	m.RecordAPICall("compile", "compile_error", time.Millisecond)
	m.RecordDiagnostic("runtime_error")
	m.RecordDiagnostic("runtime_error")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.APICallsTotal.WithLabelValues("compile", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.APICallsTotal.WithLabelValues("compile", "compile_error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues("runtime_error")))
}

func TestSnapshotConnections(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordMount(true)
	m.RecordMount(false)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.ActiveConnections)
	assert.Equal(t, int64(1), snap.Mounts)
	assert.Equal(t, int64(1), snap.RuntimeErrors)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(Handler(reg)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "playground_uptime_seconds"))
	assert.True(t, strings.Contains(w.Body.String(), "playground_http_requests_total"))
}
