package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so domain packages can take one unconditionally.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// API metrics
	APICallsTotal   *prometheus.CounterVec
	APICallDuration *prometheus.HistogramVec

	// Compile metrics
	CompilesTotal   *prometheus.CounterVec
	CompileDuration prometheus.Histogram

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Diagnostics by kind
	DiagnosticsTotal *prometheus.CounterVec

	// Sandbox metrics
	MountsTotal       *prometheus.CounterVec
	EventsTotal       *prometheus.CounterVec
	Interrupts        prometheus.Counter
	PlaceholdersTotal *prometheus.CounterVec
	LayoutRefreshes   prometheus.Counter

	// Session metrics
	SessionsActive prometheus.Gauge

	// Registry metrics
	RegistryComponents prometheus.Gauge
	FamilyFailures     prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	Compiles          int64   `json:"compiles"`
	CompileErrors     int64   `json:"compile_errors"`
	Mounts            int64   `json:"mounts"`
	RuntimeErrors     int64   `json:"runtime_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector registered with reg. Pass
// prometheus.DefaultRegisterer in production and prometheus.NewRegistry()
// in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// API metrics
		APICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_api_calls_total",
				Help: "Total number of one-shot API operations by result",
			},
			[]string{"operation", "result"},
		),
		APICallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_api_call_duration_seconds",
				Help:    "One-shot API operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),

		// Compile metrics
		CompilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_compiles_total",
				Help: "Total number of bundler invocations by result",
			},
			[]string{"result"},
		),
		CompileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playground_compile_duration_seconds",
				Help:    "Bundler duration in seconds",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),

		// Cycle metrics
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_cycles_total",
				Help: "Total number of compile-then-mount cycles by outcome",
			},
			[]string{"outcome"},
		),
		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playground_cycle_duration_seconds",
				Help:    "Cycle duration from compile start to mount in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		DiagnosticsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_diagnostics_total",
				Help: "Total number of diagnostics shown by kind",
			},
			[]string{"kind"},
		),

		// Sandbox metrics
		MountsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_mounts_total",
				Help: "Total number of sandbox mounts by result",
			},
			[]string{"result"},
		),
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_events_total",
				Help: "Total number of UI events dispatched into the sandbox",
			},
			[]string{"type"},
		),
		Interrupts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_sandbox_interrupts_total",
				Help: "Total number of scripts interrupted by the sandbox timeout",
			},
		),
		PlaceholdersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_placeholders_total",
				Help: "Total number of placeholder renders for unknown components",
			},
			[]string{"component"},
		),
		LayoutRefreshes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_layout_refreshes_total",
				Help: "Total number of layout refresh notifications",
			},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_sessions_active",
				Help: "Number of active playground sessions",
			},
		),

		// Registry metrics
		RegistryComponents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_registry_components",
				Help: "Number of components in the published registry",
			},
		),
		FamilyFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_registry_family_failures_total",
				Help: "Total number of component families that failed to load",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "playground_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCompile records one bundler result: "ok", "error" or "cached"
func (m *Metrics) RecordCompile(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CompilesTotal.WithLabelValues(result).Inc()
	if result != "cached" {
		m.CompileDuration.Observe(duration.Seconds())
	}

	m.mu.Lock()
	m.snapshot.Compiles++
	if result == "error" {
		m.snapshot.CompileErrors++
	}
	m.mu.Unlock()
}

// RecordCycle records a finished cycle by outcome
func (m *Metrics) RecordCycle(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(duration.Seconds())
}

// RecordAPICall records a one-shot compile or render request
func (m *Metrics) RecordAPICall(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.APICallsTotal.WithLabelValues(operation, result).Inc()
	m.APICallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDiagnostic records a diagnostic surfaced to a user
func (m *Metrics) RecordDiagnostic(kind string) {
	if m == nil {
		return
	}
	m.DiagnosticsTotal.WithLabelValues(kind).Inc()
}

// RecordMount records a sandbox mount attempt
func (m *Metrics) RecordMount(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.MountsTotal.WithLabelValues(result).Inc()

	m.mu.Lock()
	if ok {
		m.snapshot.Mounts++
	} else {
		m.snapshot.RuntimeErrors++
	}
	m.mu.Unlock()
}

// RecordEvent records a dispatched UI event
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType).Inc()
}

// IncInterrupts records a timed-out script
func (m *Metrics) IncInterrupts() {
	if m == nil {
		return
	}
	m.Interrupts.Inc()
}

// RecordPlaceholder records a placeholder render for an unknown component
func (m *Metrics) RecordPlaceholder(component string) {
	if m == nil {
		return
	}
	m.PlaceholdersTotal.WithLabelValues(component).Inc()
}

// IncLayoutRefreshes records a layout refresh notification
func (m *Metrics) IncLayoutRefreshes() {
	if m == nil {
		return
	}
	m.LayoutRefreshes.Inc()
}

// SetSessionsActive sets the number of active sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// SetRegistryComponents sets the published registry size
func (m *Metrics) SetRegistryComponents(count int) {
	if m == nil {
		return
	}
	m.RegistryComponents.Set(float64(count))
}

// IncFamilyFailures records a family that failed to load
func (m *Metrics) IncFamilyFailures() {
	if m == nil {
		return
	}
	m.FamilyFailures.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON health endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
