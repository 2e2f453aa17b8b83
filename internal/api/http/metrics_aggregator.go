package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/playground/internal/domain/playground"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
)

// MetricsAggregator combines the metric snapshot with live host state
type MetricsAggregator struct {
	metrics *monitoring.Metrics
	host    *playground.Host
}

// NewMetricsAggregator creates a metrics aggregator
func NewMetricsAggregator(metrics *monitoring.Metrics, host *playground.Host) *MetricsAggregator {
	return &MetricsAggregator{metrics: metrics, host: host}
}

// MetricsSnapshot represents a snapshot of all playground metrics
type MetricsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Counters  monitoring.MetricsSnapshot `json:"counters"`
	Sandbox   map[string]interface{}     `json:"sandbox"`
	Summary   MetricsSummary             `json:"summary"`
}

// MetricsSummary provides high-level ratios
type MetricsSummary struct {
	CompileErrorRate float64 `json:"compile_error_rate"`
	RuntimeErrorRate float64 `json:"runtime_error_rate"`
	ActiveSessions   int64   `json:"active_sessions"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// GetAggregatedMetrics returns the JSON metrics view
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	counters := ma.metrics.Snapshot()
	c.JSON(http.StatusOK, MetricsSnapshot{
		Timestamp: time.Now(),
		Counters:  counters,
		Sandbox:   ma.host.Stats(),
		Summary:   summarize(counters),
	})
}

func summarize(s monitoring.MetricsSnapshot) MetricsSummary {
	summary := MetricsSummary{
		ActiveSessions: s.ActiveSessions,
		UptimeSeconds:  s.UptimeSeconds,
	}
	if s.Compiles > 0 {
		summary.CompileErrorRate = float64(s.CompileErrors) / float64(s.Compiles)
	}
	if attempts := s.Mounts + s.RuntimeErrors; attempts > 0 {
		summary.RuntimeErrorRate = float64(s.RuntimeErrors) / float64(attempts)
	}
	return summary
}
