package http

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// Track starts timing an operation. The returned func records the result:
// "ok", the diagnostic kind, or "error".
func (hm *HandlerMetrics) Track(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		result := "ok"
		var diag *types.Diagnostic
		switch {
		case err == nil:
		case errors.As(err, &diag):
			result = string(diag.Kind)
			hm.metrics.RecordDiagnostic(result)
		default:
			result = "error"
		}
		hm.metrics.RecordAPICall(operation, result, time.Since(start))
	}
}
