// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output
//
// Besides plain zap usage the Logger knows how to forward sandbox console
// output and surfaced diagnostics, tagged with the owning session.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Session(sid).Diagnostic(diag)
package logging
