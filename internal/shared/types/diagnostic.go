package types

import (
	"errors"
	"fmt"
)

// DiagnosticKind classifies a Diagnostic
type DiagnosticKind string

const (
	CompileError DiagnosticKind = "compile_error"
	RuntimeError DiagnosticKind = "runtime_error"
	InitError    DiagnosticKind = "init_error"
)

// Diagnostic is a (kind, message) pair surfaced to the user
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// NewDiagnostic creates a diagnostic
func NewDiagnostic(kind DiagnosticKind, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: message}
}

// Diagnosticf creates a diagnostic with a formatted message
func Diagnosticf(kind DiagnosticKind, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements error
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// AsDiagnostic extracts a diagnostic from err. Errors that are not
// diagnostics are downgraded to the fallback kind.
func AsDiagnostic(err error, fallback DiagnosticKind) *Diagnostic {
	if err == nil {
		return nil
	}
	var diag *Diagnostic
	if errors.As(err, &diag) {
		return diag
	}
	return NewDiagnostic(fallback, err.Error())
}
