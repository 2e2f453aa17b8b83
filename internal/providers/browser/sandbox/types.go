package sandbox

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/playground/internal/shared/types"
)

var (
	// ErrNoDefaultExport is returned when a bundle does not expose a default export
	ErrNoDefaultExport = errors.New("No default export found in the React component")
	// ErrNotMounted is returned for events sent while nothing is mounted
	ErrNotMounted = errors.New("nothing is mounted")
	// ErrUnknownTarget is returned for events addressed to a missing node
	ErrUnknownTarget = errors.New("unknown event target")
	// ErrTooManyRenders is returned when updates keep scheduling renders
	ErrTooManyRenders = errors.New("Too many re-renders. Updates kept scheduling more renders")
)

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Per-call execution timeout
	MaxRenderPasses  int           // Render passes allowed per flush
	MaxCallStackSize int           // goja call stack limit
	EnableConsole    bool          // Capture console.log/warn/error
	ContainerID      string        // id of the preview container element
}

// DefaultConfig returns the default sandbox configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxRenderPasses:  25,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		ContainerID:      "preview",
	}
}

// LogEntry represents console output
type LogEntry = types.ConsoleEntry

// RenderResult holds the outcome of a one-shot render
type RenderResult struct {
	HTML         string        `json:"html"`
	Console      []LogEntry    `json:"console"`
	Placeholders []string      `json:"placeholders,omitempty"`
	Duration     time.Duration `json:"duration"`
}
