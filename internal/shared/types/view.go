package types

import "time"

// ViewStatus is the render state of the preview pane
type ViewStatus string

const (
	StatusInitializing ViewStatus = "initializing"
	StatusDiagnostic   ViewStatus = "diagnostic"
	StatusMounted      ViewStatus = "mounted"
)

// ConsoleEntry is one line of sandbox console output
type ConsoleEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// View is the preview pane snapshot pushed to the client.
// Diagnostic is set only for StatusDiagnostic, HTML only for StatusMounted.
type View struct {
	Status     ViewStatus     `json:"status"`
	Diagnostic *Diagnostic    `json:"diagnostic,omitempty"`
	Banner     *Diagnostic    `json:"banner,omitempty"`
	HTML       string         `json:"html,omitempty"`
	Generation uint64         `json:"generation"`
	Cycle      uint64         `json:"cycle"`
	Layout     int            `json:"layout"`
	Console    []ConsoleEntry `json:"console,omitempty"`
}

// InitializingView is shown until the bundler is ready
func InitializingView() View {
	return View{Status: StatusInitializing}
}

// DiagnosticView shows a diagnostic with an empty preview
func DiagnosticView(diag *Diagnostic, generation uint64) View {
	return View{
		Status:     StatusDiagnostic,
		Diagnostic: diag,
		Generation: generation,
	}
}

// MountedView shows rendered markup
func MountedView(html string, generation uint64) View {
	return View{
		Status:     StatusMounted,
		HTML:       html,
		Generation: generation,
	}
}
