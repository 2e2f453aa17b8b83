// Package types provides shared data structures for the playground.
//
// Core Types:
//   - Diagnostic: user-visible compile, runtime or init failure
//   - View: what the preview pane shows for a session
//   - ConsoleEntry: captured sandbox console output
//
// A View carries exactly one of three render states: initializing, a
// Diagnostic, or mounted markup.
//
// Example Usage:
//
//	diag := types.NewDiagnostic(types.CompileError, "Unexpected end of file")
//	view := types.DiagnosticView(diag, 3)
package types
