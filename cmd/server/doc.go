// Package main is the entry point for the live component playground.
//
// The server compiles the editor's JSX with esbuild, mounts it in a goja
// sandbox with a small React-compatible runtime and streams the rendered
// preview back over WebSocket.
//
// Architecture:
//
//	Editor (browser) → WebSocket → Driver → Compiler (esbuild)
//	                                      → Sandbox (goja + html tree)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Edit a file on disk and watch the preview follow it
//	./server -watch ./app.jsx
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
