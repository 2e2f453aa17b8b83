// Package server assembles the playground: logger, metrics, tracer, the
// playground host, the optional file watcher and the gin router.
//
// Routes:
//   - GET  /             editor page
//   - GET  /health       readiness
//   - GET  /api/registry component families
//   - POST /api/compile  one-shot bundle (gzip)
//   - POST /api/render   one-shot render in a pooled sandbox (gzip)
//   - POST /api/logs     client-side error reports
//   - GET  /metrics      Prometheus
//   - GET  /metrics/json metric snapshot
//   - GET  /ws           live session
package server
