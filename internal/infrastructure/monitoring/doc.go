/*
Package monitoring provides Prometheus metrics for the playground.

# Overview

Metrics cover the HTTP surface, bundler invocations, compile-then-mount
cycles, sandbox activity (mounts, events, interrupts, placeholders, layout
refreshes), sessions and WebSocket traffic.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg)))

	timer := monitoring.NewTimer()
	// ... compile ...
	metrics.RecordCompile("ok", timer.Elapsed())
*/
package monitoring
