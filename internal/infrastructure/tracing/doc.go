/*
Package tracing provides lightweight request and cycle tracing.

Spans carry a trace id, a span id and an optional parent. Finished spans are
submitted to a buffered collector that logs them through zap. HTTP requests
are traced by HTTPMiddleware; each compile-then-mount cycle opens a span of
its own with compile and mount children.

# Usage

	tracer := tracing.New("playground", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "cycle")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Trace Format

Traces use standard HTTP headers for propagation:
  - X-Trace-ID: Unique identifier for entire request flow
  - X-Span-ID: Identifier for current operation
*/
package tracing
