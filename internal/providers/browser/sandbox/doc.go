/*
Package sandbox mounts compiled playground bundles into an isolated
JavaScript runtime and renders them to HTML.

# Overview

Each Executor owns a goja VM and a Document built on x/net/html. The VM
gets a window-shaped global object, a console that is captured instead of
printed, and a React-compatible UI runtime implemented in Go:

  - React: createElement, Fragment, context, hooks, Children helpers
  - ReactDOM: createRoot with render and unmount
  - ComponentRegistry: native versions of every registry component

Timers are inert. Module-system globals (require, process, module,
exports) are removed.

# Rendering

Roots render synchronously. A render pass re-runs every component from
the root element, reconciles children by key or position so hook state
survives, commits the result into the container, and then runs layout
and passive effects. State updates made by effects or event handlers
schedule another pass; more than Config.MaxRenderPasses passes is an
error.

Every host element carries a data-pg-id attribute. Dispatch routes
client events to that element and bubbles them through its ancestors.

# Execution Lifecycle

	exec, _ := sandbox.NewExecutor(sandbox.DefaultConfig(), "AppBundle", logger, metrics)
	_ = exec.Publish(table)

	if err := exec.Execute(ctx, bundle.Code); err != nil {
		// *types.Diagnostic with kind runtime_error, nothing mounted
	}
	html := exec.HTML()

Execute always tears down the previous mount first: unmount, script
removal, container cleared. A bundle without a default export is
rejected before anything renders.

# Limits

Every call into the VM runs under Config.Timeout. A timeout or context
cancellation interrupts the VM; Go panics poison the runtime and the
next Execute boots a fresh one.
*/
package sandbox
