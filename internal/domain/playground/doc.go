// Package playground drives the edit-compile-mount loop.
//
// A Driver owns one preview: it collects editor changes, waits until the
// bundler, the component registry and the preview container are all
// ready, then runs compile-then-mount cycles behind a debounce. At most
// one cycle runs at a time; an edit that lands while a cycle is running
// is queued and only the latest text is compiled next.
//
// A Host owns the shared pieces (compiler, registry bridge, render pool)
// and hands out Sessions, each wrapping a Driver and its own sandbox
// executor.
package playground
