// Package resolver supplies the virtual modules a playground bundle is
// built from.
//
// Three esbuild plugins intercept imports:
//   - entry: the synthetic entry path, loaded as the current source (JSX)
//   - runtime: "react", "react-dom" and "react-dom/client", loaded as shims
//     that read the UI runtime off window.React / window.ReactDOM
//   - registry: anything under the registry prefix, loaded as re-exports
//     of window.ComponentRegistry with a placeholder fallback
//
// The content producers are plain functions so they can be exercised
// without running the bundler.
package resolver
