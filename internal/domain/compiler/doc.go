// Package compiler turns playground source into a single IIFE bundle.
//
// The bundler is esbuild's Go API. Every import the bundle needs is served
// by the resolver plugins, so a build never touches the filesystem. Bundler
// errors come back as compile_error diagnostics carrying esbuild's own
// formatted messages. Identical source built against the same registry
// version is served from a small bounded cache.
package compiler
