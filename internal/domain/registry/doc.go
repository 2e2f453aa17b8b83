// Package registry provides the component registry bridge.
//
// The registry is a data table mapping a family key (the trailing segment of
// an import such as "@/components/ui/card") to the ordered list of symbols
// the family exports. Each symbol carries a render description (tag, slot,
// base classes, static attributes) that the sandbox turns into a native
// component.
//
// Components:
//   - Family / Component: catalog entries, one YAML file per family
//   - Loader: discovers and parses catalog files from any fs.FS
//   - Table: read-only lookup by family key and by symbol name
//   - Bridge: idempotent RegisterAll that tolerates per-family failures
//
// Example Usage:
//
//	bridge := registry.NewBridge(registry.Catalog(), logger, metrics)
//	table, err := bridge.RegisterAll(ctx)
//	symbols := table.Symbols("card") // Card, CardHeader, ...
package registry
