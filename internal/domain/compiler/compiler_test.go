package compiler

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/playground/internal/domain/registry"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

const counterSource = `import React, { useState } from 'react';
import { Card, CardContent } from '@/components/ui/card';

export default function App() {
  const [n, setN] = useState(0);
  return (
    <Card>
      <CardContent>
        <p>Count: {n}</p>
        <button onClick={() => setN(n + 1)}>+</button>
      </CardContent>
    </Card>
  );
}
`

func testTable() *registry.Table {
	return registry.NewTable([]registry.Family{
		{Key: "card", Components: []registry.Component{{Name: "Card"}, {Name: "CardContent"}}},
	})
}

func newReadyCompiler(t *testing.T, metrics *monitoring.Metrics) *Compiler {
	t.Helper()
	c := New(DefaultOptions(), nil, metrics)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func requireDiagnostic(t *testing.T, err error, kind types.DiagnosticKind) *types.Diagnostic {
	t.Helper()
	require.Error(t, err)
	diag, ok := err.(*types.Diagnostic)
	require.True(t, ok, "expected *types.Diagnostic, got %T", err)
	assert.Equal(t, kind, diag.Kind)
	return diag
}

func TestCompileProducesIIFE(t *testing.T) {
	c := newReadyCompiler(t, nil)

	bundle, err := c.Compile(context.Background(), counterSource, testTable())
	require.NoError(t, err)

	assert.Contains(t, bundle.Code, "var AppBundle")
	assert.Contains(t, bundle.Code, "ComponentRegistry")
	assert.Contains(t, bundle.Code, "React.createElement")
	assert.NotContains(t, bundle.Code, "import ")
	assert.False(t, bundle.Cached)
	assert.Len(t, bundle.Hash, 8)
}

func TestCompileLowersToTarget(t *testing.T) {
	c := newReadyCompiler(t, nil)

	bundle, err := c.Compile(context.Background(), `export default () => a?.b ?? 1;`, nil)
	require.NoError(t, err)

	assert.NotContains(t, bundle.Code, "?.")
	assert.NotContains(t, bundle.Code, "??")
}

func TestCompileSyntaxError(t *testing.T) {
	c := newReadyCompiler(t, nil)

	_, err := c.Compile(context.Background(), "export default function App( {", testTable())

	diag := requireDiagnostic(t, err, types.CompileError)
	assert.NotEmpty(t, diag.Message)
}

func TestCompileUnresolvableImport(t *testing.T) {
	c := newReadyCompiler(t, nil)

	_, err := c.Compile(context.Background(), "import _ from 'lodash';\nexport default () => null;", testTable())

	diag := requireDiagnostic(t, err, types.CompileError)
	assert.Contains(t, diag.Message, "lodash")
}

func TestCompileMissingNamedExport(t *testing.T) {
	c := newReadyCompiler(t, nil)

	_, err := c.Compile(context.Background(), "import { CardTitle } from '@/components/ui/card';\nexport default CardTitle;", testTable())

	diag := requireDiagnostic(t, err, types.CompileError)
	assert.Contains(t, diag.Message, "CardTitle")
}

func TestCompileUnknownComponentStillBuilds(t *testing.T) {
	c := newReadyCompiler(t, nil)

	bundle, err := c.Compile(context.Background(), "import { Widget } from '@/components/ui/widget';\nexport default () => <Widget />;", testTable())
	require.NoError(t, err)

	assert.Contains(t, bundle.Code, "Shadcn Component: ")
}

func TestCompileBeforeInit(t *testing.T) {
	c := New(DefaultOptions(), nil, nil)

	_, err := c.Compile(context.Background(), counterSource, testTable())

	requireDiagnostic(t, err, types.InitError)
	assert.False(t, c.Ready())
}

func TestInitRejectsUnknownTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.Target = "es1999"

	err := New(opts, nil, nil).Init(context.Background())

	requireDiagnostic(t, err, types.InitError)
}

func TestCompileCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	c := newReadyCompiler(t, metrics)
	table := testTable()

	first, err := c.Compile(context.Background(), counterSource, table)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), counterSource, table)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CompilesTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CompilesTotal.WithLabelValues("cached")))

	// A different registry version misses the cache
	other := registry.NewTable([]registry.Family{
		{Key: "card", Components: []registry.Component{{Name: "Card"}, {Name: "CardContent"}, {Name: "CardFooter"}}},
	})
	third, err := c.Compile(context.Background(), counterSource, other)
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestCompileCancelled(t *testing.T) {
	c := newReadyCompiler(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Compile(ctx, counterSource, testTable())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBundleCacheEvictsOldest(t *testing.T) {
	cache := newBundleCache(2)
	cache.put("a", &Bundle{Code: "a"})
	cache.put("b", &Bundle{Code: "b"})
	cache.put("c", &Bundle{Code: "c"})

	_, ok := cache.get("a")
	assert.False(t, ok)
	_, ok = cache.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.len())

	disabled := newBundleCache(0)
	disabled.put("a", &Bundle{})
	_, ok = disabled.get("a")
	assert.False(t, ok)
}

func TestParseTarget(t *testing.T) {
	_, err := ParseTarget("ES2020")
	assert.NoError(t, err)
	_, err = ParseTarget("es3")
	assert.Error(t, err)
}
