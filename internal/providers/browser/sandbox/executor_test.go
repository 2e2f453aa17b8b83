package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/playground/internal/domain/compiler"
	"github.com/GriffinCanCode/playground/internal/domain/registry"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

func newTestExecutor(t *testing.T, config Config) *Executor {
	t.Helper()
	exec, err := NewExecutor(config, "AppBundle", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })
	return exec
}

func catalogTable(t *testing.T) *registry.Table {
	t.Helper()
	table, err := registry.NewBridge(registry.Catalog(), nil, nil).RegisterAll(context.Background())
	require.NoError(t, err)
	return table
}

// bundle wraps body the way the compiler's IIFE output exposes exports
func bundle(body string) string {
	return "var AppBundle = (function () {\nvar React = window.React;\nvar h = React.createElement;\n" + body + "\n})();"
}

func find(exec *Executor, selector string) *goquery.Selection {
	return exec.Document().Selection().Find("#preview " + selector)
}

func nodeID(t *testing.T, sel *goquery.Selection) string {
	t.Helper()
	require.Equal(t, 1, sel.Length(), "selector must match exactly one node")
	id, ok := sel.Attr(NodeIDAttr)
	require.True(t, ok)
	return id
}

func asDiagnostic(t *testing.T, err error) *types.Diagnostic {
	t.Helper()
	require.Error(t, err)
	diag, ok := err.(*types.Diagnostic)
	require.True(t, ok, "expected *types.Diagnostic, got %T", err)
	return diag
}

const counterBundle = `
function App() {
  var s = React.useState(0);
  return h("div", null,
    h("p", null, "Count: ", s[0]),
    h("button", { onClick: function () { s[1](s[0] + 1); } }, "+"));
}
return { default: App };`

func TestExecuteMountsDefaultExport(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())

	require.NoError(t, exec.Execute(context.Background(), bundle(counterBundle)))

	assert.True(t, exec.Mounted())
	assert.Equal(t, "Count: 0", find(exec, "p").Text())
	assert.Equal(t, 1, exec.Document().ScriptCount())
	assert.Contains(t, exec.HTML(), `<button data-pg-id=`)
}

func TestDispatchUpdatesWithoutRecompile(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, exec.Execute(ctx, bundle(counterBundle)))

	button := nodeID(t, find(exec, "button"))
	require.NoError(t, exec.Dispatch(ctx, button, "click", ""))
	assert.Equal(t, "Count: 1", find(exec, "p").Text())

	require.NoError(t, exec.Dispatch(ctx, button, "click", ""))
	assert.Equal(t, "Count: 2", find(exec, "p").Text())

	// Same node survives the re-render
	assert.Equal(t, button, nodeID(t, find(exec, "button")))
}

func TestCompiledCounterWithRegistry(t *testing.T) {
	ctx := context.Background()
	table := catalogTable(t)

	c := compiler.New(compiler.DefaultOptions(), nil, nil)
	require.NoError(t, c.Init(ctx))
	out, err := c.Compile(ctx, `import React, { useState } from 'react';
import { Card, CardContent } from '@/components/ui/card';
import { Separator } from '@/components/ui/separator';

export default function App() {
  const [n, setN] = useState(0);
  return (
    <Card className="w-64">
      <CardContent>
        <p>Count: {n}</p>
        <Separator />
        <button onClick={() => setN(n + 1)}>+</button>
      </CardContent>
    </Card>
  );
}
`, table)
	require.NoError(t, err)

	exec := newTestExecutor(t, DefaultConfig())
	require.NoError(t, exec.Publish(table))
	require.NoError(t, exec.Execute(ctx, out.Code))

	card := find(exec, `[data-slot="card"]`)
	require.Equal(t, 1, card.Length())
	class, _ := card.Attr("class")
	assert.True(t, strings.HasPrefix(class, "rounded-xl"))
	assert.True(t, strings.HasSuffix(class, " w-64"))
	assert.Equal(t, 1, find(exec, `[data-slot="separator"][role="none"]`).Length())
	assert.Empty(t, exec.Placeholders())

	require.NoError(t, exec.Dispatch(ctx, nodeID(t, find(exec, "button")), "click", ""))
	assert.Equal(t, "Count: 1", find(exec, "p").Text())
}

func TestUnknownComponentRendersPlaceholder(t *testing.T) {
	ctx := context.Background()
	table := catalogTable(t)

	c := compiler.New(compiler.DefaultOptions(), nil, nil)
	require.NoError(t, c.Init(ctx))
	out, err := c.Compile(ctx, `import FancyWidget from '@/components/ui/fancy-widget';
export default function App() {
  return <FancyWidget title="x" />;
}
`, table)
	require.NoError(t, err)

	exec := newTestExecutor(t, DefaultConfig())
	require.NoError(t, exec.Publish(table))
	require.NoError(t, exec.Execute(ctx, out.Code))

	assert.Equal(t, []string{"FancyWidget"}, exec.Placeholders())
	placeholder := find(exec, `[data-placeholder="FancyWidget"]`)
	assert.Equal(t, "Shadcn Component: FancyWidget", placeholder.Text())
	style, _ := placeholder.Attr("style")
	assert.Contains(t, style, "border:1px dashed #6366f1")

	var warned bool
	for _, entry := range exec.Console() {
		warned = warned || (entry.Level == "warn" && entry.Message == "Shadcn component not found: FancyWidget")
	}
	assert.True(t, warned)
}

func TestExecuteTearsDownPreviousMount(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, exec.Execute(ctx, bundle(`
function A() {
  React.useEffect(function () {
    window.mountedA = true;
    return function () { window.cleanedA = true; };
  }, []);
  return h("div", { id: "a" }, "first");
}
return { default: A };`)))
	assert.True(t, exec.rt.VM().Get("mountedA").ToBoolean())
	assert.Equal(t, 1, find(exec, "#a").Length())

	require.NoError(t, exec.Execute(ctx, bundle(`
return { default: function B() { return h("div", { id: "b" }, "second"); } };`)))

	assert.True(t, exec.rt.VM().Get("cleanedA").ToBoolean())
	assert.Equal(t, 0, find(exec, "#a").Length())
	assert.Equal(t, "second", find(exec, "#b").Text())
	assert.Equal(t, 1, exec.Document().ScriptCount())
	assert.Equal(t, 1, exec.Document().Selection().Find("#preview").Children().Length())
}

func TestExecuteWithoutDefaultExport(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, exec.Execute(ctx, bundle(counterBundle)))

	diag := asDiagnostic(t, exec.Execute(ctx, bundle(`return { named: function () { return null; } };`)))
	assert.Equal(t, types.RuntimeError, diag.Kind)
	assert.Equal(t, ErrNoDefaultExport.Error(), diag.Message)

	assert.False(t, exec.Mounted())
	assert.Empty(t, exec.HTML())
	assert.Equal(t, 0, exec.Document().ScriptCount())
}

func TestExecuteRuntimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
	}{
		{
			name:    "throws while rendering",
			code:    bundle(`return { default: function Boom() { throw new Error("kaboom"); } };`),
			message: "kaboom",
		},
		{
			name:    "throws at top level",
			code:    bundle(`null.field; return { default: function () { return null; } };`),
			message: "TypeError",
		},
		{
			name:    "invalid child",
			code:    bundle(`return { default: function () { return h("div", null, { a: 1 }); } };`),
			message: "Objects are not valid as a React child",
		},
		{
			name:    "hook outside component",
			code:    bundle(`React.useState(0); return { default: function () { return null; } };`),
			message: "Invalid hook call",
		},
		{
			name: "update loop",
			code: bundle(`return { default: function Loop() {
  var s = React.useState(0);
  s[1](s[0] + 1);
  return null;
} };`),
			message: "Too many re-renders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecutor(t, DefaultConfig())
			diag := asDiagnostic(t, exec.Execute(context.Background(), tt.code))
			assert.Equal(t, types.RuntimeError, diag.Kind)
			assert.Contains(t, diag.Message, tt.message)
			assert.False(t, exec.Mounted())
			assert.Empty(t, exec.HTML())
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 100 * time.Millisecond
	exec := newTestExecutor(t, config)

	diag := asDiagnostic(t, exec.Execute(context.Background(), bundle(`
return { default: function Spin() { for (;;) {} } };`)))
	assert.Contains(t, diag.Message, "timed out")

	// The executor stays usable
	require.NoError(t, exec.Execute(context.Background(), bundle(counterBundle)))
	assert.Equal(t, "Count: 0", find(exec, "p").Text())
}

func TestLayoutRefreshAfterMount(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, exec.Execute(ctx, bundle(`
window.resizes = 0;
window.addEventListener("resize", function () { window.resizes++; });
return { default: function () { return h("span", null, "ok"); } };`)))

	assert.Equal(t, 1, exec.LayoutRefreshes())
	assert.Equal(t, int64(1), exec.rt.VM().Get("resizes").ToInteger())

	require.NoError(t, exec.Execute(ctx, bundle(counterBundle)))
	assert.Equal(t, 2, exec.LayoutRefreshes())
}

func TestControlledInput(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, exec.Execute(ctx, bundle(`
function Form() {
  var s = React.useState("");
  return h("form", null,
    h("input", { value: s[0], onChange: function (e) { s[1](e.target.value); } }),
    h("output", null, s[0].toUpperCase()));
}
return { default: Form };`)))

	input := nodeID(t, find(exec, "input"))
	require.NoError(t, exec.Dispatch(ctx, input, "input", "hello"))

	assert.Equal(t, "HELLO", find(exec, "output").Text())
	value, _ := find(exec, "input").Attr("value")
	assert.Equal(t, "hello", value)
}

func TestEventBubblingAndStopPropagation(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, exec.Execute(ctx, bundle(`
window.log = [];
function App() {
  return h("div", { onClick: function () { window.log.push("outer"); } },
    h("section", { onClick: function (e) { window.log.push("middle:" + e.currentTarget.tagName); } },
      h("button", { id: "go", onClick: function () { window.log.push("inner"); } }, "go"),
      h("button", { id: "stop", onClick: function (e) { e.stopPropagation(); window.log.push("stop"); } }, "stop")));
}
return { default: App };`)))

	require.NoError(t, exec.Dispatch(ctx, nodeID(t, find(exec, "#go")), "click", ""))
	require.NoError(t, exec.Dispatch(ctx, nodeID(t, find(exec, "#stop")), "click", ""))

	log := exec.rt.VM().Get("log").Export()
	assert.Equal(t, []interface{}{"inner", "middle:SECTION", "outer", "stop"}, log)
}

func TestContextAndRefs(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())

	require.NoError(t, exec.Execute(context.Background(), bundle(`
var Theme = React.createContext("light");
function Label() {
  var theme = React.useContext(Theme);
  var ref = React.useRef(null);
  React.useLayoutEffect(function () { window.refTag = ref.current.tagName; }, []);
  return h("em", { ref: ref, className: "theme-" + theme }, theme);
}
function App() {
  return h(React.Fragment, null,
    h(Label),
    h(Theme.Provider, { value: "dark" }, h(Label)));
}
return { default: App };`)))

	assert.Equal(t, 2, find(exec, "em").Length())
	assert.Equal(t, "light", find(exec, "em.theme-light").Text())
	assert.Equal(t, "dark", find(exec, "em.theme-dark").Text())
	assert.Equal(t, "EM", exec.rt.VM().Get("refTag").String())
}

func TestKeyedChildrenKeepIdentity(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, exec.Execute(ctx, bundle(`
function List() {
  var s = React.useState(["a", "b", "c"]);
  return h("div", null,
    h("button", { onClick: function () { s[1](s[0].slice().reverse()); } }, "flip"),
    h("ul", null, s[0].map(function (k) { return h("li", { key: k, "data-k": k }, k); })));
}
return { default: List };`)))

	before := nodeID(t, find(exec, `li[data-k="a"]`))
	require.NoError(t, exec.Dispatch(ctx, nodeID(t, find(exec, "button")), "click", ""))

	assert.Equal(t, "cba", find(exec, "ul").Text())
	assert.Equal(t, before, nodeID(t, find(exec, `li[data-k="a"]`)))
}

func TestRegistryStateComponents(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, exec.Publish(catalogTable(t)))

	require.NoError(t, exec.Execute(ctx, bundle(`
var R = window.ComponentRegistry;
function App() {
  var s = React.useState(false);
  return h(R.DropdownMenu, null,
    h(R.Switch, { id: "free" }),
    h(R.Checkbox, { id: "bound", checked: s[0], onCheckedChange: s[1] }),
    h("span", null, s[0] ? "on" : "off"));
}
R.Toast("Saved", { id: 1 });
return { default: App };`)))

	free := find(exec, "#free")
	state, _ := free.Attr("data-state")
	assert.Equal(t, "unchecked", state)
	role, _ := free.Attr("role")
	assert.Equal(t, "switch", role)

	require.NoError(t, exec.Dispatch(ctx, nodeID(t, free), "click", ""))
	state, _ = find(exec, "#free").Attr("data-state")
	assert.Equal(t, "checked", state)
	aria, _ := find(exec, "#free").Attr("aria-checked")
	assert.Equal(t, "true", aria)

	require.NoError(t, exec.Dispatch(ctx, nodeID(t, find(exec, "#bound")), "click", ""))
	state, _ = find(exec, "#bound").Attr("data-state")
	assert.Equal(t, "checked", state)
	assert.Equal(t, "on", find(exec, "span").Text())

	var toasted bool
	for _, entry := range exec.Console() {
		toasted = toasted || entry.Message == `Toast: Saved {"id":1}`
	}
	assert.True(t, toasted)
}

func TestDispatchErrors(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	ctx := context.Background()

	assert.ErrorIs(t, exec.Dispatch(ctx, "1", "click", ""), ErrNotMounted)

	require.NoError(t, exec.Execute(ctx, bundle(`
return { default: function () {
  return h("button", { onClick: function () { throw new Error("handler failed"); } }, "x");
} };`)))

	assert.ErrorIs(t, exec.Dispatch(ctx, "9999", "click", ""), ErrUnknownTarget)

	diag := asDiagnostic(t, exec.Dispatch(ctx, nodeID(t, find(exec, "button")), "click", ""))
	assert.Contains(t, diag.Message, "handler failed")
}

func TestTeardownIsIdempotent(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())
	exec.Teardown()

	require.NoError(t, exec.Execute(context.Background(), bundle(counterBundle)))
	exec.Teardown()
	exec.Teardown()

	assert.False(t, exec.Mounted())
	assert.Empty(t, exec.HTML())
	assert.Equal(t, 0, exec.Document().ScriptCount())
}

func TestStyleAndAttributes(t *testing.T) {
	exec := newTestExecutor(t, DefaultConfig())

	require.NoError(t, exec.Execute(context.Background(), bundle(`
return { default: function () {
  return h("label", {
    htmlFor: "x",
    hidden: false,
    "aria-hidden": true,
    tabIndex: 2,
    style: { marginTop: 4, zIndex: 3, backgroundColor: "red", WebkitTransition: "none" }
  }, "l");
} };`)))

	label := find(exec, "label")
	forAttr, _ := label.Attr("for")
	assert.Equal(t, "x", forAttr)
	_, hidden := label.Attr("hidden")
	assert.False(t, hidden)
	aria, _ := label.Attr("aria-hidden")
	assert.Equal(t, "true", aria)
	tab, _ := label.Attr("tabindex")
	assert.Equal(t, "2", tab)
	style, _ := label.Attr("style")
	assert.Equal(t, "margin-top:4px;z-index:3;background-color:red;-webkit-transition:none", style)
}
