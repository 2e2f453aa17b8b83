package sandbox

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// NodeIDAttr addresses rendered elements from the client
const NodeIDAttr = "data-pg-id"

type fiberKind int

const (
	hostFiber fiberKind = iota
	textFiber
	componentFiber
	fragmentFiber
	providerFiber
	consumerFiber
)

// fiber is one node of the rendered tree. Fibers survive re-renders while
// their position and type are unchanged, which keeps hook state alive.
type fiber struct {
	kind    fiberKind
	typ     goja.Value
	tag     string
	key     string
	index   int
	props   *goja.Object
	text    string
	context *goja.Object

	node     *html.Node
	id       string
	raw      []*html.Node
	rawHTML  string
	domValue *string
	checked  *bool
	ref      goja.Value

	parent    *fiber
	children  []*fiber
	root      *Root
	unmounted bool

	hooks   []*hook
	effects []*hook
}

func (f *fiber) name() string {
	switch f.kind {
	case hostFiber:
		return f.tag
	case componentFiber:
		if obj, ok := f.typ.(*goja.Object); ok {
			for _, k := range []string{"displayName", "name"} {
				if v := get(obj, k); !absent(v) && v.String() != "" {
					return v.String()
				}
			}
		}
		return "Anonymous"
	default:
		return ""
	}
}

// Root is a mounted render tree inside a container node
type Root struct {
	ui        *UI
	container *html.Node
	element   goja.Value
	fiber     *fiber
	dirty     bool
	unmounted bool
	js        *goja.Object
}

// pass collects the effects scheduled by one render pass
type pass struct {
	layout  []*hook
	passive []*hook
}

// CreateRoot creates a root rendering into container
func (u *UI) CreateRoot(container *html.Node) *Root {
	root := &Root{ui: u, container: container}
	root.fiber = &fiber{kind: fragmentFiber, root: root}

	root.js = u.vm.NewObject()
	_ = root.js.Set("render", func(call goja.FunctionCall) goja.Value {
		if err := root.Render(call.Argument(0)); err != nil {
			rethrow(u.vm, err)
		}
		return goja.Undefined()
	})
	_ = root.js.Set("unmount", func(goja.FunctionCall) goja.Value {
		if err := root.Unmount(); err != nil {
			rethrow(u.vm, err)
		}
		return goja.Undefined()
	})

	u.roots = append(u.roots, root)
	return root
}

func (u *UI) rootFor(container *html.Node) *Root {
	for _, r := range u.roots {
		if r.container == container && !r.unmounted {
			return r
		}
	}
	return u.CreateRoot(container)
}

// Roots returns the live roots
func (u *UI) Roots() []*Root {
	var out []*Root
	for _, r := range u.roots {
		if !r.unmounted {
			out = append(out, r)
		}
	}
	return out
}

// Render replaces the root's element and flushes synchronously
func (r *Root) Render(element goja.Value) error {
	if r.unmounted {
		return errors.New("Cannot update an unmounted root.")
	}
	r.element = element
	r.dirty = true
	return r.ui.flush(r)
}

// Unmount runs every cleanup and empties the container
func (r *Root) Unmount() error {
	if r.unmounted {
		return nil
	}
	r.unmounted = true
	err := r.ui.unmountChildren(r.fiber)
	clearChildren(r.container)

	kept := r.ui.roots[:0]
	for _, other := range r.ui.roots {
		if other != r {
			kept = append(kept, other)
		}
	}
	r.ui.roots = kept
	return err
}

// flush renders until no update is pending
func (u *UI) flush(root *Root) error {
	limit := u.config.MaxRenderPasses
	if limit <= 0 {
		limit = DefaultConfig().MaxRenderPasses
	}

	for passes := 0; root.dirty && !root.unmounted; passes++ {
		if passes >= limit {
			root.dirty = false
			return ErrTooManyRenders
		}
		root.dirty = false

		var p pass
		if err := u.reconcileChildren(root.fiber, []goja.Value{root.element}, &p); err != nil {
			return err
		}
		u.commit(root)
		if err := u.runEffects(&p); err != nil {
			return err
		}
	}
	return nil
}

// describe classifies a child value
type descriptor struct {
	kind    fiberKind
	typ     goja.Value
	tag     string
	key     string
	props   *goja.Object
	text    string
	context *goja.Object
}

func (u *UI) describe(v goja.Value) (descriptor, error) {
	el, ok := u.isElement(v)
	if !ok {
		if obj, isObj := v.(*goja.Object); isObj {
			if _, isFn := goja.AssertFunction(obj); isFn {
				return descriptor{}, errors.New("Functions are not valid as a React child.")
			}
			return descriptor{}, fmt.Errorf("Objects are not valid as a React child (found: %s).", formatValue(obj))
		}
		return descriptor{kind: textFiber, text: v.String()}, nil
	}

	d := descriptor{typ: get(el, "type")}
	if key := get(el, "key"); !absent(key) {
		d.key = key.String()
	}
	d.props, _ = get(el, "props").(*goja.Object)
	if d.props == nil {
		d.props = u.vm.NewObject()
	}

	if s, isString := d.typ.Export().(string); isString {
		d.kind = hostFiber
		d.tag = s
		return d, nil
	}

	obj, _ := d.typ.(*goja.Object)
	switch {
	case obj == nil:
		return d, fmt.Errorf("Element type is invalid: got %s", d.typ)
	case obj == u.fragment || obj == u.strictMode:
		d.kind = fragmentFiber
	case isTagged(obj, u.providerTag):
		d.kind = providerFiber
		d.context, _ = get(obj, "_context").(*goja.Object)
	case isTagged(obj, u.contextTag):
		d.kind = providerFiber
		d.context = obj
	case isTagged(obj, u.consumerTag):
		d.kind = consumerFiber
		d.context, _ = get(obj, "_context").(*goja.Object)
	default:
		if _, isFn := goja.AssertFunction(obj); !isFn {
			return d, fmt.Errorf("Element type is invalid: expected a string or a component but got: %s", formatValue(obj))
		}
		d.kind = componentFiber
	}
	return d, nil
}

func isTagged(obj *goja.Object, marker *goja.Object) bool {
	_, ok := tagged(obj, marker)
	return ok
}

func (f *fiber) matches(d descriptor) bool {
	if f.kind != d.kind {
		return false
	}
	switch f.kind {
	case hostFiber:
		return f.tag == d.tag
	case componentFiber:
		return f.typ.SameAs(d.typ)
	case providerFiber, consumerFiber:
		return f.context == d.context
	}
	return true
}

func slotKey(key string, index int) string {
	if key != "" {
		return "k:" + key
	}
	return "i:" + strconv.Itoa(index)
}

// reconcileChildren renders values as the children of parent
func (u *UI) reconcileChildren(parent *fiber, values []goja.Value, p *pass) error {
	old := make(map[string]*fiber, len(parent.children))
	for _, c := range parent.children {
		old[slotKey(c.key, c.index)] = c
	}

	items := u.flatten(values)
	next := make([]*fiber, 0, len(items))
	for i, item := range items {
		d, err := u.describe(item)
		if err != nil {
			return err
		}

		slot := slotKey(d.key, i)
		f, ok := old[slot]
		if ok && f.matches(d) {
			delete(old, slot)
		} else {
			f = &fiber{kind: d.kind, typ: d.typ, tag: d.tag, key: d.key, context: d.context, parent: parent, root: parent.root}
		}
		f.index = i
		f.props = d.props
		f.text = d.text
		next = append(next, f)

		if err := u.renderFiber(f, p); err != nil {
			return err
		}
	}

	for _, stale := range old {
		if err := u.unmountFiber(stale); err != nil {
			return err
		}
	}
	parent.children = next
	return nil
}

func (u *UI) renderFiber(f *fiber, p *pass) error {
	switch f.kind {
	case textFiber:
		if f.node == nil {
			f.node = &html.Node{Type: html.TextNode}
		}
		f.node.Data = f.text
		return nil

	case hostFiber:
		if f.node == nil {
			u.nextNode++
			f.id = strconv.Itoa(u.nextNode)
			f.node = newElement(f.tag)
			u.nodes[f.id] = f
		}
		return u.reconcileChildren(f, u.hostChildren(f), p)

	case fragmentFiber, providerFiber:
		return u.reconcileChildren(f, []goja.Value{get(f.props, "children")}, p)

	case consumerFiber:
		fn, ok := goja.AssertFunction(get(f.props, "children"))
		if !ok {
			return errors.New("A context consumer was rendered with multiple children, or a child that isn't a function.")
		}
		res, err := fn(goja.Undefined(), u.contextValue(f.parent, f.context))
		if err != nil {
			return err
		}
		return u.reconcileChildren(f, []goja.Value{res}, p)

	case componentFiber:
		res, err := u.renderComponent(f)
		if err != nil {
			return err
		}
		if err := u.reconcileChildren(f, []goja.Value{res}, p); err != nil {
			return err
		}
		for _, h := range f.effects {
			if h.layout {
				p.layout = append(p.layout, h)
			} else {
				p.passive = append(p.passive, h)
			}
		}
		f.effects = nil
		return nil
	}
	return nil
}

func (u *UI) renderComponent(f *fiber) (goja.Value, error) {
	fn, _ := goja.AssertFunction(f.typ)

	prev, prevIndex := u.current, u.hookIndex
	u.current, u.hookIndex = f, 0
	f.effects = nil
	defer func() { u.current, u.hookIndex = prev, prevIndex }()

	res, err := fn(goja.Undefined(), f.props)
	if err != nil {
		return nil, fmt.Errorf("%w\n    in %s", err, f.name())
	}
	if res == nil || goja.IsUndefined(res) {
		return goja.Null(), nil
	}
	return res, nil
}

// hostChildren returns the child values rendered inside a host element
func (u *UI) hostChildren(f *fiber) []goja.Value {
	if voidElements[f.tag] {
		return nil
	}
	if inner, ok := get(f.props, "dangerouslySetInnerHTML").(*goja.Object); ok {
		markup := get(inner, "__html").String()
		if f.raw == nil || f.rawHTML != markup {
			f.raw = parseFragment(f.tag, markup)
			f.rawHTML = markup
		}
		return nil
	}
	f.raw, f.rawHTML = nil, ""

	if f.tag == "textarea" {
		for _, k := range []string{"value", "defaultValue"} {
			if v := get(f.props, k); !absent(v) {
				return []goja.Value{u.vm.ToValue(v.String())}
			}
		}
		if f.domValue != nil {
			return []goja.Value{u.vm.ToValue(*f.domValue)}
		}
	}
	return []goja.Value{get(f.props, "children")}
}

func parseFragment(tag, markup string) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(markup), newElement(tag))
	if err != nil {
		return []*html.Node{{Type: html.TextNode, Data: markup}}
	}
	return nodes
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// commit writes the fiber tree into the DOM
func (u *UI) commit(root *Root) {
	relink(root.container, hostNodes(root.fiber))
	u.commitFiber(root.fiber)
}

func (u *UI) commitFiber(f *fiber) {
	for _, c := range f.children {
		if c.kind == hostFiber {
			c.node.Attr = u.hostAttrs(c)
			if c.raw != nil {
				relink(c.node, c.raw)
			} else {
				relink(c.node, hostNodes(c))
			}
			u.attachRef(c)
		}
		u.commitFiber(c)
	}
}

// hostNodes returns the DOM nodes directly under f, looking through
// components, fragments and providers
func hostNodes(f *fiber) []*html.Node {
	var out []*html.Node
	for _, c := range f.children {
		switch c.kind {
		case hostFiber, textFiber:
			out = append(out, c.node)
		default:
			out = append(out, hostNodes(c)...)
		}
	}
	return out
}

func relink(parent *html.Node, want []*html.Node) {
	clearChildren(parent)
	for _, n := range want {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		parent.AppendChild(n)
	}
}

func (u *UI) attachRef(f *fiber) {
	ref := get(f.props, "ref")
	if absent(ref) {
		if f.ref != nil {
			u.setRef(f.ref, goja.Null())
			f.ref = nil
		}
		return
	}
	if f.ref != nil && f.ref.SameAs(ref) {
		return
	}
	if f.ref != nil {
		u.setRef(f.ref, goja.Null())
	}
	f.ref = ref
	u.setRef(ref, u.Proxy(f.node))
}

func (u *UI) setRef(ref, value goja.Value) {
	if fn, ok := goja.AssertFunction(ref); ok {
		_, _ = fn(goja.Undefined(), value)
		return
	}
	if obj, ok := ref.(*goja.Object); ok {
		_ = obj.Set("current", value)
	}
}

// unmountFiber runs cleanups below f and forgets its nodes
func (u *UI) unmountFiber(f *fiber) error {
	var first error
	if err := u.unmountChildren(f); err != nil {
		first = err
	}
	for _, h := range f.hooks {
		if err := h.destroy(); err != nil && first == nil {
			first = err
		}
	}
	if f.kind == hostFiber {
		if f.ref != nil {
			u.setRef(f.ref, goja.Null())
		}
		delete(u.nodes, f.id)
		if p, ok := u.proxies[f.node]; ok {
			delete(u.owners, p)
			delete(u.proxies, f.node)
		}
	}
	if f.node != nil && f.node.Parent != nil {
		f.node.Parent.RemoveChild(f.node)
	}
	f.unmounted = true
	return first
}

func (u *UI) unmountChildren(f *fiber) error {
	var first error
	for _, c := range f.children {
		if err := u.unmountFiber(c); err != nil && first == nil {
			first = err
		}
	}
	f.children = nil
	return first
}
