package sandbox

import (
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/playground/internal/domain/resolver"
)

// UI is the React-compatible component runtime installed in a Runtime.
// It renders element trees into the Document and keeps component state
// across re-renders.
type UI struct {
	rt     *Runtime
	vm     *goja.Runtime
	doc    *Document
	config Config

	// $$typeof markers
	elementTag  *goja.Object
	providerTag *goja.Object
	consumerTag *goja.Object
	contextTag  *goja.Object

	fragment   *goja.Object
	strictMode *goja.Object

	react    *goja.Object
	reactDOM *goja.Object
	document *goja.Object

	// Render state
	current   *fiber
	hookIndex int
	roots     []*Root
	nodes     map[string]*fiber
	nextNode  int
	nextUseID int

	proxies map[*html.Node]*goja.Object
	owners  map[*goja.Object]*html.Node
}

// NewUI installs the component runtime into rt
func NewUI(rt *Runtime, doc *Document, config Config) *UI {
	u := &UI{
		rt:      rt,
		vm:      rt.VM(),
		doc:     doc,
		config:  config,
		nodes:   make(map[string]*fiber),
		proxies: make(map[*html.Node]*goja.Object),
		owners:  make(map[*goja.Object]*html.Node),
	}

	marker := func(name string) *goja.Object {
		m := u.vm.NewObject()
		_ = m.Set("description", name)
		return m
	}
	u.elementTag = marker("react.element")
	u.providerTag = marker("react.provider")
	u.consumerTag = marker("react.consumer")
	u.contextTag = marker("react.context")
	u.fragment = marker("react.fragment")
	u.strictMode = marker("react.strict_mode")

	u.react = u.buildReact()
	u.reactDOM = u.buildReactDOM()
	u.document = u.buildDocument()
	return u
}

// Install publishes React, ReactDOM and document on the global object
func (u *UI) Install() error {
	global := u.vm.GlobalObject()
	if err := global.Set(resolver.ReactGlobal, u.react); err != nil {
		return err
	}
	if err := global.Set(resolver.ReactDOMGlobal, u.reactDOM); err != nil {
		return err
	}
	return global.Set("document", u.document)
}

func (u *UI) buildReact() *goja.Object {
	react := u.vm.NewObject()
	set := func(name string, v interface{}) { _ = react.Set(name, v) }

	set("version", "18.3.1")
	set("createElement", u.createElement)
	set("cloneElement", u.cloneElement)
	set("isValidElement", u.isValidElement)
	set("Fragment", u.fragment)
	set("StrictMode", u.strictMode)
	set("Children", u.childrenAPI())
	set("createContext", u.createContext)
	set("forwardRef", u.forwardRef)
	set("memo", u.memo)

	set("useState", u.useState)
	set("useReducer", u.useReducer)
	set("useEffect", u.effectHook(false))
	set("useLayoutEffect", u.effectHook(true))
	set("useMemo", u.useMemo)
	set("useCallback", u.useCallback)
	set("useRef", u.useRef)
	set("useContext", u.useContext)
	set("useId", u.useID)
	return react
}

func (u *UI) buildReactDOM() *goja.Object {
	dom := u.vm.NewObject()
	_ = dom.Set("createRoot", func(call goja.FunctionCall) goja.Value {
		node, ok := u.owners[objectArg(call.Argument(0))]
		if !ok {
			panic(u.vm.NewTypeError("createRoot(...): Target container is not a DOM element."))
		}
		return u.CreateRoot(node).js
	})
	_ = dom.Set("render", func(call goja.FunctionCall) goja.Value {
		node, ok := u.owners[objectArg(call.Argument(1))]
		if !ok {
			panic(u.vm.NewTypeError("render(...): Target container is not a DOM element."))
		}
		root := u.rootFor(node)
		if err := root.Render(call.Argument(0)); err != nil {
			rethrow(u.vm, err)
		}
		return goja.Undefined()
	})
	return dom
}

func objectArg(v goja.Value) *goja.Object {
	obj, _ := v.(*goja.Object)
	return obj
}

func (u *UI) createContext(call goja.FunctionCall) goja.Value {
	ctx := u.vm.NewObject()
	_ = ctx.Set("$$typeof", u.contextTag)
	_ = ctx.Set("_currentValue", call.Argument(0))

	provider := u.vm.NewObject()
	_ = provider.Set("$$typeof", u.providerTag)
	_ = provider.Set("_context", ctx)

	consumer := u.vm.NewObject()
	_ = consumer.Set("$$typeof", u.consumerTag)
	_ = consumer.Set("_context", ctx)

	_ = ctx.Set("Provider", provider)
	_ = ctx.Set("Consumer", consumer)
	return ctx
}

// forwardRef passes props.ref as the second render argument
func (u *UI) forwardRef(call goja.FunctionCall) goja.Value {
	render, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(u.vm.NewTypeError("forwardRef requires a render function"))
	}
	fn := u.vm.ToValue(func(c goja.FunctionCall) goja.Value {
		props := c.Argument(0)
		ref := goja.Null()
		if obj, ok := props.(*goja.Object); ok && !absent(get(obj, "ref")) {
			ref = get(obj, "ref")
		}
		res, err := render(goja.Undefined(), props, ref)
		if err != nil {
			rethrow(u.vm, err)
		}
		return res
	}).(*goja.Object)
	if name := get(call.Argument(0).(*goja.Object), "name"); !absent(name) {
		_ = fn.Set("displayName", name)
	}
	return fn
}

// memo returns the component unchanged; every pass re-renders the tree
func (u *UI) memo(call goja.FunctionCall) goja.Value {
	if _, ok := goja.AssertFunction(call.Argument(0)); !ok {
		panic(u.vm.NewTypeError("memo: The first argument must be a component"))
	}
	return call.Argument(0)
}

// Proxy returns the script-facing object for a DOM node
func (u *UI) Proxy(n *html.Node) *goja.Object {
	if p, ok := u.proxies[n]; ok {
		return p
	}
	p := u.vm.NewObject()
	u.proxies[n] = p
	u.owners[p] = n

	accessor := func(name string, getter func() goja.Value, setter func(goja.Value)) {
		g := u.vm.ToValue(func(goja.FunctionCall) goja.Value { return getter() })
		var s goja.Value
		if setter != nil {
			s = u.vm.ToValue(func(c goja.FunctionCall) goja.Value {
				setter(c.Argument(0))
				return goja.Undefined()
			})
		}
		_ = p.DefineAccessorProperty(name, g, s, goja.FLAG_TRUE, goja.FLAG_TRUE)
	}
	attrValue := func(key string) goja.Value {
		if v, ok := attr(n, key); ok {
			return u.vm.ToValue(v)
		}
		return goja.Null()
	}

	_ = p.Set("nodeType", 1)
	if n.Type == html.TextNode {
		_ = p.Set("nodeType", 3)
	}
	_ = p.Set("tagName", strings.ToUpper(n.Data))
	_ = p.Set("nodeName", strings.ToUpper(n.Data))
	accessor("id", func() goja.Value {
		v, _ := attr(n, "id")
		return u.vm.ToValue(v)
	}, func(v goja.Value) { setAttr(n, "id", v.String()) })
	accessor("className", func() goja.Value {
		v, _ := attr(n, "class")
		return u.vm.ToValue(v)
	}, func(v goja.Value) { setAttr(n, "class", v.String()) })
	accessor("textContent", func() goja.Value {
		return u.vm.ToValue(textContent(n))
	}, func(v goja.Value) {
		clearChildren(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: v.String()})
	})
	accessor("innerHTML", func() goja.Value {
		return u.vm.ToValue(innerHTML(n))
	}, nil)
	accessor("value", func() goja.Value {
		if v, ok := attr(n, "value"); ok || n.Data != "textarea" {
			return u.vm.ToValue(v)
		}
		return u.vm.ToValue(textContent(n))
	}, func(v goja.Value) { setAttr(n, "value", v.String()) })
	accessor("checked", func() goja.Value {
		_, ok := attr(n, "checked")
		return u.vm.ToValue(ok)
	}, nil)
	accessor("parentNode", func() goja.Value {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return goja.Null()
		}
		return u.Proxy(n.Parent)
	}, nil)

	_ = p.Set("getAttribute", func(c goja.FunctionCall) goja.Value { return attrValue(c.Argument(0).String()) })
	_ = p.Set("hasAttribute", func(c goja.FunctionCall) goja.Value {
		_, ok := attr(n, c.Argument(0).String())
		return u.vm.ToValue(ok)
	})
	_ = p.Set("setAttribute", func(c goja.FunctionCall) goja.Value {
		setAttr(n, c.Argument(0).String(), c.Argument(1).String())
		return goja.Undefined()
	})
	_ = p.Set("removeAttribute", func(c goja.FunctionCall) goja.Value {
		removeAttr(n, c.Argument(0).String())
		return goja.Undefined()
	})
	_ = p.Set("appendChild", func(c goja.FunctionCall) goja.Value {
		child, ok := u.owners[objectArg(c.Argument(0))]
		if !ok {
			panic(u.vm.NewTypeError("appendChild: argument is not a node"))
		}
		if child.Parent != nil {
			child.Parent.RemoveChild(child)
		}
		n.AppendChild(child)
		return c.Argument(0)
	})
	_ = p.Set("getBoundingClientRect", func(goja.FunctionCall) goja.Value {
		rect := u.vm.NewObject()
		for _, k := range []string{"x", "y", "top", "left", "right", "bottom", "width", "height"} {
			_ = rect.Set(k, 0)
		}
		return rect
	})
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"focus", "blur", "scrollIntoView", "addEventListener", "removeEventListener"} {
		_ = p.Set(name, noop)
	}
	return p
}

func (u *UI) buildDocument() *goja.Object {
	d := u.vm.NewObject()

	find := u.doc.Query

	_ = d.DefineAccessorProperty("body", u.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return u.Proxy(u.doc.Body())
	}), nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
	_ = d.Set("getElementById", func(c goja.FunctionCall) goja.Value {
		nodes := find("#" + cssEscape(c.Argument(0).String()))
		if len(nodes) == 0 {
			return goja.Null()
		}
		return u.Proxy(nodes[0])
	})
	_ = d.Set("querySelector", func(c goja.FunctionCall) goja.Value {
		nodes := find(c.Argument(0).String())
		if len(nodes) == 0 {
			return goja.Null()
		}
		return u.Proxy(nodes[0])
	})
	_ = d.Set("querySelectorAll", func(c goja.FunctionCall) goja.Value {
		nodes := find(c.Argument(0).String())
		items := make([]interface{}, len(nodes))
		for i, n := range nodes {
			items[i] = u.Proxy(n)
		}
		return u.vm.NewArray(items...)
	})
	_ = d.Set("createElement", func(c goja.FunctionCall) goja.Value {
		return u.Proxy(newElement(strings.ToLower(c.Argument(0).String())))
	})
	_ = d.Set("createTextNode", func(c goja.FunctionCall) goja.Value {
		return u.Proxy(&html.Node{Type: html.TextNode, Data: c.Argument(0).String()})
	})
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = d.Set("addEventListener", noop)
	_ = d.Set("removeEventListener", noop)
	return d
}

// cssEscape escapes characters that would break an id selector
func cssEscape(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Node returns the DOM node with the given node id
func (u *UI) Node(id string) (*html.Node, bool) {
	f, ok := u.nodes[id]
	if !ok {
		return nil, false
	}
	return f.node, true
}
