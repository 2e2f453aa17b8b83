package sandbox

import (
	"strconv"

	"github.com/dop251/goja"
)

// get reads a property, mapping missing to undefined
func get(obj *goja.Object, key string) goja.Value {
	if obj == nil {
		return goja.Undefined()
	}
	v := obj.Get(key)
	if v == nil {
		return goja.Undefined()
	}
	return v
}

// absent reports undefined or null
func absent(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// tagged reports whether v is an object carrying the given $$typeof marker
func tagged(v goja.Value, marker *goja.Object) (*goja.Object, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil, false
	}
	t := obj.Get("$$typeof")
	if t == nil || !t.SameAs(marker) {
		return nil, false
	}
	return obj, true
}

// newElement builds an element object
func (u *UI) newElement(typ goja.Value, props *goja.Object, key, ref goja.Value) *goja.Object {
	el := u.vm.NewObject()
	_ = el.Set("$$typeof", u.elementTag)
	_ = el.Set("type", typ)
	_ = el.Set("key", key)
	_ = el.Set("ref", ref)
	_ = el.Set("props", props)
	return el
}

// isElement reports whether v was produced by createElement
func (u *UI) isElement(v goja.Value) (*goja.Object, bool) {
	return tagged(v, u.elementTag)
}

// Element creates an element of typ with the given props from Go
func (u *UI) Element(typ goja.Value, props map[string]interface{}) *goja.Object {
	obj := u.vm.NewObject()
	for k, v := range props {
		_ = obj.Set(k, v)
	}
	return u.newElement(typ, obj, goja.Null(), goja.Null())
}

func (u *UI) createElement(call goja.FunctionCall) goja.Value {
	typ := call.Argument(0)
	if absent(typ) {
		panic(u.vm.NewTypeError("Element type is invalid: expected a string or a component but got: %s", typ))
	}

	props := u.vm.NewObject()
	key, ref := goja.Null(), goja.Null()
	if cfg, ok := call.Argument(1).(*goja.Object); ok {
		for _, k := range cfg.Keys() {
			v := cfg.Get(k)
			switch k {
			case "key":
				if !absent(v) {
					key = u.vm.ToValue(v.String())
				}
			case "__self", "__source":
			default:
				if k == "ref" {
					ref = v
				}
				_ = props.Set(k, v)
			}
		}
	}

	if len(call.Arguments) > 2 {
		u.setChildren(props, call.Arguments[2:])
	}
	u.applyDefaultProps(typ, props)
	return u.newElement(typ, props, key, ref)
}

func (u *UI) setChildren(props *goja.Object, children []goja.Value) {
	switch len(children) {
	case 0:
	case 1:
		_ = props.Set("children", children[0])
	default:
		items := make([]interface{}, len(children))
		for i, c := range children {
			items[i] = c
		}
		_ = props.Set("children", u.vm.NewArray(items...))
	}
}

func (u *UI) applyDefaultProps(typ goja.Value, props *goja.Object) {
	obj, ok := typ.(*goja.Object)
	if !ok {
		return
	}
	defaults, ok := get(obj, "defaultProps").(*goja.Object)
	if !ok {
		return
	}
	for _, k := range defaults.Keys() {
		if goja.IsUndefined(get(props, k)) {
			_ = props.Set(k, defaults.Get(k))
		}
	}
}

func (u *UI) cloneElement(call goja.FunctionCall) goja.Value {
	el, ok := u.isElement(call.Argument(0))
	if !ok {
		panic(u.vm.NewTypeError("cloneElement(...): The argument must be a React element"))
	}

	props := u.vm.NewObject()
	if old, ok := get(el, "props").(*goja.Object); ok {
		for _, k := range old.Keys() {
			_ = props.Set(k, old.Get(k))
		}
	}
	key, ref := get(el, "key"), get(el, "ref")
	if cfg, ok := call.Argument(1).(*goja.Object); ok {
		for _, k := range cfg.Keys() {
			v := cfg.Get(k)
			switch k {
			case "key":
				if !absent(v) {
					key = u.vm.ToValue(v.String())
				}
			default:
				if k == "ref" {
					ref = v
				}
				_ = props.Set(k, v)
			}
		}
	}
	if len(call.Arguments) > 2 {
		u.setChildren(props, call.Arguments[2:])
	}
	return u.newElement(get(el, "type"), props, key, ref)
}

func (u *UI) isValidElement(call goja.FunctionCall) goja.Value {
	_, ok := u.isElement(call.Argument(0))
	return u.vm.ToValue(ok)
}

// flatten expands nested arrays and drops empty children
func (u *UI) flatten(values []goja.Value) []goja.Value {
	var out []goja.Value
	var walk func(v goja.Value)
	walk = func(v goja.Value) {
		if absent(v) {
			return
		}
		if _, isBool := v.Export().(bool); isBool {
			return
		}
		if obj, ok := v.(*goja.Object); ok && obj.ClassName() == "Array" {
			n := int(get(obj, "length").ToInteger())
			for i := 0; i < n; i++ {
				walk(get(obj, strconv.Itoa(i)))
			}
			return
		}
		out = append(out, v)
	}
	for _, v := range values {
		walk(v)
	}
	return out
}

// childrenAPI builds React.Children
func (u *UI) childrenAPI() *goja.Object {
	children := u.vm.NewObject()

	call := func(fn goja.Value, this goja.Value, args ...goja.Value) goja.Value {
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			panic(u.vm.NewTypeError("Children callback must be a function"))
		}
		res, err := callable(this, args...)
		if err != nil {
			rethrow(u.vm, err)
		}
		return res
	}

	_ = children.Set("map", func(c goja.FunctionCall) goja.Value {
		if absent(c.Argument(0)) {
			return c.Argument(0)
		}
		items := u.flatten([]goja.Value{c.Argument(0)})
		out := make([]interface{}, 0, len(items))
		for i, item := range items {
			out = append(out, call(c.Argument(1), c.Argument(2), item, u.vm.ToValue(i)))
		}
		return u.vm.NewArray(out...)
	})
	_ = children.Set("forEach", func(c goja.FunctionCall) goja.Value {
		for i, item := range u.flatten([]goja.Value{c.Argument(0)}) {
			call(c.Argument(1), c.Argument(2), item, u.vm.ToValue(i))
		}
		return goja.Undefined()
	})
	_ = children.Set("count", func(c goja.FunctionCall) goja.Value {
		return u.vm.ToValue(len(u.flatten([]goja.Value{c.Argument(0)})))
	})
	_ = children.Set("toArray", func(c goja.FunctionCall) goja.Value {
		items := u.flatten([]goja.Value{c.Argument(0)})
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = item
		}
		return u.vm.NewArray(out...)
	})
	_ = children.Set("only", func(c goja.FunctionCall) goja.Value {
		if _, ok := u.isElement(c.Argument(0)); !ok {
			panic(u.vm.NewTypeError("React.Children.only expected to receive a single React element child."))
		}
		return c.Argument(0)
	})
	return children
}
