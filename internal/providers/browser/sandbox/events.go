package sandbox

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
)

// Handler props fired for each incoming event type, in order
var eventProps = map[string][]string{
	"click":       {"onClick"},
	"dblclick":    {"onDoubleClick"},
	"input":       {"onInput", "onChange"},
	"change":      {"onChange"},
	"submit":      {"onSubmit"},
	"keydown":     {"onKeyDown"},
	"keyup":       {"onKeyUp"},
	"focus":       {"onFocus"},
	"blur":        {"onBlur"},
	"mouseenter":  {"onMouseEnter"},
	"mouseleave":  {"onMouseLeave"},
	"pointerdown": {"onPointerDown"},
	"pointerup":   {"onPointerUp"},
}

// SupportedEvent reports whether Dispatch understands typ
func SupportedEvent(typ string) bool {
	_, ok := eventProps[typ]
	return ok
}

func isToggle(f *fiber) bool {
	if f.tag != "input" {
		return false
	}
	t, _ := attr(f.node, "type")
	return t == "checkbox" || t == "radio"
}

// Dispatch delivers a client event to the element with node id target,
// bubbling through ancestors, then flushes the resulting updates.
func (u *UI) Dispatch(ctx context.Context, target, typ, value string) error {
	f, ok := u.nodes[target]
	if !ok || f.unmounted {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	props, ok := eventProps[typ]
	if !ok {
		return fmt.Errorf("unsupported event type %q", typ)
	}

	return u.rt.Guard(ctx, func() error {
		u.applyDefault(f, typ, value)
		if typ == "click" && isToggle(f) {
			props = []string{"onClick", "onChange"}
		}

		stopped := false
		evt := u.syntheticEvent(f, typ, value, &stopped)
		for cur := f; cur != nil && !stopped; cur = cur.parent {
			if cur.kind != hostFiber || cur.unmounted {
				continue
			}
			_ = evt.Set("currentTarget", u.Proxy(cur.node))
			for _, name := range props {
				handler, isFn := goja.AssertFunction(get(cur.props, name))
				if !isFn {
					continue
				}
				if _, err := handler(goja.Undefined(), evt); err != nil {
					return err
				}
			}
		}

		for _, root := range u.Roots() {
			if err := u.flush(root); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyDefault performs the browser's default action on form controls
func (u *UI) applyDefault(f *fiber, typ, value string) {
	switch {
	case typ == "click" && isToggle(f):
		_, on := attr(f.node, "checked")
		next := !on
		if t, _ := attr(f.node, "type"); t == "radio" {
			next = true
		}
		f.checked = &next
		if next {
			setAttr(f.node, "checked", "")
		} else {
			removeAttr(f.node, "checked")
		}
	case typ == "input" || typ == "change":
		switch f.tag {
		case "input", "textarea", "select":
			v := value
			f.domValue = &v
			setAttr(f.node, "value", v)
		}
	}
}

func (u *UI) syntheticEvent(f *fiber, typ, value string, stopped *bool) *goja.Object {
	evt := u.vm.NewObject()
	prevented := false

	_ = evt.Set("type", typ)
	_ = evt.Set("bubbles", true)
	_ = evt.Set("target", u.Proxy(f.node))
	_ = evt.Set("timeStamp", 0)
	_ = evt.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		prevented = true
		_ = evt.Set("defaultPrevented", true)
		return goja.Undefined()
	})
	_ = evt.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		*stopped = true
		return goja.Undefined()
	})
	_ = evt.Set("isDefaultPrevented", func(goja.FunctionCall) goja.Value { return u.vm.ToValue(prevented) })
	_ = evt.Set("isPropagationStopped", func(goja.FunctionCall) goja.Value { return u.vm.ToValue(*stopped) })
	_ = evt.Set("persist", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = evt.Set("defaultPrevented", false)
	if typ == "keydown" || typ == "keyup" {
		_ = evt.Set("key", value)
	}
	_ = evt.Set("nativeEvent", evt)
	return evt
}
