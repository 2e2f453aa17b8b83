package sandbox

import (
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/playground/internal/domain/registry"
	"github.com/GriffinCanCode/playground/internal/domain/resolver"
)

// PublishRegistry exposes every registry component on the global
// registry object, replacing any earlier publication.
func (u *UI) PublishRegistry(table *registry.Table) error {
	reg := u.vm.NewObject()
	if table != nil {
		for _, c := range table.Components() {
			if err := reg.Set(c.Name, u.nativeComponent(c)); err != nil {
				return err
			}
		}
	}
	return u.vm.GlobalObject().Set(resolver.RegistryGlobal, reg)
}

func (u *UI) nativeComponent(c registry.Component) goja.Value {
	var fn func(goja.FunctionCall) goja.Value
	switch c.Kind {
	case registry.KindProvider:
		fn = func(call goja.FunctionCall) goja.Value {
			props, _ := call.Argument(0).(*goja.Object)
			children := get(props, "children")
			if goja.IsUndefined(children) {
				return goja.Null()
			}
			return children
		}
	case registry.KindFunction:
		fn = func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = formatValue(arg)
			}
			u.rt.log("info", c.Name+": "+strings.Join(parts, " "))
			return goja.Undefined()
		}
	default:
		fn = func(call goja.FunctionCall) goja.Value {
			props, _ := call.Argument(0).(*goja.Object)
			return u.renderNative(c, props)
		}
	}

	obj := u.vm.ToValue(fn).(*goja.Object)
	_ = obj.Set("displayName", c.Name)
	return obj
}

// renderNative expands an element-kind component into its host element
func (u *UI) renderNative(c registry.Component, in *goja.Object) goja.Value {
	out := u.vm.NewObject()

	keys := make([]string, 0, len(c.Attrs))
	for k := range c.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_ = out.Set(k, c.Attrs[k])
	}

	skip := map[string]bool{"asChild": true, "className": true}
	if c.State != nil {
		title := strings.ToUpper(c.State.Prop[:1]) + c.State.Prop[1:]
		skip[c.State.Prop] = true
		skip["default"+title] = true
		skip["on"+title+"Change"] = true
	}
	if in != nil {
		for _, k := range in.Keys() {
			if !skip[k] {
				_ = out.Set(k, in.Get(k))
			}
		}
	}
	if c.Slot != "" {
		_ = out.Set("data-slot", c.Slot)
	}

	class := c.Class
	if user := get(in, "className"); !absent(user) && user.String() != "" {
		class = strings.TrimSpace(class + " " + user.String())
	}
	if class != "" {
		_ = out.Set("className", class)
	}

	if c.State != nil {
		u.bindState(c, in, out)
	}
	tag := c.Tag
	if tag == "" {
		tag = "div"
	}
	return u.newElement(u.vm.ToValue(tag), out, goja.Null(), get(in, "ref"))
}

// bindState mirrors the component's boolean state into data-state and
// toggles it on click, honouring controlled and uncontrolled use.
func (u *UI) bindState(c registry.Component, in, out *goja.Object) {
	spec := c.State
	title := strings.ToUpper(spec.Prop[:1]) + spec.Prop[1:]

	h, fresh := u.use(stateHook)
	if fresh {
		h.state = u.vm.ToValue(get(in, "default"+title).ToBoolean())
	}

	controlled := !absent(get(in, spec.Prop))
	on := h.state.ToBoolean()
	if controlled {
		on = get(in, spec.Prop).ToBoolean()
	}

	state := spec.Off
	if on {
		state = spec.On
	}
	_ = out.Set("data-state", state)
	if spec.Prop == "checked" || spec.Prop == "pressed" {
		_ = out.Set("aria-"+spec.Prop, on)
	}

	onChange := get(in, "on"+title+"Change")
	userClick := get(in, "onClick")
	_ = out.Set("onClick", func(call goja.FunctionCall) goja.Value {
		if _, ok := goja.AssertFunction(userClick); ok {
			u.call(userClick, call.Argument(0))
		}
		next := u.vm.ToValue(!on)
		if !controlled {
			u.setState(h, next)
		}
		if _, ok := goja.AssertFunction(onChange); ok {
			u.call(onChange, next)
		}
		return goja.Undefined()
	})
}

// log appends a console entry produced by the host
func (r *Runtime) log(level, message string) {
	if !r.config.EnableConsole {
		return
	}
	r.consoleMu.Lock()
	r.console = append(r.console, LogEntry{Level: level, Message: message, Time: time.Now()})
	r.consoleMu.Unlock()
}
