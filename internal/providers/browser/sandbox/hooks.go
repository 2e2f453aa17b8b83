package sandbox

import (
	"strconv"

	"github.com/dop251/goja"
)

type hookKind int

const (
	stateHook hookKind = iota
	reducerHook
	effectHook
	memoHook
	refHook
	idHook
)

// hook is one slot in a component's hook list
type hook struct {
	kind    hookKind
	fiber   *fiber
	state   goja.Value
	setter  goja.Value
	reducer goja.Value

	deps    []goja.Value
	hasDeps bool
	layout  bool
	create  goja.Callable
	cleanup goja.Callable
}

// destroy runs a pending effect cleanup
func (h *hook) destroy() error {
	if h.cleanup == nil {
		return nil
	}
	cleanup := h.cleanup
	h.cleanup = nil
	_, err := cleanup(goja.Undefined())
	return err
}

// use returns the next hook slot of the rendering component
func (u *UI) use(kind hookKind) (*hook, bool) {
	f := u.current
	if f == nil {
		panic(u.vm.NewTypeError("Invalid hook call. Hooks can only be called inside of the body of a function component."))
	}
	i := u.hookIndex
	u.hookIndex++
	if i < len(f.hooks) {
		h := f.hooks[i]
		if h.kind != kind {
			panic(u.vm.NewTypeError("Rendered hooks in a different order than the previous render in %s.", f.name()))
		}
		return h, false
	}
	h := &hook{kind: kind, fiber: f}
	f.hooks = append(f.hooks, h)
	return h, true
}

func (u *UI) call(fn goja.Value, args ...goja.Value) goja.Value {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		panic(u.vm.NewTypeError("%s is not a function", fn))
	}
	res, err := callable(goja.Undefined(), args...)
	if err != nil {
		rethrow(u.vm, err)
	}
	return res
}

// setState stores next and schedules a render of the owning root
func (u *UI) setState(h *hook, next goja.Value) {
	if h.fiber.unmounted || next.SameAs(h.state) {
		return
	}
	h.state = next
	if root := h.fiber.root; root != nil {
		root.dirty = true
	}
}

func (u *UI) pair(a, b goja.Value) goja.Value {
	return u.vm.NewArray(a, b)
}

func (u *UI) useState(call goja.FunctionCall) goja.Value {
	h, fresh := u.use(stateHook)
	if fresh {
		initial := call.Argument(0)
		if _, ok := goja.AssertFunction(initial); ok {
			initial = u.call(initial)
		}
		h.state = initial
		h.setter = u.vm.ToValue(func(c goja.FunctionCall) goja.Value {
			next := c.Argument(0)
			if _, ok := goja.AssertFunction(next); ok {
				next = u.call(next, h.state)
			}
			u.setState(h, next)
			return goja.Undefined()
		})
	}
	return u.pair(h.state, h.setter)
}

func (u *UI) useReducer(call goja.FunctionCall) goja.Value {
	h, fresh := u.use(reducerHook)
	h.reducer = call.Argument(0)
	if fresh {
		initial := call.Argument(1)
		if init := call.Argument(2); !absent(init) {
			initial = u.call(init, initial)
		}
		h.state = initial
		h.setter = u.vm.ToValue(func(c goja.FunctionCall) goja.Value {
			u.setState(h, u.call(h.reducer, h.state, c.Argument(0)))
			return goja.Undefined()
		})
	}
	return u.pair(h.state, h.setter)
}

// readDeps converts a dependency array; ok is false when deps were omitted
func (u *UI) readDeps(v goja.Value) ([]goja.Value, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || absent(v) {
		return nil, false
	}
	n := int(get(obj, "length").ToInteger())
	deps := make([]goja.Value, n)
	for i := range deps {
		deps[i] = get(obj, strconv.Itoa(i))
	}
	return deps, true
}

// changed reports whether deps differ from the previous render
func (h *hook) changed(fresh bool, deps []goja.Value, hasDeps bool) bool {
	if fresh || !hasDeps || !h.hasDeps || len(deps) != len(h.deps) {
		return true
	}
	for i := range deps {
		if !deps[i].SameAs(h.deps[i]) {
			return true
		}
	}
	return false
}

func (u *UI) effectHook(layout bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		h, fresh := u.use(effectHook)
		create, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(u.vm.NewTypeError("Effect callback must be a function"))
		}
		deps, hasDeps := u.readDeps(call.Argument(1))
		if h.changed(fresh, deps, hasDeps) {
			h.create = create
			h.deps, h.hasDeps = deps, hasDeps
			h.layout = layout
			u.current.effects = append(u.current.effects, h)
		}
		return goja.Undefined()
	}
}

// runEffects runs cleanups then setups, layout effects first
func (u *UI) runEffects(p *pass) error {
	for _, list := range [][]*hook{p.layout, p.passive} {
		for _, h := range list {
			if h.fiber.unmounted {
				continue
			}
			if err := h.destroy(); err != nil {
				return err
			}
		}
		for _, h := range list {
			if h.fiber.unmounted || h.create == nil {
				continue
			}
			res, err := h.create(goja.Undefined())
			if err != nil {
				return err
			}
			if cleanup, ok := goja.AssertFunction(res); ok {
				h.cleanup = cleanup
			}
		}
	}
	return nil
}

func (u *UI) useMemo(call goja.FunctionCall) goja.Value {
	h, fresh := u.use(memoHook)
	deps, hasDeps := u.readDeps(call.Argument(1))
	if h.changed(fresh, deps, hasDeps) {
		h.state = u.call(call.Argument(0))
		h.deps, h.hasDeps = deps, hasDeps
	}
	return h.state
}

func (u *UI) useCallback(call goja.FunctionCall) goja.Value {
	h, fresh := u.use(memoHook)
	deps, hasDeps := u.readDeps(call.Argument(1))
	if h.changed(fresh, deps, hasDeps) {
		h.state = call.Argument(0)
		h.deps, h.hasDeps = deps, hasDeps
	}
	return h.state
}

func (u *UI) useRef(call goja.FunctionCall) goja.Value {
	h, fresh := u.use(refHook)
	if fresh {
		ref := u.vm.NewObject()
		_ = ref.Set("current", call.Argument(0))
		h.state = ref
	}
	return h.state
}

func (u *UI) useID(goja.FunctionCall) goja.Value {
	h, fresh := u.use(idHook)
	if fresh {
		h.state = u.vm.ToValue(":r" + strconv.FormatInt(int64(u.nextUseID), 36) + ":")
		u.nextUseID++
	}
	return h.state
}

func (u *UI) useContext(call goja.FunctionCall) goja.Value {
	if u.current == nil {
		panic(u.vm.NewTypeError("Invalid hook call. Hooks can only be called inside of the body of a function component."))
	}
	ctx, ok := tagged(call.Argument(0), u.contextTag)
	if !ok {
		panic(u.vm.NewTypeError("useContext expects a context object"))
	}
	return u.contextValue(u.current.parent, ctx)
}

// contextValue finds the nearest provider of ctx above f
func (u *UI) contextValue(f *fiber, ctx *goja.Object) goja.Value {
	for p := f; p != nil; p = p.parent {
		if p.kind == providerFiber && p.context == ctx {
			return get(p.props, "value")
		}
	}
	return get(ctx, "_currentValue")
}
