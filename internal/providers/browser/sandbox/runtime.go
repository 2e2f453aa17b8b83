package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
)

// errPanic marks a Go panic recovered out of the VM. The VM is unusable
// afterwards and must be reset.
var errPanic = errors.New("sandbox panic")

// Runtime wraps a goja VM with timeouts and console capture
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	// Window event listeners, keyed by event type
	listeners map[string][]goja.Value

	depth     int
	poisoned  bool
	timedOut  atomic.Bool
	onTimeout func()
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	r := &Runtime{config: config}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) init() error {
	r.vm = goja.New()
	r.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if r.config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}
	r.console = nil
	r.listeners = make(map[string][]goja.Value)
	r.poisoned = false
	return r.setupGlobals()
}

// VM exposes the underlying goja runtime. Callers must hold no other
// reference across Reset.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Run executes a script under Guard and returns its completion value
func (r *Runtime) Run(ctx context.Context, name, script string) (goja.Value, error) {
	var val goja.Value
	err := r.Guard(ctx, func() error {
		v, err := r.vm.RunScript(name, script)
		val = v
		return err
	})
	return val, err
}

// Guard runs fn with the execution timeout armed. Nested calls share the
// outermost deadline. Go panics are recovered into errors and poison the
// runtime.
func (r *Runtime) Guard(ctx context.Context, fn func() error) (err error) {
	if r.poisoned {
		return fmt.Errorf("%w: runtime must be reset", errPanic)
	}

	r.depth++
	outer := r.depth == 1
	var stop func()
	if outer {
		stop = r.watch(ctx)
	}

	defer func() {
		r.depth--
		if rec := recover(); rec != nil {
			r.poisoned = true
			err = fmt.Errorf("%w: %v", errPanic, rec)
		}
		if outer {
			stop()
			r.vm.ClearInterrupt()
		}
	}()

	return fn()
}

// watch interrupts the VM on timeout or cancellation until stop is called
func (r *Runtime) watch(ctx context.Context) func() {
	timeout := r.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	timer := time.NewTimer(timeout)
	done := make(chan struct{})
	exited := make(chan struct{})
	r.timedOut.Store(false)

	go func() {
		defer close(exited)
		select {
		case <-timer.C:
			r.timedOut.Store(true)
			r.vm.Interrupt("execution timeout exceeded")
			if r.onTimeout != nil {
				r.onTimeout()
			}
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	return func() {
		timer.Stop()
		close(done)
		<-exited
	}
}

// Call invokes a JS function under Guard
func (r *Runtime) Call(ctx context.Context, fn goja.Callable, this goja.Value, args ...goja.Value) (goja.Value, error) {
	var val goja.Value
	err := r.Guard(ctx, func() error {
		v, err := fn(this, args...)
		val = v
		return err
	})
	return val, err
}

// setupGlobals configures global objects
func (r *Runtime) setupGlobals() error {
	global := r.vm.GlobalObject()

	// Remove module-system globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	// The global object doubles as window
	_ = global.Set("window", global)
	_ = global.Set("self", global)

	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, r.makeConsoleFunc(level))
	}
	_ = global.Set("console", console)

	// Timers stay inert
	inert := func(call goja.FunctionCall) goja.Value { return r.vm.ToValue(0) }
	for _, name := range []string{"setTimeout", "setInterval", "requestAnimationFrame", "clearTimeout", "clearInterval", "cancelAnimationFrame"} {
		_ = global.Set(name, inert)
	}

	_ = global.Set("addEventListener", r.addEventListener)
	_ = global.Set("removeEventListener", r.removeEventListener)
	_ = global.Set("dispatchEvent", r.dispatchEvent)

	_, err := r.vm.RunString(prelude)
	return err
}

const prelude = `
function Event(type, init) {
  this.type = String(type);
  this.bubbles = !!(init && init.bubbles);
  this.defaultPrevented = false;
}
Event.prototype.preventDefault = function () { this.defaultPrevented = true; };
Event.prototype.stopPropagation = function () {};
function CustomEvent(type, init) {
  Event.call(this, type, init);
  this.detail = init && init.detail !== undefined ? init.detail : null;
}
CustomEvent.prototype = Object.create(Event.prototype);
`

func (r *Runtime) addEventListener(call goja.FunctionCall) goja.Value {
	typ := call.Argument(0).String()
	fn := call.Argument(1)
	if _, ok := goja.AssertFunction(fn); !ok {
		return goja.Undefined()
	}
	for _, existing := range r.listeners[typ] {
		if existing.SameAs(fn) {
			return goja.Undefined()
		}
	}
	r.listeners[typ] = append(r.listeners[typ], fn)
	return goja.Undefined()
}

func (r *Runtime) removeEventListener(call goja.FunctionCall) goja.Value {
	typ := call.Argument(0).String()
	fn := call.Argument(1)
	kept := r.listeners[typ][:0]
	for _, existing := range r.listeners[typ] {
		if !existing.SameAs(fn) {
			kept = append(kept, existing)
		}
	}
	r.listeners[typ] = kept
	return goja.Undefined()
}

func (r *Runtime) dispatchEvent(call goja.FunctionCall) goja.Value {
	evt := call.Argument(0)
	obj, ok := evt.(*goja.Object)
	if !ok {
		panic(r.vm.NewTypeError("dispatchEvent requires an Event"))
	}
	typ := obj.Get("type").String()
	for _, fn := range append([]goja.Value(nil), r.listeners[typ]...) {
		callable, _ := goja.AssertFunction(fn)
		if _, err := callable(r.vm.GlobalObject(), evt); err != nil {
			rethrow(r.vm, err)
		}
	}
	return r.vm.ToValue(true)
}

// DispatchWindowEvent fires a window event from Go and returns how many
// listeners ran
func (r *Runtime) DispatchWindowEvent(ctx context.Context, typ string) (int, error) {
	listeners := len(r.listeners[typ])
	err := r.Guard(ctx, func() error {
		ctor, ok := goja.AssertConstructor(r.vm.Get("Event"))
		if !ok {
			return errors.New("Event constructor missing")
		}
		evt, err := ctor(nil, r.vm.ToValue(typ))
		if err != nil {
			return err
		}
		dispatch, _ := goja.AssertFunction(r.vm.Get("dispatchEvent"))
		_, err = dispatch(goja.Undefined(), evt)
		return err
	})
	return listeners, err
}

// ClearListeners drops every window event listener
func (r *Runtime) ClearListeners() {
	r.listeners = make(map[string][]goja.Value)
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.config.EnableConsole {
			return goja.Undefined()
		}
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = formatValue(arg)
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// formatValue renders objects as JSON where possible
func formatValue(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		if v == nil {
			return "undefined"
		}
		return v.String()
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return v.String()
	}
	if obj.ClassName() == "Error" {
		return v.String()
	}
	if b, err := obj.MarshalJSON(); err == nil {
		return string(b)
	}
	return v.String()
}

// Console returns captured console output
func (r *Runtime) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry(nil), r.console...)
}

// ResetConsole drops captured console output
func (r *Runtime) ResetConsole() {
	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()
}

// Poisoned reports whether a recovered panic left the VM unusable
func (r *Runtime) Poisoned() bool {
	return r.poisoned
}

// TimedOut reports whether the last guarded call hit the timeout
func (r *Runtime) TimedOut() bool {
	return r.timedOut.Load()
}

// Reset replaces the VM with a fresh one
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.init()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	r.listeners = nil
	return nil
}

// rethrow re-raises an error from a JS call inside a native function
func rethrow(vm *goja.Runtime, err error) {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		panic(exc.Value())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}
	panic(vm.NewGoError(err))
}
