package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/playground/internal/domain/registry"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

// mount is the handle of the currently mounted application
type mount struct {
	root   *Root
	script *html.Node
}

// Executor injects compiled bundles into a sandbox document and mounts
// their default export into the preview container. It is not safe for
// concurrent use; callers serialize access.
type Executor struct {
	config     Config
	globalName string
	logger     *logging.Logger
	metrics    *monitoring.Metrics

	mu      sync.Mutex
	rt      *Runtime
	doc     *Document
	ui      *UI
	table   *registry.Table
	version string
	handle  *mount
	layout  int
}

// NewExecutor creates an executor with a fresh runtime and document
func NewExecutor(config Config, globalName string, logger *logging.Logger, metrics *monitoring.Metrics) (*Executor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Executor{
		config:     config,
		globalName: globalName,
		logger:     logger.Component("sandbox"),
		metrics:    metrics,
		doc:        NewDocument(config.ContainerID),
	}
	if err := e.boot(); err != nil {
		return nil, err
	}
	return e, nil
}

// boot creates the VM and installs the UI runtime
func (e *Executor) boot() error {
	rt, err := New(e.config)
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	rt.onTimeout = e.metrics.IncInterrupts
	e.rt = rt
	e.ui = NewUI(rt, e.doc, e.config)
	if err := e.ui.Install(); err != nil {
		return fmt.Errorf("failed to install UI runtime: %w", err)
	}

	table := e.table
	e.table, e.version = nil, ""
	return e.publish(table)
}

// Publish exposes the registry table on the sandbox global object.
// Republishing an unchanged table is a no-op.
func (e *Executor) Publish(table *registry.Table) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.publish(table)
}

func (e *Executor) publish(table *registry.Table) error {
	version := ""
	if table != nil {
		version = table.Version()
	}
	if e.table != nil && version == e.version {
		return nil
	}
	if err := e.ui.PublishRegistry(table); err != nil {
		return fmt.Errorf("failed to publish registry: %w", err)
	}
	e.table = table
	e.version = version
	return nil
}

// Execute tears down the previous mount, injects code as a script,
// validates its default export and mounts it. Failures come back as
// runtime diagnostics with nothing left mounted.
func (e *Executor) Execute(ctx context.Context, code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardown()
	if e.rt.Poisoned() {
		e.logger.Warn("Runtime poisoned by earlier panic, rebooting")
		if err := e.boot(); err != nil {
			return types.NewDiagnostic(types.RuntimeError, err.Error())
		}
	}
	e.rt.ResetConsole()

	if err := e.mount(ctx, code); err != nil {
		e.teardown()
		e.metrics.RecordMount(false)
		return e.runtimeError(err)
	}
	e.metrics.RecordMount(true)
	e.refreshLayout(ctx)

	for _, name := range e.placeholders() {
		e.metrics.RecordPlaceholder(name)
	}
	return nil
}

func (e *Executor) mount(ctx context.Context, code string) error {
	script := e.doc.AppendScript(code)
	e.handle = &mount{script: script}

	if _, err := e.rt.Run(ctx, "bundle.js", code); err != nil {
		return err
	}

	app, err := e.defaultExport()
	if err != nil {
		return err
	}

	e.doc.ClearContainer()
	root := e.ui.CreateRoot(e.doc.Container())
	e.handle.root = root
	return e.rt.Guard(ctx, func() error {
		return root.Render(e.ui.Element(app, nil))
	})
}

// defaultExport reads window[globalName].default
func (e *Executor) defaultExport() (goja.Value, error) {
	bundle, ok := e.rt.VM().Get(e.globalName).(*goja.Object)
	if !ok || bundle == nil {
		return nil, ErrNoDefaultExport
	}
	app := get(bundle, "default")
	if absent(app) {
		return nil, ErrNoDefaultExport
	}
	return app, nil
}

// refreshLayout fires a window resize so layout-dependent code re-measures
func (e *Executor) refreshLayout(ctx context.Context) {
	listeners, err := e.rt.DispatchWindowEvent(ctx, "resize")
	if err != nil {
		e.rt.log("error", "resize listener failed: "+err.Error())
		e.logger.Warn("Resize listener failed", zap.Error(err))
	}
	e.layout++
	e.metrics.IncLayoutRefreshes()
	e.logger.Debug("Layout refreshed", zap.Int("listeners", listeners), zap.Int("count", e.layout))
}

// Teardown unmounts the current application and removes its script.
// It is safe to call when nothing is mounted.
func (e *Executor) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardown()
}

func (e *Executor) teardown() {
	if e.handle == nil {
		return
	}
	h := e.handle
	e.handle = nil

	if !e.rt.Poisoned() {
		err := e.rt.Guard(context.Background(), func() error {
			var first error
			for _, root := range e.ui.Roots() {
				if err := root.Unmount(); err != nil && first == nil {
					first = err
				}
			}
			return first
		})
		if err != nil {
			e.logger.Warn("Unmount failed", zap.Error(err))
		}
		_ = e.rt.VM().GlobalObject().Set(e.globalName, goja.Undefined())
		e.rt.ClearListeners()
	}

	if h.script != nil && !e.doc.Remove(h.script) {
		e.logger.Debug("Script already detached")
	}
	e.doc.ClearContainer()
}

// Dispatch delivers a client event to a mounted element
func (e *Executor) Dispatch(ctx context.Context, target, event, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil || e.handle.root == nil {
		return ErrNotMounted
	}
	e.metrics.RecordEvent(event)
	err := e.ui.Dispatch(ctx, target, event, value)
	if err == nil || errors.Is(err, ErrUnknownTarget) {
		return err
	}
	return e.runtimeError(err)
}

func (e *Executor) runtimeError(err error) *types.Diagnostic {
	var interrupted *goja.InterruptedError
	switch {
	case errors.As(err, &interrupted) && e.rt.TimedOut():
		err = fmt.Errorf("Script execution timed out after %s", e.config.Timeout)
	case errors.As(err, &interrupted):
		err = errors.New("Script execution cancelled")
	}
	diag := types.NewDiagnostic(types.RuntimeError, err.Error())
	e.logger.Diagnostic(diag)
	return diag
}

// Mounted reports whether an application is mounted
func (e *Executor) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle != nil && e.handle.root != nil
}

// HTML returns the container's markup
func (e *Executor) HTML() string {
	return e.doc.ContainerHTML()
}

// Console returns console output since the last Execute
func (e *Executor) Console() []LogEntry {
	return e.rt.Console()
}

// LayoutRefreshes returns how many layout refreshes have been emitted
func (e *Executor) LayoutRefreshes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout
}

// Document exposes the sandbox document
func (e *Executor) Document() *Document {
	return e.doc
}

// Placeholders lists the missing components rendered in the container
func (e *Executor) Placeholders() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeholders()
}

func (e *Executor) placeholders() []string {
	var names []string
	for _, n := range e.doc.Query("#" + cssEscape(e.doc.containerID) + " [data-placeholder]") {
		if name, ok := attr(n, "data-placeholder"); ok {
			names = append(names, name)
		}
	}
	return names
}

// Reset tears down and replaces the runtime and document
func (e *Executor) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardown()
	e.doc.Reset()
	return e.boot()
}

// Close tears down and releases the runtime
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardown()
	return e.rt.Close()
}
