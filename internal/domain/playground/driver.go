package playground

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/playground/internal/domain/compiler"
	"github.com/GriffinCanCode/playground/internal/domain/registry"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/playground/internal/shared/id"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

// ErrClosed is returned by operations on a closed driver
var ErrClosed = errors.New("playground driver is closed")

// Compiler turns source text into a bundle
type Compiler interface {
	Compile(ctx context.Context, source string, reg compiler.Registry) (*compiler.Bundle, error)
}

// Executor mounts bundles into a preview container
type Executor interface {
	Publish(table *registry.Table) error
	Execute(ctx context.Context, code string) error
	Teardown()
	Dispatch(ctx context.Context, target, event, value string) error
	HTML() string
	Console() []types.ConsoleEntry
	LayoutRefreshes() int
}

// Options configures a Driver
type Options struct {
	InitialDelay time.Duration
	Debounce     time.Duration
	Compiler     Compiler
	Executor     Executor
	Logger       *logging.Logger
	Metrics      *monitoring.Metrics
	Tracer       *tracing.Tracer
	// OnView receives every published view on the driver goroutine
	OnView func(types.View)
}

// cycle is one compile-then-mount pass
type cycle struct {
	id         uint64
	trace      id.CycleID
	generation uint64
	text       string
	start      time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	span       *tracing.Span
}

// Driver turns a stream of source edits into compile-then-mount cycles.
// One goroutine owns all scheduling state and the executor; every public
// method posts an event to it.
type Driver struct {
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics

	events     chan loopEvent
	done       chan struct{}
	launchOnce sync.Once
	closed     atomic.Bool

	// Loop-owned state
	text          string
	generation    uint64
	started       bool
	bundlerReady  bool
	registryReady bool
	table         *registry.Table
	container     bool
	timer         *time.Timer
	timerSeq      uint64
	timerPhase    phase
	inflight      *cycle
	pending       bool
	cycles        uint64
	closing       bool
	banner        *types.Diagnostic

	mu    sync.RWMutex
	state State
	view  types.View
}

// NewDriver creates a driver. Start must be called before it reacts.
func NewDriver(opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	return &Driver{
		opts:    opts,
		logger:  opts.Logger.Component("driver"),
		metrics: opts.Metrics,
		events:  make(chan loopEvent, 64),
		done:    make(chan struct{}),
		view:    types.InitializingView(),
	}
}

// Start launches the driver loop and arms the initial timer once every
// readiness precondition holds
func (d *Driver) Start() {
	d.launch()
	d.post(startEvent{})
}

func (d *Driver) launch() {
	d.launchOnce.Do(func() { go d.run() })
}

// OnChange delivers an editor change. A nil text means no change.
func (d *Driver) OnChange(text *string) {
	if text != nil {
		copied := *text
		text = &copied
	}
	d.post(changeEvent{text: text})
}

// SetBundlerReady reports bundler initialization. A non-nil err is shown
// as a persistent init banner and compilation never starts.
func (d *Driver) SetBundlerReady(err error) {
	d.post(bundlerReadyEvent{err: err})
}

// SetRegistryReady publishes the registry table
func (d *Driver) SetRegistryReady(table *registry.Table) {
	if table == nil {
		table = registry.NewTable(nil)
	}
	d.post(registryReadyEvent{table: table})
}

// AttachContainer reports that the preview container is available
func (d *Driver) AttachContainer() {
	d.post(containerEvent{})
}

// Dispatch delivers a preview event to the mounted application and waits
// for the resulting view to be published
func (d *Driver) Dispatch(ctx context.Context, ev Event) error {
	if d.closed.Load() {
		return ErrClosed
	}
	reply := make(chan error, 1)
	if !d.post(uiEvent{ctx: ctx, event: ev, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-d.done:
		// A close queued ahead of the event exits the loop without handling it
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current scheduling state
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// View returns the last published view
func (d *Driver) View() types.View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view
}

// Done is closed once the driver loop has exited
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Close cancels timers, waits for an in-flight cycle to finish and tears
// the mount down. Calling it again is a no-op.
func (d *Driver) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.launch()
	if !d.post(closeEvent{}) {
		return nil
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) post(ev loopEvent) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.events <- ev:
		return true
	case <-d.done:
		return false
	}
}

func (d *Driver) run() {
	defer close(d.done)
	for ev := range d.events {
		exit := d.safeHandle(ev)
		d.syncState()
		if exit {
			return
		}
	}
}

// safeHandle keeps a panic in one step from killing the loop
func (d *Driver) safeHandle(ev loopEvent) (exit bool) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("Driver step panicked", zap.Any("panic", rec), zap.Stack("stack"))
			diag := types.Diagnosticf(types.RuntimeError, "internal error: %v", rec)
			if d.inflight != nil {
				d.inflight.cancel()
				d.inflight = nil
			}
			d.publish(types.DiagnosticView(diag, d.generation))
			exit = false
		}
	}()
	return d.handle(ev)
}

func (d *Driver) handle(ev loopEvent) bool {
	switch ev := ev.(type) {
	case startEvent:
		d.started = true
		d.rearm()

	case changeEvent:
		d.onChange(ev.text)

	case bundlerReadyEvent:
		if ev.err != nil {
			diag := types.AsDiagnostic(ev.err, types.InitError)
			d.metrics.RecordDiagnostic(string(diag.Kind))
			d.logger.Diagnostic(diag)
			d.setBanner(diag)
			return false
		}
		d.bundlerReady = true
		d.rearm()

	case registryReadyEvent:
		d.registryReady = true
		d.table = ev.table
		if failed := ev.table.Failures(); len(failed) > 0 && d.banner == nil {
			d.setBanner(types.Diagnosticf(types.InitError,
				"%d component families failed to load: %s", len(failed), strings.Join(failed, ", ")))
		}
		d.rearm()

	case containerEvent:
		d.container = true
		d.rearm()

	case timerEvent:
		d.onTimer(ev)

	case compiledEvent:
		return d.onCompiled(ev)

	case uiEvent:
		reply := ev.reply
		defer func() {
			if rec := recover(); rec != nil {
				reply <- fmt.Errorf("internal error: %v", rec)
				panic(rec)
			}
		}()
		reply <- d.onUI(ev)

	case closeEvent:
		d.closing = true
		d.cancelTimer()
		if d.inflight != nil {
			// Finish the cycle first; onCompiled exits the loop
			d.inflight.cancel()
			return false
		}
		d.shutdown()
		return true
	}
	return false
}

// ready reports whether every precondition for compiling holds
func (d *Driver) ready() bool {
	return d.started && d.bundlerReady && d.registryReady && d.container && d.text != "" && !d.closing
}

func (d *Driver) onChange(text *string) {
	if text == nil {
		return
	}
	if *text == d.text {
		return
	}
	d.text = *text
	d.generation++

	if !d.ready() {
		d.cancelTimer()
		return
	}
	d.arm(phaseDebounce, d.opts.Debounce)
}

// rearm schedules a cycle when readiness has just been reached and the
// current text has not been rendered yet
func (d *Driver) rearm() {
	if !d.ready() || d.timer != nil || d.inflight != nil {
		return
	}
	if d.cycles > 0 && d.generation == d.renderedGeneration() {
		return
	}
	if d.cycles == 0 {
		d.arm(phaseShort, d.opts.InitialDelay)
		return
	}
	d.arm(phaseDebounce, d.opts.Debounce)
}

func (d *Driver) renderedGeneration() uint64 {
	return d.view.Generation
}

func (d *Driver) arm(p phase, delay time.Duration) {
	d.cancelTimer()
	seq := d.timerSeq
	d.timerPhase = p
	d.timer = time.AfterFunc(delay, func() {
		d.post(timerEvent{seq: seq, phase: p})
	})
}

// cancelTimer stops the pending timer. Firings already queued carry an old
// sequence number and are dropped.
func (d *Driver) cancelTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.timerSeq++
	d.timerPhase = phaseNone
}

func (d *Driver) onTimer(ev timerEvent) {
	if ev.seq != d.timerSeq || ev.phase != d.timerPhase || d.timer == nil {
		return
	}
	d.timer = nil
	d.timerPhase = phaseNone

	if !d.ready() {
		return
	}
	if d.inflight != nil {
		d.pending = true
		return
	}
	d.startCycle()
}

func (d *Driver) startCycle() {
	d.cancelTimer()
	d.pending = false
	d.cycles++

	ctx, cancel := context.WithCancel(context.Background())
	c := &cycle{
		id:         d.cycles,
		trace:      id.NewCycleID(),
		generation: d.generation,
		text:       d.text,
		start:      time.Now(),
		cancel:     cancel,
	}
	c.span, c.ctx = d.startSpan(ctx, "cycle")
	if c.span != nil {
		c.span.SetTag("cycle", fmt.Sprint(c.id))
		c.span.SetTag("cycle_id", c.trace.String())
		c.span.SetTag("generation", fmt.Sprint(c.generation))
	}
	d.inflight = c

	if err := d.opts.Executor.Publish(d.table); err != nil {
		d.logger.Warn("Failed to publish registry", zap.Error(err))
	}

	d.logger.Debug("Cycle started",
		zap.Uint64("cycle", c.id),
		zap.String("cycle_id", c.trace.String()),
		zap.Uint64("generation", c.generation),
		zap.Int("bytes", len(c.text)),
	)

	table := d.table
	go func() {
		span, ctx := d.startSpan(c.ctx, "compile")
		bundle, err := d.opts.Compiler.Compile(ctx, c.text, table)
		d.finishSpan(span, err)
		d.post(compiledEvent{cycle: c.id, bundle: bundle, err: err})
	}()
}

func (d *Driver) onCompiled(ev compiledEvent) bool {
	c := d.inflight
	if c == nil || c.id != ev.cycle {
		return false
	}
	d.inflight = nil
	defer c.cancel()

	if d.closing {
		d.finishSpan(c.span, ev.err)
		d.shutdown()
		return true
	}

	var (
		view    types.View
		outcome string
		failure error
	)
	switch {
	case ev.err != nil:
		diag := types.AsDiagnostic(ev.err, types.CompileError)
		d.opts.Executor.Teardown()
		view, outcome, failure = types.DiagnosticView(diag, c.generation), "compile_error", diag
	case ev.bundle == nil:
		diag := types.NewDiagnostic(types.CompileError, "bundler produced no output")
		d.opts.Executor.Teardown()
		view, outcome, failure = types.DiagnosticView(diag, c.generation), "compile_error", diag
	default:
		span, ctx := d.startSpan(c.ctx, "execute")
		err := d.opts.Executor.Execute(ctx, ev.bundle.Code)
		d.finishSpan(span, err)
		if err != nil {
			diag := types.AsDiagnostic(err, types.RuntimeError)
			view, outcome, failure = types.DiagnosticView(diag, c.generation), "runtime_error", diag
		} else {
			view, outcome = types.MountedView(d.opts.Executor.HTML(), c.generation), "mounted"
		}
	}

	view.Cycle = c.id
	d.publish(view)

	elapsed := time.Since(c.start)
	d.metrics.RecordCycle(outcome, elapsed)
	d.finishSpan(c.span, failure)
	if failure != nil {
		diag := types.AsDiagnostic(failure, types.RuntimeError)
		d.metrics.RecordDiagnostic(string(diag.Kind))
		d.logger.Diagnostic(diag, zap.Uint64("cycle", c.id))
	}
	d.logger.Debug("Cycle finished",
		zap.Uint64("cycle", c.id),
		zap.String("cycle_id", c.trace.String()),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	)

	if d.pending && d.ready() {
		d.startCycle()
	} else {
		d.pending = false
		d.rearm()
	}
	return false
}

func (d *Driver) onUI(ev uiEvent) error {
	if d.closing {
		return ErrClosed
	}
	err := d.opts.Executor.Dispatch(ev.ctx, ev.event.Target, ev.event.Type, ev.event.Value)

	var diag *types.Diagnostic
	switch {
	case err == nil:
		view := d.View()
		view.HTML = d.opts.Executor.HTML()
		d.publish(view)
	case errors.As(err, &diag):
		d.metrics.RecordDiagnostic(string(diag.Kind))
		d.opts.Executor.Teardown()
		view := types.DiagnosticView(diag, d.View().Generation)
		view.Cycle = d.cycles
		d.publish(view)
	}
	return err
}

// shutdown tears down the mount after the last cycle
func (d *Driver) shutdown() {
	d.cancelTimer()
	d.opts.Executor.Teardown()
	d.logger.Debug("Driver closed", zap.Uint64("cycles", d.cycles))
}

func (d *Driver) setBanner(diag *types.Diagnostic) {
	d.banner = diag
	d.publish(d.View())
}

// publish stores view with the ambient fields filled in and notifies
// the subscriber
func (d *Driver) publish(view types.View) {
	view.Banner = d.banner
	view.Layout = d.opts.Executor.LayoutRefreshes()
	if view.Status != types.StatusInitializing {
		view.Console = d.opts.Executor.Console()
	}

	d.mu.Lock()
	d.view = view
	d.mu.Unlock()

	if d.opts.OnView != nil {
		d.opts.OnView(view)
	}
}

func (d *Driver) syncState() {
	s := Idle
	switch {
	case d.inflight != nil:
		s = Running
	case d.timerPhase == phaseShort:
		s = PendingShort
	case d.timerPhase == phaseDebounce:
		s = PendingDebounce
	}
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Driver) startSpan(ctx context.Context, name string) (*tracing.Span, context.Context) {
	if d.opts.Tracer == nil {
		return nil, ctx
	}
	return d.opts.Tracer.StartSpan(ctx, name)
}

func (d *Driver) finishSpan(span *tracing.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
	d.opts.Tracer.Submit(span)
}
