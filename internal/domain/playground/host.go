package playground

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/playground/internal/domain/compiler"
	"github.com/GriffinCanCode/playground/internal/domain/registry"
	"github.com/GriffinCanCode/playground/internal/infrastructure/config"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/playground/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/playground/internal/shared/id"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

// DefaultSource is the program every new session starts with
//
//go:embed default_source.jsx
var DefaultSource string

// ErrSessionNotFound is returned for unknown session ids
var ErrSessionNotFound = errors.New("session not found")

// Host owns the shared compiler, registry and render pool
type Host struct {
	cfg      *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	compiler *compiler.Compiler
	bridge   *registry.Bridge
	pool     *sandbox.Pool

	mu          sync.RWMutex
	sessions    map[id.SessionID]*Session
	source      string
	bundlerDone bool
	bundlerErr  error
	table       *registry.Table
}

// NewHost creates a host. Init must run before sessions can compile.
func NewHost(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, tracer *tracing.Tracer) (*Host, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	catalog := registry.Catalog()
	if cfg.Registry.Dir != "" {
		catalog = registry.CatalogFrom(cfg.Registry.Dir)
	}

	pool, err := sandbox.NewPool(sandboxConfig(cfg), cfg.Compiler.GlobalName, cfg.Sandbox.PoolSize, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create render pool: %w", err)
	}

	return &Host{
		cfg:      cfg,
		logger:   logger.Component("host"),
		metrics:  metrics,
		tracer:   tracer,
		compiler: compiler.New(compiler.OptionsFromConfig(cfg), logger, metrics),
		bridge:   registry.NewBridge(catalog, logger, metrics),
		pool:     pool,
		sessions: make(map[id.SessionID]*Session),
		source:   DefaultSource,
	}, nil
}

func sandboxConfig(cfg *config.Config) sandbox.Config {
	sc := sandbox.DefaultConfig()
	sc.Timeout = cfg.Sandbox.Timeout
	sc.MaxRenderPasses = cfg.Sandbox.MaxRenderPasses
	sc.EnableConsole = cfg.Sandbox.Console
	return sc
}

// Init initializes the bundler and loads the registry concurrently. A
// bundler failure is reported to sessions as a banner; only a cancelled
// ctx is returned.
func (h *Host) Init(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := h.compiler.Init(ctx)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		h.markBundler(err)
		return nil
	})

	g.Go(func() error {
		table, err := h.bridge.RegisterAll(ctx)
		if err != nil {
			return err
		}
		h.markRegistry(table)
		return nil
	})

	return g.Wait()
}

func (h *Host) markBundler(err error) {
	if err != nil {
		h.logger.Error("Bundler failed to initialize", zap.Error(err))
	}

	h.mu.Lock()
	h.bundlerDone = true
	h.bundlerErr = err
	sessions := h.snapshot()
	h.mu.Unlock()

	for _, s := range sessions {
		s.driver.SetBundlerReady(err)
	}
}

func (h *Host) markRegistry(table *registry.Table) {
	h.mu.Lock()
	h.table = table
	sessions := h.snapshot()
	h.mu.Unlock()

	for _, s := range sessions {
		s.driver.SetRegistryReady(table)
	}
}

func (h *Host) snapshot() []*Session {
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// NewSession starts a session seeded with the current source
func (h *Host) NewSession() (*Session, error) {
	exec, err := sandbox.NewExecutor(sandboxConfig(h.cfg), h.cfg.Compiler.GlobalName, h.logger, h.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	sid := id.NewSessionID()
	s := &Session{
		ID:          sid,
		Created:     time.Now(),
		executor:    exec,
		logger:      h.logger.Session(sid.String()),
		subscribers: make(map[int]chan types.View),
		released:    make(chan struct{}),
	}
	s.driver = NewDriver(Options{
		InitialDelay: h.cfg.Playground.InitialDelay,
		Debounce:     h.cfg.Playground.Debounce,
		Compiler:     h.compiler,
		Executor:     exec,
		Logger:       s.logger,
		Metrics:      h.metrics,
		Tracer:       h.tracer,
		OnView:       s.broadcast,
	})

	h.mu.Lock()
	h.sessions[sid] = s
	source := h.source
	bundlerDone, bundlerErr, table := h.bundlerDone, h.bundlerErr, h.table
	count := len(h.sessions)
	h.mu.Unlock()

	s.driver.Start()
	s.driver.OnChange(&source)
	if bundlerDone {
		s.driver.SetBundlerReady(bundlerErr)
	}
	if table != nil {
		s.driver.SetRegistryReady(table)
	}

	h.metrics.SetSessionsActive(count)
	s.logger.Info("Session started")
	return s, nil
}

// Session looks up a session
func (h *Host) Session(sid id.SessionID) (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CloseSession stops and forgets a session
func (h *Host) CloseSession(ctx context.Context, sid id.SessionID) error {
	h.mu.Lock()
	s, ok := h.sessions[sid]
	delete(h.sessions, sid)
	count := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	h.metrics.SetSessionsActive(count)
	s.logger.Info("Session closed")
	return s.Close(ctx)
}

// Sessions returns the number of live sessions
func (h *Host) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast replaces the source of every session. Watch mode calls it
// whenever the watched file changes; nil keeps each session's text.
func (h *Host) Broadcast(text *string) {
	h.mu.Lock()
	if text != nil {
		h.source = *text
	}
	sessions := h.snapshot()
	h.mu.Unlock()

	for _, s := range sessions {
		s.Update(text)
	}
}

// Source returns the text new sessions start with
func (h *Host) Source() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.source
}

// Registry returns the loaded table, or nil before Init finishes
func (h *Host) Registry() *registry.Table {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.table
}

// Ready reports whether both the bundler and the registry are usable
func (h *Host) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bundlerDone && h.bundlerErr == nil && h.table != nil
}

// Compile bundles source against the loaded registry
func (h *Host) Compile(ctx context.Context, source string) (*compiler.Bundle, error) {
	if err := h.requireReady(); err != nil {
		return nil, err
	}
	return h.compiler.Compile(ctx, source, h.Registry())
}

// Render compiles source and renders it once in a pooled executor
func (h *Host) Render(ctx context.Context, source string) (*sandbox.RenderResult, error) {
	bundle, err := h.Compile(ctx, source)
	if err != nil {
		return nil, err
	}
	return h.pool.Render(ctx, h.Registry(), bundle.Code)
}

func (h *Host) requireReady() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch {
	case h.bundlerErr != nil:
		return types.AsDiagnostic(h.bundlerErr, types.InitError)
	case !h.bundlerDone || h.table == nil:
		return types.NewDiagnostic(types.InitError, "playground is still initializing")
	}
	return nil
}

// Stats reports pool and session counters
func (h *Host) Stats() map[string]interface{} {
	stats := h.pool.Stats()
	stats["sessions"] = h.Sessions()
	return stats
}

// Close stops every session and the render pool
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	sessions := h.snapshot()
	h.sessions = make(map[id.SessionID]*Session)
	h.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	h.metrics.SetSessionsActive(0)
	return errors.Join(errs...)
}
