package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/playground/internal/domain/registry"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
)

// Pool manages reusable executors for one-shot renders
type Pool struct {
	config     Config
	globalName string
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	executors  chan *Executor
	size       int
	wait       time.Duration
	mu         sync.RWMutex
	closed     bool
}

// NewPool creates an executor pool
func NewPool(config Config, globalName string, size int, logger *logging.Logger, metrics *monitoring.Metrics) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	pool := &Pool{
		config:     config,
		globalName: globalName,
		logger:     logger,
		metrics:    metrics,
		executors:  make(chan *Executor, size),
		size:       size,
		wait:       5 * time.Second,
	}

	// Pre-create executors
	for i := 0; i < size; i++ {
		exec, err := NewExecutor(config, globalName, logger, metrics)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.executors <- exec
	}

	return pool, nil
}

// Acquire gets an executor from the pool with timeout
func (p *Pool) Acquire(ctx context.Context) (*Executor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	timer := time.NewTimer(p.wait)
	defer timer.Stop()

	select {
	case exec := <-p.executors:
		return exec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Release returns an executor to the pool
func (p *Pool) Release(exec *Executor) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return exec.Close()
	}

	// Reset executor state
	if err := exec.Reset(); err != nil {
		exec.Close()
		// Create a replacement
		if fresh, err := NewExecutor(p.config, p.globalName, p.logger, p.metrics); err == nil {
			p.executors <- fresh
		}
		return err
	}

	select {
	case p.executors <- exec:
		return nil
	default:
		// Pool full, close executor
		return exec.Close()
	}
}

// Render mounts a compiled bundle against table and returns the markup
func (p *Pool) Render(ctx context.Context, table *registry.Table, code string) (*RenderResult, error) {
	exec, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(exec)

	start := time.Now()
	if err := exec.Publish(table); err != nil {
		return nil, err
	}
	if err := exec.Execute(ctx, code); err != nil {
		return &RenderResult{Console: exec.Console(), Duration: time.Since(start)}, err
	}

	return &RenderResult{
		HTML:         exec.HTML(),
		Console:      exec.Console(),
		Placeholders: exec.Placeholders(),
		Duration:     time.Since(start),
	}, nil
}

// Close closes the pool and all executors
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.executors)

	for exec := range p.executors {
		exec.Close()
	}

	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.executors),
		"in_use":    p.size - len(p.executors),
		"closed":    p.closed,
	}
}
