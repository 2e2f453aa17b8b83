package registry

import (
	"context"
	"io/fs"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
)

// Bridge publishes the component catalog exactly once
type Bridge struct {
	loader  *Loader
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu    sync.Mutex
	table *Table
	ready chan struct{}
}

// NewBridge creates a bridge over a catalog filesystem
func NewBridge(catalog fs.FS, logger *logging.Logger, metrics *monitoring.Metrics) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bridge{
		loader:  NewLoader(catalog, logger),
		logger:  logger,
		metrics: metrics,
		ready:   make(chan struct{}),
	}
}

// RegisterAll loads the catalog and returns the table. Once populated it
// returns the same table without touching the catalog again. Family
// failures are logged and recorded on the table; the only error returned
// is a cancelled ctx.
func (b *Bridge) RegisterAll(ctx context.Context) (*Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.table != nil {
		return b.table, nil
	}

	result, err := b.loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Discovery failed outright; degrade to an empty table so
		// placeholders still render.
		b.logger.Error("Failed to discover component catalog", zap.Error(err))
		result = &LoadResult{Failed: []string{"catalog"}}
	}

	table := NewTable(result.Families)
	table.failures = result.Failed

	b.table = table
	close(b.ready)

	b.metrics.SetRegistryComponents(table.Len())
	for range result.Failed {
		b.metrics.IncFamilyFailures()
	}

	b.logger.Info("Component registry ready",
		zap.Int("families", len(table.Keys())),
		zap.Int("symbols", table.Len()),
		zap.Int("failed", len(result.Failed)),
		zap.String("version", table.Version()),
	)

	return table, nil
}

// Ready is closed once RegisterAll has published a table
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Table returns the published table, nil before RegisterAll
func (b *Bridge) Table() *Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table
}
