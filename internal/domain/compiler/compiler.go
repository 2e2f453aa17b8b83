package compiler

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/playground/internal/domain/resolver"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/shared/types"
	"github.com/GriffinCanCode/playground/internal/shared/utils"
)

// Bundle is the output of a successful compile
type Bundle struct {
	Code     string        `json:"code"`
	Hash     string        `json:"hash"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
	Cached   bool          `json:"cached"`
}

// Registry is what the compiler needs from the component table
type Registry interface {
	resolver.Families
	Version() string
}

// Compiler drives esbuild with the virtual resolver plugins
type Compiler struct {
	opts    Options
	target  api.Target
	logger  *logging.Logger
	metrics *monitoring.Metrics
	hasher  *utils.Hasher
	cache   *bundleCache
	ready   atomic.Bool
}

// New creates a compiler. Init must succeed before Compile is used.
func New(opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Compiler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Compiler{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		hasher:  utils.DefaultHasher(),
		cache:   newBundleCache(opts.CacheSize),
	}
}

// probeSource exercises the JSX transform during Init
const probeSource = `const probe = <div className="probe">{1}</div>;`

// Init validates the configuration and runs one probe transform. A failure
// is an init_error diagnostic.
func (c *Compiler) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := ParseTarget(c.opts.Target)
	if err != nil {
		return types.NewDiagnostic(types.InitError, err.Error())
	}
	if c.opts.GlobalName == "" {
		return types.NewDiagnostic(types.InitError, "bundle global name is empty")
	}
	c.target = target

	result := api.Transform(probeSource, api.TransformOptions{
		Loader:      api.LoaderJSX,
		Target:      target,
		JSXFactory:  c.opts.JSXFactory,
		JSXFragment: c.opts.JSXFragment,
		LogLevel:    api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return types.NewDiagnostic(types.InitError, formatMessages(result.Errors, api.ErrorMessage))
	}

	c.ready.Store(true)
	c.logger.Info("Bundler initialized",
		zap.String("target", c.opts.Target),
		zap.String("global", c.opts.GlobalName),
	)
	return nil
}

// Ready reports whether Init succeeded
func (c *Compiler) Ready() bool {
	return c.ready.Load()
}

// GlobalName is the window binding the bundle assigns its exports to
func (c *Compiler) GlobalName() string {
	return c.opts.GlobalName
}

// Compile bundles source against the registry. Failures are returned as a
// *types.Diagnostic of kind compile_error. Compile never mounts anything.
func (c *Compiler) Compile(ctx context.Context, source string, reg Registry) (*Bundle, error) {
	if !c.Ready() {
		return nil, types.NewDiagnostic(types.InitError, "bundler is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	version := ""
	var families resolver.Families
	if reg != nil {
		version = reg.Version()
		families = reg
	}
	key := c.hasher.HashFields(source, version, c.opts.EntryPath, c.opts.ImportPrefix, c.opts.Target, c.opts.GlobalName)

	if cached, ok := c.cache.get(key); ok {
		c.metrics.RecordCompile("cached", 0)
		hit := *cached
		hit.Cached = true
		return &hit, nil
	}

	timer := monitoring.NewTimer()
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{c.opts.EntryPath},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatIIFE,
		GlobalName:  c.opts.GlobalName,
		Target:      c.target,
		JSXFactory:  c.opts.JSXFactory,
		JSXFragment: c.opts.JSXFragment,
		LogLevel:    api.LogLevelSilent,
		Plugins: resolver.Plugins(resolver.Options{
			EntryPath:    c.opts.EntryPath,
			ImportPrefix: c.opts.ImportPrefix,
			Source:       func() string { return source },
			Families:     families,
		}),
	})
	elapsed := timer.Elapsed()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(result.Errors) > 0 {
		c.metrics.RecordCompile("error", elapsed)
		return nil, types.NewDiagnostic(types.CompileError, formatMessages(result.Errors, api.ErrorMessage))
	}
	if len(result.OutputFiles) == 0 || len(result.OutputFiles[0].Contents) == 0 {
		c.metrics.RecordCompile("error", elapsed)
		return nil, types.NewDiagnostic(types.CompileError, "bundler produced no output")
	}

	bundle := &Bundle{
		Code:     string(result.OutputFiles[0].Contents),
		Hash:     utils.Short(key),
		Duration: elapsed,
	}
	if len(result.Warnings) > 0 {
		bundle.Warnings = api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage})
		c.logger.Debug("Bundle built with warnings", zap.Int("warnings", len(result.Warnings)))
	}

	c.cache.put(key, bundle)
	c.metrics.RecordCompile("ok", elapsed)

	out := *bundle
	return &out, nil
}

// formatMessages renders esbuild messages the way its CLI would, without
// terminal colors.
func formatMessages(msgs []api.Message, kind api.MessageKind) string {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
	text := strings.TrimSpace(strings.Join(formatted, ""))
	if text == "" && len(msgs) > 0 {
		return msgs[0].Text
	}
	return text
}
