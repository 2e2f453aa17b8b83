package compiler

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/GriffinCanCode/playground/internal/domain/resolver"
	"github.com/GriffinCanCode/playground/internal/infrastructure/config"
)

// Options configures the bundler invocation
type Options struct {
	EntryPath    string
	ImportPrefix string
	GlobalName   string
	Target       string
	JSXFactory   string
	JSXFragment  string
	CacheSize    int
}

// DefaultOptions returns the settings the playground builds with
func DefaultOptions() Options {
	return Options{
		EntryPath:    resolver.DefaultEntryPath,
		ImportPrefix: resolver.DefaultImportPrefix,
		GlobalName:   "AppBundle",
		Target:       "es2015",
		JSXFactory:   "React.createElement",
		JSXFragment:  "React.Fragment",
		CacheSize:    64,
	}
}

// OptionsFromConfig maps the application config onto compiler options
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.EntryPath = cfg.Playground.EntryPath
	opts.ImportPrefix = cfg.Registry.ImportPrefix
	opts.GlobalName = cfg.Compiler.GlobalName
	opts.Target = cfg.Compiler.Target
	opts.CacheSize = cfg.Compiler.CacheSize
	return opts
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseTarget maps a target name such as "es2015" onto esbuild's enum
func ParseTarget(name string) (api.Target, error) {
	if t, ok := targets[strings.ToLower(name)]; ok {
		return t, nil
	}
	return api.DefaultTarget, fmt.Errorf("unsupported target %q", name)
}
