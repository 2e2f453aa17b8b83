package resolver

import (
	"regexp"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/GriffinCanCode/playground/internal/domain/registry"
)

// Namespaces used by the plugins
const (
	EntryNamespace    = "virtual"
	RuntimeNamespace  = "runtime"
	RegistryNamespace = "registry"
)

// Globals the shims read from
const (
	ReactGlobal    = "React"
	ReactDOMGlobal = "ReactDOM"
	RegistryGlobal = "ComponentRegistry"
)

// Defaults
const (
	DefaultEntryPath    = "/virtual/app.jsx"
	DefaultImportPrefix = "@/components/ui/"
)

// Families is the subset of the registry table the resolver reads
type Families interface {
	Family(key string) (*registry.Family, bool)
}

// Options configures one set of plugins
type Options struct {
	EntryPath    string
	ImportPrefix string
	// Source returns the entry module text
	Source func() string
	// Families may be nil; every key is then treated as unknown
	Families Families
}

func (o Options) withDefaults() Options {
	if o.EntryPath == "" {
		o.EntryPath = DefaultEntryPath
	}
	if o.ImportPrefix == "" {
		o.ImportPrefix = DefaultImportPrefix
	}
	if o.Source == nil {
		o.Source = func() string { return "" }
	}
	return o
}

// Plugins returns the entry, runtime and registry plugins in that order
func Plugins(opts Options) []api.Plugin {
	opts = opts.withDefaults()
	return []api.Plugin{
		entryPlugin(opts),
		runtimePlugin(),
		registryPlugin(opts),
	}
}

func exact(s string) string {
	return "^" + regexp.QuoteMeta(s) + "$"
}

func entryPlugin(opts Options) api.Plugin {
	return api.Plugin{
		Name: "virtual-entry",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: exact(opts.EntryPath)},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: EntryNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: EntryNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := EntryContents(opts.Source())
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJSX}, nil
				})
		},
	}
}

func runtimePlugin() api.Plugin {
	return api.Plugin{
		Name: "runtime-shim",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: runtimeFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: RuntimeNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: RuntimeNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents, ok := RuntimeContents(args.Path)
					if !ok {
						return api.OnLoadResult{}, errUnknownRuntime(args.Path)
					}
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

func registryPlugin(opts Options) api.Plugin {
	return api.Plugin{
		Name: "component-registry",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(opts.ImportPrefix)},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: RegistryNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: RegistryNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := RegistryContents(args.Path, opts.Families)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}
