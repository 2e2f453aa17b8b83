package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Playground PlaygroundConfig
	Compiler   CompilerConfig
	Sandbox    SandboxConfig
	Registry   RegistryConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// PlaygroundConfig holds reactive driver configuration.
type PlaygroundConfig struct {
	InitialDelay time.Duration `envconfig:"PLAYGROUND_INITIAL_DELAY" default:"100ms"`
	Debounce     time.Duration `envconfig:"PLAYGROUND_DEBOUNCE" default:"500ms"`
	EntryPath    string        `envconfig:"PLAYGROUND_ENTRY_PATH" default:"/virtual/app.jsx"`
	WatchFile    string        `envconfig:"PLAYGROUND_WATCH_FILE"`
}

// CompilerConfig holds bundler configuration.
type CompilerConfig struct {
	Target     string `envconfig:"COMPILER_TARGET" default:"es2015"`
	GlobalName string `envconfig:"COMPILER_GLOBAL_NAME" default:"AppBundle"`
	CacheSize  int    `envconfig:"COMPILER_CACHE_SIZE" default:"64"`
}

// SandboxConfig holds script sandbox configuration.
type SandboxConfig struct {
	Timeout         time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	MaxRenderPasses int           `envconfig:"SANDBOX_MAX_RENDER_PASSES" default:"25"`
	PoolSize        int           `envconfig:"SANDBOX_POOL_SIZE" default:"2"`
	Console         bool          `envconfig:"SANDBOX_CONSOLE" default:"true"`
}

// RegistryConfig holds component registry configuration.
type RegistryConfig struct {
	Dir          string `envconfig:"REGISTRY_DIR"`
	ImportPrefix string `envconfig:"REGISTRY_IMPORT_PREFIX" default:"@/components/ui/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the driver and sandbox cannot run with.
func (c *Config) Validate() error {
	if c.Playground.InitialDelay < 0 {
		return fmt.Errorf("invalid config: PLAYGROUND_INITIAL_DELAY must not be negative")
	}
	if c.Playground.Debounce < 0 {
		return fmt.Errorf("invalid config: PLAYGROUND_DEBOUNCE must not be negative")
	}
	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("invalid config: SANDBOX_TIMEOUT must be positive")
	}
	if c.Sandbox.MaxRenderPasses < 1 {
		return fmt.Errorf("invalid config: SANDBOX_MAX_RENDER_PASSES must be at least 1")
	}
	if c.Sandbox.PoolSize < 1 {
		return fmt.Errorf("invalid config: SANDBOX_POOL_SIZE must be at least 1")
	}
	if c.Compiler.GlobalName == "" {
		return fmt.Errorf("invalid config: COMPILER_GLOBAL_NAME must not be empty")
	}
	if c.Registry.ImportPrefix == "" {
		return fmt.Errorf("invalid config: REGISTRY_IMPORT_PREFIX must not be empty")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Playground: PlaygroundConfig{
			InitialDelay: 100 * time.Millisecond,
			Debounce:     500 * time.Millisecond,
			EntryPath:    "/virtual/app.jsx",
		},
		Compiler: CompilerConfig{
			Target:     "es2015",
			GlobalName: "AppBundle",
			CacheSize:  64,
		},
		Sandbox: SandboxConfig{
			Timeout:         5 * time.Second,
			MaxRenderPasses: 25,
			PoolSize:        2,
			Console:         true,
		},
		Registry: RegistryConfig{
			ImportPrefix: "@/components/ui/",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
