package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/playground/internal/api/http"
	"github.com/GriffinCanCode/playground/internal/api/middleware"
	"github.com/GriffinCanCode/playground/internal/api/ws"
	"github.com/GriffinCanCode/playground/internal/domain/playground"
	"github.com/GriffinCanCode/playground/internal/infrastructure/config"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/playground/internal/providers/watch"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	host     *playground.Host
	watcher  *watch.Watcher
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	gatherer *prometheus.Registry
	http     *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing playground server",
		zap.String("port", cfg.Server.Port),
		zap.Duration("debounce", cfg.Playground.Debounce),
		zap.String("watch", cfg.Playground.WatchFile),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	tracer := tracing.New("playground", logger.Logger)

	host, err := playground.NewHost(cfg, logger, metrics, tracer)
	if err != nil {
		tracer.Close()
		return nil, err
	}

	var watcher *watch.Watcher
	if cfg.Playground.WatchFile != "" {
		watcher, err = watch.NewWatcher(cfg.Playground.WatchFile, host.Broadcast, logger)
		if err != nil {
			host.Close(context.Background())
			tracer.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", cfg.Playground.WatchFile, err)
		}
		if text := watcher.Read(); text != nil {
			host.Broadcast(text)
		}
	}

	s := &Server{
		host:     host,
		watcher:  watcher,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		gatherer: reg,
	}
	s.router = s.routes()

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = s.config.RateLimit.RequestsPerSecond
		limit.Burst = s.config.RateLimit.Burst
		router.Use(middleware.RateLimit(limit))
	}

	handlers := apihttp.NewHandlers(s.host, s.metrics, s.logger)
	aggregator := apihttp.NewMetricsAggregator(s.metrics, s.host)
	wsHandler := ws.NewHandler(s.host, s.metrics, s.logger, ws.DefaultConfig())
	compress := middleware.Gzip(gzip.DefaultCompression)

	router.GET("/", handlers.Index)
	router.GET("/health", handlers.Health)

	api := router.Group("/api")
	api.GET("/registry", handlers.Registry)
	api.POST("/compile", compress, handlers.Compile)
	api.POST("/render", compress, handlers.Render)
	api.POST("/logs", handlers.StreamLogs)

	router.GET("/metrics", gin.WrapH(monitoring.Handler(s.gatherer)))
	router.GET("/metrics/json", aggregator.GetAggregatedMetrics)

	router.GET("/ws", wsHandler.HandleConnection)

	return router
}

// Router exposes the handler tree
func (s *Server) Router() http.Handler {
	return s.router
}

// Host returns the playground host
func (s *Server) Host() *playground.Host {
	return s.host
}

// Init loads the bundler and the registry and starts the file watcher
func (s *Server) Init(ctx context.Context) error {
	if err := s.host.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize playground: %w", err)
	}
	if s.watcher != nil {
		s.watcher.Start()
		s.logger.Info("Watching source file", zap.String("path", s.config.Playground.WatchFile))
	}
	return nil
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("watcher: %w", err))
		}
	}
	if err := s.host.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}
	s.tracer.Close()

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("Shutdown finished with errors", zap.Error(err))
		s.logger.Sync()
		return err
	}
	s.logger.Sync()
	return nil
}
