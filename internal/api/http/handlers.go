package http

import (
	_ "embed"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/playground/internal/domain/playground"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/shared/types"
	"github.com/GriffinCanCode/playground/internal/shared/utils"
)

//go:embed static/index.html
var indexHTML []byte

// Version is reported by the health endpoints
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	host    *playground.Host
	metrics *HandlerMetrics
	logger  *logging.Logger
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(host *playground.Host, metrics *monitoring.Metrics, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		host:    host,
		metrics: NewHandlerMetrics(metrics),
		logger:  logger.Component("http"),
		started: time.Now(),
	}
}

// SourceRequest carries editor text for the one-shot endpoints
type SourceRequest struct {
	Source string `json:"source" binding:"required"`
}

// Index serves the two-pane editor page
func (h *Handlers) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// Health reports readiness of the bundler and registry
func (h *Handlers) Health(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if !h.host.Ready() {
		status = "initializing"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":   status,
		"service":  "playground",
		"version":  Version,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"sandbox":  h.host.Stats(),
		"registry": registryStats(h.host),
	})
}

func registryStats(host *playground.Host) gin.H {
	table := host.Registry()
	if table == nil {
		return gin.H{"ready": false}
	}
	return gin.H{
		"ready":    true,
		"families": len(table.Keys()),
		"symbols":  table.Len(),
		"failed":   table.Failures(),
		"version":  table.Version(),
	}
}

// Registry lists the published component families
func (h *Handlers) Registry(c *gin.Context) {
	table := h.host.Registry()
	if table == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "registry is still loading",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"version":  table.Version(),
		"families": table.Families(),
		"failed":   table.Failures(),
	})
}

// Compile bundles the posted source
func (h *Handlers) Compile(c *gin.Context) {
	var req SourceRequest
	if !h.bind(c, &req) {
		return
	}

	done := h.metrics.Track("compile")
	bundle, err := h.host.Compile(c.Request.Context(), req.Source)
	done(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"code":     bundle.Code,
		"hash":     bundle.Hash,
		"warnings": bundle.Warnings,
		"cached":   bundle.Cached,
		"duration": bundle.Duration.String(),
	})
}

// Render compiles the posted source and mounts it once in a pooled sandbox
func (h *Handlers) Render(c *gin.Context) {
	var req SourceRequest
	if !h.bind(c, &req) {
		return
	}

	done := h.metrics.Track("render")
	result, err := h.host.Render(c.Request.Context(), req.Source)
	done(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"html":         result.HTML,
		"console":      result.Console,
		"placeholders": result.Placeholders,
		"duration":     result.Duration.String(),
	})
}

func (h *Handlers) bind(c *gin.Context, req *SourceRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request: " + err.Error(),
		})
		return false
	}
	if err := utils.ValidateSource(req.Source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// fail maps an error onto a response. Diagnostics are user errors and
// come back as 422 with the diagnostic attached.
func (h *Handlers) fail(c *gin.Context, err error) {
	var diag *types.Diagnostic
	switch {
	case errors.As(err, &diag) && diag.Kind == types.InitError:
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "diagnostic": diag})
	case errors.As(err, &diag):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "diagnostic": diag})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}
