package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxUILogEntries bounds one batch from the page
const MaxUILogEntries = 100

// UILogEntry represents a log entry from the editor page
type UILogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// UILogStreamRequest represents a batch of logs from the page
type UILogStreamRequest struct {
	Source  string       `json:"source"`
	Session string       `json:"session"`
	Entries []UILogEntry `json:"entries"`
}

// StreamLogs records client-side errors the page reports, such as a
// dropped WebSocket or an exception in the page script
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req UILogStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}
	if req.Source != "ui" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}
	if len(req.Entries) > MaxUILogEntries {
		req.Entries = req.Entries[:MaxUILogEntries]
	}

	logger := h.logger.Component("ui")
	if req.Session != "" {
		logger = logger.Session(req.Session)
	}
	for _, entry := range req.Entries {
		logUIEntry(logger.Logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"entries_received": len(req.Entries),
		"timestamp":        time.Now().Unix(),
	})
}

func logUIEntry(logger *zap.Logger, entry UILogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	fields = append(fields, zap.String("ui_timestamp", entry.Timestamp))

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
