package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/playground/internal/domain/playground"
	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/playground/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/playground/internal/shared/types"
	"github.com/GriffinCanCode/playground/internal/shared/utils"
)

// Config tunes a connection
type Config struct {
	// MessagesPerSecond and Burst bound inbound frames per connection
	MessagesPerSecond float64
	Burst             int
	WriteTimeout      time.Duration
	EventTimeout      time.Duration
	CloseTimeout      time.Duration
}

// DefaultConfig returns the connection defaults
func DefaultConfig() Config {
	return Config{
		MessagesPerSecond: 50,
		Burst:             100,
		WriteTimeout:      10 * time.Second,
		EventTimeout:      10 * time.Second,
		CloseTimeout:      5 * time.Second,
	}
}

// Handler manages WebSocket connections
type Handler struct {
	host     *playground.Host
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	config   Config
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(host *playground.Host, metrics *monitoring.Metrics, logger *logging.Logger, config Config) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		host:    host,
		metrics: metrics,
		logger:  logger.Component("ws"),
		config:  config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// conn serializes writes; gorilla allows one concurrent writer
type conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	timeout time.Duration
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

func (c *conn) send(msgType string, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("WebSocket write failed", zap.String("type", msgType), zap.Error(err))
		return err
	}
	c.metrics.RecordWSMessage("out", msgType)
	return nil
}

func (c *conn) sendError(message string) error {
	return c.send(TypeError, notice(TypeError, message))
}

// HandleConnection upgrades the request and runs one session until the
// client disconnects
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(utils.MaxMessageSize)

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	out := &conn{ws: ws, timeout: h.config.WriteTimeout, metrics: h.metrics, logger: h.logger}

	session, err := h.host.NewSession()
	if err != nil {
		h.logger.Error("Failed to start session", zap.Error(err))
		out.sendError("failed to start session")
		return
	}
	logger := h.logger.Session(session.ID.String())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.config.CloseTimeout)
		defer cancel()
		if err := h.host.CloseSession(ctx, session.ID); err != nil && !errors.Is(err, playground.ErrSessionNotFound) {
			logger.Warn("Session close failed", zap.Error(err))
		}
	}()

	views, unsubscribe := session.Subscribe()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for view := range views {
			out.send(TypeView, ViewMessage{Type: TypeView, View: view})
		}
	}()
	defer func() {
		unsubscribe()
		<-forwarded
	}()

	out.send(TypeHello, Hello{Type: TypeHello, Session: session.ID.String(), Text: h.host.Source()})
	session.Attach()

	h.serve(c.Request.Context(), out, session, logger)
}

func (h *Handler) serve(ctx context.Context, out *conn, session *playground.Session, logger *logging.Logger) {
	limiter := rate.NewLimiter(rate.Limit(h.config.MessagesPerSecond), h.config.Burst)

	for {
		_, data, err := out.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		if !limiter.Allow() {
			out.sendError("rate limit exceeded")
			continue
		}

		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			out.sendError("invalid message")
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case TypeChange:
			if msg.Text != nil {
				if err := utils.ValidateSource(*msg.Text); err != nil {
					out.sendError(err.Error())
					continue
				}
			}
			session.Update(msg.Text)

		case TypeEvent:
			h.handleEvent(ctx, out, session, msg, logger)

		case TypePing:
			out.send(TypePong, notice(TypePong, ""))

		default:
			out.sendError("unknown message type")
		}
	}
}

func (h *Handler) handleEvent(ctx context.Context, out *conn, session *playground.Session, msg Inbound, logger *logging.Logger) {
	if err := utils.ValidateTarget(msg.Target); err != nil {
		out.sendError(err.Error())
		return
	}
	if err := utils.ValidateValue(msg.Value); err != nil {
		out.sendError(err.Error())
		return
	}
	if !sandbox.SupportedEvent(msg.Event) {
		out.sendError("unsupported event: " + msg.Event)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.EventTimeout)
	defer cancel()

	err := session.Dispatch(ctx, playground.Event{Target: msg.Target, Type: msg.Event, Value: msg.Value})
	var diag *types.Diagnostic
	switch {
	case err == nil:
	case errors.As(err, &diag):
		// Already published as a view
	default:
		logger.Debug("Event rejected", zap.String("target", msg.Target), zap.Error(err))
		out.sendError(err.Error())
	}
}
