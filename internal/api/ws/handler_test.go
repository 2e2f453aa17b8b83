package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/playground/internal/domain/playground"
	"github.com/GriffinCanCode/playground/internal/infrastructure/config"
	"github.com/GriffinCanCode/playground/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

// frame is the union of every outbound message
type frame struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Text    string `json:"text"`
	Message string `json:"message"`
	types.View
}

func setupServer(t *testing.T, cfg Config) (*playground.Host, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	appCfg := config.Default()
	appCfg.Playground.InitialDelay = 10 * time.Millisecond
	appCfg.Playground.Debounce = 50 * time.Millisecond
	appCfg.Sandbox.PoolSize = 1

	host, err := playground.NewHost(appCfg, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, host.Init(context.Background()))

	router := gin.New()
	router.GET("/ws", NewHandler(host, nil, nil, cfg).HandleConnection)
	server := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		host.Close(ctx)
	})
	return host, conn
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, sonic.Unmarshal(data, &f))
	return f
}

// readUntil skips frames until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	for i := 0; i < 50; i++ {
		if f := read(t, conn); match(f) {
			return f
		}
	}
	t.Fatal("no matching frame")
	return frame{}
}

func write(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := sonic.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func mounted(f frame) bool { return f.Type == TypeView && f.Status == types.StatusMounted }

func TestSessionLifecycle(t *testing.T) {
	host, conn := setupServer(t, DefaultConfig())

	hello := readUntil(t, conn, func(f frame) bool { return f.Type == TypeHello })
	assert.NotEmpty(t, hello.Session)
	assert.Equal(t, playground.DefaultSource, hello.Text)
	assert.Equal(t, 1, host.Sessions())

	view := readUntil(t, conn, mounted)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(view.HTML))
	require.NoError(t, err)
	assert.Equal(t, "Count: 0", doc.Find("span").Text())
	target, ok := doc.Find("button").Attr(sandbox.NodeIDAttr)
	require.True(t, ok)

	write(t, conn, Inbound{Type: TypeEvent, Target: target, Event: "click"})
	view = readUntil(t, conn, mounted)
	assert.Contains(t, view.HTML, "Count: 1")

	source := "export default function App() { return <h1>edited</h1>; }"
	write(t, conn, Inbound{Type: TypeChange, Text: &source})
	view = readUntil(t, conn, func(f frame) bool { return mounted(f) && strings.Contains(f.HTML, "edited") })
	assert.Greater(t, view.Cycle, uint64(1))

	broken := "export default function App( {"
	write(t, conn, Inbound{Type: TypeChange, Text: &broken})
	view = readUntil(t, conn, func(f frame) bool { return f.Type == TypeView && f.Status == types.StatusDiagnostic })
	assert.Equal(t, types.CompileError, view.Diagnostic.Kind)
	assert.Empty(t, view.HTML)

	conn.Close()
	require.Eventually(t, func() bool { return host.Sessions() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestRejectedMessages(t *testing.T) {
	_, conn := setupServer(t, DefaultConfig())
	readUntil(t, conn, func(f frame) bool { return f.Type == TypeHello })

	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"malformed", `{"type":`, "invalid message"},
		{"unknown type", `{"type":"shout"}`, "unknown message type"},
		{"bad target", `{"type":"event","target":"../x","event":"click"}`, "must be a node identifier"},
		{"unsupported event", `{"type":"event","target":"1","event":"wheel"}`, "unsupported event: wheel"},
		{"unknown node", `{"type":"event","target":"99999","event":"click"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
			f := readUntil(t, conn, func(f frame) bool { return f.Type == TypeError })
			assert.Contains(t, f.Message, tt.message)
		})
	}

	write(t, conn, Inbound{Type: TypePing})
	readUntil(t, conn, func(f frame) bool { return f.Type == TypePong })
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MessagesPerSecond = 1
	cfg.Burst = 1
	_, conn := setupServer(t, cfg)
	readUntil(t, conn, func(f frame) bool { return f.Type == TypeHello })

	write(t, conn, Inbound{Type: TypePing})
	write(t, conn, Inbound{Type: TypePing})

	readUntil(t, conn, func(f frame) bool { return f.Type == TypePong })
	f := readUntil(t, conn, func(f frame) bool { return f.Type == TypeError })
	assert.Equal(t, "rate limit exceeded", f.Message)
}
