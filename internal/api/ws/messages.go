package ws

import (
	"time"

	"github.com/GriffinCanCode/playground/internal/shared/types"
)

// Message types
const (
	TypeChange = "change"
	TypeEvent  = "event"
	TypePing   = "ping"
	TypePong   = "pong"
	TypeHello  = "hello"
	TypeView   = "view"
	TypeError  = "error"
)

// Inbound is any client message. Text is a pointer so that null can mean
// "no change".
type Inbound struct {
	Type   string  `json:"type"`
	Text   *string `json:"text"`
	Target string  `json:"target"`
	Event  string  `json:"event"`
	Value  string  `json:"value"`
}

// Hello greets a new connection
type Hello struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Text    string `json:"text"`
}

// ViewMessage carries a published view
type ViewMessage struct {
	Type string `json:"type"`
	types.View
}

// Notice is a pong or error frame
type Notice struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func notice(typ, message string) Notice {
	return Notice{Type: typ, Message: message, Timestamp: time.Now().Unix()}
}
