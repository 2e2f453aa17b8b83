// Package ws serves the live playground session over WebSocket.
//
// Every connection gets its own session: the editor sends text changes
// and preview events, and the server pushes a view after every cycle or
// dispatched event.
//
// Message Types (Client → Server):
//   - change: {"type":"change","text":string|null}; null keeps the text
//   - event: {"type":"event","target":id,"event":"click","value":string}
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - hello: session id and the initial source
//   - view: the preview state (status, html, diagnostic, banner, console)
//   - pong: reply to ping
//   - error: a rejected message
//
// Example Usage:
//
//	handler := ws.NewHandler(host, metrics, logger, ws.DefaultConfig())
//	router.GET("/ws", handler.HandleConnection)
package ws
