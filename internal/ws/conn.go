// internal/ws/conn.go
package ws

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

// Conn is the transport-level connection as seen by the session registry.
// The concrete implementation wraps a coder/websocket connection; tests
// substitute in-memory fakes.
type Conn interface {
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

const writeTimeout = 5 * time.Second

type wsConn struct {
	c *websocket.Conn
}

// NewConn wraps a live websocket connection.
func NewConn(c *websocket.Conn) Conn {
	return &wsConn{c: c}
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close(code websocket.StatusCode, reason string) error {
	return w.c.Close(code, reason)
}
