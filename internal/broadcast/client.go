package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var ErrClientClosed = errors.New("client closed")

// Client owns the write side of a websocket connection. Broadcasts are
// queued and may be dropped, direct replies are written synchronously.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	closed  bool
}

func NewClient(conn *websocket.Conn, sendBuffer int, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger.With("conn_id", id),
	}
}

func (c *Client) Id() string {
	return c.id
}

// Send queues msg for the write pump. It never blocks and reports false
// when the buffer is full or the client is closed.
func (c *Client) Send(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// WriteJSON writes v immediately, bypassing the send buffer.
func (c *Client) WriteJSON(v any) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClientClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(messageType, data)
}

// PrepareRead arms the read deadline and extends it on every pong.
func (c *Client) PrepareRead() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// WritePump drains the send buffer and pings the peer until ctx is done or
// the client is closed.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.write(websocket.TextMessage, data); err != nil {
				c.logger.InfoContext(ctx, "write failed", "error", err)
				c.Close()
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.InfoContext(ctx, "ping failed", "error", err)
				c.Close()
				_ = c.conn.Close()
				return
			}
		}
	}
}

// Close stops the write pump, which then sends a close frame. It is safe to
// call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}

func (c *Client) Conn() *websocket.Conn {
	return c.conn
}
