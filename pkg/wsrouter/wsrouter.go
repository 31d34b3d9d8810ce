package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidMessage     = errors.New("invalid message")
)

type message struct {
	Type    string          `json:"type"`
	Id      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc handles a single decoded message. Middlewares operate on
// HandlerFunc[any] and receive the raw payload.
type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type WSRouter struct {
	routes      map[string]HandlerFunc[any]
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[any])}
}

func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// Handle registers handler for messageType. The payload is decoded into T
// before the handler is called; decoding errors wrap ErrInvalidMessage.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload any) error {
		var input T
		if raw, ok := payload.(json.RawMessage); ok && len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &input); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
			}
		}

		return handler(ctx, conn, input)
	}
}

// Has reports whether a handler is registered for messageType.
func (r *WSRouter) Has(messageType string) bool {
	_, exists := r.routes[messageType]
	return exists
}

func (r *WSRouter) chain(h HandlerFunc[any]) HandlerFunc[any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

// ServeConn reads messages until the connection fails and dispatches them in
// order. Handler errors are left to middlewares; only read errors are returned.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg message
		var handler HandlerFunc[any]
		if err := json.Unmarshal(data, &msg); err != nil {
			handler = func(context.Context, *websocket.Conn, any) error {
				return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
			}
		} else if route, exists := r.routes[msg.Type]; exists {
			handler = route
		} else {
			handler = func(context.Context, *websocket.Conn, any) error {
				return fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
			}
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		msgCtx = context.WithValue(msgCtx, messageIdKey, msg.Id)

		_ = r.chain(handler)(msgCtx, conn, msg.Payload)
	}
}
