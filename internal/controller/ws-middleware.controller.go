package controller

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/service/videosync"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

func (c controller) wsRequestIdWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, conn, payload)
		}
	}
}

// unknownMessageType labels metrics of messages no route handles, so peers
// cannot grow the label set.
const unknownMessageType = "unknown"

func (c controller) loggerWSMw(r *wsrouter.WSRouter) wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			messageType := wsrouter.GetMessageTypeFromCtx(ctx)
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", messageType))
			c.logger.InfoContext(ctx, "websocket message received", "payload", payload)

			start := time.Now()

			err := next(ctx, conn, payload)

			outcome := "ok"
			if err != nil {
				body, _ := mapError(err)
				outcome = body.Code
			}
			action := messageType
			if !r.Has(messageType) {
				action = unknownMessageType
			}
			c.metrics.ObserveCommand(action, outcome, time.Since(start))

			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			c.logger.InfoContext(ctx, "websocket message handled",
				"outcome", outcome,
				"processing_time_us", time.Since(start).Microseconds(),
				"alloc", memStats.Alloc/1024,
				"goroutines", runtime.NumGoroutine(),
			)

			return err
		}
	}
}

// errorWSMw answers failed messages with an error ack.
func (c controller) errorWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			err := next(ctx, conn, payload)
			if err == nil {
				return nil
			}

			body, status := mapError(err)
			if status >= 500 {
				c.logger.ErrorContext(ctx, "failed to handle message", "error", err)
			} else {
				c.logger.InfoContext(ctx, "message rejected", "code", body.Code, "error", err)
			}

			if ackErr := c.ackError(ctx, body); ackErr != nil {
				c.logger.InfoContext(ctx, "failed to write ack", "error", ackErr)
			}

			return err
		}
	}
}

// authWSMw rejects every message but alive from connections without a
// verified identity. Nothing past it runs for them.
func (c controller) authWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			if c.getUserIdFromCtx(ctx) == "" && wsrouter.GetMessageTypeFromCtx(ctx) != aliveMessageType {
				return videosync.ErrNotAuthenticated
			}

			return next(ctx, conn, payload)
		}
	}
}
