package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/broadcast"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
)

// videoSync serves one websocket connection. A missing or invalid token does
// not refuse the upgrade: the connection stays open and every command on it
// is answered NOT_AUTHENTICATED.
func (c controller) videoSync(w http.ResponseWriter, r *http.Request) {
	userId, err := c.parseToken(c.getToken(r))
	if err != nil {
		c.logger.InfoContext(r.Context(), "unauthenticated websocket connection", "error", err)
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	// the request context is canceled when the handler returns, commands
	// outlive it on their own
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	client := broadcast.NewClient(conn, c.sendBuffer, c.logger)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", client.Id()))
	if userId != "" {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("user_id", userId))
		ctx = context.WithValue(ctx, userIdCtxKey, userId)
	}
	ctx = context.WithValue(ctx, clientCtxKey, client)

	c.metrics.ConnectionOpened()
	c.logger.InfoContext(ctx, "websocket connected")

	go client.WritePump(ctx)
	client.PrepareRead()

	err = c.wsRouter.ServeConn(ctx, conn)

	rooms := c.hub.UnsubscribeAll(ctx, client.Id())
	client.Close()
	c.metrics.ConnectionClosed()

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.logger.InfoContext(ctx, "websocket disconnected", "code", closeErr.Code, "rooms", rooms)
		return
	}
	c.logger.InfoContext(ctx, "websocket disconnected", "error", err, "rooms", rooms)
}
