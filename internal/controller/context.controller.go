package controller

import (
	"context"

	"github.com/sharetube/watchsync/internal/broadcast"
)

type contextKey int

const (
	userIdCtxKey contextKey = iota
	clientCtxKey
)

func (c controller) getUserIdFromCtx(ctx context.Context) string {
	userId, ok := ctx.Value(userIdCtxKey).(string)
	if !ok {
		return ""
	}

	return userId
}

func (c controller) getClientFromCtx(ctx context.Context) *broadcast.Client {
	client, ok := ctx.Value(clientCtxKey).(*broadcast.Client)
	if !ok {
		return nil
	}

	return client
}
