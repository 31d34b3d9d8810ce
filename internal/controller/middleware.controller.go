package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sharetube/watchsync/internal/service/videosync"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/rest"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r)
	})
}

// authMw requires a valid bearer token and stores its subject as user id.
func (c controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId, err := c.parseToken(c.getToken(r))
		if err != nil {
			c.logger.InfoContext(r.Context(), "unauthenticated request", "error", err)
			c.writeError(w, r, videosync.ErrNotAuthenticated)
			return
		}

		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("user_id", userId))
		ctx = context.WithValue(ctx, userIdCtxKey, userId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body, status := mapError(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	}

	if err := rest.WriteJSON(w, status, rest.Envelope{"error": body}); err != nil {
		c.logger.InfoContext(r.Context(), "failed to write response", "error", err)
	}
}
