package controller

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// getToken reads the bearer token from the Authorization header, falling
// back to the token query parameter for browser websocket clients.
func (c controller) getToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if found {
			return strings.TrimSpace(token)
		}
	}

	return r.URL.Query().Get("token")
}
