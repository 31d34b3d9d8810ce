package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sharetube/watchsync/internal/service/videosync"
	"github.com/sharetube/watchsync/pkg/validator"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

const (
	codeNotAuthenticated         = "NOT_AUTHENTICATED"
	codeNotAMember               = "NOT_A_MEMBER"
	codeInsufficientRole         = "INSUFFICIENT_ROLE"
	codeStateNotFound            = "STATE_NOT_FOUND"
	codeValidationError          = "VALIDATION_ERROR"
	codeConcurrentUpdateConflict = "CONCURRENT_UPDATE_CONFLICT"
	codeInternalError            = "INTERNAL_ERROR"
)

type inputError struct {
	errs []validator.ValidationError
}

func (e inputError) Error() string {
	messages := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		messages = append(messages, err.Message)
	}

	return strings.Join(messages, "; ")
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// mapError translates err into the code and status reported to clients.
// Unknown errors are reported as internal without leaking their text.
func mapError(err error) (errorBody, int) {
	var inputErr inputError
	switch {
	case errors.Is(err, videosync.ErrNotAuthenticated):
		return errorBody{codeNotAuthenticated, "not authenticated"}, http.StatusUnauthorized
	case errors.Is(err, videosync.ErrNotAMember):
		return errorBody{codeNotAMember, "not a member of the room"}, http.StatusForbidden
	case errors.Is(err, videosync.ErrInsufficientRole):
		return errorBody{codeInsufficientRole, "only the host or a moderator can control the video"}, http.StatusForbidden
	case errors.Is(err, videosync.ErrStateNotFound):
		return errorBody{codeStateNotFound, "video state not found for the room"}, http.StatusNotFound
	case errors.Is(err, videosync.ErrConcurrentUpdateConflict):
		return errorBody{codeConcurrentUpdateConflict, "the video state was changed concurrently, try again"}, http.StatusConflict
	case errors.Is(err, videosync.ErrValidation),
		errors.Is(err, wsrouter.ErrInvalidMessage),
		errors.Is(err, wsrouter.ErrUnknownMessageType):
		return errorBody{codeValidationError, err.Error()}, http.StatusBadRequest
	case errors.As(err, &inputErr):
		return errorBody{codeValidationError, inputErr.Error()}, http.StatusBadRequest
	default:
		return errorBody{codeInternalError, "internal error"}, http.StatusInternalServerError
	}
}
