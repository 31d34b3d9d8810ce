package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchsync/internal/service/videosync"
	"github.com/sharetube/watchsync/pkg/rest"
)

type roomPath struct {
	RoomId string `json:"room_id" validate:"required,max=128"`
}

func (c controller) getVideoState(w http.ResponseWriter, r *http.Request) {
	path := roomPath{RoomId: chi.URLParam(r, "room-id")}
	if errs, ok := c.validate.Validate(path); !ok {
		c.writeError(w, r, inputError{errs})
		return
	}

	state, err := c.videoSyncService.GetState(r.Context(), &videosync.GetStateParams{
		RoomId:   path.RoomId,
		SenderId: c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": state})
}

// createVideoState is idempotent, an existing state is returned unchanged.
func (c controller) createVideoState(w http.ResponseWriter, r *http.Request) {
	path := roomPath{RoomId: chi.URLParam(r, "room-id")}
	if errs, ok := c.validate.Validate(path); !ok {
		c.writeError(w, r, inputError{errs})
		return
	}

	state, err := c.videoSyncService.CreateState(r.Context(), &videosync.CreateStateParams{
		RoomId:   path.RoomId,
		SenderId: c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": state})
}
