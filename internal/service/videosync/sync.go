package videosync

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchsync/internal/repository/room"
)

type GetStateParams struct {
	RoomId   string `json:"room_id"`
	SenderId string `json:"sender_id"`
}

// GetState returns the room's current state, or nil if none was created.
func (s service) GetState(ctx context.Context, params *GetStateParams) (*VideoState, error) {
	if err := s.authorize(ctx, params.RoomId, params.SenderId, false); err != nil {
		return nil, err
	}

	state, err := s.roomRepo.GetVideoState(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrVideoStateNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get video state: %w", err)
	}

	videoState := newVideoState(&state)
	return &videoState, nil
}

type CreateStateParams struct {
	RoomId   string `json:"room_id"`
	SenderId string `json:"sender_id"`
}

const (
	defaultCurrentTime  = 0
	defaultIsPlaying    = false
	defaultPlaybackRate = 1.0
)

// CreateState returns the room's state, creating the default one first if
// the room has none.
func (s service) CreateState(ctx context.Context, params *CreateStateParams) (VideoState, error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.authorize(ctx, params.RoomId, params.SenderId, false); err != nil {
		return VideoState{}, err
	}

	state, created, err := s.roomRepo.CreateVideoState(ctx, &room.CreateVideoStateParams{
		RoomId:       params.RoomId,
		CurrentTime:  defaultCurrentTime,
		IsPlaying:    defaultIsPlaying,
		PlaybackRate: defaultPlaybackRate,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return VideoState{}, fmt.Errorf("failed to create video state: %w", err)
	}

	if created {
		s.logger.InfoContext(ctx, "video state created", "room_id", params.RoomId)
	}

	return newVideoState(&state), nil
}
