package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sharetube/watchsync/internal/repository/room"
)

func (r repo) getVideoStateKey(roomId string) string {
	return "room:" + roomId + ":video-state"
}

func (r repo) GetVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	var hash videoStateHash
	if err := r.rc.HGetAll(ctx, r.getVideoStateKey(roomId)).Scan(&hash); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.VideoState{}, fmt.Errorf("failed to get video state: %w", err)
	}

	if hash.Version == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrVideoStateNotFound)
		return room.VideoState{}, room.ErrVideoStateNotFound
	}

	return hash.toVideoState(roomId), nil
}

// CreateVideoState stores a new state with version 1 unless one already
// exists. It returns the stored state and whether this call created it.
func (r repo) CreateVideoState(ctx context.Context, params *room.CreateVideoStateParams) (room.VideoState, bool, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	state := room.VideoState{
		RoomId:       params.RoomId,
		CurrentTime:  params.CurrentTime,
		IsPlaying:    params.IsPlaying,
		PlaybackRate: params.PlaybackRate,
		LastUpdated:  params.CreatedAt,
		Version:      1,
	}

	created, err := r.createIfNotExists.Run(ctx, r.rc,
		[]string{r.getVideoStateKey(params.RoomId)},
		videoStateArgs(&state, state.Version)...,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.VideoState{}, false, fmt.Errorf("failed to create video state: %w", err)
	}

	stored, err := r.GetVideoState(ctx, params.RoomId)
	if err != nil {
		return room.VideoState{}, false, err
	}

	return stored, created == 1, nil
}

func (r repo) SwapVideoState(ctx context.Context, params *room.SwapVideoStateParams) (room.VideoState, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	nextVersion := params.ExpectedVersion + 1

	args := make([]any, 0, 17)
	args = append(args, strconv.FormatInt(params.ExpectedVersion, 10))
	args = append(args, videoStateArgs(&params.State, nextVersion)...)

	res, err := r.swapIfVersionEquals.Run(ctx, r.rc,
		[]string{r.getVideoStateKey(params.State.RoomId)},
		args...,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.VideoState{}, fmt.Errorf("failed to swap video state: %w", err)
	}

	switch res {
	case -1:
		r.logger.DebugContext(ctx, "returned", "error", room.ErrVideoStateNotFound)
		return room.VideoState{}, room.ErrVideoStateNotFound
	case 0:
		r.logger.DebugContext(ctx, "returned", "error", room.ErrVersionMismatch)
		return room.VideoState{}, room.ErrVersionMismatch
	}

	swapped := params.State
	swapped.LastUpdated = time.UnixMilli(params.State.LastUpdated.UnixMilli()).UTC()
	swapped.Version = nextVersion
	return swapped, nil
}
