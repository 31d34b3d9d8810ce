package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/repository/connection"
	"github.com/sharetube/watchsync/internal/service/videosync"
)

type EmptyInput struct{}

func (c controller) handleAlive(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.ackOk(ctx)
}

type RoomInput struct {
	RoomId string `json:"room_id" validate:"required,max=128"`
}

type CurrentTimeInput struct {
	RoomId      string   `json:"room_id" validate:"required,max=128"`
	CurrentTime *float64 `json:"current_time" validate:"required"`
}

func (c controller) handleVideoPlay(ctx context.Context, _ *websocket.Conn, input CurrentTimeInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	state, err := c.videoSyncService.Play(ctx, &videosync.PlayParams{
		RoomId:      input.RoomId,
		SenderId:    c.getUserIdFromCtx(ctx),
		CurrentTime: *input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to play video: %w", err)
	}

	return c.ackState(ctx, &state)
}

func (c controller) handleVideoPause(ctx context.Context, _ *websocket.Conn, input CurrentTimeInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	state, err := c.videoSyncService.Pause(ctx, &videosync.PauseParams{
		RoomId:      input.RoomId,
		SenderId:    c.getUserIdFromCtx(ctx),
		CurrentTime: *input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to pause video: %w", err)
	}

	return c.ackState(ctx, &state)
}

func (c controller) handleVideoSeek(ctx context.Context, _ *websocket.Conn, input CurrentTimeInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	state, err := c.videoSyncService.Seek(ctx, &videosync.SeekParams{
		RoomId:      input.RoomId,
		SenderId:    c.getUserIdFromCtx(ctx),
		CurrentTime: *input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to seek video: %w", err)
	}

	return c.ackState(ctx, &state)
}

type VideoChangeInput struct {
	RoomId         string  `json:"room_id" validate:"required,max=128"`
	VideoId        string  `json:"video_id"`
	VideoTitle     *string `json:"video_title"`
	VideoThumbnail *string `json:"video_thumbnail"`
}

func (c controller) handleVideoChange(ctx context.Context, _ *websocket.Conn, input VideoChangeInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	state, err := c.videoSyncService.ChangeVideo(ctx, &videosync.ChangeVideoParams{
		RoomId:         input.RoomId,
		SenderId:       c.getUserIdFromCtx(ctx),
		VideoId:        input.VideoId,
		VideoTitle:     input.VideoTitle,
		VideoThumbnail: input.VideoThumbnail,
	})
	if err != nil {
		return fmt.Errorf("failed to change video: %w", err)
	}

	return c.ackState(ctx, &state)
}

type PlaybackRateChangeInput struct {
	RoomId string   `json:"room_id" validate:"required,max=128"`
	Rate   *float64 `json:"rate" validate:"required"`
}

func (c controller) handlePlaybackRateChange(ctx context.Context, _ *websocket.Conn, input PlaybackRateChangeInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	state, err := c.videoSyncService.ChangeRate(ctx, &videosync.ChangeRateParams{
		RoomId:   input.RoomId,
		SenderId: c.getUserIdFromCtx(ctx),
		Rate:     *input.Rate,
	})
	if err != nil {
		return fmt.Errorf("failed to change playback rate: %w", err)
	}

	return c.ackState(ctx, &state)
}

func (c controller) handleSyncRequest(ctx context.Context, _ *websocket.Conn, input RoomInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	state, err := c.videoSyncService.GetState(ctx, &videosync.GetStateParams{
		RoomId:   input.RoomId,
		SenderId: c.getUserIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to get video state: %w", err)
	}

	return c.ackState(ctx, state)
}

// handleRoomJoin subscribes the connection to the room's updates and replies
// with the current state so the client does not miss anything in between.
func (c controller) handleRoomJoin(ctx context.Context, _ *websocket.Conn, input RoomInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	// membership is checked before subscribing
	if _, err := c.videoSyncService.GetState(ctx, &videosync.GetStateParams{
		RoomId:   input.RoomId,
		SenderId: c.getUserIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to get video state: %w", err)
	}

	client := c.getClientFromCtx(ctx)
	if err := c.hub.Subscribe(ctx, input.RoomId, client); err != nil && !errors.Is(err, connection.ErrAlreadyExists) {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	state, err := c.videoSyncService.GetState(ctx, &videosync.GetStateParams{
		RoomId:   input.RoomId,
		SenderId: c.getUserIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to get video state: %w", err)
	}

	return c.ackState(ctx, state)
}

func (c controller) handleRoomLeave(ctx context.Context, _ *websocket.Conn, input RoomInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return inputError{errs}
	}

	client := c.getClientFromCtx(ctx)
	if err := c.hub.Unsubscribe(ctx, input.RoomId, client.Id()); err != nil && !errors.Is(err, connection.ErrNotFound) {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}

	return c.ackOk(ctx)
}
