package videosync

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchsync/internal/broadcast"
	"github.com/sharetube/watchsync/internal/repository/room"
)

type PlayParams struct {
	RoomId      string  `json:"room_id"`
	SenderId    string  `json:"sender_id"`
	CurrentTime float64 `json:"current_time"`
}

func (s service) Play(ctx context.Context, params *PlayParams) (VideoState, error) {
	return s.control(ctx, params.RoomId, params.SenderId, ActionPlay, play(params.CurrentTime))
}

type PauseParams struct {
	RoomId      string  `json:"room_id"`
	SenderId    string  `json:"sender_id"`
	CurrentTime float64 `json:"current_time"`
}

func (s service) Pause(ctx context.Context, params *PauseParams) (VideoState, error) {
	return s.control(ctx, params.RoomId, params.SenderId, ActionPause, pause(params.CurrentTime))
}

type SeekParams struct {
	RoomId      string  `json:"room_id"`
	SenderId    string  `json:"sender_id"`
	CurrentTime float64 `json:"current_time"`
}

func (s service) Seek(ctx context.Context, params *SeekParams) (VideoState, error) {
	return s.control(ctx, params.RoomId, params.SenderId, ActionSeek, seek(params.CurrentTime))
}

type ChangeVideoParams struct {
	RoomId         string  `json:"room_id"`
	SenderId       string  `json:"sender_id"`
	VideoId        string  `json:"video_id"`
	VideoTitle     *string `json:"video_title"`
	VideoThumbnail *string `json:"video_thumbnail"`
}

func (s service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) (VideoState, error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.authorize(ctx, params.RoomId, params.SenderId, true); err != nil {
		return VideoState{}, err
	}

	v := video{
		id:        params.VideoId,
		title:     params.VideoTitle,
		thumbnail: params.VideoThumbnail,
	}
	s.resolveVideo(ctx, &v)

	return s.commit(ctx, params.RoomId, params.SenderId, ActionChange, changeVideo(v))
}

// resolveVideo fills missing display metadata. Failures are logged and the
// change goes through without it. Invalid ids are left to the transition to
// reject and never reach the resolver.
func (s service) resolveVideo(ctx context.Context, v *video) {
	if s.resolver == nil || (v.title != nil && v.thumbnail != nil) {
		return
	}

	if err := validation.Validate(v.id, VideoIdRule...); err != nil {
		return
	}

	data, err := s.resolver.Get(ctx, v.id)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve video metadata", "video_id", v.id, "error", err)
		return
	}

	if v.title == nil && data.Title != "" {
		v.title = &data.Title
	}

	if v.thumbnail == nil && data.ThumbnailUrl != "" {
		v.thumbnail = &data.ThumbnailUrl
	}
}

type ChangeRateParams struct {
	RoomId   string  `json:"room_id"`
	SenderId string  `json:"sender_id"`
	Rate     float64 `json:"rate"`
}

func (s service) ChangeRate(ctx context.Context, params *ChangeRateParams) (VideoState, error) {
	return s.control(ctx, params.RoomId, params.SenderId, ActionPlaybackRateChange, changeRate(params.Rate))
}

// control runs a control command to completion even if ctx is canceled, so
// the state is never left half applied.
func (s service) control(ctx context.Context, roomId, senderId, action string, next transition) (VideoState, error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.authorize(ctx, roomId, senderId, true); err != nil {
		return VideoState{}, err
	}

	return s.commit(ctx, roomId, senderId, action, next)
}

// commit applies next with optimistic concurrency: the swap only succeeds
// if nobody committed since the state was read, otherwise it starts over
// from the fresh state.
func (s service) commit(ctx context.Context, roomId, senderId, action string, next transition) (VideoState, error) {
	for attempt := 1; attempt <= s.maxCommitAttempts; attempt++ {
		prev, err := s.roomRepo.GetVideoState(ctx, roomId)
		if err != nil {
			if errors.Is(err, room.ErrVideoStateNotFound) {
				return VideoState{}, ErrStateNotFound
			}

			return VideoState{}, fmt.Errorf("failed to get video state: %w", err)
		}

		updated, err := next(prev)
		if err != nil {
			return VideoState{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		updated.LastUpdated = latest(s.now().UTC(), prev.LastUpdated)

		committed, err := s.roomRepo.SwapVideoState(ctx, &room.SwapVideoStateParams{
			ExpectedVersion: prev.Version,
			State:           updated,
		})
		if err != nil {
			if errors.Is(err, room.ErrVersionMismatch) {
				s.logger.DebugContext(ctx, "version conflict, retrying", "room_id", roomId, "attempt", attempt)
				s.recorder.CommitRetried()
				continue
			}

			if errors.Is(err, room.ErrVideoStateNotFound) {
				return VideoState{}, ErrStateNotFound
			}

			return VideoState{}, fmt.Errorf("failed to swap video state: %w", err)
		}

		state := newVideoState(&committed)
		s.publisher.Publish(ctx, roomId, &broadcast.Message{
			Type: MessageTypeVideoStateUpdated,
			Payload: Event{
				VideoState: state,
				Action:     action,
				UserId:     senderId,
			},
		})

		return state, nil
	}

	s.logger.InfoContext(ctx, "commit attempts exhausted", "room_id", roomId, "attempts", s.maxCommitAttempts)
	return VideoState{}, ErrConcurrentUpdateConflict
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
