package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sharetube/watchsync/internal/repository/room"
)

func (r *repo) GetVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	var state room.VideoState
	var videoId, videoTitle, videoThumbnail sql.NullString
	var lastUpdated int64
	err := r.db.QueryRowContext(ctx, `
		SELECT video_id, video_title, video_thumbnail, current_time_sec,
			is_playing, playback_rate, last_updated, version
		FROM video_states
		WHERE room_id = ?
	`, roomId).Scan(
		&videoId,
		&videoTitle,
		&videoThumbnail,
		&state.CurrentTime,
		&state.IsPlaying,
		&state.PlaybackRate,
		&lastUpdated,
		&state.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.DebugContext(ctx, "returned", "error", room.ErrVideoStateNotFound)
			return room.VideoState{}, room.ErrVideoStateNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.VideoState{}, fmt.Errorf("failed to get video state: %w", err)
	}

	state.RoomId = roomId
	state.VideoId = stringPtr(videoId)
	state.VideoTitle = stringPtr(videoTitle)
	state.VideoThumbnail = stringPtr(videoThumbnail)
	state.LastUpdated = time.UnixMilli(lastUpdated).UTC()
	return state, nil
}

func (r *repo) CreateVideoState(ctx context.Context, params *room.CreateVideoStateParams) (room.VideoState, bool, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO video_states (room_id, current_time_sec, is_playing, playback_rate, last_updated, version)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(room_id) DO NOTHING
	`,
		params.RoomId,
		params.CurrentTime,
		params.IsPlaying,
		params.PlaybackRate,
		params.CreatedAt.UnixMilli(),
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.VideoState{}, false, fmt.Errorf("failed to create video state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return room.VideoState{}, false, err
	}

	stored, err := r.GetVideoState(ctx, params.RoomId)
	if err != nil {
		return room.VideoState{}, false, err
	}

	return stored, affected == 1, nil
}

func (r *repo) SwapVideoState(ctx context.Context, params *room.SwapVideoStateParams) (room.VideoState, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	nextVersion := params.ExpectedVersion + 1
	state := params.State
	res, err := r.db.ExecContext(ctx, `
		UPDATE video_states SET
			video_id = ?,
			video_title = ?,
			video_thumbnail = ?,
			current_time_sec = ?,
			is_playing = ?,
			playback_rate = ?,
			last_updated = ?,
			version = ?
		WHERE room_id = ? AND version = ?
	`,
		nullString(state.VideoId),
		nullString(state.VideoTitle),
		nullString(state.VideoThumbnail),
		state.CurrentTime,
		state.IsPlaying,
		state.PlaybackRate,
		state.LastUpdated.UnixMilli(),
		nextVersion,
		state.RoomId,
		params.ExpectedVersion,
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.VideoState{}, fmt.Errorf("failed to swap video state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return room.VideoState{}, err
	}

	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM video_states WHERE room_id = ?)", state.RoomId,
		).Scan(&exists); err != nil {
			return room.VideoState{}, err
		}

		if !exists {
			r.logger.DebugContext(ctx, "returned", "error", room.ErrVideoStateNotFound)
			return room.VideoState{}, room.ErrVideoStateNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", room.ErrVersionMismatch)
		return room.VideoState{}, room.ErrVersionMismatch
	}

	state.LastUpdated = time.UnixMilli(state.LastUpdated.UnixMilli()).UTC()
	state.Version = nextVersion
	return state, nil
}
