package redis

import (
	"strconv"
	"time"

	"github.com/sharetube/watchsync/internal/repository/room"
	omitnilpointers "github.com/sharetube/watchsync/pkg/omit-nil-pointers"
)

// videoStateHash is the redis hash layout of a video state.
type videoStateHash struct {
	VideoId        string  `redis:"video_id"`
	VideoTitle     string  `redis:"video_title"`
	VideoThumbnail string  `redis:"video_thumbnail"`
	CurrentTime    float64 `redis:"current_time"`
	IsPlaying      bool    `redis:"is_playing"`
	PlaybackRate   float64 `redis:"playback_rate"`
	LastUpdated    int64   `redis:"last_updated"`
	Version        int64   `redis:"version"`
}

func (h videoStateHash) toVideoState(roomId string) room.VideoState {
	return room.VideoState{
		RoomId:         roomId,
		VideoId:        stringToPtr(h.VideoId),
		VideoTitle:     stringToPtr(h.VideoTitle),
		VideoThumbnail: stringToPtr(h.VideoThumbnail),
		CurrentTime:    h.CurrentTime,
		IsPlaying:      h.IsPlaying,
		PlaybackRate:   h.PlaybackRate,
		LastUpdated:    time.UnixMilli(h.LastUpdated).UTC(),
		Version:        h.Version,
	}
}

// videoStateArgs flattens a state into HSET field/value pairs. Absent
// optional fields are omitted so they do not exist in the hash.
func videoStateArgs(state *room.VideoState, version int64) []any {
	return omitnilpointers.Pairs(map[string]any{
		"video_id":        state.VideoId,
		"video_title":     state.VideoTitle,
		"video_thumbnail": state.VideoThumbnail,
		"current_time":    formatFloat(state.CurrentTime),
		"is_playing":      formatBool(state.IsPlaying),
		"playback_rate":   formatFloat(state.PlaybackRate),
		"last_updated":    strconv.FormatInt(state.LastUpdated.UnixMilli(), 10),
		"version":         strconv.FormatInt(version, 10),
	})
}

func stringToPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
