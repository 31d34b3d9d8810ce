package videosync

import (
	"time"

	"github.com/sharetube/watchsync/internal/repository/room"
)

const MessageTypeVideoStateUpdated = "video_state_updated"

const (
	ActionPlay               = "play"
	ActionPause              = "pause"
	ActionSeek               = "seek"
	ActionChange             = "change"
	ActionPlaybackRateChange = "playback_rate_change"
)

type VideoState struct {
	RoomId         string    `json:"room_id"`
	VideoId        *string   `json:"video_id,omitempty"`
	VideoTitle     *string   `json:"video_title,omitempty"`
	VideoThumbnail *string   `json:"video_thumbnail,omitempty"`
	CurrentTime    float64   `json:"current_time"`
	IsPlaying      bool      `json:"is_playing"`
	PlaybackRate   float64   `json:"playback_rate"`
	LastUpdated    time.Time `json:"last_updated"`
	Version        int64     `json:"version"`
}

func newVideoState(state *room.VideoState) VideoState {
	return VideoState{
		RoomId:         state.RoomId,
		VideoId:        state.VideoId,
		VideoTitle:     state.VideoTitle,
		VideoThumbnail: state.VideoThumbnail,
		CurrentTime:    state.CurrentTime,
		IsPlaying:      state.IsPlaying,
		PlaybackRate:   state.PlaybackRate,
		LastUpdated:    state.LastUpdated,
		Version:        state.Version,
	}
}

// Event is broadcast to the room after every accepted control command.
type Event struct {
	VideoState VideoState `json:"video_state"`
	Action     string     `json:"action"`
	UserId     string     `json:"user_id"`
}
