package room

import "time"

type VideoState struct {
	RoomId         string
	VideoId        *string
	VideoTitle     *string
	VideoThumbnail *string
	CurrentTime    float64
	IsPlaying      bool
	PlaybackRate   float64
	LastUpdated    time.Time
	Version        int64
}

type CreateVideoStateParams struct {
	RoomId       string
	CurrentTime  float64
	IsPlaying    bool
	PlaybackRate float64
	CreatedAt    time.Time
}

// SwapVideoStateParams replaces the stored state only if its version still
// equals ExpectedVersion. The stored version becomes ExpectedVersion+1.
type SwapVideoStateParams struct {
	ExpectedVersion int64
	State           VideoState
}
