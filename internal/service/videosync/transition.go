package videosync

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchsync/internal/repository/room"
)

// transition computes the next state from prev. Fields it does not touch
// are carried over. Invalid input is rejected, never clamped.
type transition func(prev room.VideoState) (room.VideoState, error)

func validateCurrentTime(currentTime float64) error {
	return validation.Errors{
		"current_time": validation.Validate(currentTime, CurrentTimeRule...),
	}.Filter()
}

func play(currentTime float64) transition {
	return func(prev room.VideoState) (room.VideoState, error) {
		if err := validateCurrentTime(currentTime); err != nil {
			return room.VideoState{}, err
		}

		prev.IsPlaying = true
		prev.CurrentTime = currentTime
		return prev, nil
	}
}

func pause(currentTime float64) transition {
	return func(prev room.VideoState) (room.VideoState, error) {
		if err := validateCurrentTime(currentTime); err != nil {
			return room.VideoState{}, err
		}

		prev.IsPlaying = false
		prev.CurrentTime = currentTime
		return prev, nil
	}
}

func seek(currentTime float64) transition {
	return func(prev room.VideoState) (room.VideoState, error) {
		if err := validateCurrentTime(currentTime); err != nil {
			return room.VideoState{}, err
		}

		prev.CurrentTime = currentTime
		return prev, nil
	}
}

type video struct {
	id        string
	title     *string
	thumbnail *string
}

func changeVideo(v video) transition {
	return func(prev room.VideoState) (room.VideoState, error) {
		if err := (validation.Errors{
			"video_id": validation.Validate(v.id, VideoIdRule...),
		}).Filter(); err != nil {
			return room.VideoState{}, err
		}

		prev.VideoId = &v.id
		prev.VideoTitle = emptyToNil(v.title)
		prev.VideoThumbnail = emptyToNil(v.thumbnail)
		prev.CurrentTime = 0
		prev.IsPlaying = false
		return prev, nil
	}
}

// emptyToNil treats an empty optional string as absent, which is how the
// stores read it back.
func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func changeRate(rate float64) transition {
	return func(prev room.VideoState) (room.VideoState, error) {
		if err := (validation.Errors{
			"rate": validation.Validate(rate, PlaybackRateRule...),
		}).Filter(); err != nil {
			return room.VideoState{}, err
		}

		prev.PlaybackRate = rate
		return prev, nil
	}
}
