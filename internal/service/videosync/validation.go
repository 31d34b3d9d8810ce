package videosync

import (
	"errors"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MinPlaybackRate = 0.25
	MaxPlaybackRate = 2.0
)

var finite = validation.By(func(value any) error {
	f, ok := value.(float64)
	if !ok {
		return errors.New("must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("must be a finite number")
	}
	return nil
})

// Min skips zero values, zero is a valid position.
var CurrentTimeRule = []validation.Rule{
	finite,
	validation.Min(0.0),
}

var PlaybackRateRule = []validation.Rule{
	finite,
	validation.Required,
	validation.Min(MinPlaybackRate),
	validation.Max(MaxPlaybackRate),
}

var VideoIdRule = []validation.Rule{
	validation.Required,
}
