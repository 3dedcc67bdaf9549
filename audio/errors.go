package audio

import "errors"

var (
	// ErrCaptureOpen and ErrPlaybackOpen flag contract violations: opening
	// a direction whose session already exists.
	ErrCaptureOpen  = errors.New("capture device already open")
	ErrPlaybackOpen = errors.New("playback device already open")

	ErrNoDevice      = errors.New("no audio device available")
	ErrInvalidConfig = errors.New("invalid audio configuration")
)
