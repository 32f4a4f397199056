package whisper

import "errors"

var (
	ErrInvalidURL = errors.New("invalid transcription service URL")
	ErrNoAudio    = errors.New("clip has no audio")
	// ErrStatus wraps non-200 replies from the service.
	ErrStatus = errors.New("transcription service error")
)
