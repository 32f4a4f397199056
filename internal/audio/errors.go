package audio

import "errors"

var (
	// ErrNoResponsesDetected means silence detection found no speech in the
	// recording. It is the only condition that aborts a scoring run.
	ErrNoResponsesDetected = errors.New("could not detect user's responses")

	ErrInvalidWAV             = errors.New("not a valid WAV file")
	ErrInvalidSegmenterConfig = errors.New("invalid segmenter configuration")
	ErrClipOutOfRange         = errors.New("response index out of range")
)
