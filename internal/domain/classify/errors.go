package classify

import "errors"

var (
	// ErrUnintelligible is returned by a Transcriber when the clip holds no
	// recognizable word.
	ErrUnintelligible = errors.New("speech unintelligible")

	// ErrNoTranscriber is returned by New when no transcriber is supplied.
	ErrNoTranscriber = errors.New("transcriber is required")
)
