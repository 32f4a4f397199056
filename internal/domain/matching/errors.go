package matching

import "errors"

// Sentinel kinds for matcher input errors. Per-stimulus misses are never
// errors; they are recorded on the Match itself.
var (
	ErrInvalidConfig      = errors.New("invalid matcher configuration")
	ErrUnorderedStimuli   = errors.New("stimuli are not in chronological order")
	ErrUnorderedResponses = errors.New("response events are not ordered by onset")
)
