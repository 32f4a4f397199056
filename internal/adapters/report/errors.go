package report

import "errors"

var (
	// ErrMalformedStimuli marks a stimulus table that cannot be parsed.
	ErrMalformedStimuli = errors.New("malformed stimulus table")
)
