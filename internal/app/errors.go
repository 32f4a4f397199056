package service

import (
	"errors"

	"github.com/okian/clockread/internal/audio"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidInput = errors.New("invalid session input")
	// ErrNoResponses aborts a session whose recording has no detectable speech.
	ErrNoResponses = audio.ErrNoResponsesDetected
)
