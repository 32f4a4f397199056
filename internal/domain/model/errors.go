package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrInvalidAnswer = errors.New("invalid expected answer")
)
