// Package model contains the domain records passed between the engine stages.
package model

import (
	"fmt"
	"strings"
)

// Answer is the expected reply to a clock stimulus.
type Answer int

// Answer values.
const (
	AnswerYes Answer = iota + 1
	AnswerNo
)

// ParseAnswer accepts "Yes"/"No" in any case.
func ParseAnswer(s string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return AnswerYes, nil
	case "no":
		return AnswerNo, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
	}
}

// String renders the answer the way stimulus tables spell it.
func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "Yes"
	case AnswerNo:
		return "No"
	default:
		return "Unknown"
	}
}

// Token is the upper-cased spoken word that answers correctly.
func (a Answer) Token() string {
	return strings.ToUpper(a.String())
}

// StimulusEvent is one presented hour/minute prompt. Index equals its
// chronological position in the session.
type StimulusEvent struct {
	Index    int
	Hour     int
	Minute   int
	Expected Answer
	OnsetSec float64 // seconds from the start of the recording
}

// ResponseEvent is a detected span of vocal activity, a candidate answer.
type ResponseEvent struct {
	Index    int
	OnsetSec float64
	EndSec   float64
}
