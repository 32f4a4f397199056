package model

import (
	"math"
	"time"
)

// Session is a scored test session.
type Session struct {
	ID        string
	CreatedAt time.Time
	// Responses are the candidate response events detected for the session.
	Responses []ResponseEvent
	Records   []Match
}

// Summary aggregates the records of a session.
type Summary struct {
	Stimuli        int
	Matched        int
	Correct        int
	Incorrect      int
	Unintelligible int
	OnTime         int
	EchoRejected   int
	// MeanReactionSec is NaN when no stimulus has a reaction.
	MeanReactionSec float64
}

// Summarize counts outcomes over records.
func Summarize(records []Match) Summary {
	s := Summary{Stimuli: len(records)}
	var total float64
	var reactions int
	for _, r := range records {
		if r.Matched() {
			s.Matched++
			if r.Accuracy == AccuracyNA {
				s.Unintelligible++
			}
		}
		switch r.Accuracy {
		case AccuracyTrue:
			s.Correct++
		case AccuracyFalse:
			s.Incorrect++
		}
		if r.OnTime {
			s.OnTime++
		}
		if r.HasReaction() {
			total += r.ReactionSec
			reactions++
		}
		s.EchoRejected += r.EchoRejected
	}
	s.MeanReactionSec = math.NaN()
	if reactions > 0 {
		s.MeanReactionSec = total / float64(reactions)
	}
	return s
}
