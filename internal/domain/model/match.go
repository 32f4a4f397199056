package model

import "math"

// Accuracy is the lexical verdict for a stimulus.
type Accuracy int

// Accuracy values. The zero value is "not applicable".
const (
	AccuracyNA Accuracy = iota
	AccuracyTrue
	AccuracyFalse
)

func (a Accuracy) String() string {
	switch a {
	case AccuracyTrue:
		return "TRUE"
	case AccuracyFalse:
		return "FALSE"
	default:
		return "N/A"
	}
}

// MissReason explains why a stimulus has no matched response.
type MissReason int

// MissReason values.
const (
	MissNone MissReason = iota
	// MissNoResponse: the scan ran out of candidates.
	MissNoResponse
	// MissBeyondRecording: the stimulus came after the last available response.
	MissBeyondRecording
	// MissLatencyExceeded: a response was found but later than the latency ceiling.
	MissLatencyExceeded
)

func (r MissReason) String() string {
	switch r {
	case MissNone:
		return "none"
	case MissNoResponse:
		return "no_response"
	case MissBeyondRecording:
		return "beyond_recording"
	case MissLatencyExceeded:
		return "latency_exceeded"
	default:
		return "unknown"
	}
}

// Match is the per-stimulus record. The matcher creates exactly one per
// stimulus; the classifier and the on-time labeler only enrich it.
type Match struct {
	Stimulus StimulusEvent

	// Response is nil when the stimulus was not matched.
	Response *ResponseEvent

	// ReactionSec is NaN when no reaction was recorded.
	ReactionSec float64

	// Transcript is the recognized first token; empty when unavailable.
	Transcript string

	Accuracy Accuracy
	OnTime   bool
	Miss     MissReason

	// EchoRejected counts candidates skipped as the tail of the previous answer.
	EchoRejected int
}

// NewUnmatched returns the record of a stimulus with no response.
func NewUnmatched(s StimulusEvent, reason MissReason) Match {
	return Match{
		Stimulus:    s,
		ReactionSec: math.NaN(),
		Accuracy:    AccuracyNA,
		Miss:        reason,
	}
}

// Matched reports whether a response is attached.
func (m Match) Matched() bool {
	return m.Response != nil
}

// ResponseIndex returns the matched response index.
func (m Match) ResponseIndex() (int, bool) {
	if m.Response == nil {
		return 0, false
	}
	return m.Response.Index, true
}

// HasReaction reports whether ReactionSec carries a value.
func (m Match) HasReaction() bool {
	return !math.IsNaN(m.ReactionSec)
}

// Unmatch drops the response and everything derived from it.
func (m Match) Unmatch(reason MissReason) Match {
	out := NewUnmatched(m.Stimulus, reason)
	out.EchoRejected = m.EchoRejected
	return out
}
