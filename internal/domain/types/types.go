// Package types contains the JSON shapes exchanged over the HTTP API.
package types

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/okian/clockread/internal/domain/model"
)

// ErrInvalidRequest marks a malformed scoring request.
var ErrInvalidRequest = errors.New("invalid request")

// Stimulus is one row of the stimulus table.
type Stimulus struct {
	Hour     int     `json:"hour"`
	Minute   int     `json:"minute"`
	Expected string  `json:"expected"`
	OnsetSec float64 `json:"onset_sec"`
}

// Response is a detected response interval in seconds from recording start.
type Response struct {
	OnsetSec float64 `json:"onset_sec"`
	EndSec   float64 `json:"end_sec"`
}

// ScoreRequest submits an already segmented session for scoring.
type ScoreRequest struct {
	SessionID string     `json:"session_id,omitempty"`
	Stimuli   []Stimulus `json:"stimuli"`
	Responses []Response `json:"responses"`
	// Transcripts maps a response index to the recognized text.
	Transcripts map[string]string `json:"transcripts,omitempty"`
	Excluded    []int             `json:"excluded,omitempty"`
}

// Record is the scored outcome of one stimulus. Absent values are null.
type Record struct {
	Stimulus         int      `json:"stimulus"`
	Hour             int      `json:"hour"`
	Minute           int      `json:"minute"`
	Expected         string   `json:"expected"`
	OnsetSec         float64  `json:"onset_sec"`
	ResponseIndex    *int     `json:"response_index"`
	ResponseOnsetSec *float64 `json:"response_onset_sec"`
	ReactionSec      *float64 `json:"reaction_sec"`
	Transcript       string   `json:"transcript"`
	Accuracy         string   `json:"accuracy"`
	OnTime           bool     `json:"on_time"`
	Miss             string   `json:"miss,omitempty"`
	EchoRejected     int      `json:"echo_rejected,omitempty"`
}

// Summary aggregates a session.
type Summary struct {
	Stimuli         int      `json:"stimuli"`
	Matched         int      `json:"matched"`
	Correct         int      `json:"correct"`
	Incorrect       int      `json:"incorrect"`
	Unintelligible  int      `json:"unintelligible"`
	OnTime          int      `json:"on_time"`
	EchoRejected    int      `json:"echo_rejected"`
	MeanReactionSec *float64 `json:"mean_reaction_sec"`
}

// SessionResponse is returned for scored and stored sessions.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Responses int       `json:"responses"`
	Summary   Summary   `json:"summary"`
	Records   []Record  `json:"records"`
}

// ToDomain validates the request and converts it to engine inputs. Response
// indices are the positions in Responses.
func (r *ScoreRequest) ToDomain() ([]model.StimulusEvent, []model.ResponseEvent, map[int]string, error) {
	var errs []error
	if len(r.Stimuli) == 0 {
		errs = append(errs, errors.New("stimuli must not be empty"))
	}

	stimuli := make([]model.StimulusEvent, len(r.Stimuli))
	for i, s := range r.Stimuli {
		answer, err := model.ParseAnswer(s.Expected)
		if err != nil {
			errs = append(errs, fmt.Errorf("stimulus %d: %w", i, err))
		}
		if !validTime(s.OnsetSec) {
			errs = append(errs, fmt.Errorf("stimulus %d: onset must be a non-negative number", i))
		}
		stimuli[i] = model.StimulusEvent{Index: i, Hour: s.Hour, Minute: s.Minute, Expected: answer, OnsetSec: s.OnsetSec}
	}

	responses := make([]model.ResponseEvent, len(r.Responses))
	for i, resp := range r.Responses {
		if !validTime(resp.OnsetSec) || !validTime(resp.EndSec) || resp.EndSec < resp.OnsetSec {
			errs = append(errs, fmt.Errorf("response %d: invalid interval [%v, %v]", i, resp.OnsetSec, resp.EndSec))
		}
		responses[i] = model.ResponseEvent{Index: i, OnsetSec: resp.OnsetSec, EndSec: resp.EndSec}
	}

	transcripts := make(map[int]string, len(r.Transcripts))
	for key, text := range r.Transcripts {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(r.Responses) {
			errs = append(errs, fmt.Errorf("transcript key %q is not a response index", key))
			continue
		}
		transcripts[idx] = text
	}

	if len(errs) > 0 {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, errors.Join(errs...))
	}
	return stimuli, responses, transcripts, nil
}

func validTime(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// FromMatch renders a record.
func FromMatch(m model.Match) Record { //nolint:gocritic // hugeParam: records are values
	rec := Record{
		Stimulus:     m.Stimulus.Index,
		Hour:         m.Stimulus.Hour,
		Minute:       m.Stimulus.Minute,
		Expected:     m.Stimulus.Expected.String(),
		OnsetSec:     m.Stimulus.OnsetSec,
		ReactionSec:  optional(m.ReactionSec),
		Transcript:   m.Transcript,
		Accuracy:     m.Accuracy.String(),
		OnTime:       m.OnTime,
		EchoRejected: m.EchoRejected,
	}
	if rec.Transcript == "" {
		rec.Transcript = model.AccuracyNA.String()
	}
	if m.Response != nil {
		idx, onset := m.Response.Index, m.Response.OnsetSec
		rec.ResponseIndex = &idx
		rec.ResponseOnsetSec = &onset
	}
	if m.Miss != model.MissNone {
		rec.Miss = m.Miss.String()
	}
	return rec
}

// FromSession renders a stored session.
func FromSession(s model.Session, status string) SessionResponse { //nolint:gocritic // hugeParam: sessions are values
	records := make([]Record, len(s.Records))
	for i, m := range s.Records {
		records[i] = FromMatch(m)
	}
	sum := model.Summarize(s.Records)
	return SessionResponse{
		SessionID: s.ID,
		Status:    status,
		CreatedAt: s.CreatedAt,
		Responses: len(s.Responses),
		Summary: Summary{
			Stimuli:         sum.Stimuli,
			Matched:         sum.Matched,
			Correct:         sum.Correct,
			Incorrect:       sum.Incorrect,
			Unintelligible:  sum.Unintelligible,
			OnTime:          sum.OnTime,
			EchoRejected:    sum.EchoRejected,
			MeanReactionSec: optional(sum.MeanReactionSec),
		},
		Records: records,
	}
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
