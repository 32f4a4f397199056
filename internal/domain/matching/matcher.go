// Package matching pairs stimuli with detected response events.
//
// The matcher runs a single forward pass over the stimuli. Each stimulus takes
// the first available response event that starts after it, unless that event
// is too close to the stimulus while the previous reaction was saturated, in
// which case the event is treated as the tail of the previous answer and
// skipped. Matched events are consumed.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/clockread/internal/domain/model"
	"github.com/okian/clockread/pkg/logger"
)

// Config holds the thresholds of the matching pass, in seconds.
type Config struct {
	// MinGapSec is the smallest stimulus to response gap accepted right after
	// a saturated reaction.
	MinGapSec float64
	// SaturationMultiplier scales AllottedWindowSec into the saturation threshold.
	SaturationMultiplier float64
	AllottedWindowSec    float64
	// MaxLatencySec is the largest gap still counted as a response.
	MaxLatencySec float64
	// Excluded lists response event indices that are never eligible.
	Excluded []int
}

// SaturationSec is the reaction time above which the next stimulus may be
// hit by the tail of the previous answer.
func (c Config) SaturationSec() float64 {
	return c.AllottedWindowSec * c.SaturationMultiplier
}

// Validate checks that every threshold is a finite, usable number.
func (c Config) Validate() error {
	var errs []error
	check := func(name string, v float64, positive bool) {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			errs = append(errs, fmt.Errorf("%s must be finite", name))
		case positive && v <= 0:
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		case v < 0:
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, v))
		}
	}
	check("min gap", c.MinGapSec, false)
	check("saturation multiplier", c.SaturationMultiplier, true)
	check("allotted window", c.AllottedWindowSec, true)
	check("max latency", c.MaxLatencySec, true)
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Matcher aligns stimuli with response events.
type Matcher struct {
	cfg      Config
	excluded map[int]struct{}
	logger   logger.Logger
}

// New validates cfg and returns a Matcher.
func New(cfg Config, opts ...Option) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{
		cfg:      cfg,
		excluded: make(map[int]struct{}, len(cfg.Excluded)),
		logger:   logger.Nop(),
	}
	for _, idx := range cfg.Excluded {
		m.excluded[idx] = struct{}{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Match returns one record per stimulus, in stimulus order. Records carry
// reaction times and miss reasons only; accuracy and on-time labels are
// filled in later stages.
func (m *Matcher) Match(ctx context.Context, stimuli []model.StimulusEvent, responses []model.ResponseEvent) ([]model.Match, error) {
	if err := checkOrder(stimuli, responses); err != nil {
		return nil, err
	}

	p := newPool(responses, m.excluded)
	saturation := m.cfg.SaturationSec()
	lastReaction := math.NaN()
	out := make([]model.Match, len(stimuli))

	for i, s := range stimuli {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.matchOne(ctx, s, p, lastReaction, saturation)
		lastReaction = out[i].ReactionSec
	}
	return out, nil
}

func (m *Matcher) matchOne(ctx context.Context, s model.StimulusEvent, p *pool, lastReaction, saturation float64) model.Match {
	latest, ok := p.lastOnset()
	if !ok || s.OnsetSec > latest {
		return model.NewUnmatched(s, model.MissBeyondRecording)
	}

	// NaN compares false, so a missing previous reaction never saturates.
	saturated := lastReaction > saturation
	echoes := 0
	for pos := p.firstAfter(s.OnsetSec); !p.done(pos); pos = p.after(pos) {
		ev := p.events[pos]
		gap := ev.OnsetSec - s.OnsetSec
		if saturated && gap < m.cfg.MinGapSec {
			echoes++
			m.logger.Debug(ctx, "response skipped as echo of previous answer",
				logger.Int("stimulus", s.Index),
				logger.Int("response", ev.Index),
				logger.Float64("gap_sec", gap),
				logger.Float64("previous_reaction_sec", lastReaction),
			)
			continue
		}

		matched := ev
		out := model.Match{
			Stimulus:     s,
			Response:     &matched,
			ReactionSec:  gap,
			Miss:         model.MissNone,
			EchoRejected: echoes,
		}
		if gap > m.cfg.MaxLatencySec {
			// Downgraded; the event stays in the pool.
			return out.Unmatch(model.MissLatencyExceeded)
		}

		p.consume(pos)
		return out
	}

	out := model.NewUnmatched(s, model.MissNoResponse)
	out.EchoRejected = echoes
	return out
}

func checkOrder(stimuli []model.StimulusEvent, responses []model.ResponseEvent) error {
	for i := 1; i < len(stimuli); i++ {
		if stimuli[i].OnsetSec < stimuli[i-1].OnsetSec || math.IsNaN(stimuli[i].OnsetSec) {
			return fmt.Errorf("%w: stimulus %d at %.3fs precedes %.3fs",
				ErrUnorderedStimuli, stimuli[i].Index, stimuli[i].OnsetSec, stimuli[i-1].OnsetSec)
		}
	}
	for i := 1; i < len(responses); i++ {
		if responses[i].OnsetSec < responses[i-1].OnsetSec || math.IsNaN(responses[i].OnsetSec) {
			return fmt.Errorf("%w: response %d at %.3fs precedes %.3fs",
				ErrUnorderedResponses, responses[i].Index, responses[i].OnsetSec, responses[i-1].OnsetSec)
		}
	}
	return nil
}
