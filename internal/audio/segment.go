package audio

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/clockread/internal/domain/model"
	"github.com/okian/clockread/pkg/logger"
)

// Default silence detection parameters.
const (
	DefaultThresholdDB  = -20.0
	DefaultTargetDBFS   = -20.0
	DefaultMinSilenceMs = 500
	DefaultSeekStepMs   = 1

	ctxCheckEvery = 4096
)

// SegmenterConfig tunes silence detection.
type SegmenterConfig struct {
	// ThresholdDB is the loudest level, relative to full scale, still
	// considered silence. Audio that stays at a steady level normalizes to
	// TargetDBFS, so with the stock values (both -20 dB) such a recording sits
	// exactly on the threshold and window RMS jitter decides each window.
	ThresholdDB float64
	// MinSilenceMs is the shortest pause that separates two responses.
	MinSilenceMs int
	SeekStepMs   int
	// TargetDBFS is the overall level the recording is normalized to before
	// detection.
	TargetDBFS float64
}

// DefaultSegmenterConfig returns the stock detection parameters.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		ThresholdDB:  DefaultThresholdDB,
		MinSilenceMs: DefaultMinSilenceMs,
		SeekStepMs:   DefaultSeekStepMs,
		TargetDBFS:   DefaultTargetDBFS,
	}
}

// Validate reports unusable parameters.
func (c SegmenterConfig) Validate() error {
	var errs []error
	if c.MinSilenceMs <= 0 {
		errs = append(errs, fmt.Errorf("min silence must be positive, got %d", c.MinSilenceMs))
	}
	if c.SeekStepMs <= 0 {
		errs = append(errs, fmt.Errorf("seek step must be positive, got %d", c.SeekStepMs))
	}
	if math.IsNaN(c.ThresholdDB) || math.IsInf(c.ThresholdDB, 0) || c.ThresholdDB > 0 {
		errs = append(errs, fmt.Errorf("threshold must be a finite level at or below 0 dBFS, got %v", c.ThresholdDB))
	}
	if math.IsNaN(c.TargetDBFS) || math.IsInf(c.TargetDBFS, 0) || c.TargetDBFS > 0 {
		errs = append(errs, fmt.Errorf("target level must be a finite level at or below 0 dBFS, got %v", c.TargetDBFS))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSegmenterConfig, errors.Join(errs...))
	}
	return nil
}

// Interval is a non-silent stretch of the recording in milliseconds.
type Interval struct {
	StartMs int
	EndMs   int
}

// SegmenterOption applies a configuration option to the Segmenter.
type SegmenterOption func(*Segmenter)

// WithSegmenterLogger sets a custom logger for the segmenter.
func WithSegmenterLogger(l logger.Logger) SegmenterOption {
	return func(s *Segmenter) {
		if l != nil {
			s.logger = l
		}
	}
}

// Segmenter finds candidate responses in a recording by silence detection.
type Segmenter struct {
	cfg    SegmenterConfig
	logger logger.Logger
}

// NewSegmenter validates cfg and returns a Segmenter.
func NewSegmenter(cfg SegmenterConfig, opts ...SegmenterOption) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Segmenter{cfg: cfg, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Segment returns the non-silent intervals of w in ascending order. Intervals
// starting at 0 ms are recording artifacts and are dropped. An empty result
// is reported as ErrNoResponsesDetected.
func (s *Segmenter) Segment(ctx context.Context, w *Waveform) ([]Interval, error) {
	if w == nil || len(w.Samples) == 0 || w.SampleRate <= 0 {
		return nil, ErrNoResponsesDetected
	}

	gain, ok := normalizationGain(w.Samples, s.cfg.TargetDBFS)
	if !ok {
		s.logger.Warn(ctx, "recording is digitally silent")
		return nil, ErrNoResponsesDetected
	}

	energy := newEnergyIndex(w, gain)
	silent, err := s.detectSilence(ctx, energy)
	if err != nil {
		return nil, err
	}
	intervals := nonsilent(silent, energy.durationMs)

	raw := len(intervals)
	for len(intervals) > 0 && intervals[0].StartMs == 0 {
		intervals = intervals[1:]
	}

	s.logger.Debug(ctx, "silence detection finished",
		logger.Int("duration_ms", energy.durationMs),
		logger.Int("silent_ranges", len(silent)),
		logger.Int("intervals", raw),
		logger.Int("dropped_leading", raw-len(intervals)),
		logger.Float64("gain_db", 20*math.Log10(gain)),
	)

	if len(intervals) == 0 {
		return nil, ErrNoResponsesDetected
	}
	return intervals, nil
}

// ResponseEvents converts intervals to response events indexed by position.
func ResponseEvents(intervals []Interval) []model.ResponseEvent {
	out := make([]model.ResponseEvent, len(intervals))
	for i, iv := range intervals {
		out[i] = model.ResponseEvent{
			Index:    i,
			OnsetSec: float64(iv.StartMs) / 1000,
			EndSec:   float64(iv.EndMs) / 1000,
		}
	}
	return out
}

// normalizationGain returns the linear gain that brings the overall RMS of
// samples to targetDBFS. It returns false for digital silence.
func normalizationGain(samples []float64, targetDBFS float64) (float64, bool) {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return 0, false
	}
	current := 20 * math.Log10(rms)
	return dbToLinear(targetDBFS - current), true
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// energyIndex answers window RMS queries in constant time with per-millisecond
// prefix sums of squared, gain-adjusted, clipped samples.
type energyIndex struct {
	prefix     []float64 // prefix[ms] = energy of samples before millisecond ms
	count      []int     // count[ms] = samples before millisecond ms
	durationMs int
}

func newEnergyIndex(w *Waveform, gain float64) *energyIndex {
	dur := w.DurationMs()
	e := &energyIndex{
		prefix:     make([]float64, dur+1),
		count:      make([]int, dur+1),
		durationMs: dur,
	}
	for ms := 0; ms < dur; ms++ {
		from, to := w.sampleAt(ms), w.sampleAt(ms+1)
		var sum float64
		for _, v := range w.Samples[from:to] {
			v *= gain
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			sum += v * v
		}
		e.prefix[ms+1] = e.prefix[ms] + sum
		e.count[ms+1] = to
	}
	return e
}

// rms of the window [from, to) milliseconds.
func (e *energyIndex) rms(from, to int) float64 {
	n := e.count[to] - e.count[from]
	if n <= 0 {
		return 0
	}
	sum := e.prefix[to] - e.prefix[from]
	if sum < 0 {
		sum = 0
	}
	return math.Sqrt(sum / float64(n))
}

// detectSilence returns silent ranges: windows of MinSilenceMs whose RMS is
// at or below the threshold, merged when they overlap or touch.
func (s *Segmenter) detectSilence(ctx context.Context, e *energyIndex) ([]Interval, error) {
	window, step := s.cfg.MinSilenceMs, s.cfg.SeekStepMs
	if e.durationMs < window {
		return nil, nil
	}
	threshold := dbToLinear(s.cfg.ThresholdDB)

	lastStart := e.durationMs - window
	starts := make([]int, 0)
	check := func(i int) {
		if e.rms(i, i+window) <= threshold {
			starts = append(starts, i)
		}
	}
	for i, n := 0, 0; i <= lastStart; i, n = i+step, n+1 {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		check(i)
	}
	if lastStart%step != 0 {
		check(lastStart)
	}
	if len(starts) == 0 {
		return nil, nil
	}

	var ranges []Interval
	prev := starts[0]
	rangeStart := prev
	for _, start := range starts[1:] {
		continuous := start == prev+step
		hasGap := start > prev+window
		if !continuous && hasGap {
			ranges = append(ranges, Interval{StartMs: rangeStart, EndMs: prev + window})
			rangeStart = start
		}
		prev = start
	}
	ranges = append(ranges, Interval{StartMs: rangeStart, EndMs: prev + window})
	return ranges, nil
}

// nonsilent returns the complement of the silent ranges over [0, durationMs].
func nonsilent(silent []Interval, durationMs int) []Interval {
	if len(silent) == 0 {
		return []Interval{{StartMs: 0, EndMs: durationMs}}
	}
	if silent[0].StartMs == 0 && silent[0].EndMs == durationMs {
		return nil
	}

	out := make([]Interval, 0, len(silent)+1)
	prevEnd := 0
	for _, r := range silent {
		out = append(out, Interval{StartMs: prevEnd, EndMs: r.StartMs})
		prevEnd = r.EndMs
	}
	if silent[len(silent)-1].EndMs != durationMs {
		out = append(out, Interval{StartMs: prevEnd, EndMs: durationMs})
	}
	if out[0].StartMs == 0 && out[0].EndMs == 0 {
		out = out[1:]
	}
	return out
}
