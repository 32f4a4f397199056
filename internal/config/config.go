// Package config defines the engine configuration and its loading hooks.
//
// Conventions:
//   - One flat structure carries every threshold; koanf tags name the keys used
//     in YAML files and CLOCKREAD_* environment variables.
//   - Named profiles reproduce the constants used by the earlier experiment
//     variants so a session can be rescored with the settings it was run with.
package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
)

// Profile names.
const (
	ProfileStandard = "standard"
	ProfilePractice = "practice"
	ProfileAmend    = "amend"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address used by serve mode, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Profile selects a preset of matching thresholds applied before file and env values.
	Profile string `koanf:"profile"`

	// SilenceThresholdDB is the loudness floor (dBFS) below which a window is silent.
	SilenceThresholdDB float64 `koanf:"silence_threshold_db"`

	// NormalizeTargetDB is the overall loudness the waveform is scaled to before detection.
	NormalizeTargetDB float64 `koanf:"normalize_target_db"`

	// MinSilenceMS is the shortest silence that separates two responses.
	MinSilenceMS int `koanf:"min_silence_ms"`

	// SeekStepMS is the stride of the silence detection window.
	SeekStepMS int `koanf:"seek_step_ms"`

	// ClipPaddingMS is added on both sides of a response when cutting its clip.
	ClipPaddingMS int `koanf:"clip_padding_ms"`

	// MinGapSec is the echo-rejection floor: faster candidates may be a previous answer's tail.
	MinGapSec float64 `koanf:"min_gap_sec"`

	// SaturationMultiplier scales AllottedWindowSec to get the previous-reaction
	// threshold above which the echo-rejection floor applies.
	SaturationMultiplier float64 `koanf:"saturation_multiplier"`

	// AllottedWindowSec is the nominal time the subject is given to answer.
	AllottedWindowSec float64 `koanf:"allotted_window_sec"`

	// MaxLatencySec is the ceiling beyond which a found response counts as a miss.
	MaxLatencySec float64 `koanf:"max_latency_sec"`

	// WorkerCount bounds concurrent transcription calls.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the classification job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the session id cache used by serve mode.
	DedupeSize int `koanf:"dedupe_size"`

	// TranscriberURL is the base URL of the whisper ASR service. Empty disables
	// transcription; every matched response is then reported unintelligible.
	TranscriberURL string `koanf:"transcriber_url"`

	// TranscriberLanguage is passed to the ASR service.
	TranscriberLanguage string `koanf:"transcriber_language"`

	// TranscriberTimeoutMS is the per-request timeout.
	TranscriberTimeoutMS int `koanf:"transcriber_timeout_ms"`

	// TranscriberMaxRetries is the number of retries after the first attempt.
	TranscriberMaxRetries int `koanf:"transcriber_max_retries"`

	// TranscriberBackoffMS is the initial retry backoff; it doubles per attempt.
	TranscriberBackoffMS int `koanf:"transcriber_backoff_ms"`
}

// New creates a Config with the standard profile applied.
func New() *Config {
	c := &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		SilenceThresholdDB:    -20.0,
		NormalizeTargetDB:     -20.0,
		MinSilenceMS:          500,
		SeekStepMS:            1,
		ClipPaddingMS:         600,
		WorkerCount:           runtime.NumCPU(),
		QueueSize:             1024,
		DedupeSize:            10_000,
		TranscriberLanguage:   "en",
		TranscriberTimeoutMS:  30_000,
		TranscriberMaxRetries: 2,
		TranscriberBackoffMS:  250,
	}
	_ = c.ApplyProfile(ProfileStandard)
	return c
}

// ApplyProfile overwrites the matching thresholds with a named preset.
func (c *Config) ApplyProfile(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileStandard:
		c.Profile = ProfileStandard
		c.MinGapSec = 0.3
		c.AllottedWindowSec = 4.0
		c.SaturationMultiplier = 1.75
		c.MaxLatencySec = 7.0
	case ProfilePractice:
		c.Profile = ProfilePractice
		c.MinGapSec = 0.2
		c.AllottedWindowSec = 0.9
		c.SaturationMultiplier = 1.0 / 0.9
		c.MaxLatencySec = 1.2
	case ProfileAmend:
		c.Profile = ProfileAmend
		c.MinGapSec = 0.1
		c.AllottedWindowSec = 0.9
		c.SaturationMultiplier = 1.0
		c.MaxLatencySec = 0.9*1.2 + 1.0
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return nil
}

// Validate checks the invariants the engine relies on.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.MinSilenceMS <= 0 {
		errs = append(errs, errors.New("min_silence_ms must be positive"))
	}
	if c.SeekStepMS <= 0 {
		errs = append(errs, errors.New("seek_step_ms must be positive"))
	}
	if c.ClipPaddingMS < 0 {
		errs = append(errs, errors.New("clip_padding_ms must not be negative"))
	}
	if !nonNegative(c.MinGapSec) {
		errs = append(errs, errors.New("min_gap_sec must not be negative"))
	}
	if !(c.SaturationMultiplier > 0) {
		errs = append(errs, errors.New("saturation_multiplier must be positive"))
	}
	if !(c.AllottedWindowSec > 0) {
		errs = append(errs, errors.New("allotted_window_sec must be positive"))
	}
	if !(c.MaxLatencySec > 0) {
		errs = append(errs, errors.New("max_latency_sec must be positive"))
	}
	if c.WorkerCount <= 0 {
		errs = append(errs, errors.New("worker_count must be positive"))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, errors.New("queue_size must be positive"))
	}
	if c.TranscriberMaxRetries < 0 {
		errs = append(errs, errors.New("transcriber_max_retries must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && v >= 0
}
