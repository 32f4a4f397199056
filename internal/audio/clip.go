package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultClipPaddingMs is the context kept around each response clip.
const DefaultClipPaddingMs = 600

// ClipOption applies a configuration option to the ClipExtractor.
type ClipOption func(*ClipExtractor)

// WithPaddingMs sets the padding added to both ends of a clip.
func WithPaddingMs(ms int) ClipOption {
	return func(c *ClipExtractor) {
		if ms >= 0 {
			c.paddingMs = ms
		}
	}
}

// ClipExtractor cuts response clips out of the original, un-normalized
// recording.
type ClipExtractor struct {
	wave      *Waveform
	intervals []Interval
	paddingMs int
}

// NewClipExtractor returns an extractor for the response intervals of w.
// Response index i refers to intervals[i].
func NewClipExtractor(w *Waveform, intervals []Interval, opts ...ClipOption) *ClipExtractor {
	c := &ClipExtractor{
		wave:      w,
		intervals: intervals,
		paddingMs: DefaultClipPaddingMs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bounds pads iv on both sides and clamps it to the recording.
func (c *ClipExtractor) Bounds(iv Interval) (startMs, endMs int) {
	last := c.wave.DurationMs() - 1
	startMs = max(iv.StartMs-c.paddingMs, 0)
	endMs = min(iv.EndMs+c.paddingMs, last)
	if endMs < startMs {
		endMs = startMs
	}
	return startMs, endMs
}

// Clip returns the WAV clip of a response as 16-bit PCM mono.
func (c *ClipExtractor) Clip(ctx context.Context, responseIndex int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if responseIndex < 0 || responseIndex >= len(c.intervals) {
		return nil, fmt.Errorf("%w: %d of %d", ErrClipOutOfRange, responseIndex, len(c.intervals))
	}
	start, end := c.Bounds(c.intervals[responseIndex])
	samples := c.wave.Samples[c.wave.sampleAt(start):c.wave.sampleAt(end)]
	return EncodePCM16(samples, c.wave.SampleRate)
}

// Export writes the clip of a response to dir/chunk{index}.wav.
func (c *ClipExtractor) Export(ctx context.Context, dir string, responseIndex int) (string, error) {
	data, err := c.Clip(ctx, responseIndex)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("chunk%d.wav", responseIndex))
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // clips are meant to be shared
		return "", fmt.Errorf("failed to write clip: %w", err)
	}
	return path, nil
}

// ExportAll creates dir and writes every response clip into it.
func (c *ClipExtractor) ExportAll(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create clip folder: %w", err)
	}
	for i := range c.intervals {
		if _, err := c.Export(ctx, dir, i); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of clips available.
func (c *ClipExtractor) Len() int { return len(c.intervals) }
