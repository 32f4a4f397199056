// Package audio turns a session recording into response events and clips.
package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Waveform is a mono recording with samples scaled to [-1, 1].
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// DurationMs is the length of the recording rounded to the nearest millisecond.
func (w *Waveform) DurationMs() int {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return int(math.Round(1000 * float64(len(w.Samples)) / float64(w.SampleRate)))
}

// sampleAt maps a millisecond position to a sample index, clamped to the buffer.
func (w *Waveform) sampleAt(ms int) int {
	idx := int(int64(ms) * int64(w.SampleRate) / 1000)
	switch {
	case idx < 0:
		return 0
	case idx > len(w.Samples):
		return len(w.Samples)
	}
	return idx
}

// Load decodes the WAV file at path.
func Load(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	w, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// Decode reads a PCM WAV stream of any bit depth. Multi-channel audio is
// down-mixed to mono by averaging.
func Decode(r io.ReadSeeker) (*Waveform, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing sample rate", ErrInvalidWAV)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(decoder.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, depth)
	}

	return &Waveform{
		Samples:    downmix(buf, depth),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

func downmix(buf *goaudio.IntBuffer, depth int) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	fullScale := math.Exp2(float64(depth - 1))
	// 8-bit PCM is unsigned.
	offset := 0.0
	if depth == 8 {
		offset = fullScale
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += (float64(buf.Data[i*channels+ch]) - offset) / fullScale
		}
		out[i] = sum / float64(channels)
	}
	return out
}
