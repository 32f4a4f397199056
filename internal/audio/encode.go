package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	clipBitDepth   = 16
	pcmAudioFormat = 1
	int16Max       = 32767
	int16Min       = -32768
)

// EncodePCM16 renders mono samples as a 16-bit PCM WAV file.
func EncodePCM16(samples []float64, sampleRate int) ([]byte, error) {
	out := &memFile{}
	enc := wav.NewEncoder(out, sampleRate, clipBitDepth, 1, pcmAudioFormat)

	data := make([]int, len(samples))
	for i, s := range samples {
		v := int(math.Round(s * int16Max))
		if v > int16Max {
			v = int16Max
		}
		if v < int16Min {
			v = int16Min
		}
		data[i] = v
	}

	err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: clipBitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encoder: %w", err)
	}
	return out.buf, nil
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(next)
	return next, nil
}
