// Package classify grades matched responses from their transcribed speech.
package classify

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/okian/clockread/internal/domain/model"
	"github.com/okian/clockread/pkg/logger"
	"github.com/okian/clockread/pkg/metrics"
)

// Clip is the audio of one response event.
type Clip struct {
	ResponseIndex int
	// WAV holds a 16-bit PCM mono WAV file. It may be nil for transcribers
	// that do not listen to audio.
	WAV []byte
}

// Transcriber turns a clip into text. It returns ErrUnintelligible when
// nothing could be recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (string, error)
}

// ClipSource produces the audio of a response event on demand.
type ClipSource interface {
	Clip(ctx context.Context, responseIndex int) ([]byte, error)
}

// Classifier fills in transcript and accuracy for matched records.
type Classifier struct {
	transcriber Transcriber
	clips       ClipSource
	logger      logger.Logger
}

// New creates a Classifier backed by t.
func New(t Transcriber, opts ...Option) (*Classifier, error) {
	if t == nil {
		return nil, ErrNoTranscriber
	}
	c := &Classifier{
		transcriber: t,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify returns m with Transcript and Accuracy set. Unmatched records are
// returned untouched. A failed transcription never fails the record: the
// accuracy stays N/A and the reaction time is kept.
func (c *Classifier) Classify(ctx context.Context, m model.Match) model.Match {
	idx, ok := m.ResponseIndex()
	if !ok {
		return m
	}

	m.Transcript = ""
	m.Accuracy = model.AccuracyNA

	clip := Clip{ResponseIndex: idx}
	if c.clips != nil {
		wav, err := c.clips.Clip(ctx, idx)
		if err != nil {
			metrics.RecordTranscriptionFailure(metrics.TranscriptionClipError)
			c.logger.Error(ctx, "failed to extract response clip",
				logger.Int("stimulus", m.Stimulus.Index),
				logger.Int("response", idx),
				logger.Error(err),
			)
			return m
		}
		clip.WAV = wav
	}

	start := time.Now()
	text, err := c.transcriber.Transcribe(ctx, clip)
	metrics.RecordTranscriptionLatency(float64(time.Since(start).Milliseconds()))

	token := FirstToken(text)
	switch {
	case errors.Is(err, ErrUnintelligible), err == nil && token == "":
		metrics.RecordTranscriptionFailure(metrics.TranscriptionUnintelligible)
		c.logger.Debug(ctx, "response unintelligible",
			logger.Int("stimulus", m.Stimulus.Index),
			logger.Int("response", idx),
		)
		return m
	case err != nil:
		metrics.RecordTranscriptionFailure(metrics.TranscriptionError)
		c.logger.Error(ctx, "transcription failed",
			logger.Int("stimulus", m.Stimulus.Index),
			logger.Int("response", idx),
			logger.Error(err),
		)
		return m
	}

	m.Transcript = token
	m.Accuracy = Grade(token, m.Stimulus.Expected)
	return m
}

// FirstToken returns the first word of text, stripped of surrounding
// punctuation and upper-cased. It returns "" when text has no words.
func FirstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	word := strings.TrimFunc(fields[0], func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return strings.ToUpper(word)
}

// Grade compares a recognized token with the expected answer.
func Grade(token string, expected model.Answer) model.Accuracy {
	switch {
	case token == "":
		return model.AccuracyNA
	case (expected == model.AnswerYes || expected == model.AnswerNo) && token == expected.Token():
		return model.AccuracyTrue
	default:
		return model.AccuracyFalse
	}
}
