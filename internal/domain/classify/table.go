package classify

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TableTranscriber answers from a fixed table of transcripts keyed by
// response index. Missing or blank entries are unintelligible.
type TableTranscriber struct {
	mu    sync.RWMutex
	texts map[int]string
}

// NewTableTranscriber copies texts into a new TableTranscriber.
func NewTableTranscriber(texts map[int]string) *TableTranscriber {
	t := &TableTranscriber{texts: make(map[int]string, len(texts))}
	for idx, text := range texts {
		t.texts[idx] = text
	}
	return t
}

// Set records the transcript of a response.
func (t *TableTranscriber) Set(responseIndex int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.texts[responseIndex] = text
}

// Transcribe implements Transcriber.
func (t *TableTranscriber) Transcribe(ctx context.Context, clip Clip) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.RLock()
	text, ok := t.texts[clip.ResponseIndex]
	t.mu.RUnlock()
	if !ok || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("response %d: %w", clip.ResponseIndex, ErrUnintelligible)
	}
	return text, nil
}
