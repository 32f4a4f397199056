// Package whisper transcribes response clips with a whisper-asr-webservice
// compatible HTTP endpoint.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/clockread/internal/domain/classify"
	"github.com/okian/clockread/pkg/logger"
	"github.com/okian/clockread/pkg/metrics"
)

const (
	defaultLanguage   = "en"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
	defaultBackoff    = 250 * time.Millisecond
	maxErrorBody      = 512
)

// transcription is the JSON reply of the /asr endpoint.
type transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Client implements classify.Transcriber over HTTP.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

var _ classify.Transcriber = (*Client)(nil)

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		logger:     logger.Get().Named("whisper"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transcribe sends the clip to the service. Empty text is reported as
// classify.ErrUnintelligible. Network failures, 429 and 5xx replies are
// retried with exponential backoff; everything else fails at once.
func (c *Client) Transcribe(ctx context.Context, clip classify.Clip) (string, error) {
	if len(clip.WAV) == 0 {
		return "", ErrNoAudio
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	retries := uint64(0)
	if c.maxRetries > 0 {
		retries = uint64(c.maxRetries)
	}

	var text string
	attempt := func() error {
		out, retry, err := c.do(ctx, clip)
		switch {
		case err == nil:
			text = out
			return nil
		case !retry || ctx.Err() != nil:
			return backoff.Permanent(err)
		default:
			return err
		}
	}
	notify := func(err error, wait time.Duration) {
		metrics.RecordTranscriptionRetry()
		c.logger.Warn(ctx, "retrying transcription",
			logger.Int("response", clip.ResponseIndex),
			logger.Duration("backoff", wait),
			logger.Error(err),
		)
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx), notify)
	if err != nil {
		return "", fmt.Errorf("transcribe response %d: %w", clip.ResponseIndex, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("response %d: %w", clip.ResponseIndex, classify.ErrUnintelligible)
	}
	return text, nil
}

// do performs one request. retry reports whether a failure is transient.
func (c *Client) do(ctx context.Context, clip classify.Clip) (text string, retry bool, err error) {
	body, contentType, err := multipartBody(clip)
	if err != nil {
		return "", false, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("task", "transcribe")
	q.Set("language", c.language)
	q.Set("output", "json")
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/asr?"+q.Encode(), body)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", transient, fmt.Errorf("%w: status %d: %s", ErrStatus, resp.StatusCode, truncate(payload))
	}

	var out transcription
	if err := json.Unmarshal(payload, &out); err != nil {
		// Some deployments answer with plain text.
		c.logger.Debug(ctx, "treating reply as plain text", logger.Int("bytes", len(payload)))
		return string(payload), false, nil
	}
	return out.Text, false, nil
}

func multipartBody(clip classify.Clip) (io.Reader, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio_file", fmt.Sprintf("chunk%d.wav", clip.ResponseIndex))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(clip.WAV); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &body, w.FormDataContentType(), nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return strings.TrimSpace(string(b))
}

