// Package service wires segmentation, matching, classification and storage
// into the scoring pipeline used by the CLI and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/clockread/internal/adapters/mq/queue"
	workerpool "github.com/okian/clockread/internal/adapters/mq/worker"
	"github.com/okian/clockread/internal/adapters/repository"
	"github.com/okian/clockread/internal/adapters/transcriber/whisper"
	"github.com/okian/clockread/internal/audio"
	"github.com/okian/clockread/internal/config"
	"github.com/okian/clockread/internal/domain/classify"
	"github.com/okian/clockread/internal/domain/dedupe"
	"github.com/okian/clockread/internal/domain/matching"
	"github.com/okian/clockread/internal/domain/model"
	"github.com/okian/clockread/internal/domain/types"
	"github.com/okian/clockread/pkg/logger"
	"github.com/okian/clockread/pkg/metrics"
)

const (
	defaultQueueSize  = 1024
	defaultDedupeSize = 10_000
	poolDrainTimeout  = 5 * time.Second
)

// RecordingInput is a session scored from its audio.
type RecordingInput struct {
	SessionID string
	Stimuli   []model.StimulusEvent
	Waveform  *audio.Waveform
	// Excluded response indices are never matched.
	Excluded []int
	// ClipsDir, when set, receives one WAV file per detected response.
	ClipsDir string
}

// EventsInput is a session whose responses were segmented elsewhere.
type EventsInput struct {
	SessionID string
	Stimuli   []model.StimulusEvent
	Responses []model.ResponseEvent
	// Transcripts maps response indices to recognized text.
	Transcripts map[int]string
	Excluded    []int
}

// Service implements the scoring pipeline and the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *workerpool.Pool

	// Pipeline configuration
	matchCfg      matching.Config
	segCfg        audio.SegmenterConfig
	clipPaddingMs int
	transcriber   classify.Transcriber

	workerCount int
	queueSize   int
	dedupeSize  int

	// State
	started    bool
	poolCancel context.CancelFunc

	logger logger.Logger
}

// New constructs a Service with the standard thresholds.
func New(opts ...Option) *Service {
	s := &Service{
		matchCfg: matching.Config{
			MinGapSec:            0.3,
			SaturationMultiplier: 1.75,
			AllottedWindowSec:    4.0,
			MaxLatencySec:        7.0,
		},
		segCfg:        audio.DefaultSegmenterConfig(),
		clipPaddingMs: audio.DefaultClipPaddingMs,
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithCapacity(s.dedupeSize))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// FromConfig builds a Service from process configuration. A whisper client is
// attached when a transcriber URL is configured.
func FromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithClipPadding(cfg.ClipPaddingMS),
		WithMatchConfig(matching.Config{
			MinGapSec:            cfg.MinGapSec,
			SaturationMultiplier: cfg.SaturationMultiplier,
			AllottedWindowSec:    cfg.AllottedWindowSec,
			MaxLatencySec:        cfg.MaxLatencySec,
		}),
		WithSegmenterConfig(audio.SegmenterConfig{
			ThresholdDB:  cfg.SilenceThresholdDB,
			MinSilenceMs: cfg.MinSilenceMS,
			SeekStepMs:   cfg.SeekStepMS,
			TargetDBFS:   cfg.NormalizeTargetDB,
		}),
	}

	if cfg.TranscriberURL != "" {
		client, err := whisper.New(cfg.TranscriberURL,
			whisper.WithLanguage(cfg.TranscriberLanguage),
			whisper.WithTimeout(time.Duration(cfg.TranscriberTimeoutMS)*time.Millisecond),
			whisper.WithRetries(cfg.TranscriberMaxRetries, time.Duration(cfg.TranscriberBackoffMS)*time.Millisecond),
		)
		if err != nil {
			return nil, fmt.Errorf("transcriber: %w", err)
		}
		base = append(base, WithTranscriber(client))
	}

	return New(append(base, opts...)...), nil
}

// Start validates the thresholds and starts the classification workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if err := s.matchCfg.Validate(); err != nil {
		return err
	}
	if err := s.segCfg.Validate(); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting scoring service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue)

	// Workers outlive the caller's context; Stop cancels them.
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.poolCancel = cancel
	s.pool.Start(poolCtx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("transcriber", s.transcriber != nil),
	)
	return nil
}

// Stop drains the queue and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	drainCtx, cancel := context.WithTimeout(ctx, poolDrainTimeout)
	defer cancel()
	if err := s.pool.Shutdown(drainCtx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.poolCancel()

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// SeenAndRecord atomically checks if a session id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateSession()
	}
	return seen
}

// Unrecord forgets a session id so a failed submission can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// ScoreRecording segments a recording and scores its responses against the
// stimuli. Response clips are transcribed when a transcriber is configured.
func (s *Service) ScoreRecording(ctx context.Context, in RecordingInput) (model.Session, error) { //nolint:gocritic // hugeParam: inputs are values
	if in.Waveform == nil {
		return model.Session{}, fmt.Errorf("%w: waveform is nil", ErrInvalidInput)
	}

	seg, err := audio.NewSegmenter(s.segCfg, audio.WithSegmenterLogger(s.logger.Named("segmenter")))
	if err != nil {
		return model.Session{}, err
	}
	intervals, err := seg.Segment(ctx, in.Waveform)
	if err != nil {
		if errors.Is(err, audio.ErrNoResponsesDetected) {
			metrics.RecordSessionFailure("no_responses")
		}
		return model.Session{}, err
	}
	responses := audio.ResponseEvents(intervals)

	clips := audio.NewClipExtractor(in.Waveform, intervals, audio.WithPaddingMs(s.clipPaddingMs))
	if in.ClipsDir != "" {
		if err := clips.ExportAll(ctx, in.ClipsDir); err != nil {
			return model.Session{}, fmt.Errorf("export clips: %w", err)
		}
		s.logger.Info(ctx, "exported response clips",
			logger.String("dir", in.ClipsDir),
			logger.Int("clips", clips.Len()),
		)
	}

	var cls queue.Classifier
	if s.transcriber != nil {
		c, err := classify.New(s.transcriber,
			classify.WithClipSource(clips),
			classify.WithLogger(s.logger.Named("classifier")),
		)
		if err != nil {
			return model.Session{}, err
		}
		cls = c
	} else {
		s.logger.Warn(ctx, "no transcriber configured, accuracy will be N/A")
	}

	return s.score(ctx, in.SessionID, in.Stimuli, responses, in.Excluded, cls)
}

// ScoreEvents scores pre-segmented responses. Transcripts stand in for the
// speech recognizer.
func (s *Service) ScoreEvents(ctx context.Context, in EventsInput) (model.Session, error) { //nolint:gocritic // hugeParam: inputs are values
	if len(in.Responses) == 0 {
		metrics.RecordSessionFailure("no_responses")
		return model.Session{}, fmt.Errorf("%w: empty response list", ErrNoResponses)
	}
	cls, err := classify.New(classify.NewTableTranscriber(in.Transcripts),
		classify.WithLogger(s.logger.Named("classifier")),
	)
	if err != nil {
		return model.Session{}, err
	}
	return s.score(ctx, in.SessionID, in.Stimuli, in.Responses, in.Excluded, cls)
}

// Score validates an API request and scores it as pre-segmented events.
// Malformed requests fail with types.ErrInvalidRequest.
func (s *Service) Score(ctx context.Context, req *types.ScoreRequest) (model.Session, error) {
	stimuli, responses, transcripts, err := req.ToDomain()
	if err != nil {
		return model.Session{}, err
	}
	sess, err := s.ScoreEvents(ctx, EventsInput{
		SessionID:   req.SessionID,
		Stimuli:     stimuli,
		Responses:   responses,
		Transcripts: transcripts,
		Excluded:    req.Excluded,
	})
	if errors.Is(err, ErrInvalidInput) {
		return model.Session{}, fmt.Errorf("%w: %w", types.ErrInvalidRequest, err)
	}
	return sess, err
}

// score matches stimuli to responses, fans the records out to the workers
// and stores the finished session.
func (s *Service) score(
	ctx context.Context,
	id string,
	stimuli []model.StimulusEvent,
	responses []model.ResponseEvent,
	excluded []int,
	cls queue.Classifier,
) (model.Session, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return model.Session{}, ErrNotStarted
	}

	if id == "" {
		id = uuid.NewString()
	}

	cfg := s.matchCfg
	cfg.Excluded = excluded
	m, err := matching.New(cfg, matching.WithLogger(s.logger.Named("matcher")))
	if err != nil {
		return model.Session{}, err
	}

	metrics.RecordResponseEvents(len(responses))
	matches, err := m.Match(ctx, stimuli, responses)
	if err != nil {
		if errors.Is(err, matching.ErrUnorderedStimuli) || errors.Is(err, matching.ErrUnorderedResponses) {
			return model.Session{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return model.Session{}, err
	}

	records := make([]model.Match, len(matches))
	var wg sync.WaitGroup
	complete := func(slot int, rec model.Match) {
		records[slot] = rec
		wg.Done()
	}

	for i, rec := range matches {
		j := queue.Job{
			Ctx:         ctx,
			SessionID:   id,
			Slot:        i,
			Record:      rec,
			AllottedSec: cfg.AllottedWindowSec,
			Complete:    complete,
		}
		wg.Add(1)
		if !rec.Matched() || cls == nil {
			workerpool.Process(ctx, j)
			continue
		}
		j.Classifier = cls
		if !q.Enqueue(ctx, j) {
			s.logger.Debug(ctx, "queue rejected job, classifying inline",
				logger.String("session_id", id),
				logger.Int("slot", i),
			)
			workerpool.Process(ctx, j)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return model.Session{}, ctx.Err()
	}

	recordOutcomes(records)

	sess := model.Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Responses: responses,
		Records:   records,
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("store session: %w", err)
	}

	sum := model.Summarize(records)
	s.logger.Info(ctx, "session scored",
		logger.String("session_id", id),
		logger.Int("stimuli", sum.Stimuli),
		logger.Int("responses", len(responses)),
		logger.Int("matched", sum.Matched),
		logger.Int("correct", sum.Correct),
	)
	return sess, nil
}

func recordOutcomes(records []model.Match) {
	for _, r := range records {
		switch r.Miss {
		case model.MissNoResponse:
			metrics.RecordMatchOutcome(metrics.OutcomeNoResponse)
		case model.MissBeyondRecording:
			metrics.RecordMatchOutcome(metrics.OutcomeBeyondRecording)
		case model.MissLatencyExceeded:
			metrics.RecordMatchOutcome(metrics.OutcomeLatencyExceeded)
		default:
			metrics.RecordMatchOutcome(metrics.OutcomeMatched)
		}
		if r.HasReaction() {
			metrics.RecordReactionTime(r.ReactionSec)
		}
		metrics.RecordEchoRejections(r.EchoRejected)
		metrics.RecordAccuracy(r.Accuracy.String())
	}
	metrics.RecordStimuliProcessed(len(records))
	metrics.RecordSessionScored()
}

// Get returns a stored session.
func (s *Service) Get(ctx context.Context, id string) (model.Session, error) {
	return s.store.Get(ctx, id)
}

// Recent returns up to n stored sessions, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]model.Session, error) {
	return s.store.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"storedSessions": s.store.Count(ctx),
		"seenSessions":   s.deduper.Size(),
		"transcriber":    s.transcriber != nil,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
