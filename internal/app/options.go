package service

import (
	"github.com/okian/clockread/internal/adapters/repository"
	"github.com/okian/clockread/internal/audio"
	"github.com/okian/clockread/internal/domain/classify"
	"github.com/okian/clockread/internal/domain/matching"
	"github.com/okian/clockread/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of classification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the classification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the session id cache and of the default store.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMatchConfig sets the matching thresholds.
func WithMatchConfig(cfg matching.Config) Option {
	return func(s *Service) {
		s.matchCfg = cfg
	}
}

// WithSegmenterConfig sets the silence detection parameters.
func WithSegmenterConfig(cfg audio.SegmenterConfig) Option {
	return func(s *Service) {
		s.segCfg = cfg
	}
}

// WithClipPadding sets the padding added around response clips.
func WithClipPadding(ms int) Option {
	return func(s *Service) {
		if ms >= 0 {
			s.clipPaddingMs = ms
		}
	}
}

// WithTranscriber sets the speech recognizer used for recordings.
func WithTranscriber(t classify.Transcriber) Option {
	return func(s *Service) {
		s.transcriber = t
	}
}

// WithStore replaces the in-memory session store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}
