package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/clockread/internal/domain/model"
	"github.com/okian/clockread/pkg/metrics"
)

const defaultCapacity = 10000

// MemoryStore keeps sessions in memory in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]model.Session
	order    []string // oldest first
	capacity int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[string]model.Session),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateStoredSessions(0)
	return s
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, sess model.Session) error { //nolint:gocritic // hugeParam: sessions are stored by value
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sess.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, sess.ID)
	}
	if s.capacity > 0 && len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}
	s.byID[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	metrics.UpdateStoredSessions(len(s.order))
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byID[id]
	if !ok {
		return model.Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]model.Session, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n = min(n, len(s.order))
	out := make([]model.Session, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
