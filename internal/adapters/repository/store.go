// Package repository stores scored sessions.
package repository

import (
	"context"

	"github.com/okian/clockread/internal/domain/model"
)

// Store provides read/write access to scored sessions.
type Store interface {
	// Put stores a session. Returns ErrExists if the ID is taken.
	Put(ctx context.Context, s model.Session) error

	// Get returns a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Session, error)

	// Recent returns up to n sessions, newest first.
	Recent(ctx context.Context, n int) ([]model.Session, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) int
}
