package storage

import (
	"context"

	"drawflow-backend/internal/model"
)

// Store is the session document store. Implementations hand out copies:
// mutating a returned session never changes stored state.
type Store interface {
	// List returns metadata for every session, newest UpdatedAt first.
	List(ctx context.Context) ([]model.SessionMetadata, error)
	// Get returns ErrSessionNotFound when id is absent.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Save inserts or replaces the session.
	Save(ctx context.Context, session *model.Session) error
	// Delete removes id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	// MigrateLegacy imports data left by older versions. It is idempotent.
	MigrateLegacy(ctx context.Context) error
	// EnforceLimit deletes the oldest sessions beyond max and returns their ids.
	EnforceLimit(ctx context.Context, max int) ([]string, error)
	Close() error
}
