// Package store persists the session blob. The engine always loads the
// whole state, mutates it, and writes it back; the store only needs
// get/upsert semantics plus idempotent schema setup.
package store

import (
	"context"
	"strings"

	"github.com/antoniostano/fable/internal/game"
)

// Store is the durable backing for one session blob.
type Store interface {
	// Load returns the persisted state. found is false when no blob
	// exists yet; the caller then starts from defaults.
	Load(ctx context.Context) (state *game.SessionState, found bool, err error)
	// Save upserts the whole state.
	Save(ctx context.Context, state *game.SessionState) error
	// Ping reports whether the backing medium is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// New selects the backend: postgres when a database URL is configured,
// otherwise a single JSON file at statePath.
func New(ctx context.Context, databaseURL, statePath, sessionID string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL, sessionID)
	}
	return NewFileStore(statePath), nil
}
