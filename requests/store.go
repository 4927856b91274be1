package requests

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Persistence of records and their event trail
// =============================================================================

// Store persists records. Facts and verdicts are written once; the only
// mutation is the one-time final decision. Events are append-only.
//
// Implementations:
//   - requests/store.Memory: in-memory, for tests and demos
//   - store/sqlite.Store: SQLite via sqlx
type Store interface {
	// Create persists rec together with its creation event, atomically.
	Create(ctx context.Context, rec *Record, ev Event) error

	// Get returns ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns matching records, newest first, honouring Limit/Offset.
	// A zero Limit means no limit.
	List(ctx context.Context, f Filter) ([]Record, error)

	// Decide records the final decision on a pending record and appends ev,
	// atomically. Returns ErrNotFound or a *DecisionConflictError.
	Decide(ctx context.Context, id string, d DecisionUpdate, ev Event) (*Record, error)

	// Events returns the trail of a record, oldest first.
	Events(ctx context.Context, id string) ([]Event, error)
}

// DecisionUpdate is the final decision written by Store.Decide.
type DecisionUpdate struct {
	Decision FinalDecision
	Actor    string
	Notes    string
	At       time.Time
}
