package session

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("session not found")

// CorruptError marks a session whose persisted state cannot be read or
// violates structural invariants. The Manager responds by quarantining
// the record instead of deleting it or crashing the resume path.
type CorruptError struct {
	ID     ID
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("session %s is corrupt: %s", e.ID, e.Reason)
}

// Store is the durable persistence contract for session data. It is the
// sole read/write path: no other component persists session records.
//
// Implementations must make per-session saves atomic so that a
// concurrently polling reader never observes a partially updated record.
type Store interface {
	// SaveState upserts the state record for its session id.
	SaveState(ctx context.Context, s *State) error

	// LoadState reads the state record for id. Returns ErrNotFound when
	// the session does not exist and a *CorruptError when the record is
	// unreadable or structurally invalid.
	LoadState(ctx context.Context, id ID) (*State, error)

	// SaveMetrics upserts the metrics record for its session id.
	SaveMetrics(ctx context.Context, m *Metrics) error

	// LoadMetrics reads the metrics record for id, or ErrNotFound.
	LoadMetrics(ctx context.Context, id ID) (*Metrics, error)

	// List enumerates every known session id, oldest first.
	List(ctx context.Context) ([]ID, error)

	// Delete removes a session's state and metrics outright.
	Delete(ctx context.Context, id ID) error

	// Quarantine moves an unreadable session aside, preserving its raw
	// payload for forensic recovery while unblocking normal resume flows.
	Quarantine(ctx context.Context, id ID, reason string) error

	// SetLatest marks id as the "latest session" pointer used for
	// default resume.
	SetLatest(ctx context.Context, id ID) error

	// Latest returns the current latest-session pointer. The second
	// return is false when no pointer has been set.
	Latest(ctx context.Context) (ID, bool, error)
}
