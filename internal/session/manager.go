package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CodexForgeBR/module-loop/internal/logging"
)

// Manager orchestrates session persistence: creation, discovery, the
// resume policy, corruption quarantine, and retention pruning. All
// durable access goes through the injected Store.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// WithClock overrides the manager's clock. Tests use this to pin
// session-id dates.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Store exposes the underlying store for read paths that need direct
// access (session listing commands, metrics display).
func (m *Manager) Store() Store { return m.store }

// Create allocates a fresh session id for module (today's date plus the
// next free sequence), persists the initial state and zeroed metrics,
// and marks the new session latest.
func (m *Manager) Create(ctx context.Context, module string) (*State, error) {
	if module == "" {
		return nil, errors.New("module name is required")
	}

	now := m.now().UTC()
	seq, err := m.nextSequence(ctx, module, now)
	if err != nil {
		return nil, err
	}

	st := NewState(NewID(module, now, seq), now)
	if err := m.store.SaveState(ctx, st); err != nil {
		return nil, fmt.Errorf("save initial state: %w", err)
	}
	if err := m.store.SaveMetrics(ctx, &Metrics{SessionID: st.ID, UpdatedAt: now}); err != nil {
		return nil, fmt.Errorf("save initial metrics: %w", err)
	}
	if err := m.store.SetLatest(ctx, st.ID); err != nil {
		return nil, fmt.Errorf("set latest pointer: %w", err)
	}

	logging.Info("Created session %s", st.ID)
	return st, nil
}

// nextSequence finds the next free same-day sequence for module.
func (m *Manager) nextSequence(ctx context.Context, module string, day time.Time) (int, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	y, mo, d := day.Date()
	max := 0
	for _, id := range ids {
		iy, imo, idd := id.Date.Date()
		if id.Module == module && iy == y && imo == mo && idd == d && id.Sequence > max {
			max = id.Sequence
		}
	}
	return max + 1, nil
}

// Resolve applies the resume policy and returns the session to act on.
// The second return reports whether a fresh session was created.
//
// Order of attempts:
//  1. An explicit id, when supplied. Malformed ids, missing sessions,
//     and corrupt records all fail loudly here.
//  2. The latest-session pointer, when set. A complete latest session is
//     silently skipped; a corrupt one is quarantined. Both fall through
//     to fresh creation.
//  3. A new session for module.
func (m *Manager) Resolve(ctx context.Context, module, explicitID string) (*State, bool, error) {
	if explicitID != "" {
		id, err := ParseID(explicitID)
		if err != nil {
			return nil, false, err
		}
		st, err := m.store.LoadState(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("resume session %s: %w", id, err)
		}
		return st, false, nil
	}

	latest, ok, err := m.store.Latest(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("read latest pointer: %w", err)
	}
	if ok && latest.Module == module {
		st, err := m.store.LoadState(ctx, latest)
		switch {
		case err == nil && !st.IsComplete:
			logging.Info("Resuming session %s at step %s", st.ID, st.Step)
			return st, false, nil
		case err == nil:
			// Complete sessions are never auto-resumed.
			logging.Debug("Latest session %s is complete, starting fresh", latest)
		case errors.Is(err, ErrNotFound):
			logging.Warn("Latest pointer references missing session %s", latest)
		default:
			var corrupt *CorruptError
			if !errors.As(err, &corrupt) {
				return nil, false, fmt.Errorf("load latest session %s: %w", latest, err)
			}
			logging.Warn("Quarantining corrupt session %s: %s", latest, corrupt.Reason)
			if qErr := m.store.Quarantine(ctx, latest, corrupt.Reason); qErr != nil {
				return nil, false, fmt.Errorf("quarantine session %s: %w", latest, qErr)
			}
		}
	}

	st, err := m.Create(ctx, module)
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// Quarantine moves a session aside explicitly. Used by callers that
// discover corruption outside the resume path.
func (m *Manager) Quarantine(ctx context.Context, id ID, reason string) error {
	return m.store.Quarantine(ctx, id, reason)
}

// Delete removes a session outright.
func (m *Manager) Delete(ctx context.Context, id ID) error {
	return m.store.Delete(ctx, id)
}

// List enumerates all known session ids, oldest first.
func (m *Manager) List(ctx context.Context) ([]ID, error) {
	return m.store.List(ctx)
}

// Prune deletes the oldest completed sessions beyond retain and returns
// how many were removed. Incomplete sessions are never pruned, and
// unreadable records are skipped rather than deleted.
func (m *Manager) Prune(ctx context.Context, retain int) (int, error) {
	if retain < 0 {
		return 0, fmt.Errorf("retention count must be >= 0, got %d", retain)
	}

	ids, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	var completed []ID // oldest first, List order
	for _, id := range ids {
		st, err := m.store.LoadState(ctx, id)
		if err != nil {
			continue
		}
		if st.IsComplete {
			completed = append(completed, id)
		}
	}

	excess := len(completed) - retain
	if excess <= 0 {
		return 0, nil
	}

	removed := 0
	for _, id := range completed[:excess] {
		if err := m.store.Delete(ctx, id); err != nil {
			return removed, fmt.Errorf("prune session %s: %w", id, err)
		}
		removed++
	}
	return removed, nil
}
