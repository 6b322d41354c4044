// Package tokens accumulates per-call token usage into session-scoped
// metrics. Totals are the sum across every iteration of the current
// session, including iterations from earlier process invocations when a
// session is resumed: the tracker is restored from persisted metrics at
// resume time, never reset to zero.
package tokens

import (
	"sync"
	"time"

	"github.com/CodexForgeBR/module-loop/internal/session"
)

// Usage is one executor call's token consumption.
type Usage struct {
	InputTokens    int64
	OutputTokens   int64
	PremiumRequest bool
}

// Tracker owns the running totals for one session. Safe for concurrent
// use: the orchestration loop records while a foreground poller reads
// snapshots.
type Tracker struct {
	mu      sync.Mutex
	metrics session.Metrics
	now     func() time.Time
}

// NewTracker creates an empty tracker for the given session id.
func NewTracker(id session.ID) *Tracker {
	return &Tracker{
		metrics: session.Metrics{SessionID: id},
		now:     time.Now,
	}
}

// Restore seeds the tracker from persisted metrics so a resumed session
// keeps its historical totals.
func Restore(m *session.Metrics) *Tracker {
	return &Tracker{metrics: *m, now: time.Now}
}

// RecordUsage adds one call's usage to the running totals.
func (t *Tracker) RecordUsage(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.InputTokens += u.InputTokens
	t.metrics.OutputTokens += u.OutputTokens
	if u.PremiumRequest {
		t.metrics.PremiumRequests++
	}
	t.metrics.UpdatedAt = t.now().UTC()
}

// RecordIteration increments the iteration counter. The counter
// strictly increases across a session's lifetime.
func (t *Tracker) RecordIteration() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.Iterations++
	t.metrics.UpdatedAt = t.now().UTC()
}

// Snapshot returns an immutable copy of the current totals.
func (t *Tracker) Snapshot() session.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}

// Reset clears the totals for a fresh session with the given id. This
// is the only path that decrements anything.
func (t *Tracker) Reset(id session.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = session.Metrics{SessionID: id, UpdatedAt: t.now().UTC()}
}
