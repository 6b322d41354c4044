// Package activity provides the thread-safe activity log shared between
// the background orchestration loop and a foreground presentation layer
// polling read-only snapshots.
package activity

import (
	"sync"
	"time"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// Kind classifies an activity entry.
type Kind string

const (
	KindStepStarted      Kind = "step_started"
	KindStepSucceeded    Kind = "step_succeeded"
	KindStepFailed       Kind = "step_failed"
	KindPhaseTransition  Kind = "phase_transition"
	KindGuardrailTripped Kind = "guardrail_tripped"
	KindGatePending      Kind = "gate_pending"
	KindInterrupted      Kind = "interrupted"
	KindCompleted        Kind = "completed"
)

// Entry is one observed orchestration event.
type Entry struct {
	Time        time.Time
	ExecutionID string
	Phase       workflow.Phase
	Step        workflow.Step
	Kind        Kind
	Message     string
}

// Log is an append-only event log. Appends and snapshot reads may
// interleave freely; a snapshot always sees complete entries and never
// a half-appended one.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLog creates an empty activity log.
func NewLog() *Log {
	return &Log{}
}

// Append records an entry, stamping the time if unset.
func (l *Log) Append(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Snapshot returns a copy of all entries in append order.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns a copy of the entries appended at or after index n,
// letting pollers consume incrementally. The second return is the next
// index to poll from.
func (l *Log) Since(n int) ([]Entry, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return nil, len(l.entries)
	}
	out := make([]Entry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out, len(l.entries)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
