package session

import (
	"time"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// State is the mutable per-session record persisted after every
// orchestrator iteration. Only the orchestrator mutates Step and Phase;
// IsComplete is cleared only by fresh session creation, and
// LastTaskCompletionCommitSha is cleared only by a successful revert.
type State struct {
	ID              ID
	Module          string
	Phase           workflow.Phase
	Step            workflow.Step
	ActiveComponent string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	IsComplete      bool

	// LastTaskCompletionCommitSha is a checkpoint pointer recorded after a
	// completed task, usable as a revert target.
	LastTaskCompletionCommitSha string

	// PlanFileHash guards resume against the plan checklist changing
	// underneath an interrupted session.
	PlanFileHash string
}

// Metrics accumulates per-call token usage into session-scoped totals.
// Values only grow over a session's lifetime; an explicit reset is the
// single exception.
type Metrics struct {
	SessionID       ID
	InputTokens     int64
	OutputTokens    int64
	PremiumRequests int
	Iterations      int
	UpdatedAt       time.Time
}

// NewState creates the initial state for a fresh session: positioned at
// DraftSpecification in requirement gathering, not complete.
func NewState(id ID, now time.Time) *State {
	return &State{
		ID:        id,
		Module:    id.Module,
		Phase:     workflow.PhaseRequirementGathering,
		Step:      workflow.StepDraftSpecification,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the structural invariants a loaded state must satisfy.
// A record violating them is treated as corrupt and quarantined rather
// than surfaced to the orchestrator.
func (s *State) Validate() error {
	if !workflow.IsValidStep(s.Step) {
		return &CorruptError{ID: s.ID, Reason: "undefined workflow step"}
	}
	if !workflow.IsValidPhase(string(s.Phase)) {
		return &CorruptError{ID: s.ID, Reason: "undefined workflow phase"}
	}
	if s.Module == "" || s.Module != s.ID.Module {
		return &CorruptError{ID: s.ID, Reason: "module name does not match session id"}
	}
	return nil
}
