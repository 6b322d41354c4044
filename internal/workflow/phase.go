// Package workflow defines the phase/step state machine that drives a
// module from requirement gathering through planning and building.
//
// The machine is data-driven: each (phase, step) pair maps to exactly one
// successor through the transition table in engine.go. The only branch
// point is the Repeat step, whose outcome depends on an externally
// evaluated predicate ("do more components remain?") supplied by the
// caller via the assess triggers.
package workflow

import "fmt"

// Phase is the coarse-grained stage of the workflow.
type Phase string

const (
	PhaseRequirementGathering Phase = "requirement_gathering"
	PhasePlanning             Phase = "planning"
	PhaseBuilding             Phase = "building"
	PhaseResearch             Phase = "research"
)

// Phases lists every valid phase in order.
func Phases() []Phase {
	return []Phase{
		PhaseRequirementGathering,
		PhasePlanning,
		PhaseBuilding,
		PhaseResearch,
	}
}

// IsValidPhase reports whether s names a defined phase.
func IsValidPhase(s string) bool {
	for _, p := range Phases() {
		if string(p) == s {
			return true
		}
	}
	return false
}

// ParsePhase converts a string into a Phase, failing on unknown values.
func ParsePhase(s string) (Phase, error) {
	if !IsValidPhase(s) {
		return "", fmt.Errorf("unknown workflow phase %q", s)
	}
	return Phase(s), nil
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}
