package model

import "github.com/CodexForgeBR/module-loop/internal/workflow"

// Default model names for the Claude CLI backend.
const (
	Opus   = "opus"
	Sonnet = "sonnet"
	Haiku  = "haiku"
)

// DefaultChain returns the built-in fallback chain for a phase.
// Requirement gathering and planning prefer the strongest model;
// building tolerates a cheaper one, and research runs wide.
func DefaultChain(phase workflow.Phase) []string {
	switch phase {
	case workflow.PhaseRequirementGathering, workflow.PhasePlanning:
		return []string{Opus, Sonnet}
	case workflow.PhaseBuilding:
		return []string{Sonnet, Opus, Haiku}
	case workflow.PhaseResearch:
		return []string{Opus, Sonnet, Haiku}
	default:
		return []string{Sonnet}
	}
}

// DefaultChains returns the full phase-to-chain map used when
// configuration supplies none.
func DefaultChains() map[workflow.Phase][]string {
	chains := make(map[workflow.Phase][]string)
	for _, p := range workflow.Phases() {
		chains[p] = DefaultChain(p)
	}
	return chains
}

// IsPremium reports whether a model counts against the premium request
// budget tracked in session metrics.
func IsPremium(model string) bool {
	return model == Opus
}
