// Package model maps workflow phases to preferred models and ordered
// fallback chains, keeping the orchestration loop alive when a
// preferred model is unavailable.
//
// Selection is a pure function of configuration plus an injected
// availability probe; nothing here calls the LLM.
package model

import (
	"fmt"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// Selection is the outcome of model selection for one phase.
type Selection struct {
	Model        string
	UsedFallback bool
}

// AvailabilityProbe reports whether a model can currently be used.
// The default probe checks the agent CLI; tests fabricate outcomes.
type AvailabilityProbe func(model string) bool

// Selector holds per-phase fallback chains. The first chain entry is
// the preferred model; the rest are fallbacks in order.
type Selector struct {
	chains map[workflow.Phase][]string
	probe  AvailabilityProbe
}

// NewSelector creates a Selector over chains with the given probe. A
// nil probe treats every model as available. Phases without a chain
// fall back to DefaultChain.
func NewSelector(chains map[workflow.Phase][]string, probe AvailabilityProbe) *Selector {
	if probe == nil {
		probe = func(string) bool { return true }
	}
	merged := make(map[workflow.Phase][]string, len(chains))
	for phase, chain := range chains {
		merged[phase] = append([]string(nil), chain...)
	}
	return &Selector{chains: merged, probe: probe}
}

// FallbackChain returns the ordered model list for phase: preferred
// model first, then fallbacks.
func (s *Selector) FallbackChain(phase workflow.Phase) []string {
	chain, ok := s.chains[phase]
	if !ok || len(chain) == 0 {
		chain = DefaultChain(phase)
	}
	return append([]string(nil), chain...)
}

// Select returns the first available model in phase's chain, marking
// whether the preferred model was skipped. It fails when no model in
// the chain is available.
func (s *Selector) Select(phase workflow.Phase) (Selection, error) {
	chain := s.FallbackChain(phase)
	for i, m := range chain {
		if s.probe(m) {
			return Selection{Model: m, UsedFallback: i > 0}, nil
		}
	}
	return Selection{}, fmt.Errorf("no model available for phase %s (chain: %v)", phase, chain)
}
