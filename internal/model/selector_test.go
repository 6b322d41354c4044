package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

func probeAllowing(models ...string) AvailabilityProbe {
	allowed := make(map[string]bool, len(models))
	for _, m := range models {
		allowed[m] = true
	}
	return func(m string) bool { return allowed[m] }
}

func TestSelectPreferred(t *testing.T) {
	s := NewSelector(DefaultChains(), nil)

	sel, err := s.Select(workflow.PhasePlanning)
	require.NoError(t, err)
	assert.Equal(t, Opus, sel.Model)
	assert.False(t, sel.UsedFallback)
}

func TestSelectFallsBack(t *testing.T) {
	s := NewSelector(DefaultChains(), probeAllowing(Sonnet, Haiku))

	sel, err := s.Select(workflow.PhasePlanning)
	require.NoError(t, err)
	assert.Equal(t, Sonnet, sel.Model)
	assert.True(t, sel.UsedFallback)
}

func TestSelectExhaustedChain(t *testing.T) {
	s := NewSelector(DefaultChains(), probeAllowing())

	_, err := s.Select(workflow.PhaseBuilding)
	assert.Error(t, err)
}

func TestSelectIsDeterministic(t *testing.T) {
	s := NewSelector(DefaultChains(), probeAllowing(Opus, Sonnet, Haiku))
	for i := 0; i < 5; i++ {
		sel, err := s.Select(workflow.PhaseResearch)
		require.NoError(t, err)
		assert.Equal(t, Opus, sel.Model)
	}
}

func TestFallbackChainCopies(t *testing.T) {
	chains := map[workflow.Phase][]string{
		workflow.PhaseBuilding: {Sonnet, Haiku},
	}
	s := NewSelector(chains, nil)

	chain := s.FallbackChain(workflow.PhaseBuilding)
	assert.Equal(t, []string{Sonnet, Haiku}, chain)

	chain[0] = "mutated"
	assert.Equal(t, []string{Sonnet, Haiku}, s.FallbackChain(workflow.PhaseBuilding),
		"callers cannot mutate the selector's chains")
}

func TestFallbackChainDefaultsUnknownPhase(t *testing.T) {
	s := NewSelector(nil, nil)
	assert.Equal(t, DefaultChain(workflow.PhasePlanning), s.FallbackChain(workflow.PhasePlanning))
}

func TestIsPremium(t *testing.T) {
	assert.True(t, IsPremium(Opus))
	assert.False(t, IsPremium(Sonnet))
	assert.False(t, IsPremium(Haiku))
}
