// Package gate implements the phase transition controller: the crossing
// from requirement gathering into planning is gated behind explicit
// human approval of the drafted specification.
package gate

import (
	"fmt"
	"sync"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// Artifacts is the controller's view of a module's durable artifacts.
// Approval state is re-derived from these on restart; the controller
// itself owns no durable state.
type Artifacts interface {
	SpecificationReady(module string) bool
	Approved(module string) bool
	Approve(module string) error
}

// Controller gates phase advancement behind explicit approval. Approval
// is per-module; the in-memory set only caches what the artifacts
// already prove.
type Controller struct {
	mu        sync.Mutex
	approved  map[string]bool
	artifacts Artifacts
}

// NewController creates a Controller backed by artifacts.
func NewController(artifacts Artifacts) *Controller {
	return &Controller{
		approved:  make(map[string]bool),
		artifacts: artifacts,
	}
}

// ApproveSpecification records human approval of module's specification
// independent of step completion, persisting the approval marker so a
// restarted process re-derives it.
func (c *Controller) ApproveSpecification(module string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.artifacts.SpecificationReady(module) {
		return fmt.Errorf("cannot approve %s: no reviewable specification exists yet", module)
	}
	if err := c.artifacts.Approve(module); err != nil {
		return fmt.Errorf("record approval for %s: %w", module, err)
	}
	c.approved[module] = true
	return nil
}

// Approved reports whether module's specification has been approved,
// consulting the in-process cache first and the durable marker second.
func (c *Controller) Approved(module string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.approved[module] {
		return true
	}
	if c.artifacts.Approved(module) && c.artifacts.SpecificationReady(module) {
		c.approved[module] = true
		return true
	}
	return false
}

// CheckCrossing decides whether module may cross from one phase into
// another. Only the requirement-gathering boundary is gated; all other
// crossings pass. A blocked crossing returns a human-readable reason
// naming the missing approval.
func (c *Controller) CheckCrossing(module string, from, to workflow.Phase) (bool, string) {
	if from != workflow.PhaseRequirementGathering || to == workflow.PhaseRequirementGathering {
		return true, ""
	}
	if c.Approved(module) {
		return true, ""
	}
	return false, fmt.Sprintf("specification approval required for %s before planning can begin", module)
}
