package workflow

import "fmt"

// Trigger names a transition attempt on the Engine.
type Trigger string

const (
	// TriggerAdvance moves from the current step to its successor in the
	// transition table. Valid from every step except Repeat.
	TriggerAdvance Trigger = "advance"

	// TriggerAssessContinue fires from Repeat when the caller-evaluated
	// predicate says more components remain; the machine loops back to
	// SelectNextComponent.
	TriggerAssessContinue Trigger = "assess_continue"

	// TriggerAssessComplete fires from Repeat when no components remain;
	// the machine marks the workflow complete.
	TriggerAssessComplete Trigger = "assess_complete"

	// TriggerRestart resets the machine to DraftSpecification. It is the
	// only non-monotonic transition and is never fired automatically.
	TriggerRestart Trigger = "restart"
)

// advanceTable maps each step to its single successor under
// TriggerAdvance. Repeat has no entry: its successor depends on the
// assess triggers.
var advanceTable = map[Step]Step{
	StepDraftSpecification:    StepDetermineDependencies,
	StepDetermineDependencies: StepIdentifyComponents,
	StepIdentifyComponents:    StepSelectNextComponent,
	StepSelectNextComponent:   StepBreakIntoTasks,
	StepBreakIntoTasks:        StepIterateThroughTasks,
	StepIterateThroughTasks:   StepRepeat,
}

// Engine is the workflow state machine for one module. It holds no
// side effects: firing a trigger only mutates the in-memory position,
// and the Repeat predicate is evaluated by the caller, not here.
//
// Engine is not safe for concurrent use; the orchestrator drives it
// from a single goroutine.
type Engine struct {
	module   string
	step     Step
	complete bool
}

// NewEngine creates an engine for module positioned at step. Callers
// loading a persisted session pass its recorded step; fresh sessions
// start at StepDraftSpecification.
func NewEngine(module string, step Step) (*Engine, error) {
	if !IsValidStep(step) {
		return nil, fmt.Errorf("invalid step %d for module %q", int(step), module)
	}
	return &Engine{module: module, step: step}, nil
}

// Module returns the module this engine drives.
func (e *Engine) Module() string { return e.module }

// CurrentStep returns the machine's current step.
func (e *Engine) CurrentStep() Step { return e.step }

// CurrentPhase returns the phase the current step belongs to.
func (e *Engine) CurrentPhase() Phase {
	p, _ := PhaseFor(e.step)
	return p
}

// IsComplete reports whether TriggerAssessComplete has fired.
func (e *Engine) IsComplete() bool { return e.complete }

// PermittedTriggers returns the triggers valid from the current state.
// A completed machine permits only TriggerRestart.
func (e *Engine) PermittedTriggers() []Trigger {
	if e.complete {
		return []Trigger{TriggerRestart}
	}
	if e.step == StepRepeat {
		return []Trigger{TriggerAssessContinue, TriggerAssessComplete, TriggerRestart}
	}
	return []Trigger{TriggerAdvance, TriggerRestart}
}

// Fire attempts a transition. It returns true when the trigger was
// permitted and the machine moved, false otherwise. Rejected triggers
// leave the machine untouched.
func (e *Engine) Fire(t Trigger) bool {
	switch t {
	case TriggerAdvance:
		if e.complete {
			return false
		}
		next, ok := advanceTable[e.step]
		if !ok {
			return false
		}
		e.step = next
		return true

	case TriggerAssessContinue:
		if e.complete || e.step != StepRepeat {
			return false
		}
		e.step = StepSelectNextComponent
		return true

	case TriggerAssessComplete:
		if e.complete || e.step != StepRepeat {
			return false
		}
		e.complete = true
		return true

	case TriggerRestart:
		e.step = StepDraftSpecification
		e.complete = false
		return true

	default:
		return false
	}
}

// CrossesGatedBoundary reports whether advancing from the current step
// would leave the requirement-gathering phase. The crossing from
// requirement gathering into planning requires explicit human approval
// of the specification.
func (e *Engine) CrossesGatedBoundary() bool {
	next, ok := advanceTable[e.step]
	if !ok {
		return false
	}
	from, _ := PhaseFor(e.step)
	to, _ := PhaseFor(next)
	return from == PhaseRequirementGathering && to != PhaseRequirementGathering
}
