package orchestrator

import (
	"fmt"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// Result is the terminal outcome of a full Run. Interruption (human
// gate, guardrail trip, max iterations, cancellation) is a normal,
// typed result rather than an error: callers switch on the variant.
type Result interface {
	isResult()
	String() string
}

// Completed reports a run that drove its module to completion.
type Completed struct {
	Iterations int
	FinalStep  workflow.Step
	Summary    string
}

// InterruptKind classifies why a run stopped short of completion, so
// the CLI can map outcomes to exit codes without parsing reason text.
type InterruptKind string

const (
	InterruptGatePending     InterruptKind = "gate_pending"
	InterruptGuardrail       InterruptKind = "guardrail_tripped"
	InterruptMaxIterations   InterruptKind = "max_iterations"
	InterruptCancelled       InterruptKind = "cancelled"
	InterruptPhaseComplete   InterruptKind = "phase_complete"
	InterruptSessionComplete InterruptKind = "session_complete"
)

// Interrupted reports a run that stopped while waiting on outside
// intervention. Reason is human-readable and names what is missing.
type Interrupted struct {
	Iterations int
	AtStep     workflow.Step
	Kind       InterruptKind
	Reason     string
}

func (Completed) isResult()   {}
func (Interrupted) isResult() {}

func (r Completed) String() string {
	return fmt.Sprintf("completed after %d iteration(s) at %s", r.Iterations, r.FinalStep)
}

func (r Interrupted) String() string {
	return fmt.Sprintf("interrupted at %s after %d iteration(s): %s", r.AtStep, r.Iterations, r.Reason)
}

// StepResult is the outcome of exactly one iteration.
type StepResult interface {
	isStepResult()
}

// StepSucceeded reports an iteration whose step completed and fired
// Trigger on the state machine.
type StepSucceeded struct {
	Trigger workflow.Trigger
	Summary string
}

// StepFailed reports a transient executor failure. The failure has
// already been recorded against the guardrail; the loop may continue.
type StepFailed struct {
	Reason string
}

// StepInterrupted reports an iteration that stopped before executing:
// gate pending, guardrail tripped, or cancellation observed.
type StepInterrupted struct {
	Kind   InterruptKind
	Reason string
}

func (StepSucceeded) isStepResult()   {}
func (StepFailed) isStepResult()      {}
func (StepInterrupted) isStepResult() {}
