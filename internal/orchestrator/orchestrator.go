// Package orchestrator drives a module's workflow from its current step
// to a terminal or interrupted outcome. Iterations are strictly serial:
// each step's persistence completes before the next begins, and
// cancellation is honored at iteration boundaries rather than by
// aborting an in-flight step.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/CodexForgeBR/module-loop/internal/activity"
	"github.com/CodexForgeBR/module-loop/internal/executor"
	"github.com/CodexForgeBR/module-loop/internal/gate"
	"github.com/CodexForgeBR/module-loop/internal/gitops"
	"github.com/CodexForgeBR/module-loop/internal/guardrail"
	"github.com/CodexForgeBR/module-loop/internal/logging"
	"github.com/CodexForgeBR/module-loop/internal/model"
	"github.com/CodexForgeBR/module-loop/internal/parser"
	"github.com/CodexForgeBR/module-loop/internal/plan"
	"github.com/CodexForgeBR/module-loop/internal/prompt"
	"github.com/CodexForgeBR/module-loop/internal/session"
	"github.com/CodexForgeBR/module-loop/internal/tokens"
	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// DefaultMaxIterations bounds one Run call. The counter covers executor
// invocations only; repeat-point assessments are free.
const DefaultMaxIterations = 50

// Config wires the orchestrator's collaborators. Sessions, Workspace,
// Gate, Guardrail, Selector, and Runner are required.
type Config struct {
	Sessions  *session.Manager
	Workspace *plan.Workspace
	Gate      *gate.Controller
	Guardrail *guardrail.Pipeline
	Selector  *model.Selector
	Runner    executor.Runner
	Activity  *activity.Log

	// RepoDir, when set and a git work tree, enables checkpoint sha
	// recording after completed build iterations.
	RepoDir string

	MaxIterations int
}

// Orchestrator composes the state machine, guardrail, gate, session
// persistence, and the injected step executor into the iteration loop.
// One Orchestrator must not run two sessions concurrently; that is the
// caller's contract.
type Orchestrator struct {
	cfg Config
}

// RunOptions selects the session and carries the optional user request
// folded into the first specification prompt. UntilPhase, when set,
// bounds the run: the loop stops once the workflow moves past that
// phase instead of driving to full completion.
type RunOptions struct {
	SessionID  string
	UserPrompt string
	UntilPhase workflow.Phase
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Sessions == nil || cfg.Workspace == nil || cfg.Gate == nil ||
		cfg.Guardrail == nil || cfg.Selector == nil || cfg.Runner == nil {
		return nil, errors.New("orchestrator: missing required collaborator")
	}
	if cfg.Activity == nil {
		cfg.Activity = activity.NewLog()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Activity exposes the log polled by the presentation layer.
func (o *Orchestrator) Activity() *activity.Log { return o.cfg.Activity }

// runState is the per-run working set. It exists for one Run or RunStep
// call and is never shared.
type runState struct {
	state      *session.State
	engine     *workflow.Engine
	tracker    *tokens.Tracker
	execID     string
	userPrompt string
}

// Run drives the session's module until completion or interruption.
// Errors are reserved for structural failures (persistence, exhausted
// model chain); every expected stop is a typed Result.
//
// A session already marked complete returns Completed immediately with
// zero iterations and no state mutation.
func (o *Orchestrator) Run(ctx context.Context, module string, opts RunOptions) (Result, error) {
	rt, err := o.prepare(ctx, module, opts)
	if err != nil {
		return nil, err
	}
	if rt.state.IsComplete {
		return Completed{Iterations: 0, FinalStep: rt.state.Step, Summary: "session already complete"}, nil
	}

	start := rt.tracker.Snapshot().Iterations
	for {
		done := rt.tracker.Snapshot().Iterations - start
		if done >= o.cfg.MaxIterations {
			o.record(rt, activity.KindInterrupted, "maximum iteration count reached")
			return Interrupted{Iterations: done, AtStep: rt.engine.CurrentStep(), Kind: InterruptMaxIterations, Reason: "max iterations reached"}, nil
		}

		res, err := o.runOnce(ctx, rt)
		if err != nil {
			return nil, err
		}
		done = rt.tracker.Snapshot().Iterations - start

		switch r := res.(type) {
		case StepSucceeded:
			if rt.engine.IsComplete() {
				o.record(rt, activity.KindCompleted, "module workflow complete")
				return Completed{Iterations: done, FinalStep: rt.engine.CurrentStep(), Summary: r.Summary}, nil
			}
			if opts.UntilPhase != "" && phaseDone(rt.engine.CurrentStep(), opts.UntilPhase) {
				reason := fmt.Sprintf("%s phase complete", opts.UntilPhase)
				o.record(rt, activity.KindInterrupted, reason)
				return Interrupted{Iterations: done, AtStep: rt.engine.CurrentStep(), Kind: InterruptPhaseComplete, Reason: reason}, nil
			}
		case StepFailed:
			logging.Warn("step failed, continuing: %s", r.Reason)
		case StepInterrupted:
			return Interrupted{Iterations: done, AtStep: rt.engine.CurrentStep(), Kind: r.Kind, Reason: r.Reason}, nil
		}
	}
}

// RunStep executes exactly one iteration without looping.
func (o *Orchestrator) RunStep(ctx context.Context, module string, opts RunOptions) (StepResult, error) {
	rt, err := o.prepare(ctx, module, opts)
	if err != nil {
		return nil, err
	}
	if rt.state.IsComplete {
		return StepInterrupted{Kind: InterruptSessionComplete, Reason: "session is already complete"}, nil
	}
	return o.runOnce(ctx, rt)
}

func (o *Orchestrator) prepare(ctx context.Context, module string, opts RunOptions) (*runState, error) {
	st, created, err := o.cfg.Sessions.Resolve(ctx, module, opts.SessionID)
	if err != nil {
		return nil, err
	}

	var tracker *tokens.Tracker
	if created {
		tracker = tokens.NewTracker(st.ID)
	} else {
		m, err := o.cfg.Sessions.Store().LoadMetrics(ctx, st.ID)
		switch {
		case errors.Is(err, session.ErrNotFound):
			tracker = tokens.NewTracker(st.ID)
		case err != nil:
			return nil, fmt.Errorf("load metrics: %w", err)
		default:
			tracker = tokens.Restore(m)
		}
		o.warnPlanDrift(st)
	}

	engine, err := workflow.NewEngine(st.Module, st.Step)
	if err != nil {
		return nil, fmt.Errorf("restore state machine: %w", err)
	}

	return &runState{
		state:      st,
		engine:     engine,
		tracker:    tracker,
		execID:     uuid.NewString(),
		userPrompt: opts.UserPrompt,
	}, nil
}

// warnPlanDrift flags a plan checklist that changed underneath the
// session being resumed. Drift is advisory, not fatal.
func (o *Orchestrator) warnPlanDrift(st *session.State) {
	if st.PlanFileHash == "" {
		return
	}
	current, err := o.cfg.Workspace.PlanHash(st.Module)
	if err == nil && current != "" && current != st.PlanFileHash {
		logging.Warn("plan file for %s changed since session %s was last saved", st.Module, st.ID)
	}
}

// runOnce performs one iteration: guardrail check, gate check, step
// execution or repeat-point assessment, persistence.
func (o *Orchestrator) runOnce(ctx context.Context, rt *runState) (StepResult, error) {
	if ctx.Err() != nil {
		o.record(rt, activity.KindInterrupted, "cancellation requested")
		return StepInterrupted{Kind: InterruptCancelled, Reason: "cancellation requested"}, nil
	}

	decision, first := o.cfg.Guardrail.Evaluate()
	if !decision.Allow {
		reason := fmt.Sprintf("repeated failures: %d consecutive failed iterations", decision.ConsecutiveFailures)
		if first {
			o.record(rt, activity.KindGuardrailTripped, reason)
		}
		return StepInterrupted{Kind: InterruptGuardrail, Reason: reason}, nil
	}

	module := rt.state.Module
	step := rt.engine.CurrentStep()

	if step == workflow.StepRepeat {
		return o.assessRepeat(ctx, rt)
	}

	// A drafted specification never re-executes. Unapproved, it
	// interrupts until a human signs off; approved, it advances straight
	// into planning so the executor cannot overwrite the approved draft.
	if step == workflow.StepDraftSpecification && o.cfg.Workspace.SpecificationReady(module) {
		if ok, reason := o.cfg.Gate.CheckCrossing(module, rt.engine.CurrentPhase(), workflow.PhasePlanning); !ok {
			o.record(rt, activity.KindGatePending, reason)
			return StepInterrupted{Kind: InterruptGatePending, Reason: reason}, nil
		}
		if !rt.engine.Fire(workflow.TriggerAdvance) {
			return nil, fmt.Errorf("advance rejected at step %s", step)
		}
		o.record(rt, activity.KindPhaseTransition, fmt.Sprintf("%s -> %s", workflow.PhaseRequirementGathering, rt.engine.CurrentPhase()))
		if err := o.persist(ctx, rt); err != nil {
			return nil, err
		}
		summary := "specification approved, planning begins"
		o.record(rt, activity.KindStepSucceeded, summary)
		return StepSucceeded{Trigger: workflow.TriggerAdvance, Summary: summary}, nil
	}

	return o.executeStep(ctx, rt)
}

// assessRepeat evaluates the repeat fixed point: more unchecked
// components send the machine back to component selection, an exhausted
// checklist completes the workflow. No executor call is made.
func (o *Orchestrator) assessRepeat(ctx context.Context, rt *runState) (StepResult, error) {
	remaining, err := o.cfg.Workspace.ComponentsRemaining(rt.state.Module)
	if err != nil {
		return nil, fmt.Errorf("assess plan checklist: %w", err)
	}

	trigger := workflow.TriggerAssessComplete
	summary := "all components complete"
	if remaining {
		trigger = workflow.TriggerAssessContinue
		summary = "components remain, selecting next"
	}
	if !rt.engine.Fire(trigger) {
		return nil, fmt.Errorf("trigger %s rejected at step %s", trigger, rt.engine.CurrentStep())
	}

	if err := o.persist(ctx, rt); err != nil {
		return nil, err
	}
	o.record(rt, activity.KindStepSucceeded, summary)
	return StepSucceeded{Trigger: trigger, Summary: summary}, nil
}

// executeStep invokes the injected executor for the current step and,
// on success, fires the advance trigger and persists the new position.
func (o *Orchestrator) executeStep(ctx context.Context, rt *runState) (StepResult, error) {
	module := rt.state.Module
	step := rt.engine.CurrentStep()
	phase := rt.engine.CurrentPhase()

	stepPrompt, err := prompt.BuildStepPrompt(step, prompt.Context{
		Module:   module,
		SpecFile: o.cfg.Workspace.SpecPath(module),
		PlanFile: o.cfg.Workspace.PlanPath(module),
	})
	if err != nil {
		return nil, err
	}
	if rt.userPrompt != "" && step == workflow.StepDraftSpecification {
		stepPrompt += "\n\nUser request:\n" + rt.userPrompt
	}

	selection, err := o.cfg.Selector.Select(phase)
	if err != nil {
		return nil, fmt.Errorf("select model for %s: %w", phase, err)
	}
	if selection.UsedFallback {
		logging.Warn("preferred model unavailable for %s, using %s", phase, selection.Model)
	}

	outputPath := o.cfg.Workspace.IterationOutputPath(module, rt.state.ID.String(), rt.tracker.Snapshot().Iterations+1)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("create iteration output dir: %w", err)
	}

	o.record(rt, activity.KindStepStarted, fmt.Sprintf("executing %s with %s", step, selection.Model))
	runErr := o.cfg.Runner.Run(ctx, executor.Request{
		Model:      selection.Model,
		Prompt:     stepPrompt,
		OutputPath: outputPath,
	})
	rt.tracker.RecordIteration()

	if runErr != nil {
		if ctx.Err() != nil {
			o.record(rt, activity.KindInterrupted, "cancellation requested")
			return StepInterrupted{Kind: InterruptCancelled, Reason: "cancellation requested"}, nil
		}
		o.cfg.Guardrail.RecordFailure()
		o.record(rt, activity.KindStepFailed, runErr.Error())
		if err := o.persistMetrics(ctx, rt); err != nil {
			return nil, err
		}
		return StepFailed{Reason: runErr.Error()}, nil
	}

	output := ""
	if raw, readErr := os.ReadFile(outputPath); readErr == nil {
		output = string(raw)
	}
	usage := parser.ExtractUsage(output)
	rt.tracker.RecordUsage(tokens.Usage{
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
		PremiumRequest: model.IsPremium(selection.Model),
	})
	o.cfg.Guardrail.RecordSuccess()

	if step == workflow.StepIterateThroughTasks {
		o.recordCheckpoint(ctx, rt)
	}

	// Advancing out of requirement gathering is human-gated: the drafted
	// specification must be approved before planning begins.
	if rt.engine.CrossesGatedBoundary() {
		if ok, reason := o.cfg.Gate.CheckCrossing(module, phase, workflow.PhasePlanning); !ok {
			if err := o.persist(ctx, rt); err != nil {
				return nil, err
			}
			o.record(rt, activity.KindGatePending, reason)
			return StepInterrupted{Kind: InterruptGatePending, Reason: reason}, nil
		}
	}

	if !rt.engine.Fire(workflow.TriggerAdvance) {
		return nil, fmt.Errorf("advance rejected at step %s", step)
	}
	if newPhase := rt.engine.CurrentPhase(); newPhase != phase {
		o.record(rt, activity.KindPhaseTransition, fmt.Sprintf("%s -> %s", phase, newPhase))
	}

	if err := o.persist(ctx, rt); err != nil {
		return nil, err
	}

	summary := stepSummary(output)
	o.record(rt, activity.KindStepSucceeded, summary)
	return StepSucceeded{Trigger: workflow.TriggerAdvance, Summary: summary}, nil
}

// recordCheckpoint notes where HEAD landed after a build iteration so a
// bad iteration can be reverted later. Absence of a repo is not an
// error.
func (o *Orchestrator) recordCheckpoint(ctx context.Context, rt *runState) {
	ctx = context.WithoutCancel(ctx)
	if o.cfg.RepoDir == "" || !gitops.IsRepository(ctx, o.cfg.RepoDir) {
		return
	}
	sha, err := gitops.Head(ctx, o.cfg.RepoDir)
	if err != nil {
		logging.Warn("checkpoint sha unavailable: %v", err)
		return
	}
	rt.state.LastTaskCompletionCommitSha = sha
}

// persist writes state then metrics. State reflects the engine's
// position at call time; a crash between the two writes leaves metrics
// one iteration behind, which resume tolerates. Writes are detached
// from cancellation: a step that finished gets persisted even when the
// cancel signal arrived while it was in flight.
func (o *Orchestrator) persist(ctx context.Context, rt *runState) error {
	ctx = context.WithoutCancel(ctx)
	rt.state.Step = rt.engine.CurrentStep()
	rt.state.Phase = rt.engine.CurrentPhase()
	rt.state.IsComplete = rt.engine.IsComplete()
	rt.state.UpdatedAt = time.Now().UTC()
	if hash, err := o.cfg.Workspace.PlanHash(rt.state.Module); err == nil {
		rt.state.PlanFileHash = hash
	}
	if err := o.cfg.Sessions.Store().SaveState(ctx, rt.state); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return o.persistMetrics(ctx, rt)
}

func (o *Orchestrator) persistMetrics(ctx context.Context, rt *runState) error {
	ctx = context.WithoutCancel(ctx)
	m := rt.tracker.Snapshot()
	if err := o.cfg.Sessions.Store().SaveMetrics(ctx, &m); err != nil {
		return fmt.Errorf("save session metrics: %w", err)
	}
	return nil
}

func (o *Orchestrator) record(rt *runState, kind activity.Kind, message string) {
	o.cfg.Activity.Append(activity.Entry{
		ExecutionID: rt.execID,
		Phase:       rt.engine.CurrentPhase(),
		Step:        rt.engine.CurrentStep(),
		Kind:        kind,
		Message:     message,
	})
}

// phaseDone reports whether step lies beyond the final step of phase.
// Building has no bound: it ends at the repeat fixed point.
func phaseDone(step workflow.Step, phase workflow.Phase) bool {
	switch phase {
	case workflow.PhaseRequirementGathering:
		return step > workflow.StepDraftSpecification
	case workflow.PhasePlanning:
		return step > workflow.StepBreakIntoTasks
	default:
		return false
	}
}

func stepSummary(streamOutput string) string {
	text := strings.TrimSpace(parser.ParseStreamText(streamOutput))
	if text == "" {
		return "step completed"
	}
	line := strings.SplitN(text, "\n", 2)[0]
	if len(line) > 120 {
		cut := 120
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut]
	}
	return line
}
