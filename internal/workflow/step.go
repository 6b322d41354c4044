package workflow

import "fmt"

// Step is the fine-grained position within the workflow's fixed
// seven-stage sequence. Steps are 1-indexed and ordered.
type Step int

const (
	StepDraftSpecification    Step = 1
	StepDetermineDependencies Step = 2
	StepIdentifyComponents    Step = 3
	StepSelectNextComponent   Step = 4
	StepBreakIntoTasks        Step = 5
	StepIterateThroughTasks   Step = 6
	StepRepeat                Step = 7
)

// stepNames maps each step to its canonical name.
var stepNames = map[Step]string{
	StepDraftSpecification:    "draft_specification",
	StepDetermineDependencies: "determine_dependencies",
	StepIdentifyComponents:    "identify_components",
	StepSelectNextComponent:   "select_next_component",
	StepBreakIntoTasks:        "break_into_tasks",
	StepIterateThroughTasks:   "iterate_through_tasks",
	StepRepeat:                "repeat",
}

// Steps lists every valid step in order.
func Steps() []Step {
	return []Step{
		StepDraftSpecification,
		StepDetermineDependencies,
		StepIdentifyComponents,
		StepSelectNextComponent,
		StepBreakIntoTasks,
		StepIterateThroughTasks,
		StepRepeat,
	}
}

// IsValidStep reports whether s is one of the seven defined steps.
func IsValidStep(s Step) bool {
	_, ok := stepNames[s]
	return ok
}

// String returns the canonical name of the step, or "unknown" for
// out-of-range values.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// PhaseFor returns the phase a step belongs to. DraftSpecification is
// requirement gathering, DetermineDependencies through BreakIntoTasks are
// planning, and the remaining steps are building.
func PhaseFor(s Step) (Phase, error) {
	switch s {
	case StepDraftSpecification:
		return PhaseRequirementGathering, nil
	case StepDetermineDependencies, StepIdentifyComponents, StepSelectNextComponent, StepBreakIntoTasks:
		return PhasePlanning, nil
	case StepIterateThroughTasks, StepRepeat:
		return PhaseBuilding, nil
	default:
		return "", fmt.Errorf("no phase for step %d", int(s))
	}
}
