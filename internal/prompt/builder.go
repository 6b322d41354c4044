package prompt

import (
	"fmt"
	"strings"

	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// Context carries the file paths substituted into step templates.
type Context struct {
	Module   string
	SpecFile string
	PlanFile string
}

// BuildStepPrompt renders the prompt for one workflow step. The repeat
// step has no prompt: it is assessed from the plan file, not executed.
func BuildStepPrompt(step workflow.Step, c Context) (string, error) {
	var tmpl string
	switch step {
	case workflow.StepDraftSpecification:
		tmpl = DraftSpecificationTemplate
	case workflow.StepDetermineDependencies:
		tmpl = DetermineDependenciesTemplate
	case workflow.StepIdentifyComponents:
		tmpl = IdentifyComponentsTemplate
	case workflow.StepSelectNextComponent:
		tmpl = SelectNextComponentTemplate
	case workflow.StepBreakIntoTasks:
		tmpl = BreakIntoTasksTemplate
	case workflow.StepIterateThroughTasks:
		tmpl = IterateThroughTasksTemplate
	default:
		return "", fmt.Errorf("no prompt for step %s", step)
	}

	out := strings.ReplaceAll(tmpl, "{{MODULE}}", c.Module)
	out = strings.ReplaceAll(out, "{{SPEC_FILE}}", c.SpecFile)
	out = strings.ReplaceAll(out, "{{PLAN_FILE}}", c.PlanFile)
	return out, nil
}
