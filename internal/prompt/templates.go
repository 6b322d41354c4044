package prompt

import _ "embed"

// Template files embedded at compile time
var (
	//go:embed templates/draft-specification.txt
	DraftSpecificationTemplate string

	//go:embed templates/determine-dependencies.txt
	DetermineDependenciesTemplate string

	//go:embed templates/identify-components.txt
	IdentifyComponentsTemplate string

	//go:embed templates/select-next-component.txt
	SelectNextComponentTemplate string

	//go:embed templates/break-into-tasks.txt
	BreakIntoTasksTemplate string

	//go:embed templates/iterate-through-tasks.txt
	IterateThroughTasksTemplate string
)
