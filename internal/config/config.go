// Package config defines the module-loop configuration model and
// default values.
//
// Configuration is assembled from multiple sources with a strict
// precedence chain: built-in defaults < global config file < project
// config file < explicit config file < CLI flag overrides.
package config

import (
	"github.com/CodexForgeBR/module-loop/internal/guardrail"
	"github.com/CodexForgeBR/module-loop/internal/model"
	"github.com/CodexForgeBR/module-loop/internal/orchestrator"
	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// WhitelistedVars lists every configuration variable name that may
// appear in config files. Variables not in this list are silently
// ignored during loading.
var WhitelistedVars = [16]string{
	"AI_CLI",
	"REQUIREMENT_MODELS",
	"PLANNING_MODELS",
	"BUILDING_MODELS",
	"RESEARCH_MODELS",
	"MAX_ITERATIONS",
	"FAILURE_THRESHOLD",
	"MAX_RETRY",
	"MAX_TURNS",
	"WORKSPACE_DIR",
	"DB_PATH",
	"RETENTION_COUNT",
	"REPO_DIR",
	"INACTIVITY_TIMEOUT",
	"VERBOSE",
	"NOTIFY_WEBHOOK",
}

// Config holds every configuration field for the module-loop CLI.
type Config struct {
	// Agent CLI selection.
	AIProvider string

	// Per-phase model fallback chains, comma separated in files.
	RequirementModels []string
	PlanningModels    []string
	BuildingModels    []string
	ResearchModels    []string

	// Iteration limits.
	MaxIterations    int
	FailureThreshold int
	MaxRetry         int
	MaxTurns         int

	// Timeouts.
	InactivityTimeout int

	// Paths.
	WorkspaceDir string
	DBPath       string
	RepoDir      string

	// Session retention for prune.
	RetentionCount int

	// Runtime flags.
	Verbose bool

	// Notification settings.
	NotifyWebhook string

	// CLI-only flags (not loaded from config files).
	ConfigFile string
	SessionID  string
	UserPrompt string
}

// NewDefaultConfig returns a Config populated with all built-in
// default values.
func NewDefaultConfig() *Config {
	return &Config{
		AIProvider:        "claude",
		MaxIterations:     orchestrator.DefaultMaxIterations,
		FailureThreshold:  guardrail.DefaultFailureThreshold,
		MaxRetry:          10,
		MaxTurns:          100,
		InactivityTimeout: 1800,
		WorkspaceDir:      ".module-loop",
		DBPath:            ".module-loop/sessions.db",
		RetentionCount:    10,
	}
}

// ModelChains resolves the per-phase fallback chains, falling back to
// the built-in defaults for any phase left unconfigured.
func (c *Config) ModelChains() map[workflow.Phase][]string {
	chains := model.DefaultChains()
	if len(c.RequirementModels) > 0 {
		chains[workflow.PhaseRequirementGathering] = c.RequirementModels
	}
	if len(c.PlanningModels) > 0 {
		chains[workflow.PhasePlanning] = c.PlanningModels
	}
	if len(c.BuildingModels) > 0 {
		chains[workflow.PhaseBuilding] = c.BuildingModels
	}
	if len(c.ResearchModels) > 0 {
		chains[workflow.PhaseResearch] = c.ResearchModels
	}
	return chains
}
