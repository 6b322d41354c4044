// Package cli provides flag binding and validation for the module-loop
// CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/module-loop/internal/config"
	"github.com/CodexForgeBR/module-loop/internal/workflow"
)

// BindRunFlags registers the run/step command flags on cmd. The flags
// directly modify fields in the provided config pointer; values from
// config files are applied first, so a flag left at its default does
// not clobber a file-provided value.
func BindRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	flags.StringVar(&cfg.AIProvider, "ai", "", "Agent CLI to use")
	flags.StringVar(&cfg.SessionID, "session", "", "Explicit session id to resume")
	flags.StringVarP(&cfg.UserPrompt, "prompt", "p", "", "User request folded into the specification step")

	flags.IntVar(&cfg.MaxIterations, "max-iterations", 0, "Maximum executor iterations per run")
	flags.IntVar(&cfg.FailureThreshold, "failure-threshold", 0, "Consecutive failures before the guardrail stops the loop")
	flags.IntVar(&cfg.MaxRetry, "max-retry", 0, "Max retries per agent invocation")
	flags.IntVar(&cfg.MaxTurns, "max-turns", 0, "Max agent turns per invocation")

	flags.StringVar(&cfg.WorkspaceDir, "workspace", "", "Module artifact directory")
	flags.StringVar(&cfg.DBPath, "db", "", "Session database path")
	flags.StringVar(&cfg.RepoDir, "repo", "", "Git repository for build checkpoints")
	flags.StringVar(&cfg.ConfigFile, "config", "", "Path to additional config file")

	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Pass verbose flag to the agent CLI")
	flags.StringVar(&cfg.NotifyWebhook, "notify-webhook", "", "Webhook URL for terminal-outcome notifications")
}

// Overrides converts the flags the user actually set into the override
// map consumed by config.LoadWithPrecedence, preserving the precedence
// chain: only changed flags beat file values.
func Overrides(cmd *cobra.Command, cfg *config.Config) map[string]string {
	m := make(map[string]string)
	set := func(flag, key, value string) {
		if cmd.Flags().Changed(flag) {
			m[key] = value
		}
	}
	set("ai", "AI_CLI", cfg.AIProvider)
	set("max-iterations", "MAX_ITERATIONS", fmt.Sprintf("%d", cfg.MaxIterations))
	set("failure-threshold", "FAILURE_THRESHOLD", fmt.Sprintf("%d", cfg.FailureThreshold))
	set("max-retry", "MAX_RETRY", fmt.Sprintf("%d", cfg.MaxRetry))
	set("max-turns", "MAX_TURNS", fmt.Sprintf("%d", cfg.MaxTurns))
	set("workspace", "WORKSPACE_DIR", cfg.WorkspaceDir)
	set("db", "DB_PATH", cfg.DBPath)
	set("repo", "REPO_DIR", cfg.RepoDir)
	set("notify-webhook", "NOTIFY_WEBHOOK", cfg.NotifyWebhook)
	if cmd.Flags().Changed("verbose") {
		m["VERBOSE"] = fmt.Sprintf("%t", cfg.Verbose)
	}
	return m
}

// ValidateFlags checks flag values after parsing. Must be called after
// cmd.Execute() or cmd.ParseFlags().
func ValidateFlags(cfg *config.Config) error {
	if cfg.ConfigFile != "" {
		if _, err := os.Stat(cfg.ConfigFile); err != nil {
			return fmt.Errorf("--config: %w", err)
		}
	}
	if cfg.MaxIterations < 0 {
		return fmt.Errorf("--max-iterations must be positive")
	}
	if cfg.FailureThreshold < 0 {
		return fmt.Errorf("--failure-threshold must be positive")
	}
	return nil
}

// ParsePhaseArg maps the run subject argument to a bounding phase.
// "spec", "plan", and "build" bound the run; "all" (or empty) runs to
// completion.
func ParsePhaseArg(arg string) (workflow.Phase, error) {
	switch arg {
	case "spec":
		return workflow.PhaseRequirementGathering, nil
	case "plan":
		return workflow.PhasePlanning, nil
	case "build", "all", "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown run target %q (want spec, plan, build, or all)", arg)
	}
}
