package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/CodexForgeBR/module-loop/internal/activity"
	"github.com/CodexForgeBR/module-loop/internal/banner"
	"github.com/CodexForgeBR/module-loop/internal/cli"
	"github.com/CodexForgeBR/module-loop/internal/config"
	"github.com/CodexForgeBR/module-loop/internal/executor"
	"github.com/CodexForgeBR/module-loop/internal/exitcode"
	"github.com/CodexForgeBR/module-loop/internal/gate"
	"github.com/CodexForgeBR/module-loop/internal/gitops"
	"github.com/CodexForgeBR/module-loop/internal/guardrail"
	"github.com/CodexForgeBR/module-loop/internal/logging"
	"github.com/CodexForgeBR/module-loop/internal/model"
	"github.com/CodexForgeBR/module-loop/internal/notification"
	"github.com/CodexForgeBR/module-loop/internal/orchestrator"
	"github.com/CodexForgeBR/module-loop/internal/plan"
	"github.com/CodexForgeBR/module-loop/internal/ratelimit"
	"github.com/CodexForgeBR/module-loop/internal/session"
	sighandler "github.com/CodexForgeBR/module-loop/internal/signal"
	"github.com/CodexForgeBR/module-loop/internal/storage"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cfg := config.NewDefaultConfig()

	rootCmd := &cobra.Command{
		Use:     "module-loop",
		Short:   "Agentic workflow driver for spec-first module development",
		Long:    "module-loop drives a module from specification through planning to built code via a resumable phase/step workflow.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(cfg),
		newStepCmd(cfg),
		newApproveCmd(cfg),
		newRevertCmd(cfg),
		newSessionsCmd(cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.Error)
	}
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <module> [spec|plan|build|all]",
		Short: "Drive a module's workflow until completion or interruption",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) > 1 {
				target = args[1]
			}
			return runLoop(cmd, cfg, args[0], target)
		},
	}
	cli.BindRunFlags(cmd, cfg)
	return cmd
}

func newStepCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step <module>",
		Short: "Execute exactly one workflow iteration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingleStep(cmd, cfg, args[0])
		},
	}
	cli.BindRunFlags(cmd, cfg)
	return cmd
}

func newApproveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <module>",
		Short: "Approve a drafted specification so planning can begin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := resolveConfig(cmd, cfg)
			if err != nil {
				return err
			}
			ws := plan.NewWorkspace(loaded.WorkspaceDir)
			if err := gate.NewController(ws).ApproveSpecification(args[0]); err != nil {
				return err
			}
			logging.Success("Specification for %s approved", args[0])
			return nil
		},
	}
	cli.BindRunFlags(cmd, cfg)
	return cmd
}

func newRevertCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revert <module>",
		Short: "Reset the repository to the last task-completion checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevert(cmd, cfg, args[0])
		},
	}
	cli.BindRunFlags(cmd, cfg)
	return cmd
}

func newSessionsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage persisted sessions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all known sessions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, cfg, func(ctx context.Context, loaded *config.Config, mgr *session.Manager) error {
				ids, err := mgr.List(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					st, err := mgr.Store().LoadState(ctx, id)
					if err != nil {
						logging.Warn("%s: %v", id, err)
						continue
					}
					status := "in progress"
					if st.IsComplete {
						status = "complete"
					}
					fmt.Printf("%-30s %-12s %-22s %s\n", id, st.Phase, st.Step, status)
				}
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's state and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, cfg, func(ctx context.Context, loaded *config.Config, mgr *session.Manager) error {
				id, err := session.ParseID(args[0])
				if err != nil {
					return err
				}
				st, err := mgr.Store().LoadState(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("Session:    %s\n", st.ID)
				fmt.Printf("Module:     %s\n", st.Module)
				fmt.Printf("Phase:      %s\n", st.Phase)
				fmt.Printf("Step:       %s\n", st.Step)
				fmt.Printf("Complete:   %t\n", st.IsComplete)
				fmt.Printf("Created:    %s\n", st.CreatedAt.Format(time.RFC3339))
				fmt.Printf("Updated:    %s\n", st.UpdatedAt.Format(time.RFC3339))
				if st.LastTaskCompletionCommitSha != "" {
					fmt.Printf("Checkpoint: %s\n", st.LastTaskCompletionCommitSha)
				}
				m, err := mgr.Store().LoadMetrics(ctx, id)
				if err == nil {
					fmt.Printf("Iterations: %d\n", m.Iterations)
					fmt.Printf("Tokens:     %d in / %d out\n", m.InputTokens, m.OutputTokens)
					fmt.Printf("Premium:    %d requests\n", m.PremiumRequests)
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session outright",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, cfg, func(ctx context.Context, loaded *config.Config, mgr *session.Manager) error {
				id, err := session.ParseID(args[0])
				if err != nil {
					return err
				}
				if err := mgr.Delete(ctx, id); err != nil {
					return err
				}
				logging.Success("Deleted session %s", id)
				return nil
			})
		},
	}

	var retain int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest completed sessions beyond the retention count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, cfg, func(ctx context.Context, loaded *config.Config, mgr *session.Manager) error {
				keep := retain
				if keep <= 0 {
					keep = loaded.RetentionCount
				}
				removed, err := mgr.Prune(ctx, keep)
				if err != nil {
					return err
				}
				logging.Info("Pruned %d session(s), retaining up to %d completed", removed, keep)
				return nil
			})
		},
	}
	prune.Flags().IntVar(&retain, "retain", 0, "Completed sessions to keep")

	for _, sub := range []*cobra.Command{list, show, del, prune} {
		cli.BindRunFlags(sub, cfg)
		cmd.AddCommand(sub)
	}
	return cmd
}

// resolveConfig merges config sources in precedence order, layering
// changed CLI flags over file values.
func resolveConfig(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	if err := cli.ValidateFlags(cfg); err != nil {
		return nil, err
	}

	home, _ := os.UserHomeDir()
	globalPath := ""
	if home != "" {
		globalPath = home + "/.module-loop/config"
	}

	loaded, err := config.LoadWithPrecedence(globalPath, ".module-loop/config", cfg.ConfigFile, cli.Overrides(cmd, cfg))
	if err != nil {
		return nil, err
	}
	loaded.ConfigFile = cfg.ConfigFile
	loaded.SessionID = cfg.SessionID
	loaded.UserPrompt = cfg.UserPrompt
	logging.SetVerbose(loaded.Verbose)
	return loaded, nil
}

func withManager(cmd *cobra.Command, cfg *config.Config, fn func(context.Context, *config.Config, *session.Manager) error) error {
	loaded, err := resolveConfig(cmd, cfg)
	if err != nil {
		return err
	}
	store, err := storage.Open(loaded.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmd.Context(), loaded, session.NewManager(store))
}

// loop bundles everything a run needs once config is resolved.
type loop struct {
	cfg   *config.Config
	store *storage.SQLiteStore
	mgr   *session.Manager
	ws    *plan.Workspace
	orch  *orchestrator.Orchestrator
}

func buildLoop(cmd *cobra.Command, cfg *config.Config) (*loop, error) {
	loaded, err := resolveConfig(cmd, cfg)
	if err != nil {
		return nil, err
	}

	avail := executor.CheckAvailability(loaded.AIProvider)
	if !avail[loaded.AIProvider] {
		return nil, &authError{tool: loaded.AIProvider}
	}

	store, err := storage.Open(loaded.DBPath)
	if err != nil {
		return nil, err
	}

	ws := plan.NewWorkspace(loaded.WorkspaceDir)
	runner := &executor.RetryRunner{
		Inner: &executor.ClaudeRunner{
			Command:           loaded.AIProvider,
			MaxTurns:          loaded.MaxTurns,
			Verbose:           loaded.Verbose,
			InactivityTimeout: loaded.InactivityTimeout,
		},
		RetryCfg: executor.RetryConfig{
			MaxRetries: loaded.MaxRetry,
			BaseDelay:  5,
			OnRetry: func(attempt, delay int) {
				logging.Warn("Agent call failed (attempt %d), retrying in %ds", attempt+1, delay)
			},
			OnRateLimit: func(info *ratelimit.Info) {
				if info != nil && info.Parseable {
					logging.Warn("Rate limited, waiting until %s", info.ResetHuman)
				} else {
					logging.Warn("Rate limited, waiting for reset")
				}
			},
		},
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Sessions:      session.NewManager(store),
		Workspace:     ws,
		Gate:          gate.NewController(ws),
		Guardrail:     guardrail.New(loaded.FailureThreshold),
		Selector:      model.NewSelector(loaded.ModelChains(), nil),
		Runner:        runner,
		RepoDir:       loaded.RepoDir,
		MaxIterations: loaded.MaxIterations,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &loop{cfg: loaded, store: store, mgr: session.NewManager(store), ws: ws, orch: orch}, nil
}

func runLoop(cmd *cobra.Command, cfg *config.Config, module, target string) error {
	untilPhase, err := cli.ParsePhaseArg(target)
	if err != nil {
		return err
	}

	l, err := buildLoop(cmd, cfg)
	if err != nil {
		var aerr *authError
		if errors.As(err, &aerr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitcode.AuthFailed)
		}
		return err
	}
	defer l.store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sighandler.SetupSignalHandler(ctx, cancel, func() {
		logging.Warn("Interrupted, finishing the in-flight step before stopping...")
	})

	st, _, err := l.mgr.Resolve(ctx, module, l.cfg.SessionID)
	if err != nil {
		var corrupt *session.CorruptError
		if errors.As(err, &corrupt) {
			logging.Error("Session corrupt: %v", err)
			os.Exit(exitcode.SessionCorrupt)
		}
		return err
	}
	banner.PrintStartupBanner(st.ID.String(), module, l.cfg.AIProvider, st.Phase.String(), st.Step.String())

	started := time.Now()
	var result orchestrator.Result

	// The loop runs in the background while the foreground polls the
	// activity log once a second.
	g, gctx := errgroup.WithContext(context.Background())
	runDone := make(chan struct{})

	g.Go(func() error {
		defer close(runDone)
		var runErr error
		result, runErr = l.orch.Run(ctx, module, orchestrator.RunOptions{
			SessionID:  l.cfg.SessionID,
			UserPrompt: l.cfg.UserPrompt,
			UntilPhase: untilPhase,
		})
		return runErr
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		cursor := 0
		flush := func() {
			var entries []activity.Entry
			entries, cursor = l.orch.Activity().Since(cursor)
			for _, e := range entries {
				logging.Step("[%s/%s] %s", e.Phase, e.Step, e.Message)
			}
		}
		for {
			select {
			case <-runDone:
				flush()
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				flush()
			}
		}
	})

	if err := g.Wait(); err != nil {
		var corrupt *session.CorruptError
		if errors.As(err, &corrupt) {
			logging.Error("Session corrupt: %v", err)
			os.Exit(exitcode.SessionCorrupt)
		}
		return err
	}

	code := reportResult(l, module, result, int(time.Since(started).Seconds()))
	os.Exit(code)
	return nil // unreachable
}

// authError blocks orchestration entirely: the agent CLI is missing or
// unusable. Mapped to the AuthFailed exit code.
type authError struct {
	tool string
}

func (e *authError) Error() string {
	return fmt.Sprintf("agent CLI %q not found in PATH", e.tool)
}

// reportResult prints the outcome banner, fires the webhook, and maps
// the result to an exit code.
func reportResult(l *loop, module string, result orchestrator.Result, durationSecs int) int {
	sessionID := latestSessionLabel(l)

	switch r := result.(type) {
	case orchestrator.Completed:
		banner.PrintCompletionBanner(r.Iterations, durationSecs)
		notification.SendNotification(l.cfg.NotifyWebhook,
			notification.FormatEvent(notification.EventCompleted, module, sessionID, r.Iterations, exitcode.Success))
		return exitcode.Success

	case orchestrator.Interrupted:
		switch r.Kind {
		case orchestrator.InterruptGatePending:
			banner.PrintGatePendingBanner(module, l.ws.SpecPath(module))
			notification.SendNotification(l.cfg.NotifyWebhook,
				notification.FormatEvent(notification.EventGatePending, module, sessionID, r.Iterations, exitcode.GateApprovalPending))
			return exitcode.GateApprovalPending
		case orchestrator.InterruptGuardrail:
			banner.PrintGuardrailBanner(r.Reason)
			notification.SendNotification(l.cfg.NotifyWebhook,
				notification.FormatEvent(notification.EventGuardrail, module, sessionID, r.Iterations, exitcode.GuardrailTripped))
			return exitcode.GuardrailTripped
		case orchestrator.InterruptMaxIterations:
			banner.PrintMaxIterationsBanner(l.cfg.MaxIterations)
			notification.SendNotification(l.cfg.NotifyWebhook,
				notification.FormatEvent(notification.EventMaxIterations, module, sessionID, r.Iterations, exitcode.MaxIterations))
			return exitcode.MaxIterations
		case orchestrator.InterruptPhaseComplete:
			logging.Success("%s", r.Reason)
			return exitcode.Success
		default:
			banner.PrintInterruptedBanner(r.Reason)
			notification.SendNotification(l.cfg.NotifyWebhook,
				notification.FormatEvent(notification.EventInterrupted, module, sessionID, r.Iterations, exitcode.Interrupted))
			return exitcode.Interrupted
		}
	}
	return exitcode.Error
}

func latestSessionLabel(l *loop) string {
	id, ok, err := l.store.Latest(context.Background())
	if err != nil || !ok {
		return "-"
	}
	return id.String()
}

func runSingleStep(cmd *cobra.Command, cfg *config.Config, module string) error {
	l, err := buildLoop(cmd, cfg)
	if err != nil {
		var aerr *authError
		if errors.As(err, &aerr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitcode.AuthFailed)
		}
		return err
	}
	defer l.store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sighandler.SetupSignalHandler(ctx, cancel, nil)

	res, err := l.orch.RunStep(ctx, module, orchestrator.RunOptions{
		SessionID:  l.cfg.SessionID,
		UserPrompt: l.cfg.UserPrompt,
	})
	if err != nil {
		return err
	}

	switch r := res.(type) {
	case orchestrator.StepSucceeded:
		logging.Success("Step succeeded (%s): %s", r.Trigger, r.Summary)
	case orchestrator.StepFailed:
		logging.Error("Step failed: %s", r.Reason)
		os.Exit(exitcode.Error)
	case orchestrator.StepInterrupted:
		logging.Warn("Step interrupted: %s", r.Reason)
		if r.Kind == orchestrator.InterruptGatePending {
			os.Exit(exitcode.GateApprovalPending)
		}
		os.Exit(exitcode.Interrupted)
	}
	return nil
}

func runRevert(cmd *cobra.Command, cfg *config.Config, module string) error {
	loaded, err := resolveConfig(cmd, cfg)
	if err != nil {
		return err
	}
	store, err := storage.Open(loaded.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	mgr := session.NewManager(store)
	st, _, err := mgr.Resolve(ctx, module, loaded.SessionID)
	if err != nil {
		return err
	}
	if st.LastTaskCompletionCommitSha == "" {
		return fmt.Errorf("no checkpoint recorded for %s", module)
	}

	repo := loaded.RepoDir
	if repo == "" {
		repo = "."
	}
	if err := gitops.RevertTo(ctx, repo, st.LastTaskCompletionCommitSha); err != nil {
		return err
	}
	st.LastTaskCompletionCommitSha = ""
	st.UpdatedAt = time.Now().UTC()
	if err := mgr.Store().SaveState(ctx, st); err != nil {
		return err
	}
	logging.Success("Reverted %s to checkpoint", module)
	return nil
}
