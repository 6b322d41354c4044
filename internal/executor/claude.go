package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/CodexForgeBR/module-loop/internal/ratelimit"
)

// ClaudeRunner implements Runner for the Claude CLI.
type ClaudeRunner struct {
	Command           string // defaults to "claude"
	MaxTurns          int
	Verbose           bool
	InactivityTimeout int // seconds; 0 disables the inactivity check, the hard cap still applies
}

// BuildArgs constructs the argument list for one invocation.
func (r *ClaudeRunner) BuildArgs(req Request) []string {
	args := []string{
		"--print",
		"--dangerously-skip-permissions",
		"--output-format", "stream-json",
		"--model", req.Model,
		"--max-turns", fmt.Sprintf("%d", r.MaxTurns),
	}
	if r.Verbose {
		args = append(args, "--verbose")
	}
	args = append(args, "--prompt", req.Prompt)
	return args
}

// Run executes the CLI and writes its stream output to req.OutputPath.
// Output is scanned for rate limits regardless of exit status; a
// detected limit takes precedence over the command error.
//
// The subprocess is detached from the caller's cancellation: an
// in-flight step runs to completion so its output can be parsed and
// persisted, and the loop observes cancellation at the next iteration
// boundary. The output watchdog bounds the subprocess runtime.
func (r *ClaudeRunner) Run(ctx context.Context, req Request) error {
	command := r.Command
	if command == "" {
		command = "claude"
	}

	monCtx, monCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer monCancel()

	cmd := exec.CommandContext(monCtx, command, r.BuildArgs(req)...)

	outFile, err := os.Create(req.OutputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	cmd.Stdout = outFile
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		outFile.Close()
		return fmt.Errorf("%s command failed: %w", command, err)
	}

	go MonitorOutput(monCtx, monCancel, MonitorConfig{
		InactivityTimeout: r.InactivityTimeout,
		OutputPath:        req.OutputPath,
	})

	runErr := cmd.Wait()
	outFile.Close()

	if raw, readErr := os.ReadFile(req.OutputPath); readErr == nil {
		if info := ratelimit.Check(string(raw)); info != nil {
			return &RateLimitError{Info: info, UnderlyingErr: runErr}
		}
	}

	if runErr != nil {
		return fmt.Errorf("%s command failed: %w", command, runErr)
	}
	return nil
}
