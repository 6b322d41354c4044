// Package banner provides colored banner display functions for the
// module-loop CLI. All banner functions write formatted output to
// stdout with color-coded headers and separators.
package banner

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/CodexForgeBR/module-loop/internal/logging"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

const sepLine = "═══════════════════════════════════════════════════"

// PrintStartupBanner displays the startup banner with session info.
func PrintStartupBanner(sessionID string, module string, ai string, phase string, step string) {
	sep := headerColor(sepLine)
	fmt.Println(sep)
	fmt.Println(headerColor("  module-loop - Agentic Workflow Driver"))
	fmt.Println(sep)
	fmt.Printf("  Session:    %s\n", sessionID)
	fmt.Printf("  Module:     %s\n", module)
	fmt.Printf("  AI:         %s\n", ai)
	fmt.Printf("  Phase:      %s\n", phase)
	fmt.Printf("  Step:       %s\n", step)
	fmt.Println(sep)
}

// PrintCompletionBanner displays the completion banner with stats.
func PrintCompletionBanner(iterations int, durationSecs int) {
	sep := successColor(sepLine)
	fmt.Println(sep)
	fmt.Println(successColor("  ✓ Module workflow complete!"))
	fmt.Printf("  Iterations: %d\n", iterations)
	fmt.Printf("  Duration:   %s (%ds)\n", logging.FormatDuration(durationSecs), durationSecs)
	fmt.Println(sep)
}

// PrintGatePendingBanner displays the approval-pending banner.
func PrintGatePendingBanner(module string, specPath string) {
	sep := warnColor(sepLine)
	fmt.Println(sep)
	fmt.Println(warnColor("  ⏸ SPECIFICATION APPROVAL REQUIRED"))
	fmt.Println(sep)
	fmt.Printf("  Review:     %s\n", specPath)
	fmt.Printf("  Approve:    module-loop approve %s\n", module)
	fmt.Println(sep)
}

// PrintGuardrailBanner displays the repeated-failure banner.
func PrintGuardrailBanner(reason string) {
	sep := errorColor(sepLine)
	fmt.Println(sep)
	fmt.Println(errorColor("  ✗ GUARDRAIL TRIPPED"))
	fmt.Println(sep)
	fmt.Println("  Reason:")
	fmt.Printf("  %s\n", reason)
	fmt.Println(sep)
}

// PrintInterruptedBanner displays the interruption banner.
func PrintInterruptedBanner(reason string) {
	sep := warnColor(sepLine)
	fmt.Println(sep)
	fmt.Println(warnColor("  ⏸ RUN INTERRUPTED"))
	fmt.Printf("  Reason:     %s\n", reason)
	fmt.Println("  Re-run the same command to resume.")
	fmt.Println(sep)
}

// PrintMaxIterationsBanner displays the iteration-limit banner.
func PrintMaxIterationsBanner(maxIterations int) {
	sep := warnColor(sepLine)
	fmt.Println(sep)
	fmt.Println(warnColor("  ⚠ MAX ITERATIONS REACHED"))
	fmt.Printf("  Limit:      %d\n", maxIterations)
	fmt.Println("  Re-run to continue, or raise --max-iterations.")
	fmt.Println(sep)
}
