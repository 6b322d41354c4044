package notification

import "fmt"

// Event types reported when a run reaches a terminal or interrupted
// outcome.
const (
	EventCompleted     = "completed"
	EventMaxIterations = "max_iterations"
	EventGatePending   = "gate_pending"
	EventGuardrail     = "guardrail_tripped"
	EventInterrupted   = "interrupted"
	EventRateLimited   = "rate_limited"
)

// FormatEvent creates a notification message for the given event.
func FormatEvent(event string, module string, sessionID string, iteration int, exitCode int) string {
	switch event {
	case EventCompleted:
		return fmt.Sprintf("✅ %s [%s] workflow complete after %d iterations (exit %d)", module, sessionID, iteration, exitCode)
	case EventMaxIterations:
		return fmt.Sprintf("⚠️ %s [%s] reached max iterations (%d) (exit %d)", module, sessionID, iteration, exitCode)
	case EventGatePending:
		return fmt.Sprintf("📋 %s [%s] specification awaiting approval at iteration %d (exit %d)", module, sessionID, iteration, exitCode)
	case EventGuardrail:
		return fmt.Sprintf("🛑 %s [%s] stopped after repeated failures at iteration %d (exit %d)", module, sessionID, iteration, exitCode)
	case EventInterrupted:
		return fmt.Sprintf("⏸️ %s [%s] interrupted at iteration %d. Re-run to resume (exit %d)", module, sessionID, iteration, exitCode)
	case EventRateLimited:
		return fmt.Sprintf("⏳ %s [%s] rate limit hit at iteration %d - waiting for reset", module, sessionID, iteration)
	default:
		return fmt.Sprintf("ℹ️ %s [%s] event: %s (exit %d)", module, sessionID, event, exitCode)
	}
}
