// Package exitcode defines named exit codes for the module-loop CLI.
//
// Each code maps a specific termination condition to a numeric value
// recognized by shell scripts and CI pipelines.
package exitcode

const (
	Success             = 0   // Workflow completed
	Error               = 1   // Invalid args, misconfiguration, structural failure
	MaxIterations       = 2   // Iteration limit reached
	GateApprovalPending = 3   // Specification awaiting human approval
	GuardrailTripped    = 4   // Consecutive-failure threshold reached
	SessionCorrupt      = 5   // Session record unreadable, quarantined
	AuthFailed          = 6   // Agent CLI missing or credentials invalid
	Interrupted         = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case MaxIterations:
		return "MaxIterations"
	case GateApprovalPending:
		return "GateApprovalPending"
	case GuardrailTripped:
		return "GuardrailTripped"
	case SessionCorrupt:
		return "SessionCorrupt"
	case AuthFailed:
		return "AuthFailed"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}
