// Package logging provides colored, leveled log output for the
// module-loop CLI.
//
// All output functions write a prefixed, color-coded line. Debug output
// is suppressed unless verbose mode is enabled via SetVerbose(true).
package logging

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// verbose controls whether Debug() produces output.
var verbose bool

// Color printers for each log level.
var (
	infoPrefix    = color.New(color.FgBlue).SprintFunc()
	successPrefix = color.New(color.FgGreen).SprintFunc()
	warnPrefix    = color.New(color.FgYellow).SprintFunc()
	errorPrefix   = color.New(color.FgRed).SprintFunc()
	stepPrefix    = color.New(color.FgCyan).SprintFunc()
	debugPrefix   = color.New(color.FgBlue).SprintFunc()
)

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	verbose = v
}

// Info prints an informational message to stdout in blue.
func Info(format string, args ...interface{}) {
	fmt.Println(infoPrefix("[INFO]") + " " + fmt.Sprintf(format, args...))
}

// Success prints a success message to stdout in green.
func Success(format string, args ...interface{}) {
	fmt.Println(successPrefix("[SUCCESS]") + " " + fmt.Sprintf(format, args...))
}

// Warn prints a warning message to stdout in yellow.
func Warn(format string, args ...interface{}) {
	fmt.Println(warnPrefix("[WARN]") + " " + fmt.Sprintf(format, args...))
}

// Error prints an error message to stderr in red.
func Error(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorPrefix("[ERROR]")+" "+fmt.Sprintf(format, args...))
}

// Step prints a workflow step header to stdout in cyan, surrounded by
// separator lines.
func Step(format string, args ...interface{}) {
	sep := stepPrefix("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println(sep)
	fmt.Println(stepPrefix("[STEP]") + " " + fmt.Sprintf(format, args...))
	fmt.Println(sep)
}

// Debug prints a debug message to stdout in blue, only when verbose mode
// is enabled.
func Debug(format string, args ...interface{}) {
	if !verbose {
		return
	}
	fmt.Println(debugPrefix("[DEBUG]") + " " + fmt.Sprintf(format, args...))
}

// FormatDuration converts a duration in seconds to a human-readable
// string: "45s", "1m 30s", "1h 1m 1s".
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		m := seconds / 60
		s := seconds % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
