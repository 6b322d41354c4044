package banner

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	defer func() { os.Stdout = old }()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	w.Close()
	os.Stdout = old
	return <-outC
}

func TestPrintStartupBanner(t *testing.T) {
	out := captureStdout(t, func() {
		PrintStartupBanner("fizzbuzz-20260830-1", "fizzbuzz", "claude", "planning", "determine_dependencies")
	})
	assert.Contains(t, out, "fizzbuzz-20260830-1")
	assert.Contains(t, out, "planning")
	assert.Contains(t, out, "determine_dependencies")
}

func TestPrintCompletionBanner(t *testing.T) {
	out := captureStdout(t, func() { PrintCompletionBanner(6, 95) })
	assert.Contains(t, out, "Iterations: 6")
	assert.Contains(t, out, "(95s)")
}

func TestPrintGatePendingBanner(t *testing.T) {
	out := captureStdout(t, func() { PrintGatePendingBanner("fizzbuzz", "modules/fizzbuzz/specification.md") })
	assert.Contains(t, out, "APPROVAL REQUIRED")
	assert.Contains(t, out, "approve fizzbuzz")
}

func TestPrintGuardrailBanner(t *testing.T) {
	out := captureStdout(t, func() { PrintGuardrailBanner("3 consecutive failed iterations") })
	assert.Contains(t, out, "GUARDRAIL TRIPPED")
	assert.Contains(t, out, "3 consecutive")
}

func TestPrintInterruptedBanner(t *testing.T) {
	out := captureStdout(t, func() { PrintInterruptedBanner("cancellation requested") })
	assert.Contains(t, out, "RUN INTERRUPTED")
	assert.Contains(t, out, "resume")
}

func TestPrintMaxIterationsBanner(t *testing.T) {
	out := captureStdout(t, func() { PrintMaxIterationsBanner(50) })
	assert.Contains(t, out, "MAX ITERATIONS")
	assert.Contains(t, out, "50")
}
