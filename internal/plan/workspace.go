// Package plan manages the on-disk artifacts a module accumulates as it
// moves through the workflow: the drafted specification, the plan
// checklist, the approval marker, and per-iteration output captures.
//
// The plan checklist doubles as the Repeat predicate's input: a module
// has components remaining while its plan still contains unchecked
// Markdown checkboxes.
package plan

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// minSpecBytes is the smallest specification considered non-trivial.
// Anything shorter is treated as a placeholder, not a reviewable draft.
const minSpecBytes = 64

// uncheckedRE matches a Markdown checkbox that has NOT been ticked.
// Allows leading whitespace: "  - [ ] some task"
var uncheckedRE = regexp.MustCompile(`^\s*- \[ \]`)

// checkedRE matches a ticked Markdown checkbox (x or X).
var checkedRE = regexp.MustCompile(`^\s*- \[[xX]\]`)

// Workspace roots all module artifacts under one directory
// (conventionally .module-loop in the working project).
type Workspace struct {
	Root string
}

// NewWorkspace creates a workspace rooted at root.
func NewWorkspace(root string) *Workspace {
	return &Workspace{Root: root}
}

// ModuleDir returns the artifact directory for module.
func (w *Workspace) ModuleDir(module string) string {
	return filepath.Join(w.Root, module)
}

// SpecPath returns the path of module's drafted specification.
func (w *Workspace) SpecPath(module string) string {
	return filepath.Join(w.ModuleDir(module), "specification.md")
}

// PlanPath returns the path of module's plan checklist.
func (w *Workspace) PlanPath(module string) string {
	return filepath.Join(w.ModuleDir(module), "plan.md")
}

// ApprovalPath returns the path of module's specification approval
// marker. Its existence is the durable artifact approval is re-derived
// from after a process restart.
func (w *Workspace) ApprovalPath(module string) string {
	return filepath.Join(w.ModuleDir(module), "spec-approved")
}

// IterationOutputPath returns where the executor output of one
// iteration is captured.
func (w *Workspace) IterationOutputPath(module, sessionID string, iteration int) string {
	return filepath.Join(w.ModuleDir(module), sessionID, fmt.Sprintf("iteration-%03d.txt", iteration))
}

// EnsureModuleDir creates the artifact directory for module.
func (w *Workspace) EnsureModuleDir(module string) error {
	if err := os.MkdirAll(w.ModuleDir(module), 0755); err != nil {
		return fmt.Errorf("create module dir: %w", err)
	}
	return nil
}

// SpecificationReady reports whether module's specification exists and
// is non-trivial.
func (w *Workspace) SpecificationReady(module string) bool {
	data, err := os.ReadFile(w.SpecPath(module))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) >= minSpecBytes
}

// Approved reports whether module's approval marker exists.
func (w *Workspace) Approved(module string) bool {
	_, err := os.Stat(w.ApprovalPath(module))
	return err == nil
}

// Approve writes module's approval marker.
func (w *Workspace) Approve(module string) error {
	if err := w.EnsureModuleDir(module); err != nil {
		return err
	}
	if err := os.WriteFile(w.ApprovalPath(module), []byte("approved\n"), 0644); err != nil {
		return fmt.Errorf("write approval marker: %w", err)
	}
	return nil
}

// ComponentsRemaining reports whether module's plan still contains
// unchecked checklist items. A missing plan file counts as remaining
// work: the module cannot be complete before a plan exists.
func (w *Workspace) ComponentsRemaining(module string) (bool, error) {
	path := w.PlanPath(module)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return true, nil
	}
	unchecked, err := CountUnchecked(path)
	if err != nil {
		return false, err
	}
	return unchecked > 0, nil
}

// CountUnchecked returns the number of unchecked checklist lines in
// filePath (lines matching ^\s*- \[ \]).
func CountUnchecked(filePath string) (int, error) {
	return countMatches(filePath, uncheckedRE)
}

// CountChecked returns the number of ticked checklist lines in filePath.
func CountChecked(filePath string) (int, error) {
	return countMatches(filePath, checkedRE)
}

func countMatches(filePath string, re *regexp.Regexp) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if re.MatchString(scanner.Text()) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// HashFile returns the lowercase hexadecimal SHA-256 digest of the
// file's contents. Used to detect a plan changing underneath an
// interrupted session.
func HashFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// PlanHash hashes module's plan file, returning "" when no plan exists
// yet.
func (w *Workspace) PlanHash(module string) (string, error) {
	path := w.PlanPath(module)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}
	return HashFile(path)
}
