// Package gitops shells out to git for checkpoint tracking. Build
// iterations commit their own work; the loop only records where HEAD
// landed so a bad iteration can be rolled back.
package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Head returns the current commit sha of the repository at dir.
func Head(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RevertTo hard-resets the repository at dir to sha.
func RevertTo(ctx context.Context, dir string, sha string) error {
	if sha == "" {
		return fmt.Errorf("no checkpoint sha recorded")
	}
	cmd := exec.CommandContext(ctx, "git", "reset", "--hard", sha)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git reset --hard %s: %w: %s", sha, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// IsRepository reports whether dir is inside a git work tree.
func IsRepository(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}
