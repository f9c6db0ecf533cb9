package utils

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitStatus inspects the git working tree that contains a directory.
type GitStatus struct {
	workingDir string
}

// NewGitStatus creates a new GitStatus instance
func NewGitStatus(workingDir string) *GitStatus {
	return &GitStatus{workingDir: workingDir}
}

// CheckGitRepo checks if the working directory is inside a git repository
func (g *GitStatus) CheckGitRepo(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = g.workingDir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository")
	}
	return nil
}

// ChangedFiles returns the porcelain status lines for paths under the
// working directory.
func (g *GitStatus) ChangedFiles(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--", ".")
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get git status: %w", err)
	}

	var changed []string
	for _, line := range strings.Split(string(output), "\n") {
		if strings.TrimSpace(line) != "" {
			changed = append(changed, line)
		}
	}
	return changed, nil
}

// HasUncommittedChanges checks if there are uncommitted changes under the
// working directory. Outside a repository it reports false.
func (g *GitStatus) HasUncommittedChanges(ctx context.Context) (bool, error) {
	if err := g.CheckGitRepo(ctx); err != nil {
		return false, nil
	}
	changed, err := g.ChangedFiles(ctx)
	if err != nil {
		return false, err
	}
	return len(changed) > 0, nil
}
