package utils

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
}

func TestGitStatus_OutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	status := NewGitStatus(dir)

	assert.Error(t, status.CheckGitRepo(context.Background()))
	dirty, err := status.HasUncommittedChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestGitStatus_DetectsUncommittedChanges(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")

	status := NewGitStatus(dir)
	require.NoError(t, status.CheckGitRepo(context.Background()))

	dirty, err := status.HasUncommittedChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.php"), []byte("<?php"), 0644))

	changed, err := status.ChangedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"?? index.php"}, changed)

	dirty, err = status.HasUncommittedChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, dirty)
}
