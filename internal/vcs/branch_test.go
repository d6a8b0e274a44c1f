package vcs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitProject(t *testing.T, head string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte(head), 0o644))
	return dir
}

func TestDetectBranch(t *testing.T) {
	dir := gitProject(t, "ref: refs/heads/feature/auth\n")

	branch, err := DetectBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "feature/auth", branch)
}

func TestDetectBranch_Detached(t *testing.T) {
	dir := gitProject(t, "4f2b9c1d8e7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c\n")

	branch, err := DetectBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "detached", branch)
}

func TestDetectBranch_NotARepo(t *testing.T) {
	_, err := DetectBranch(t.TempDir())
	require.ErrorIs(t, err, ErrNotRepository)
}

func TestDetectBranch_Worktree(t *testing.T) {
	real := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(real, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git"), []byte("gitdir: "+real+"\n"), 0o644))

	branch, err := DetectBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestBranchOrDefault(t *testing.T) {
	assert.Equal(t, DefaultBranch, BranchOrDefault(t.TempDir()))

	dir := gitProject(t, "ref: refs/heads/main\n")
	assert.Equal(t, "main", BranchOrDefault(dir))
}
