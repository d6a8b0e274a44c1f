// Package vcs detects version-control state for a project directory.
package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotRepository indicates the directory is not a git repository.
var ErrNotRepository = errors.New("not a git repository")

// DefaultBranch is used for projects without version control, keeping
// conversation identity stable for non-git directories.
const DefaultBranch = "default"

// DetectBranch reads .git/HEAD to determine the current branch. A
// detached HEAD reports "detached". Worktrees (where .git is a file
// pointing at the real git dir) are followed.
func DetectBranch(projectPath string) (string, error) {
	gitDir := filepath.Join(projectPath, ".git")

	info, err := os.Stat(gitDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotRepository, projectPath)
	}

	// Worktree: .git is a file containing "gitdir: <path>".
	if !info.IsDir() {
		content, readErr := os.ReadFile(gitDir)
		if readErr != nil {
			return "", fmt.Errorf("reading worktree pointer: %w", readErr)
		}
		line := strings.TrimSpace(string(content))
		if target, ok := strings.CutPrefix(line, "gitdir: "); ok {
			gitDir = target
			if !filepath.IsAbs(gitDir) {
				gitDir = filepath.Join(projectPath, gitDir)
			}
		}
	}

	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}

	ref := strings.TrimSpace(string(head))
	if branch, ok := strings.CutPrefix(ref, "ref: refs/heads/"); ok {
		return branch, nil
	}
	return "detached", nil
}

// BranchOrDefault detects the branch, falling back to DefaultBranch when
// the project is not under version control.
func BranchOrDefault(projectPath string) string {
	branch, err := DetectBranch(projectPath)
	if err != nil {
		return DefaultBranch
	}
	return branch
}
