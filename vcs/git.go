package vcs

// This file contains the git collaborator used by the harness and the
// bisection search: revision resolution, dirty queries, checkout and
// commit enumeration, all shelled out to the git binary.

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// CheckoutError reports a checkout that git refused, typically an
// unresolved ref.
type CheckoutError struct {
	Revision string
	Dir      string
	Err      error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("failed to checkout %q in %s: %v", e.Revision, e.Dir, e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w (stderr: %s)", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(output)), nil
}

// IsRepository reports whether dir is inside a git working tree.
func IsRepository(dir string) bool {
	out, err := git(dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentRevision returns the resolved HEAD sha.
func CurrentRevision(dir string) (string, error) {
	commit, err := git(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get git commit: %w", err)
	}
	return commit, nil
}

// CurrentBranch returns the current branch name, or "HEAD" when detached.
func CurrentBranch(dir string) (string, error) {
	branch, err := git(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get git branch: %w", err)
	}
	return branch, nil
}

// IsDirty reports whether the working tree has uncommitted changes,
// including untracked files.
func IsDirty(dir string) (bool, error) {
	status, err := git(dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to get git status: %w", err)
	}
	return status != "", nil
}

// Checkout switches the working tree to the given revision.
func Checkout(dir, revision string) error {
	if _, err := git(dir, "checkout", "--quiet", revision); err != nil {
		return &CheckoutError{Revision: revision, Dir: dir, Err: err}
	}
	return nil
}

// RevList enumerates the revisions reachable from bad but not from good,
// oldest first. This is the candidate list bisection searches over: the
// first entry is the first commit after good, the last entry is bad.
func RevList(dir, good, bad string) ([]string, error) {
	out, err := git(dir, "rev-list", "--reverse", fmt.Sprintf("%s..%s", good, bad))
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate revisions %s..%s: %w", good, bad, err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// TopLevel returns the root of the working tree containing dir.
func TopLevel(dir string) (string, error) {
	root, err := git(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	return root, nil
}
