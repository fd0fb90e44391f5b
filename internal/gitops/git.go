package gitops

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runner executes a git command in dir and returns its stdout. Tests
// substitute a fake so no git binary or network is needed.
type runner func(dir string, args ...string) (string, error)

func gitRunner(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// Repo is a local clone addressed by path
type Repo struct {
	Path string
	run  runner
}

// NewRepo returns a Repo backed by the git CLI
func NewRepo(path string) Repo {
	return Repo{Path: path, run: gitRunner}
}

// IsGitRepo reports whether the path holds a git work tree
func (r Repo) IsGitRepo() bool {
	info, err := os.Stat(filepath.Join(r.Path, ".git"))
	return err == nil && info.IsDir()
}

// DefaultBranch returns the branch origin/HEAD points at. When the
// symbolic ref is unset (clones made before the remote HEAD was fetched)
// the lookup errors and we fall back to "main".
func (r Repo) DefaultBranch() string {
	out, err := r.run(r.Path, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err != nil {
		return "main"
	}
	parts := strings.Split(strings.TrimSpace(out), "/")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return "main"
	}
	return parts[len(parts)-1]
}

// CurrentBranch returns the checked-out branch name
func (r Repo) CurrentBranch() (string, error) {
	out, err := r.run(r.Path, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// HasUncommittedChanges reports whether the work tree is dirty
func (r Repo) HasUncommittedChanges() (bool, error) {
	out, err := r.run(r.Path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Stash shelves uncommitted changes
func (r Repo) Stash() error {
	_, err := r.run(r.Path, "stash", "push", "-m", "orgsync")
	return err
}

// Unstash restores the most recently stashed changes
func (r Repo) Unstash() error {
	_, err := r.run(r.Path, "stash", "pop")
	return err
}

// SwitchBranch checks out the named branch
func (r Repo) SwitchBranch(branch string) error {
	_, err := r.run(r.Path, "switch", branch)
	return err
}

// Pull fast-forwards the current branch and reports whether HEAD moved
func (r Repo) Pull() (changed bool, err error) {
	headBefore, err := r.run(r.Path, "rev-parse", "HEAD")
	if err != nil {
		return false, err
	}
	if _, err := r.run(r.Path, "pull"); err != nil {
		return false, err
	}
	headAfter, err := r.run(r.Path, "rev-parse", "HEAD")
	if err != nil {
		return false, err
	}
	return headBefore != headAfter, nil
}

// Clone clones url into path, streaming git's output to out
func Clone(url, path string, out io.Writer) error {
	cmd := exec.Command("git", "clone", url, path)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}
