package gitops

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kurihiro0119/orgsync/internal/domain"
)

func cleanOnDefault() *fakeGit {
	f := newFakeGit()
	f.out["symbolic-ref refs/remotes/origin/HEAD"] = []string{"refs/remotes/origin/main\n"}
	f.out["branch --show-current"] = []string{"main\n"}
	f.out["status --porcelain"] = []string{""}
	f.out["rev-parse HEAD"] = []string{"aaa\n"}
	return f
}

func dirtyOnFeature() *fakeGit {
	f := newFakeGit()
	f.out["symbolic-ref refs/remotes/origin/HEAD"] = []string{"refs/remotes/origin/main\n"}
	f.out["branch --show-current"] = []string{"feature-x\n"}
	f.out["status --porcelain"] = []string{" M main.go\n"}
	f.out["rev-parse HEAD"] = []string{"aaa\n", "bbb\n"}
	return f
}

func TestUpdateCleanOnDefault(t *testing.T) {
	f := cleanOnDefault()

	outcome := f.repo("/r").Update()
	if outcome.State != domain.StatePulled {
		t.Errorf("state: got %q, want %q", outcome.State, domain.StatePulled)
	}
	if outcome.Changed {
		t.Error("expected no change for an up-to-date clone")
	}
	if f.called("stash push -m orgsync") {
		t.Error("stash issued on a clean work tree")
	}
	if f.called("switch main") {
		t.Error("switch issued while already on the default branch")
	}
}

func TestUpdateDirtyOnFeatureRestoresState(t *testing.T) {
	f := dirtyOnFeature()

	outcome := f.repo("/r").Update()
	if outcome.State != domain.StateRestored {
		t.Fatalf("state: got %q, want %q", outcome.State, domain.StateRestored)
	}
	if !outcome.Changed {
		t.Error("expected change after HEAD moved")
	}

	want := []string{
		"symbolic-ref refs/remotes/origin/HEAD",
		"branch --show-current",
		"status --porcelain",
		"stash push -m orgsync",
		"switch main",
		"rev-parse HEAD",
		"pull",
		"rev-parse HEAD",
		"switch feature-x",
		"stash pop",
	}
	if !reflect.DeepEqual(f.log, want) {
		t.Errorf("command sequence:\n got %v\nwant %v", f.log, want)
	}
}

func TestUpdatePullFailureReportsStep(t *testing.T) {
	f := dirtyOnFeature()
	f.errs["pull"] = errors.New("could not resolve host")

	outcome := f.repo("/r").Update()
	if outcome.State != domain.StateFailed {
		t.Fatalf("state: got %q, want %q", outcome.State, domain.StateFailed)
	}
	if outcome.FailedStep != StepPull {
		t.Errorf("failed step: got %q, want %q", outcome.FailedStep, StepPull)
	}
	// No rollback: the stash must not be popped after a pull failure,
	// the clone is left for manual recovery.
	if f.called("stash pop") {
		t.Error("stash pop issued after pull failure")
	}
}

func TestUpdatePopFailureReportsStep(t *testing.T) {
	f := dirtyOnFeature()
	f.errs["stash pop"] = errors.New("merge conflict in main.go")

	outcome := f.repo("/r").Update()
	if outcome.State != domain.StateFailed {
		t.Fatalf("state: got %q, want %q", outcome.State, domain.StateFailed)
	}
	if outcome.FailedStep != StepPop {
		t.Errorf("failed step: got %q, want %q", outcome.FailedStep, StepPop)
	}
}

func TestSyncClonesMissingRepos(t *testing.T) {
	dir := t.TempDir()
	var cloned []string

	s := NewSyncer(io.Discard)
	s.cloneFn = func(url, path string, out io.Writer) error {
		cloned = append(cloned, url)
		return os.MkdirAll(filepath.Join(path, ".git"), 0o755)
	}

	repos := map[string]string{"A": "git@github.com:acme/A.git"}
	paths := map[string]string{"A": filepath.Join(dir, "acme", "A")}

	result := s.Sync(repos, paths)
	if result.Cloned != 1 {
		t.Errorf("cloned: got %d, want 1", result.Cloned)
	}
	if len(cloned) != 1 || cloned[0] != "git@github.com:acme/A.git" {
		t.Errorf("clone urls: got %v", cloned)
	}
	if len(result.Repos) != 1 || result.Repos[0].Action != domain.ActionClone {
		t.Errorf("repo results: got %+v", result.Repos)
	}
}

func TestSyncFailureDoesNotBlockNextRepo(t *testing.T) {
	dir := t.TempDir()

	// A's clone fails; B's must still run.
	s := NewSyncer(io.Discard)
	s.cloneFn = func(url, path string, out io.Writer) error {
		if filepath.Base(path) == "A" {
			return errors.New("permission denied")
		}
		return os.MkdirAll(filepath.Join(path, ".git"), 0o755)
	}

	repos := map[string]string{
		"A": "git@github.com:acme/A.git",
		"B": "git@github.com:acme/B.git",
	}
	paths := map[string]string{
		"A": filepath.Join(dir, "acme", "A"),
		"B": filepath.Join(dir, "acme", "B"),
	}

	result := s.Sync(repos, paths)
	if result.Failed != 1 {
		t.Errorf("failed: got %d, want 1", result.Failed)
	}
	if result.Cloned != 1 {
		t.Errorf("cloned: got %d, want 1", result.Cloned)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings: got %v", result.Warnings)
	}

	// Name order: A before B.
	if result.Repos[0].Repo != "A" || result.Repos[0].State != domain.StateFailed {
		t.Errorf("first result: %+v", result.Repos[0])
	}
	if result.Repos[0].FailedStep != StepClone {
		t.Errorf("failed step: got %q, want %q", result.Repos[0].FailedStep, StepClone)
	}
	if result.Repos[1].Repo != "B" || result.Repos[1].State == domain.StateFailed {
		t.Errorf("second result: %+v", result.Repos[1])
	}
}

func TestSyncUpdatesExistingClone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme", "A")
	if err := os.MkdirAll(filepath.Join(path, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	f := cleanOnDefault()
	f.out["rev-parse HEAD"] = []string{"aaa\n", "bbb\n"}

	s := NewSyncer(io.Discard)
	s.repoFn = func(p string) Repo {
		return Repo{Path: p, run: f.run}
	}

	result := s.Sync(
		map[string]string{"A": "git@github.com:acme/A.git"},
		map[string]string{"A": path},
	)
	if result.Updated != 1 {
		t.Errorf("updated: got %d, want 1", result.Updated)
	}
	if result.Repos[0].Action != domain.ActionUpdate {
		t.Errorf("action: got %q, want %q", result.Repos[0].Action, domain.ActionUpdate)
	}
	if result.Repos[0].State != domain.StatePulled {
		t.Errorf("state: got %q, want %q", result.Repos[0].State, domain.StatePulled)
	}
}

func TestSyncSkipsNonGitDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme", "A")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewSyncer(io.Discard)
	result := s.Sync(
		map[string]string{"A": "git@github.com:acme/A.git"},
		map[string]string{"A": path},
	)
	if result.Failed != 1 {
		t.Errorf("failed: got %d, want 1", result.Failed)
	}
	if result.Repos[0].Action != domain.ActionSkip {
		t.Errorf("action: got %q, want %q", result.Repos[0].Action, domain.ActionSkip)
	}
}
