package gitops

import (
	"errors"
	"strings"
	"testing"
)

// fakeGit scripts git invocations. Keys are the joined argument list;
// values are successive stdouts (the last one repeats).
type fakeGit struct {
	out  map[string][]string
	errs map[string]error
	log  []string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		out:  make(map[string][]string),
		errs: make(map[string]error),
	}
}

func (f *fakeGit) run(dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.log = append(f.log, key)
	if err := f.errs[key]; err != nil {
		return "", err
	}
	outs := f.out[key]
	if len(outs) == 0 {
		return "", nil
	}
	out := outs[0]
	if len(outs) > 1 {
		f.out[key] = outs[1:]
	}
	return out, nil
}

func (f *fakeGit) repo(path string) Repo {
	return Repo{Path: path, run: f.run}
}

func (f *fakeGit) called(key string) bool {
	for _, entry := range f.log {
		if entry == key {
			return true
		}
	}
	return false
}

func TestDefaultBranch(t *testing.T) {
	f := newFakeGit()
	f.out["symbolic-ref refs/remotes/origin/HEAD"] = []string{"refs/remotes/origin/develop\n"}

	if got := f.repo("/r").DefaultBranch(); got != "develop" {
		t.Errorf("DefaultBranch: got %q, want %q", got, "develop")
	}
}

func TestDefaultBranchFallback(t *testing.T) {
	// The symbolic ref either resolves or the command fails; there is no
	// success-with-empty-output case. The fallback therefore triggers on
	// error, e.g. when origin/HEAD was never fetched.
	f := newFakeGit()
	f.errs["symbolic-ref refs/remotes/origin/HEAD"] = errors.New("ref refs/remotes/origin/HEAD is not a symbolic ref")

	if got := f.repo("/r").DefaultBranch(); got != "main" {
		t.Errorf("DefaultBranch fallback: got %q, want %q", got, "main")
	}
}

func TestCurrentBranch(t *testing.T) {
	f := newFakeGit()
	f.out["branch --show-current"] = []string{"feature-x\n"}

	got, err := f.repo("/r").CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	if got != "feature-x" {
		t.Errorf("CurrentBranch: got %q, want %q", got, "feature-x")
	}
}

func TestHasUncommittedChanges(t *testing.T) {
	f := newFakeGit()
	f.out["status --porcelain"] = []string{" M main.go\n?? new.go\n"}

	dirty, err := f.repo("/r").HasUncommittedChanges()
	if err != nil {
		t.Fatalf("HasUncommittedChanges failed: %v", err)
	}
	if !dirty {
		t.Error("expected dirty work tree")
	}

	f.out["status --porcelain"] = []string{"\n"}
	dirty, err = f.repo("/r").HasUncommittedChanges()
	if err != nil {
		t.Fatalf("HasUncommittedChanges failed: %v", err)
	}
	if dirty {
		t.Error("expected clean work tree")
	}
}

func TestPullReportsHeadMovement(t *testing.T) {
	f := newFakeGit()
	f.out["rev-parse HEAD"] = []string{"aaa\n", "bbb\n"}

	changed, err := f.repo("/r").Pull()
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if !changed {
		t.Error("expected changed after HEAD moved")
	}

	f2 := newFakeGit()
	f2.out["rev-parse HEAD"] = []string{"aaa\n"}
	changed, err = f2.repo("/r").Pull()
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if changed {
		t.Error("expected unchanged when HEAD stayed put")
	}
}
