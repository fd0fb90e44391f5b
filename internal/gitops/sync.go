package gitops

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/orgsync/internal/domain"
)

// Step names recorded when an update sequence fails
const (
	StepDetectBranch = "detect-branch"
	StepStash        = "stash"
	StepCheckout     = "checkout"
	StepPull         = "pull"
	StepCheckoutBack = "checkout-back"
	StepPop          = "pop"
	StepClone        = "clone"
)

// Outcome is the terminal state of one repository's update sequence
type Outcome struct {
	State      domain.SyncState
	FailedStep string
	Detail     string
	Changed    bool
	Err        error
}

// Update runs the fixed sequence: stash local changes, switch to the
// default branch, pull, switch back, pop. There is no rollback; a failure
// leaves the clone wherever git left it, and FailedStep says which step
// to recover from.
func (r Repo) Update() Outcome {
	state := domain.StateClean
	var details []string

	defaultBranch := r.DefaultBranch()

	currentBranch, err := r.CurrentBranch()
	if err != nil {
		return Outcome{State: domain.StateFailed, FailedStep: StepDetectBranch, Err: err}
	}

	dirty, err := r.HasUncommittedChanges()
	if err != nil {
		return Outcome{State: domain.StateFailed, FailedStep: StepDetectBranch, Err: err}
	}

	stashed := false
	if dirty {
		if err := r.Stash(); err != nil {
			return Outcome{State: domain.StateFailed, FailedStep: StepStash, Err: err}
		}
		stashed = true
		state = domain.StateStashed
		details = append(details, "stashed")
	}

	switched := false
	if currentBranch != defaultBranch {
		if err := r.SwitchBranch(defaultBranch); err != nil {
			return Outcome{State: domain.StateFailed, FailedStep: StepCheckout, Detail: strings.Join(details, ", "), Err: err}
		}
		switched = true
		state = domain.StateOnDefault
		details = append(details, "switched to "+defaultBranch)
	}

	changed, err := r.Pull()
	if err != nil {
		return Outcome{State: domain.StateFailed, FailedStep: StepPull, Detail: strings.Join(details, ", "), Err: err}
	}
	state = domain.StatePulled
	if changed {
		details = append(details, "pulled")
	}

	if switched {
		if err := r.SwitchBranch(currentBranch); err != nil {
			return Outcome{State: domain.StateFailed, FailedStep: StepCheckoutBack, Detail: strings.Join(details, ", "), Err: err}
		}
		details = append(details, "back on "+currentBranch)
	}

	if stashed {
		if err := r.Unstash(); err != nil {
			return Outcome{State: domain.StateFailed, FailedStep: StepPop, Detail: strings.Join(details, ", "), Err: err}
		}
		details = append(details, "unstashed")
	}

	if stashed || switched {
		state = domain.StateRestored
	}

	return Outcome{
		State:   state,
		Detail:  strings.Join(details, ", "),
		Changed: changed,
	}
}

// Result aggregates a whole run
type Result struct {
	Repos    []*domain.RepoResult
	Cloned   int
	Updated  int
	UpToDate int
	Failed   int
	Warnings []string
}

// Syncer ensures local clones exist and are up to date
type Syncer struct {
	out     io.Writer
	cloneFn func(url, path string, out io.Writer) error
	repoFn  func(path string) Repo
}

// NewSyncer creates a syncer writing progress to out
func NewSyncer(out io.Writer) *Syncer {
	if out == nil {
		out = os.Stderr
	}
	return &Syncer{
		out:     out,
		cloneFn: Clone,
		repoFn:  NewRepo,
	}
}

// Sync processes every resolved repository in name order. A failure on
// one repository never blocks the next; every outcome lands in Result.
func (s *Syncer) Sync(repos map[string]string, paths map[string]string) Result {
	var result Result

	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		url := repos[name]
		path := paths[name]

		record := &domain.RepoResult{
			ID:        uuid.New().String(),
			Repo:      name,
			Path:      path,
			CreatedAt: time.Now(),
		}
		result.Repos = append(result.Repos, record)

		if _, err := os.Stat(path); os.IsNotExist(err) {
			record.Action = domain.ActionClone
			fmt.Fprintf(s.out, "Cloning %s...\n", name)
			if err := s.cloneFn(url, path, s.out); err != nil {
				record.State = domain.StateFailed
				record.FailedStep = StepClone
				record.Detail = err.Error()
				result.Failed++
				result.Warnings = append(result.Warnings, "clone failed: "+name+": "+err.Error())
				continue
			}
			record.State = domain.StatePulled
			result.Cloned++
			continue
		}

		record.Action = domain.ActionUpdate
		repo := s.repoFn(path)

		if !repo.IsGitRepo() {
			record.Action = domain.ActionSkip
			record.State = domain.StateFailed
			record.Detail = "not a git repository"
			result.Failed++
			result.Warnings = append(result.Warnings, "not a git repo: "+name)
			continue
		}

		fmt.Fprintf(s.out, "Updating %s...\n", name)
		outcome := repo.Update()
		record.State = outcome.State
		record.FailedStep = outcome.FailedStep
		record.Detail = outcome.Detail

		if outcome.State == domain.StateFailed {
			record.Detail = outcome.Err.Error()
			result.Failed++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s failed at %s: %v", name, outcome.FailedStep, outcome.Err))
			continue
		}

		if outcome.Changed {
			result.Updated++
		} else {
			result.UpToDate++
		}
	}

	return result
}
