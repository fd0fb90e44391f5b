package domain

import "time"

// SyncState is the terminal state of a single repository update sequence.
type SyncState string

const (
	// StateClean means no local changes and already on the default branch.
	StateClean SyncState = "clean"
	// StateStashed means local changes were stashed.
	StateStashed SyncState = "stashed"
	// StateOnDefault means the default branch was checked out.
	StateOnDefault SyncState = "on_default"
	// StatePulled means the pull completed and nothing had to be restored.
	StatePulled SyncState = "pulled"
	// StateRestored means the original branch and stashed changes came back.
	StateRestored SyncState = "restored"
	// StateFailed means a step failed; RepoResult.FailedStep names it.
	StateFailed SyncState = "failed"
)

// Actions recorded per repository
const (
	ActionClone  = "clone"
	ActionUpdate = "update"
	ActionSkip   = "skip"
)

// Run statuses
const (
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// SyncRun represents one invocation of the sync command
type SyncRun struct {
	ID         string     `json:"id"`
	Org        string     `json:"org"`
	Scoped     bool       `json:"scoped"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Cloned     int        `json:"cloned"`
	Updated    int        `json:"updated"`
	UpToDate   int        `json:"up_to_date"`
	Failed     int        `json:"failed"`
}

// RepoResult records the outcome of a single repository within a run
type RepoResult struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Repo       string    `json:"repo"`
	Path       string    `json:"path"`
	Action     string    `json:"action"`
	State      SyncState `json:"state"`
	FailedStep string    `json:"failed_step,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
