package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/orgsync/internal/domain"
	apperrors "github.com/kurihiro0119/orgsync/internal/errors"
	"github.com/kurihiro0119/orgsync/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		org TEXT NOT NULL,
		scoped INTEGER NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		cloned INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		up_to_date INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_org ON runs(org);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS repo_results (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		repo TEXT NOT NULL,
		path TEXT NOT NULL,
		action TEXT NOT NULL,
		state TEXT NOT NULL,
		failed_step TEXT,
		detail TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_repo_results_run_id ON repo_results(run_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts or updates a sync run
func (s *sqliteStorage) SaveRun(ctx context.Context, run *domain.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, org, scoped, status, started_at, finished_at, cloned, updated, up_to_date, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			cloned = excluded.cloned,
			updated = excluded.updated,
			up_to_date = excluded.up_to_date,
			failed = excluded.failed
	`, run.ID, run.Org, boolToInt(run.Scoped), run.Status, run.StartedAt, run.FinishedAt,
		run.Cloned, run.Updated, run.UpToDate, run.Failed)
	return err
}

// GetRun retrieves a single run by ID
func (s *sqliteStorage) GetRun(ctx context.Context, id string) (*domain.SyncRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, org, scoped, status, started_at, finished_at, cloned, updated, up_to_date, failed
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("run " + id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRuns retrieves the most recent runs for an organization
func (s *sqliteStorage) GetRuns(ctx context.Context, org string, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org, scoped, status, started_at, finished_at, cloned, updated, up_to_date, failed
		FROM runs WHERE org = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, org, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveRepoResults inserts the per-repository outcomes of a run
func (s *sqliteStorage) SaveRepoResults(ctx context.Context, results []*domain.RepoResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO repo_results (id, run_id, repo, path, action, state, failed_step, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, r.ID, r.RunID, r.Repo, r.Path, r.Action,
			string(r.State), r.FailedStep, r.Detail, r.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRepoResults retrieves the per-repository outcomes of a run
func (s *sqliteStorage) GetRepoResults(ctx context.Context, runID string) ([]*domain.RepoResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, repo, path, action, state, failed_step, detail, created_at
		FROM repo_results WHERE run_id = ?
		ORDER BY repo
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.RepoResult
	for rows.Next() {
		var r domain.RepoResult
		var state string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Repo, &r.Path, &r.Action,
			&state, &r.FailedStep, &r.Detail, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.State = domain.SyncState(state)
		results = append(results, &r)
	}
	return results, rows.Err()
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var scoped int
	if err := row.Scan(&run.ID, &run.Org, &scoped, &run.Status, &run.StartedAt,
		&run.FinishedAt, &run.Cloned, &run.Updated, &run.UpToDate, &run.Failed); err != nil {
		return nil, err
	}
	run.Scoped = scoped != 0
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
