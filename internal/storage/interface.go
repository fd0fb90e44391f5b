package storage

import (
	"context"

	"github.com/kurihiro0119/orgsync/internal/domain"
)

// Storage is the abstract interface for the run-history persistence layer
type Storage interface {
	// Run operations
	SaveRun(ctx context.Context, run *domain.SyncRun) error
	GetRun(ctx context.Context, id string) (*domain.SyncRun, error)
	GetRuns(ctx context.Context, org string, limit int) ([]*domain.SyncRun, error)

	// Per-repository outcome operations
	SaveRepoResults(ctx context.Context, results []*domain.RepoResult) error
	GetRepoResults(ctx context.Context, runID string) ([]*domain.RepoResult, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
