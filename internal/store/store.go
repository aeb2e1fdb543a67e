// Package store persists repository snapshots and pull-request records.
//
// Two logical collections back the system: repository_snapshots holds one
// latest-wins document per target, pull_requests holds one document per
// (repository, number). The write contract is idempotent upsert; the read
// side is the only surface the dashboard collaborator touches.
package store

import (
	"context"
	"errors"

	"repopulse/internal/data"
)

// ErrNotFound is returned by reads when the requested document does not
// exist.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	// UpsertSnapshot replaces the previous RepositorySnapshot for the
	// snapshot's target. Per-target atomic: a concurrent reader sees either
	// the old document or the new one, never a mix.
	UpsertSnapshot(ctx context.Context, snapshot *data.RepositorySnapshot) error

	// UpsertPullRequests upserts each record keyed by (repository, number).
	// Re-upserting identical content is a no-op; records are never
	// duplicated and never deleted.
	UpsertPullRequests(ctx context.Context, records []data.PullRequestRecord) error

	// Reads used by the dashboard.
	GetSnapshot(ctx context.Context, target data.ScanTarget) (*data.RepositorySnapshot, error)
	ListSnapshots(ctx context.Context) ([]data.RepositorySnapshot, error)
	ListPullRequests(ctx context.Context, repository string) ([]data.PullRequestRecord, error)

	Close(ctx context.Context) error
}
