package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repopulse/internal/data"
)

func snapshotFor(owner, repo string, scannedAt time.Time) *data.RepositorySnapshot {
	return &data.RepositorySnapshot{
		Target:    data.ScanTarget{Owner: owner, Repo: repo},
		Sources:   map[string]data.SourceStatus{"github": data.StatusOK()},
		ScannedAt: scannedAt,
	}
}

func TestMemoryStore_UpsertSnapshotReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSnapshot(ctx, snapshotFor("acme", "api", first)))

	second := first.Add(30 * time.Minute)
	require.NoError(t, s.UpsertSnapshot(ctx, snapshotFor("acme", "api", second)))

	got, err := s.GetSnapshot(ctx, data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	assert.Equal(t, second, got.ScannedAt)

	all, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryStore_UpsertSnapshotRejectsInvalidTarget(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpsertSnapshot(context.Background(), &data.RepositorySnapshot{})
	require.Error(t, err)
}

func TestMemoryStore_GetSnapshotNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetSnapshot(context.Background(), data.ScanTarget{Owner: "acme", Repo: "gone"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_PullRequestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	records := []data.PullRequestRecord{
		{Repository: "acme/api", Number: 1, State: data.PRStateOpen},
		{Repository: "acme/api", Number: 2, State: data.PRStateOpen},
	}
	require.NoError(t, s.UpsertPullRequests(ctx, records))
	require.NoError(t, s.UpsertPullRequests(ctx, records))
	assert.Equal(t, 2, s.PullRequestCount())

	// Re-sighting a closed PR updates the record in place.
	records[0].State = data.PRStateMerged
	require.NoError(t, s.UpsertPullRequests(ctx, records[:1]))
	assert.Equal(t, 2, s.PullRequestCount())

	got, err := s.ListPullRequests(ctx, "acme/api")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, data.PRStateMerged, got[0].State)
}

func TestMemoryStore_ListPullRequestsFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertPullRequests(ctx, []data.PullRequestRecord{
		{Repository: "acme/api", Number: 9},
		{Repository: "acme/api", Number: 3},
		{Repository: "acme/frontend", Number: 1},
	}))

	got, err := s.ListPullRequests(ctx, "acme/api")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Number)
	assert.Equal(t, 9, got[1].Number)
}

func TestMemoryStore_ListSnapshotsSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.UpsertSnapshot(ctx, snapshotFor("acme", "zebra", now)))
	require.NoError(t, s.UpsertSnapshot(ctx, snapshotFor("acme", "api", now)))

	all, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "acme/api", all[0].Target.FullName())
	assert.Equal(t, "acme/zebra", all[1].Target.FullName())
}
