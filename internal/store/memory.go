package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"repopulse/internal/data"
)

// MemoryStore keeps the same contract as MongoStore in process memory. Used
// by tests and by dry runs where no database is reachable.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]data.RepositorySnapshot // key: owner/repo
	pulls     map[string]data.PullRequestRecord  // key: repository#number
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]data.RepositorySnapshot),
		pulls:     make(map[string]data.PullRequestRecord),
	}
}

func pullKey(repository string, number int) string {
	return fmt.Sprintf("%s#%d", repository, number)
}

func (s *MemoryStore) UpsertSnapshot(_ context.Context, snapshot *data.RepositorySnapshot) error {
	if snapshot == nil || !snapshot.Target.Valid() {
		return fmt.Errorf("upsert snapshot: invalid target")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Target.FullName()] = *snapshot
	return nil
}

func (s *MemoryStore) UpsertPullRequests(_ context.Context, records []data.PullRequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.pulls[pullKey(rec.Repository, rec.Number)] = rec
	}
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, target data.ScanTarget) (*data.RepositorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[target.FullName()]
	if !ok {
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context) ([]data.RepositorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]data.RepositorySnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Target.FullName() < out[j].Target.FullName()
	})
	return out, nil
}

func (s *MemoryStore) ListPullRequests(_ context.Context, repository string) ([]data.PullRequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []data.PullRequestRecord
	for _, rec := range s.pulls {
		if rec.Repository == repository {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// PullRequestCount reports the stored record count; tests use it to assert
// upsert idempotence.
func (s *MemoryStore) PullRequestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pulls)
}

func (s *MemoryStore) Close(context.Context) error { return nil }
