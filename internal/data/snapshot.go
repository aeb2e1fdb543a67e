package data

import "time"

// FetchOutcome is the per-source status recorded on every snapshot.
type FetchOutcome string

const (
	FetchOK     FetchOutcome = "ok"
	FetchFailed FetchOutcome = "failed"
)

// SourceStatus records whether one upstream source produced data for a target
// this cycle, and why not if it didn't.
type SourceStatus struct {
	Outcome FetchOutcome `bson:"outcome" json:"outcome"`
	Reason  string       `bson:"reason,omitempty" json:"reason,omitempty"`
}

func StatusOK() SourceStatus {
	return SourceStatus{Outcome: FetchOK}
}

func StatusFailed(reason string) SourceStatus {
	return SourceStatus{Outcome: FetchFailed, Reason: reason}
}

// SourceData is the normalized payload one source produces for one target.
// Each source fills only its own fields; the GitHub source carries both the
// pull requests and the repository stats.
type SourceData struct {
	PullRequests []PullRequestRecord
	Stats        *RepoStats
	Quality      *QualitySnapshot
	Artifact     *ArtifactSnapshot
}

// RepositorySnapshot is the merged per-repository document persisted once per
// cycle into the repository_snapshots collection. Fields belonging to failed
// sources stay nil so readers can tell "no data this cycle" apart from
// "confirmed empty".
type RepositorySnapshot struct {
	Target ScanTarget `bson:"target" json:"target"`

	OpenPullRequests []PullRequestRecord `bson:"open_pull_requests,omitempty" json:"open_pull_requests,omitempty"`
	Stats            *RepoStats          `bson:"stats,omitempty" json:"stats,omitempty"`
	Quality          *QualitySnapshot    `bson:"quality,omitempty" json:"quality,omitempty"`
	Artifact         *ArtifactSnapshot   `bson:"artifact,omitempty" json:"artifact,omitempty"`

	// Sources maps source name to its fetch status for this cycle. Every
	// registered source has an entry, success or failure.
	Sources map[string]SourceStatus `bson:"sources" json:"sources"`

	// PR aggregate over everything the PR source returned this cycle.
	TotalPRs          int     `bson:"total_prs" json:"total_prs"`
	AvgCycleTimeHours float64 `bson:"avg_cycle_time_hours" json:"avg_cycle_time_hours"`

	ScannedAt time.Time `bson:"scanned_at" json:"scanned_at"`
}

// Healthy reports whether every source succeeded this cycle.
func (s *RepositorySnapshot) Healthy() bool {
	for _, st := range s.Sources {
		if st.Outcome != FetchOK {
			return false
		}
	}
	return true
}
