package data

import "time"

// PRState is the normalized pull request state.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// PullRequestRecord is one pull request as stored in the pull_requests
// collection. Identity is (Repository, Number); records are updated in place
// on re-sighting and never deleted by the scanner (closure shows up as a
// state change).
type PullRequestRecord struct {
	Repository string     `bson:"repository" json:"repository"` // OWNER/REPO
	Number     int        `bson:"number"     json:"number"`
	Title      string     `bson:"title"      json:"title"`
	State      PRState    `bson:"state"      json:"state"`
	Author     string     `bson:"author"     json:"author"`
	URL        string     `bson:"url"        json:"url"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
	ClosedAt   *time.Time `bson:"closed_at,omitempty" json:"closed_at,omitempty"`

	// CycleTimeHours measures creation to close, or creation to now for PRs
	// still open at scan time.
	CycleTimeHours float64 `bson:"cycle_time_hours" json:"cycle_time_hours"`
}

// CycleTime returns the PR cycle time relative to now. Closed and merged PRs
// measure to their close timestamp instead.
func (p PullRequestRecord) CycleTime(now time.Time) time.Duration {
	end := now
	if p.ClosedAt != nil {
		end = *p.ClosedAt
	}
	d := end.Sub(p.CreatedAt)
	if d < 0 {
		return 0
	}
	return d
}
