package data

import "time"

// ContributorStat is one contributor's commit count as reported upstream.
// Contributors arrive sorted by contribution count descending.
type ContributorStat struct {
	Login         string `bson:"login"         json:"login"`
	Contributions int    `bson:"contributions" json:"contributions"`
}

// CommitInfo identifies the most recent commit on the default branch.
type CommitInfo struct {
	SHA     string    `bson:"sha"     json:"sha"`
	Message string    `bson:"message" json:"message"`
	Author  string    `bson:"author"  json:"author"`
	Date    time.Time `bson:"date"    json:"date"`
}

// RepoStats carries repository-level activity metrics: star/fork/watcher
// counts, contributor totals and the latest commit. Collected alongside pull
// requests each cycle and superseded wholesale like the other snapshots.
type RepoStats struct {
	Stars      int    `bson:"stars"       json:"stars"`
	Forks      int    `bson:"forks"       json:"forks"`
	Watchers   int    `bson:"watchers"    json:"watchers"`
	OpenIssues int    `bson:"open_issues" json:"open_issues"`
	SizeKB     int    `bson:"size_kb"     json:"size_kb"`
	Language   string `bson:"language,omitempty" json:"language,omitempty"`

	Contributors    int               `bson:"contributors" json:"contributors"`
	TopContributors []ContributorStat `bson:"top_contributors,omitempty" json:"top_contributors,omitempty"`
	LastCommit      *CommitInfo       `bson:"last_commit,omitempty" json:"last_commit,omitempty"`
}
