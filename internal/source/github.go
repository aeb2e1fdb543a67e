package source

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v81/github"

	"repopulse/internal/data"
	gh "repopulse/internal/github"
)

// topContributorCount bounds how many contributors are kept on the snapshot;
// the totals still count everyone.
const topContributorCount = 5

// PullRequestSource lists a repository's pull requests via the GitHub API,
// normalizes them into PullRequestRecords, and collects the repository's
// activity stats (stars, forks, contributors, last commit) in the same pass.
type PullRequestSource struct {
	client *gh.Client
	now    func() time.Time
}

func NewPullRequestSource(client *gh.Client) *PullRequestSource {
	return &PullRequestSource{
		client: client,
		now:    time.Now,
	}
}

func (s *PullRequestSource) Name() string { return NamePullRequests }

func (s *PullRequestSource) Fetch(ctx context.Context, target data.ScanTarget) (*data.SourceData, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var records []data.PullRequestRecord
	for {
		prs, resp, err := s.client.Client.PullRequests.List(ctx, target.Owner, target.Repo, opts)
		if err != nil {
			return nil, classifyGitHubError(target, err)
		}
		for _, pr := range prs {
			records = append(records, s.normalize(target, pr))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	stats, err := s.fetchStats(ctx, target)
	if err != nil {
		return nil, err
	}

	return &data.SourceData{PullRequests: records, Stats: stats}, nil
}

// fetchStats collects the repository-level activity metrics. The PR listing
// has already established that the repository exists and the token works, so
// individual stats calls degrade to zero values on failure; only credential
// failures propagate, since those invalidate the whole cycle.
func (s *PullRequestSource) fetchStats(ctx context.Context, target data.ScanTarget) (*data.RepoStats, error) {
	stats := &data.RepoStats{}

	repo, _, err := s.client.Client.Repositories.Get(ctx, target.Owner, target.Repo)
	if err != nil {
		if classified := classifyGitHubError(target, err); IsAuth(classified) {
			return nil, classified
		}
	} else {
		stats.Stars = repo.GetStargazersCount()
		stats.Forks = repo.GetForksCount()
		stats.Watchers = repo.GetWatchersCount()
		stats.OpenIssues = repo.GetOpenIssuesCount()
		stats.SizeKB = repo.GetSize()
		stats.Language = repo.GetLanguage()
	}

	contributors, err := s.listContributors(ctx, target)
	if err != nil {
		if IsAuth(err) {
			return nil, err
		}
	} else {
		stats.Contributors = len(contributors)
		top := contributors
		if len(top) > topContributorCount {
			top = top[:topContributorCount]
		}
		for _, c := range top {
			stats.TopContributors = append(stats.TopContributors, data.ContributorStat{
				Login:         c.GetLogin(),
				Contributions: c.GetContributions(),
			})
		}
	}

	commits, _, err := s.client.Client.Repositories.ListCommits(ctx, target.Owner, target.Repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		if classified := classifyGitHubError(target, err); IsAuth(classified) {
			return nil, classified
		}
	} else if len(commits) > 0 {
		c := commits[0]
		stats.LastCommit = &data.CommitInfo{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
			Author:  c.GetCommit().GetAuthor().GetName(),
			Date:    c.GetCommit().GetAuthor().GetDate().Time,
		}
	}

	return stats, nil
}

func (s *PullRequestSource) listContributors(ctx context.Context, target data.ScanTarget) ([]*github.Contributor, error) {
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var all []*github.Contributor
	for {
		contributors, resp, err := s.client.Client.Repositories.ListContributors(ctx, target.Owner, target.Repo, opts)
		if err != nil {
			return nil, classifyGitHubError(target, err)
		}
		all = append(all, contributors...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (s *PullRequestSource) normalize(target data.ScanTarget, pr *github.PullRequest) data.PullRequestRecord {
	rec := data.PullRequestRecord{
		Repository: target.FullName(),
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		State:      prState(pr),
		Author:     pr.GetUser().GetLogin(),
		URL:        pr.GetHTMLURL(),
		CreatedAt:  pr.GetCreatedAt().Time,
		UpdatedAt:  pr.GetUpdatedAt().Time,
	}
	if t := pr.ClosedAt; t != nil {
		closed := t.Time
		rec.ClosedAt = &closed
	}
	rec.CycleTimeHours = rec.CycleTime(s.now()).Hours()
	return rec
}

// prState maps GitHub's open/closed plus merged_at into the three-valued
// normalized state.
func prState(pr *github.PullRequest) data.PRState {
	if pr.MergedAt != nil {
		return data.PRStateMerged
	}
	if pr.GetState() == "closed" {
		return data.PRStateClosed
	}
	return data.PRStateOpen
}

func classifyGitHubError(target data.ScanTarget, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &TransientError{Source: NamePullRequests, Err: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &TransientError{Source: NamePullRequests, Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch code := respErr.Response.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return &AuthError{Source: NamePullRequests, Err: err}
		case code == http.StatusNotFound:
			return &NotFoundError{Source: NamePullRequests, Target: target.FullName()}
		case code >= 500 || code == http.StatusTooManyRequests:
			return &TransientError{Source: NamePullRequests, Err: err}
		default:
			return &MalformedResponseError{Source: NamePullRequests, Err: err}
		}
	}

	// Anything without an HTTP response is a network-level failure.
	return &TransientError{Source: NamePullRequests, Err: err}
}
