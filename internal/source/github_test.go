package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repopulse/internal/data"
	gh "repopulse/internal/github"
)

func newGithubTestClient(t *testing.T, handler http.Handler) *gh.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gh.NewClient(context.Background(), "test-token", gh.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return client
}

func TestPullRequestSource_NormalizesRecords(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{
				"number": 7,
				"title": "Add request retry limits",
				"state": "open",
				"user": {"login": "mchen"},
				"html_url": "https://example.com/acme/api/pull/7",
				"created_at": "2026-08-01T12:00:00Z",
				"updated_at": "2026-08-02T12:00:00Z"
			},
			{
				"number": 5,
				"title": "Fix flaky index build",
				"state": "closed",
				"user": {"login": "priyak"},
				"html_url": "https://example.com/acme/api/pull/5",
				"created_at": "2026-07-30T12:00:00Z",
				"updated_at": "2026-07-31T12:00:00Z",
				"closed_at": "2026-07-31T12:00:00Z",
				"merged_at": "2026-07-31T12:00:00Z"
			}
		]`)
	})

	src := NewPullRequestSource(newGithubTestClient(t, mux))
	src.now = func() time.Time { return time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC) }

	sd, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	require.Len(t, sd.PullRequests, 2)

	open := sd.PullRequests[0]
	assert.Equal(t, "acme/api", open.Repository)
	assert.Equal(t, 7, open.Number)
	assert.Equal(t, data.PRStateOpen, open.State)
	assert.Equal(t, "mchen", open.Author)
	assert.InDelta(t, 48.0, open.CycleTimeHours, 0.01)
	assert.Nil(t, open.ClosedAt)

	merged := sd.PullRequests[1]
	assert.Equal(t, data.PRStateMerged, merged.State)
	require.NotNil(t, merged.ClosedAt)
	assert.InDelta(t, 24.0, merged.CycleTimeHours, 0.01)
}

func TestPullRequestSource_Paginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"number": 2, "state": "open", "created_at": "2026-08-01T12:00:00Z"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/acme/api/pulls?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"number": 1, "state": "open", "created_at": "2026-08-01T12:00:00Z"}]`)
	})

	src := NewPullRequestSource(newGithubTestClient(t, mux))

	sd, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	require.Len(t, sd.PullRequests, 2)
	assert.Equal(t, 1, sd.PullRequests[0].Number)
	assert.Equal(t, 2, sd.PullRequests[1].Number)
}

func TestPullRequestSource_CollectsRepoStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/repos/acme/api", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"stargazers_count": 42,
			"forks_count": 9,
			"watchers_count": 42,
			"open_issues_count": 4,
			"size": 2048,
			"language": "Go"
		}`)
	})
	mux.HandleFunc("/repos/acme/api/contributors", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"login": "mchen", "contributions": 210},
			{"login": "priyak", "contributions": 104},
			{"login": "jortega", "contributions": 61},
			{"login": "lwu", "contributions": 33},
			{"login": "dnovak", "contributions": 12},
			{"login": "asmith", "contributions": 5},
			{"login": "tbrown", "contributions": 1}
		]`)
	})
	mux.HandleFunc("/repos/acme/api/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `[{
			"sha": "abc1234def5678",
			"commit": {
				"message": "Tighten index bounds",
				"author": {"name": "M Chen", "date": "2026-08-28T09:30:00Z"}
			}
		}]`)
	})

	src := NewPullRequestSource(newGithubTestClient(t, mux))

	sd, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	require.NotNil(t, sd.Stats)

	stats := sd.Stats
	assert.Equal(t, 42, stats.Stars)
	assert.Equal(t, 9, stats.Forks)
	assert.Equal(t, 42, stats.Watchers)
	assert.Equal(t, 4, stats.OpenIssues)
	assert.Equal(t, 2048, stats.SizeKB)
	assert.Equal(t, "Go", stats.Language)

	// Everyone counts; only the top five are carried.
	assert.Equal(t, 7, stats.Contributors)
	require.Len(t, stats.TopContributors, 5)
	assert.Equal(t, "mchen", stats.TopContributors[0].Login)
	assert.Equal(t, 210, stats.TopContributors[0].Contributions)

	require.NotNil(t, stats.LastCommit)
	assert.Equal(t, "abc1234def5678", stats.LastCommit.SHA)
	assert.Equal(t, "Tighten index bounds", stats.LastCommit.Message)
	assert.Equal(t, "M Chen", stats.LastCommit.Author)
	assert.Equal(t, time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC), stats.LastCommit.Date)
}

func TestPullRequestSource_StatsDegradeWhenUnavailable(t *testing.T) {
	// Only the PR endpoint exists; every stats call 404s and the fetch still
	// succeeds with zeroed stats.
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	src := NewPullRequestSource(newGithubTestClient(t, mux))

	sd, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	require.NotNil(t, sd.Stats)
	assert.Zero(t, sd.Stats.Stars)
	assert.Zero(t, sd.Stats.Contributors)
	assert.Nil(t, sd.Stats.LastCommit)
}

func TestPullRequestSource_StatsCredentialFailurePropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/repos/acme/api", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "bad credentials"}`, http.StatusUnauthorized)
	})

	src := NewPullRequestSource(newGithubTestClient(t, mux))

	_, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.Error(t, err)
	assert.True(t, IsAuth(err))
}

func TestPullRequestSource_ErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, IsAuth},
		{"forbidden", http.StatusForbidden, IsAuth},
		{"not found", http.StatusNotFound, IsNotFound},
		{"server error", http.StatusInternalServerError, IsTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message": "nope"}`, tc.status)
			})

			src := NewPullRequestSource(newGithubTestClient(t, mux))
			_, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected classification: %v", err)
		})
	}
}
