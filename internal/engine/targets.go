package engine

import (
	"context"
	"fmt"

	"github.com/google/go-github/v81/github"

	"repopulse/internal/config"
	"repopulse/internal/data"
	gh "repopulse/internal/github"
)

const defaultOrgDiscoveryRepoLimit = 1000

// ResolveTargets turns the configured org + repository list into the concrete
// set of scan targets for one cycle. An explicit GITHUB_REPOS list wins; when
// it is empty the whole organization is discovered, bounded by MaxRepos.
func ResolveTargets(ctx context.Context, client *gh.Client, cfg *config.Config) ([]data.ScanTarget, error) {
	if len(cfg.GitHub.Repos) > 0 {
		targets := make([]data.ScanTarget, 0, len(cfg.GitHub.Repos))
		for _, name := range cfg.GitHub.Repos {
			targets = append(targets, data.ScanTarget{Owner: cfg.GitHub.Org, Repo: name})
		}
		return dedupeTargets(targets), nil
	}

	refs, err := listOrgTargets(ctx, client, cfg.GitHub.Org, computeRepoLimit(cfg))
	if err != nil {
		return nil, err
	}
	return dedupeTargets(refs), nil
}

func computeRepoLimit(cfg *config.Config) int {
	limit := defaultOrgDiscoveryRepoLimit
	if cfg.GitHub.MaxRepos > 0 {
		limit = cfg.GitHub.MaxRepos
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func listOrgTargets(ctx context.Context, client *gh.Client, org string, limit int) ([]data.ScanTarget, error) {
	targets := make([]data.ScanTarget, 0, min(limit, 100))

	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		repos, resp, err := client.Client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list org repos: %w", err)
		}
		for _, repo := range repos {
			if len(targets) >= limit {
				break
			}
			if repo.GetArchived() {
				continue
			}
			targets = append(targets, data.ScanTarget{
				Owner: repo.GetOwner().GetLogin(),
				Repo:  repo.GetName(),
			})
		}
		if len(targets) >= limit {
			break
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return targets, nil
}

func dedupeTargets(targets []data.ScanTarget) []data.ScanTarget {
	seen := make(map[string]struct{}, len(targets))
	out := targets[:0]
	for _, t := range targets {
		if !t.Valid() {
			continue
		}
		key := t.FullName()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
