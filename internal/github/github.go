package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type GitHubClient struct {
	client *github.Client
	logger *zap.Logger
}

// Details are the per-repository facts the dataset needs beyond the
// listing. Community file fields hold the file's URL or path, empty when
// the file is missing.
type Details struct {
	Readme              string
	CodeOfConduct       string
	Contributing        string
	SecurityPolicy      string
	IssueTemplates      string
	PullRequestTemplate string
	ReleaseDownloads    int64
	Contributors     int64
	BusFactor        float64
}

func NewGitHubClient(ctx context.Context, token string, logger *zap.Logger) (*GitHubClient, error) {
	if token == "" {
		return nil, errors.New("GITHUB_TOKEN is not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubClient{client: github.NewClient(oauth2.NewClient(ctx, ts)), logger: logger}, nil
}

// ListOrgRepos returns every public repository of org, following pagination.
func (g *GitHubClient) ListOrgRepos(ctx context.Context, org string) ([]*github.Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "public",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var all []*github.Repository
	for {
		repos, resp, err := g.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("error listing repositories of %s: %w", org, err)
		}
		all = append(all, repos...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	g.logger.Info("Listed organization repositories", zap.String("org", org), zap.Int("count", len(all)))
	return all, nil
}

func (g *GitHubClient) FetchRepoDetails(ctx context.Context, owner, repo string) (Details, error) {
	var d Details

	health, _, err := g.client.Repositories.GetCommunityHealthMetrics(ctx, owner, repo)
	if err != nil {
		return d, fmt.Errorf("error fetching community profile: %w", err)
	}
	if files := health.Files; files != nil {
		d.Readme = fileLocation(files.Readme)
		d.Contributing = fileLocation(files.Contributing)
		d.IssueTemplates = fileLocation(files.IssueTemplate)
		d.PullRequestTemplate = fileLocation(files.PullRequestTemplate)
		if d.CodeOfConduct = fileLocation(files.CodeOfConductFile); d.CodeOfConduct == "" {
			d.CodeOfConduct = fileLocation(files.CodeOfConduct)
		}
	}

	d.SecurityPolicy, err = g.securityPolicy(ctx, owner, repo)
	if err != nil {
		return d, err
	}

	d.ReleaseDownloads, err = g.releaseDownloads(ctx, owner, repo)
	if err != nil {
		return d, err
	}

	contributions, err := g.contributions(ctx, owner, repo)
	if err != nil {
		return d, err
	}
	d.Contributors = int64(len(contributions))
	d.BusFactor = BusFactor(contributions)
	return d, nil
}

var securityPolicyPaths = []string{"SECURITY.md", ".github/SECURITY.md", "docs/SECURITY.md"}

// securityPolicy returns the path of the first security policy found.
func (g *GitHubClient) securityPolicy(ctx context.Context, owner, repo string) (string, error) {
	for _, path := range securityPolicyPaths {
		_, _, resp, err := g.client.Repositories.GetContents(ctx, owner, repo, path, nil)
		if err == nil {
			return path, nil
		}
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			continue
		}
		return "", fmt.Errorf("error fetching %s: %w", path, err)
	}
	return "", nil
}

func fileLocation(m *github.Metric) string {
	if m == nil {
		return ""
	}
	if u := m.GetHTMLURL(); u != "" {
		return u
	}
	if u := m.GetURL(); u != "" {
		return u
	}
	return m.GetName()
}

func (g *GitHubClient) releaseDownloads(ctx context.Context, owner, repo string) (int64, error) {
	opts := &github.ListOptions{PerPage: 100}
	var total int64
	for {
		releases, resp, err := g.client.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return 0, fmt.Errorf("error listing releases: %w", err)
		}
		for _, r := range releases {
			for _, a := range r.Assets {
				total += int64(a.GetDownloadCount())
			}
		}
		if resp.NextPage == 0 {
			return total, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitHubClient) contributions(ctx context.Context, owner, repo string) ([]int, error) {
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var out []int
	for {
		contributors, resp, err := g.client.Repositories.ListContributors(ctx, owner, repo, opts)
		if err != nil {
			// empty repositories answer 204 with no body
			if resp != nil && resp.StatusCode == http.StatusNoContent {
				return out, nil
			}
			return nil, fmt.Errorf("error listing contributors: %w", err)
		}
		for _, c := range contributors {
			out = append(out, c.GetContributions())
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// BusFactor is the smallest number of contributors who together authored at
// least half of all contributions.
func BusFactor(contributions []int) float64 {
	sorted := append([]int(nil), contributions...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	total := 0
	for _, c := range sorted {
		total += c
	}
	if total == 0 {
		return 0
	}
	acc := 0
	for i, c := range sorted {
		acc += c
		if 2*acc >= total {
			return float64(i + 1)
		}
	}
	return float64(len(sorted))
}
