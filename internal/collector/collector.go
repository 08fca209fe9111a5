package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	gogithub "github.com/google/go-github/v53/github"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/github"
)

// RepoSource is the part of the GitHub API the collector reads.
type RepoSource interface {
	ListOrgRepos(ctx context.Context, org string) ([]*gogithub.Repository, error)
	FetchRepoDetails(ctx context.Context, owner, repo string) (github.Details, error)
}

type Options struct {
	Org        string
	University string
	// Dir is the parquet base directory; output goes to Dir/<University>.
	Dir          string
	Workers      int
	IncludeForks bool
}

func safeString(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

func safeInt(i *int) int64 {
	if i != nil {
		return int64(*i)
	}
	return 0
}

// Collect lists the organization's repositories, enriches each one with
// community and release details, and writes the university's parquet file.
// Repositories whose details cannot be fetched are kept with listing data
// only.
func Collect(ctx context.Context, src RepoSource, opts Options, logger *zap.Logger) (string, []dataset.Repository, error) {
	if opts.Org == "" || opts.University == "" {
		return "", nil, fmt.Errorf("organization and university are required")
	}
	repos, err := src.ListOrgRepos(ctx, opts.Org)
	if err != nil {
		return "", nil, err
	}

	var kept []*gogithub.Repository
	for _, repo := range repos {
		if repo.ID == nil || repo.FullName == nil {
			logger.Warn("Skipping incomplete repo", zap.String("name", repo.GetName()))
			continue
		}
		if repo.GetFork() && !opts.IncludeForks {
			continue
		}
		kept = append(kept, repo)
	}

	records := make([]dataset.Repository, len(kept))
	var partial atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, repo := range kept {
		i, repo := i, repo
		g.Go(func() error {
			records[i] = fromGitHub(repo, opts.University)
			owner, name := splitFullName(repo.GetFullName())
			d, err := src.FetchRepoDetails(gctx, owner, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				partial.Add(1)
				logger.Warn("Failed to fetch repo details", zap.String("repo", repo.GetFullName()), zap.Error(err))
				return nil
			}
			applyDetails(&records[i], d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	path := filepath.Join(opts.Dir, opts.University, dataset.RepositoryFile)
	if err := dataset.WriteFile(path, records); err != nil {
		return "", nil, err
	}
	logger.Info("Collected repositories",
		zap.String("org", opts.Org),
		zap.String("university", opts.University),
		zap.Int("count", len(records)),
		zap.Int64("without_details", partial.Load()),
		zap.String("path", path))
	return path, records, nil
}

func fromGitHub(repo *gogithub.Repository, university string) dataset.Repository {
	r := dataset.Repository{
		ID:          repo.GetID(),
		FullName:    safeString(repo.FullName),
		Owner:       repo.GetOwner().GetLogin(),
		University:  university,
		Language:    safeString(repo.Language),
		Description: safeString(repo.Description),
		HTMLURL:     safeString(repo.HTMLURL),
		Stars:       safeInt(repo.StargazersCount),
		Forks:       safeInt(repo.ForksCount),
	}
	if lic := repo.GetLicense(); lic != nil {
		name := lic.GetSPDXID()
		if name == "" || name == "NOASSERTION" {
			name = lic.GetName()
		}
		if name != "" {
			r.License = &name
		}
	}
	return r
}

func applyDetails(r *dataset.Repository, d github.Details) {
	r.Readme = optional(d.Readme)
	r.CodeOfConduct = optional(d.CodeOfConduct)
	r.Contributing = optional(d.Contributing)
	r.SecurityPolicy = optional(d.SecurityPolicy)
	r.IssueTemplates = optional(d.IssueTemplates)
	r.PullRequestTemplate = optional(d.PullRequestTemplate)
	r.Downloads = d.ReleaseDownloads
	r.ContributorCount = d.Contributors
	r.BusFactor = d.BusFactor
}

// optional maps a missing file to a null column.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func splitFullName(fullName string) (string, string) {
	owner, name, _ := strings.Cut(fullName, "/")
	return owner, name
}
