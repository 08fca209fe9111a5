package collector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gogithub "github.com/google/go-github/v53/github"
	"go.uber.org/zap"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/github"
)

type fakeSource struct {
	repos   []*gogithub.Repository
	details map[string]github.Details
	listErr error
}

func (f *fakeSource) ListOrgRepos(ctx context.Context, org string) ([]*gogithub.Repository, error) {
	return f.repos, f.listErr
}

func (f *fakeSource) FetchRepoDetails(ctx context.Context, owner, repo string) (github.Details, error) {
	d, ok := f.details[owner+"/"+repo]
	if !ok {
		return github.Details{}, errors.New("rate limited")
	}
	return d, nil
}

func repo(id int64, fullName, lang, spdx string, stars int, fork bool) *gogithub.Repository {
	r := &gogithub.Repository{
		ID:              gogithub.Int64(id),
		FullName:        gogithub.String(fullName),
		Language:        gogithub.String(lang),
		StargazersCount: gogithub.Int(stars),
		Fork:            gogithub.Bool(fork),
	}
	if spdx != "" {
		r.License = &gogithub.License{SPDXID: gogithub.String(spdx)}
	}
	return r
}

func TestCollectWritesUniversityFile(t *testing.T) {
	src := &fakeSource{
		repos: []*gogithub.Repository{
			repo(1, "cmu-lab/robot-os", "C++", "MIT", 1200, false),
			repo(2, "cmu-lab/notes", "Python", "", 3, false),
			repo(3, "cmu-lab/forked", "Go", "MIT", 1, true),
			{Name: gogithub.String("broken")},
		},
		details: map[string]github.Details{
			"cmu-lab/robot-os": {Contributing: "CONTRIBUTING.md", ReleaseDownloads: 50, Contributors: 3, BusFactor: 1},
		},
	}
	dir := t.TempDir()
	path, records, err := Collect(context.Background(), src, Options{Org: "cmu-lab", University: "CMU", Dir: dir, Workers: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "CMU", dataset.RepositoryFile) {
		t.Fatalf("unexpected path %s", path)
	}
	if len(records) != 2 {
		t.Fatalf("expected forks and incomplete repos skipped, got %d records", len(records))
	}

	written, err := dataset.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 written records, got %d", len(written))
	}
	robot := written[0]
	if robot.University != "CMU" || robot.LicenseName() != "MIT" || robot.Downloads != 50 || !robot.Has(dataset.FileContributing) || robot.ContributorCount != 3 {
		t.Fatalf("unexpected enriched record %+v", robot)
	}
	if robot.Has(dataset.FileSecurityPolicy) || robot.SecurityPolicy != nil {
		t.Fatalf("expected a null security policy, got %v", robot.SecurityPolicy)
	}
	notes := written[1]
	if notes.LicenseName() != dataset.Unspecified || notes.ContributorCount != 0 {
		t.Fatalf("expected listing-only record for failed details, got %+v", notes)
	}
}

func TestCollectValidatesOptions(t *testing.T) {
	if _, _, err := Collect(context.Background(), &fakeSource{}, Options{Org: "x"}, zap.NewNop()); err == nil {
		t.Fatalf("expected error without a university")
	}
}

func TestCollectListError(t *testing.T) {
	src := &fakeSource{listErr: errors.New("bad credentials")}
	if _, _, err := Collect(context.Background(), src, Options{Org: "x", University: "X", Dir: t.TempDir()}, zap.NewNop()); err == nil {
		t.Fatalf("expected list error to propagate")
	}
}
