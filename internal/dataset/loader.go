package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	CombinedFile   = "repositories_combined_clean.parquet"
	RepositoryFile = "repositories.parquet"
)

// DefaultUniversities are the acronyms looked up under the data directory
// when no explicit list is configured.
var DefaultUniversities = []string{
	"UCB", "UCI", "UCD", "UCLA", "UCM", "UCR", "UCSB", "UCSC", "UCSD", "UCSF",
	"Biohub", "CMU", "ETH", "GWU", "Lero", "MGB", "MSU", "OSU", "RIT", "SLU",
	"Syracuse", "TCD", "UGA", "SnT", "UCL", "UMich", "UVM", "UWMadison", "JHU",
	"Georgia Tech", "UT Austin", "Stanford",
}

var ErrNoData = errors.New("no repository data found")

type LoadOptions struct {
	// Dir is the parquet base directory (Data/parquet).
	Dir string
	// ConfigDir holds config_<ACRONYM>.json files with UNIVERSITY_NAME.
	ConfigDir    string
	Universities []string
	Workers      int
}

type universityConfig struct {
	UniversityName string `json:"UNIVERSITY_NAME"`
}

// Load reads the repositories table. The combined file is used when present;
// otherwise every <Dir>/<acronym>/repositories.parquet is read in parallel.
// When nothing can be read Load returns an unavailable store together with
// the error so callers can keep running without chat.
func Load(ctx context.Context, opts LoadOptions, logger *zap.Logger) (*Store, error) {
	combined := filepath.Join(opts.Dir, CombinedFile)
	if _, err := os.Stat(combined); err == nil {
		records, err := ReadFile(combined)
		if err != nil {
			logger.Error("Failed to load combined parquet", zap.String("path", combined), zap.Error(err))
			return Unavailable(), fmt.Errorf("load %s: %w", combined, err)
		}
		for i := range records {
			if records[i].University == "" {
				records[i].University = "Unknown"
			}
		}
		logger.Info("Loaded combined dataset", zap.String("path", combined), zap.Int("repositories", len(records)))
		return NewStore(records, combinedAliases(opts)), nil
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return Unavailable(), fmt.Errorf("read data dir %s: %w", opts.Dir, err)
	}
	dirs := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			dirs[strings.ToLower(e.Name())] = e.Name()
		}
	}

	acronyms := opts.Universities
	if len(acronyms) == 0 {
		acronyms = DefaultUniversities
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}

	parts := make([][]Repository, len(acronyms))
	names := make([]string, len(acronyms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, acronym := range acronyms {
		dir, ok := dirs[strings.ToLower(strings.ReplaceAll(acronym, " ", "_"))]
		if !ok {
			continue
		}
		i, acronym, dir := i, acronym, dir
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(opts.Dir, dir, RepositoryFile)
			if _, err := os.Stat(path); err != nil {
				logger.Warn("Repository file missing", zap.String("university", acronym), zap.String("path", path))
				return nil
			}
			records, err := ReadFile(path)
			if err != nil {
				logger.Error("Failed to load parquet", zap.String("university", acronym), zap.Error(err))
				return nil
			}
			name := universityName(opts.ConfigDir, acronym)
			for j := range records {
				records[j].University = name
			}
			parts[i] = records
			names[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Unavailable(), err
	}

	var all []Repository
	aliases := make(map[string]string)
	for i, p := range parts {
		if len(p) == 0 {
			continue
		}
		all = append(all, p...)
		aliases[acronyms[i]] = names[i]
	}
	if len(all) == 0 {
		return Unavailable(), fmt.Errorf("%s: %w", opts.Dir, ErrNoData)
	}
	logger.Info("Loaded dataset",
		zap.Int("universities", len(aliases)),
		zap.Int("repositories", len(all)))
	return NewStore(all, aliases), nil
}

// combinedAliases maps every configured acronym to its university name so
// acronyms keep resolving when the combined file stores full names.
func combinedAliases(opts LoadOptions) map[string]string {
	acronyms := opts.Universities
	if len(acronyms) == 0 {
		acronyms = DefaultUniversities
	}
	aliases := make(map[string]string, len(acronyms))
	for _, acronym := range acronyms {
		aliases[acronym] = universityName(opts.ConfigDir, acronym)
	}
	return aliases
}

func universityName(configDir, acronym string) string {
	if configDir == "" {
		return acronym
	}
	path := filepath.Join(configDir, fmt.Sprintf("config_%s.json", strings.ReplaceAll(acronym, " ", "_")))
	b, err := os.ReadFile(path)
	if err != nil {
		return acronym
	}
	var cfg universityConfig
	if err := json.Unmarshal(b, &cfg); err != nil || cfg.UniversityName == "" {
		return acronym
	}
	return cfg.UniversityName
}

// ReadFile reads one repositories parquet file.
func ReadFile(path string) ([]Repository, error) {
	return parquet.ReadFile[Repository](path)
}

// WriteFile writes records as a repositories parquet file, creating parent
// directories as needed.
func WriteFile(path string, records []Repository) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
