package query

import (
	"sort"

	"repo-explorer/internal/dataset"
)

// Overview is the dashboard summary for a filter set.
type Overview struct {
	Repositories      int             `json:"repositories"`
	Contributors      int64           `json:"contributors"`
	LicensedPercent   float64         `json:"licensed_percent"`
	AverageBusFactor  float64         `json:"average_bus_factor"`
	PerUniversity     []Group         `json:"per_university"`
	CommunityFiles    map[string]int  `json:"community_files"`
	CommunityFileBase int             `json:"community_file_base"`
	FilesByType       []FileBreakdown `json:"files_by_type"`
	FilesByStars      []FileBreakdown `json:"files_by_stars"`
}

// FileBreakdown counts community files among the repositories sharing a
// project type or a star bucket.
type FileBreakdown struct {
	Key          string         `json:"key"`
	Repositories int            `json:"repositories"`
	Files        map[string]int `json:"files"`
}

// StarBuckets are the star ranges of the per-popularity breakdown, in order.
var StarBuckets = []string{"0-10", "11-50", "51-100", "101-200", ">200"}

func starBucket(stars int64) string {
	switch {
	case stars <= 10:
		return StarBuckets[0]
	case stars <= 50:
		return StarBuckets[1]
	case stars <= 100:
		return StarBuckets[2]
	case stars <= 200:
		return StarBuckets[3]
	}
	return StarBuckets[4]
}

func newFileCounts() map[string]int {
	files := make(map[string]int, len(dataset.CommunityFiles))
	for _, f := range dataset.CommunityFiles {
		files[string(f)] = 0
	}
	return files
}

func countFiles(files map[string]int, r dataset.Repository) {
	for _, f := range dataset.CommunityFiles {
		if r.Has(f) {
			files[string(f)]++
		}
	}
}

// Summarize computes the overview over the records matching filters.
func Summarize(src Source, filters FilterSet) (Overview, error) {
	if src == nil || !src.Loaded() {
		return Overview{}, ErrEmptyDataset
	}
	preds := filters.Predicates()

	var (
		matched  []dataset.Repository
		licensed int
		busSum   float64
		busN     int
	)
	files := newFileCounts()
	byType := map[string]*FileBreakdown{}
	byStars := map[string]*FileBreakdown{}
	ov := Overview{}
	for _, r := range src.Records() {
		if !MatchAll(preds, r) {
			continue
		}
		matched = append(matched, r)
		ov.Contributors += r.ContributorCount
		if r.HasLicense() {
			licensed++
		}
		if r.BusFactor > 0 {
			busSum += r.BusFactor
			busN++
		}
		countFiles(files, r)

		typ := r.Type
		if typ == "" {
			typ = dataset.Unspecified
		}
		addBreakdown(byType, typ, r)
		addBreakdown(byStars, starBucket(r.Stars), r)
	}

	ov.Repositories = len(matched)
	ov.CommunityFiles = files
	ov.CommunityFileBase = len(matched)
	if len(matched) > 0 {
		ov.LicensedPercent = 100 * float64(licensed) / float64(len(matched))
	}
	if busN > 0 {
		ov.AverageBusFactor = busSum / float64(busN)
	}
	ov.PerUniversity = countBy(matched, dataset.DimUniversity, "")

	types := make([]string, 0, len(byType))
	for k := range byType {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		ov.FilesByType = append(ov.FilesByType, *byType[k])
	}
	for _, k := range StarBuckets {
		if b, ok := byStars[k]; ok {
			ov.FilesByStars = append(ov.FilesByStars, *b)
		}
	}
	return ov, nil
}

func addBreakdown(m map[string]*FileBreakdown, key string, r dataset.Repository) {
	b, ok := m[key]
	if !ok {
		b = &FileBreakdown{Key: key, Files: newFileCounts()}
		m[key] = b
	}
	b.Repositories++
	countFiles(b.Files, r)
}
