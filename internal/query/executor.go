package query

import (
	"fmt"
	"sort"

	"repo-explorer/internal/dataset"
)

// Source is the read-only view of the dataset the executor needs.
type Source interface {
	Loaded() bool
	Records() []dataset.Repository
}

// Group is one bucket of a counting, aggregation or comparison query.
type Group struct {
	Key    string `json:"key"`
	Across string `json:"across,omitempty"`
	Count  int    `json:"count"`
}

// Result is what a query returns. Total is the number of matching records
// before any limit; a zero Total is the NoMatch case.
type Result struct {
	Query  StructuredQuery      `json:"query"`
	Rows   []dataset.Repository `json:"rows,omitempty"`
	Groups []Group              `json:"groups,omitempty"`
	Total  int                  `json:"total"`
}

func (r Result) NoMatch() bool {
	return r.Total == 0
}

// Execute runs q against src.
func Execute(src Source, q StructuredQuery) (Result, error) {
	if src == nil || !src.Loaded() {
		return Result{}, ErrEmptyDataset
	}

	var matched []dataset.Repository
	for _, r := range src.Records() {
		if MatchAll(q.Predicates, r) && MatchText(q.Search, r) {
			matched = append(matched, r)
		}
	}
	res := Result{Query: q, Total: len(matched)}
	if len(matched) == 0 {
		return res, nil
	}

	switch q.Intent {
	case IntentRank, IntentList:
		metric := q.Metric
		if metric == "" {
			metric = dataset.MetricStars
		}
		sortByMetric(matched, metric)
		if limit := q.EffectiveLimit(); len(matched) > limit {
			matched = matched[:limit]
		}
		res.Rows = matched
	case IntentCount:
		if q.GroupBy != "" {
			res.Groups = countBy(matched, q.GroupBy, "")
		}
	case IntentAggregate:
		if q.GroupBy == "" {
			return Result{}, fmt.Errorf("aggregate query without a dimension: %w", ErrUnsupportedIntent)
		}
		groups := countBy(matched, q.GroupBy, "")
		if limit := q.EffectiveLimit(); len(groups) > limit {
			groups = groups[:limit]
		}
		res.Groups = groups
	case IntentCompare:
		if q.GroupBy == "" || q.Across == "" {
			return Result{}, fmt.Errorf("compare query needs two dimensions: %w", ErrUnsupportedIntent)
		}
		res.Groups = countBy(matched, q.GroupBy, q.Across)
	default:
		return Result{}, fmt.Errorf("intent %q: %w", q.Intent, ErrUnsupportedIntent)
	}
	return res, nil
}

// sortByMetric orders rows by metric descending, then full name ascending.
func sortByMetric(rows []dataset.Repository, m dataset.Metric) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Measure(m), rows[j].Measure(m)
		if a != b {
			return a > b
		}
		return rows[i].FullName < rows[j].FullName
	})
}

// countBy groups rows by dim (and across, when set). Rows with an empty key
// are skipped; groups come back by count descending, then key ascending.
func countBy(rows []dataset.Repository, dim, across dataset.Dimension) []Group {
	type key struct{ k, a string }
	counts := map[key]int{}
	for _, r := range rows {
		k := key{k: r.Value(dim)}
		if k.k == "" {
			continue
		}
		if across != "" {
			k.a = r.Value(across)
			if k.a == "" {
				continue
			}
		}
		counts[k]++
	}

	groups := make([]Group, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, Group{Key: k.k, Across: k.a, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if across != "" && groups[i].Across != groups[j].Across {
			return groups[i].Across < groups[j].Across
		}
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}
