package translator_test

import (
	"context"
	"errors"
	"testing"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/dataset/datasettest"
	"repo-explorer/internal/query"
	"repo-explorer/internal/translator"
)

func classify(t *testing.T, utterance string, filters query.FilterSet) query.StructuredQuery {
	t.Helper()
	q, err := translator.NewRuleClassifier(datasettest.Store()).Classify(context.Background(), utterance, filters)
	if err != nil {
		t.Fatalf("Classify(%q): unexpected error: %v", utterance, err)
	}
	return q
}

func predicateStrings(q query.StructuredQuery) []string {
	var out []string
	for _, p := range q.Predicates {
		out = append(out, p.String())
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRuleClassifierIntents(t *testing.T) {
	tests := []struct {
		utterance string
		intent    query.Intent
		groupBy   dataset.Dimension
		across    dataset.Dimension
		metric    dataset.Metric
		limit     int
		preds     []string
	}{
		{
			utterance: "Show the top 20 repositories by stars",
			intent:    query.IntentRank, metric: dataset.MetricStars, limit: 20,
		},
		{
			utterance: "Show repositories from UCLA with more than 100 stars",
			intent:    query.IntentList,
			preds:     []string{"university in [UCLA]", "stars > 100"},
		},
		{
			utterance: "How many repositories are there per university?",
			intent:    query.IntentCount, groupBy: dataset.DimUniversity,
		},
		{
			utterance: "What are the most common licenses overall?",
			intent:    query.IntentAggregate, groupBy: dataset.DimLicense,
		},
		{
			utterance: "Compare the languages used across project types",
			intent:    query.IntentCompare, groupBy: dataset.DimLanguage, across: dataset.DimType,
		},
		{
			utterance: "top 5 languages",
			intent:    query.IntentAggregate, groupBy: dataset.DimLanguage, limit: 5,
		},
		{
			utterance: "Which universities have the most repositories?",
			intent:    query.IntentAggregate, groupBy: dataset.DimUniversity,
		},
		{
			utterance: "most forked repositories from cmu",
			intent:    query.IntentRank, metric: dataset.MetricForks,
			preds:     []string{"university in [CMU]"},
		},
		{
			utterance: "how many Python repositories have fewer than 10 forks",
			intent:    query.IntentCount,
			preds:     []string{"language in [Python]", "forks < 10"},
		},
		{
			utterance: "repositories with 100 stars",
			intent:    query.IntentList,
			preds:     []string{"stars >= 100"},
		},
		{
			utterance: "repositories with between 100 and 1,000 stars",
			intent:    query.IntentList,
			preds:     []string{"stars >= 100 and stars <= 1000"},
		},
		{
			utterance: "Repositories from Carnegie Mellon under the MIT license",
			intent:    query.IntentList,
			preds:     []string{"university in [CMU]", "license in [MIT]"},
		},
		{
			utterance: "list repositories with no license",
			intent:    query.IntentList,
			preds:     []string{"license in [unspecified]"},
		},
		{
			utterance: "show R repositories with at most 2 contributors",
			intent:    query.IntentList,
			preds:     []string{"language in [R]", "contributors <= 2"},
		},
		{
			utterance: "repositories from UCLA and Berkeley",
			intent:    query.IntentList,
			preds:     []string{"university in [UCLA,UCB]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			q := classify(t, tt.utterance, nil)
			if q.Intent != tt.intent {
				t.Fatalf("expected intent %s, got %s", tt.intent, q.Intent)
			}
			if q.GroupBy != tt.groupBy || q.Across != tt.across {
				t.Fatalf("expected dimensions %q/%q, got %q/%q", tt.groupBy, tt.across, q.GroupBy, q.Across)
			}
			if q.Metric != tt.metric {
				t.Fatalf("expected metric %q, got %q", tt.metric, q.Metric)
			}
			if q.Limit != tt.limit {
				t.Fatalf("expected limit %d, got %d", tt.limit, q.Limit)
			}
			if got := predicateStrings(q); !sameStrings(got, tt.preds) {
				t.Fatalf("expected predicates %v, got %v", tt.preds, got)
			}
		})
	}
}

func TestRuleClassifierKeepsSessionFilters(t *testing.T) {
	filters := query.FilterSet{
		query.FieldUniversity: query.In("UCLA"),
		query.FieldStars:      query.AtLeast(10),
	}
	q := classify(t, "Show the top 20 repositories by stars written in Python", filters)

	want := []string{"stars >= 10", "university in [UCLA]", "language in [Python]"}
	if got := predicateStrings(q); !sameStrings(got, want) {
		t.Fatalf("expected predicates %v, got %v", want, got)
	}

	res, err := query.Execute(datasettest.Store(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range res.Rows {
		if r.University != "UCLA" || r.Language != "Python" || r.Stars < 10 {
			t.Fatalf("row %s escapes the session filters", r.FullName)
		}
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 matches, got %d", res.Total)
	}
}

func TestRuleClassifierEndToEnd(t *testing.T) {
	q := classify(t, "Show repositories from UCLA with more than 100 stars", nil)
	res, err := query.Execute(datasettest.Store(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, r := range res.Rows {
		names = append(names, r.FullName)
	}
	want := []string{"ucla/tied-a", "ucla/tied-b"}
	if !sameStrings(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}

func TestRuleClassifierUnresolvedEntity(t *testing.T) {
	_, err := translator.NewRuleClassifier(datasettest.Store()).
		Classify(context.Background(), "Show repositories from Mars", nil)

	var unresolved *query.UnresolvedEntityError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedEntityError, got %v", err)
	}
	if unresolved.Token != "Mars" || unresolved.Dimension != string(dataset.DimUniversity) {
		t.Fatalf("unexpected error details: %+v", unresolved)
	}
}

func TestRuleClassifierUnsupported(t *testing.T) {
	c := translator.NewRuleClassifier(datasettest.Store())
	for _, u := range []string{"tell me a joke", "", "compare apples and oranges"} {
		if _, err := c.Classify(context.Background(), u, nil); !errors.Is(err, query.ErrUnsupportedIntent) {
			t.Fatalf("Classify(%q): expected ErrUnsupportedIntent, got %v", u, err)
		}
	}
}

func TestRuleClassifierEmptyDataset(t *testing.T) {
	c := translator.NewRuleClassifier(dataset.Unavailable())
	if _, err := c.Classify(context.Background(), "Show the top 20 repositories by stars", nil); !errors.Is(err, query.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestIsReset(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"reset all filters", true},
		{"Reset all filters.", true},
		{"please clear the filters", true},
		{"remove filters", true},
		{"reset", false},
		{"show all filters", false},
		{"reset all filters and show me UCLA", false},
	}
	for _, tt := range tests {
		if got := translator.IsReset(tt.in); got != tt.want {
			t.Fatalf("IsReset(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestRuleClassifierIgnoresCommonWords(t *testing.T) {
	other := "Other"
	records := append(datasettest.Records(), dataset.Repository{
		ID: 10, FullName: "cmu/slides-theme", University: "CMU", Type: "OTHER",
		Language: "Less", License: &other, Stars: 20,
	})
	store := dataset.NewStore(records, datasettest.Aliases())
	c := translator.NewRuleClassifier(store)

	tests := []struct {
		utterance string
		preds     []string
	}{
		{"Show repositories from UCLA with less than 200 stars", []string{"university in [UCLA]", "stars < 200"}},
		{"How many other repositories are there per university?", nil},
		{"Show repositories with more than 10 stars written in Less", []string{"language in [Less]", "stars > 10"}},
		{"Show OTHER projects", []string{"type in [OTHER]"}},
	}
	for _, tt := range tests {
		q, err := c.Classify(context.Background(), tt.utterance, nil)
		if err != nil {
			t.Fatalf("Classify(%q): unexpected error: %v", tt.utterance, err)
		}
		if got := predicateStrings(q); !sameStrings(got, tt.preds) {
			t.Fatalf("Classify(%q): expected predicates %v, got %v", tt.utterance, tt.preds, got)
		}
	}

	q, err := c.Classify(context.Background(), "Show repositories from UCLA with less than 200 stars", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := query.Execute(store, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("expected ucla/small and ucla/tiny, got %d rows", res.Total)
	}
}
