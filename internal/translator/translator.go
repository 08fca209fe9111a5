// Package translator turns a chat utterance plus the active sidebar filters
// into a query.StructuredQuery.
package translator

import (
	"context"
	"regexp"
	"strings"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/query"
)

// Schema is the part of the dataset store entity resolution needs.
type Schema interface {
	Loaded() bool
	Resolve(d dataset.Dimension, token string) (string, bool)
	Values(d dataset.Dimension) []string
}

// Classifier maps an utterance to a structured query. Implementations fail
// with query.ErrUnsupportedIntent, *query.UnresolvedEntityError or
// query.ErrEmptyDataset.
type Classifier interface {
	Classify(ctx context.Context, utterance string, filters query.FilterSet) (query.StructuredQuery, error)
	Name() string
}

var resetPattern = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:reset|clear|remove)\s+(?:all\s+)?(?:the\s+|my\s+)?filters?\s*[.!]*\s*$`)

// IsReset reports whether utterance asks to clear the session filters.
func IsReset(utterance string) bool {
	return resetPattern.MatchString(utterance)
}

type rangeSpec struct {
	field string
	c     query.Constraint
}

// intentSpec is the classifier-independent parse of one utterance. Entity
// mentions are still raw tokens; build resolves them against the schema.
type intentSpec struct {
	intent   query.Intent
	groupBy  dataset.Dimension
	across   dataset.Dimension
	metric   dataset.Metric
	limit    int
	mentions map[dataset.Dimension][]string
	ranges   []rangeSpec
}

func (s *intentSpec) mention(d dataset.Dimension, token string) {
	if s.mentions == nil {
		s.mentions = map[dataset.Dimension][]string{}
	}
	s.mentions[d] = append(s.mentions[d], token)
}

func (s intentSpec) build(schema Schema, filters query.FilterSet) (query.StructuredQuery, error) {
	if schema == nil || !schema.Loaded() {
		return query.StructuredQuery{}, query.ErrEmptyDataset
	}

	q := query.New(s.intent, filters)
	for _, d := range dataset.Dimensions {
		var values []string
		seen := map[string]bool{}
		for _, token := range s.mentions[d] {
			v, ok := schema.Resolve(d, token)
			if !ok {
				return query.StructuredQuery{}, &query.UnresolvedEntityError{Token: strings.TrimSpace(token), Dimension: string(d)}
			}
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		switch len(values) {
		case 0:
		case 1:
			q = q.Where(query.FieldForDimension(d), query.Equals(values[0]))
		default:
			q = q.Where(query.FieldForDimension(d), query.In(values...))
		}
	}
	for _, r := range s.ranges {
		q = q.Where(r.field, r.c)
	}

	q.GroupBy = s.groupBy
	q.Across = s.across
	q.Metric = s.metric
	q.Limit = s.limit
	return q, nil
}
