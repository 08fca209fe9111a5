package query

import "repo-explorer/internal/dataset"

type Intent string

const (
	IntentList      Intent = "list"
	IntentCount     Intent = "count"
	IntentRank      Intent = "rank"
	IntentAggregate Intent = "aggregate"
	IntentCompare   Intent = "compare"
)

const (
	DefaultLimit          = 20
	DefaultAggregateLimit = 10
)

// StructuredQuery is the executable form of one utterance. Predicates always
// start with the session filters; the utterance can only append to them.
type StructuredQuery struct {
	Intent     Intent            `json:"intent"`
	Predicates []Predicate       `json:"predicates,omitempty"`
	GroupBy    dataset.Dimension `json:"group_by,omitempty"`
	Across     dataset.Dimension `json:"across,omitempty"`
	Metric     dataset.Metric    `json:"metric,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Search     string            `json:"search,omitempty"`
}

// New returns a query of the given intent seeded with the filter set.
func New(intent Intent, filters FilterSet) StructuredQuery {
	return StructuredQuery{Intent: intent, Predicates: filters.Predicates()}
}

// Where appends a predicate.
func (q StructuredQuery) Where(field string, c Constraint) StructuredQuery {
	preds := make([]Predicate, len(q.Predicates), len(q.Predicates)+1)
	copy(preds, q.Predicates)
	q.Predicates = append(preds, Predicate{Field: field, Constraint: c})
	return q
}

// EffectiveLimit applies the intent's default when Limit is unset.
func (q StructuredQuery) EffectiveLimit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	switch q.Intent {
	case IntentRank, IntentList:
		return DefaultLimit
	case IntentAggregate:
		return DefaultAggregateLimit
	}
	return 0
}
