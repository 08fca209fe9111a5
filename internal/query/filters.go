package query

import (
	"fmt"
	"sort"
	"strings"

	"repo-explorer/internal/dataset"
)

// Field names accepted in a FilterSet.
const (
	FieldUniversity   = "university"
	FieldType         = "type"
	FieldLicense      = "license"
	FieldLanguage     = "language"
	FieldStars        = "stars"
	FieldForks        = "forks"
	FieldDownloads    = "downloads"
	FieldContributors = "contributors"
	FieldAffiliation  = "affiliation"
)

type ConstraintKind string

const (
	KindEquals ConstraintKind = "equals"
	KindIn     ConstraintKind = "in"
	KindRange  ConstraintKind = "range"
)

// Constraint is one sidebar filter. Equality and membership use Values,
// ranges use Min/Max (inclusive unless the matching Exclusive flag is set).
// Rows without a value (affiliation only) pass a range unless Required.
type Constraint struct {
	Kind         ConstraintKind `json:"kind"`
	Values       []string       `json:"values,omitempty"`
	Min          *float64       `json:"min,omitempty"`
	Max          *float64       `json:"max,omitempty"`
	MinExclusive bool           `json:"min_exclusive,omitempty"`
	MaxExclusive bool           `json:"max_exclusive,omitempty"`
	Required     bool           `json:"required,omitempty"`
}

// FilterSet maps a field name to its active constraint.
type FilterSet map[string]Constraint

// Predicate is a constraint bound to a field.
type Predicate struct {
	Field      string     `json:"field"`
	Constraint Constraint `json:"constraint"`
}

func Equals(v string) Constraint { return Constraint{Kind: KindEquals, Values: []string{v}} }

func In(vs ...string) Constraint { return Constraint{Kind: KindIn, Values: vs} }

func AtLeast(n float64) Constraint { return Constraint{Kind: KindRange, Min: &n} }

func MoreThan(n float64) Constraint { return Constraint{Kind: KindRange, Min: &n, MinExclusive: true} }

func AtMost(n float64) Constraint { return Constraint{Kind: KindRange, Max: &n} }

func LessThan(n float64) Constraint { return Constraint{Kind: KindRange, Max: &n, MaxExclusive: true} }

func Between(lo, hi float64) Constraint { return Constraint{Kind: KindRange, Min: &lo, Max: &hi} }

func isCategorical(field string) bool {
	switch field {
	case FieldUniversity, FieldType, FieldLicense, FieldLanguage:
		return true
	}
	return false
}

func isNumeric(field string) bool {
	switch field {
	case FieldStars, FieldForks, FieldDownloads, FieldContributors, FieldAffiliation:
		return true
	}
	return false
}

// FieldForDimension returns the filter field for a dataset dimension.
func FieldForDimension(d dataset.Dimension) string {
	return string(d)
}

// FieldForMetric returns the filter field for a dataset metric.
func FieldForMetric(m dataset.Metric) string {
	return string(m)
}

// Validate checks field names and constraint shapes.
func (f FilterSet) Validate() error {
	if err := f.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return nil
}

func (f FilterSet) validate() error {
	for field, c := range f {
		switch {
		case isCategorical(field):
			if c.Kind != KindEquals && c.Kind != KindIn {
				return fmt.Errorf("filter %s: %s constraint not allowed on a categorical field", field, c.Kind)
			}
			if c.Kind == KindEquals && len(c.Values) != 1 {
				return fmt.Errorf("filter %s: equals needs exactly one value", field)
			}
		case isNumeric(field):
			if c.Kind != KindRange {
				return fmt.Errorf("filter %s: %s constraint not allowed on a numeric field", field, c.Kind)
			}
			if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
				return fmt.Errorf("filter %s: min %v greater than max %v", field, *c.Min, *c.Max)
			}
		default:
			return fmt.Errorf("unknown filter %q", field)
		}
	}
	return nil
}

// Predicates returns the filter set as predicates in field order.
func (f FilterSet) Predicates() []Predicate {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	out := make([]Predicate, 0, len(fields))
	for _, field := range fields {
		c := f[field]
		// an empty membership list means "no selection" in the sidebar
		if (c.Kind == KindIn || c.Kind == KindEquals) && len(c.Values) == 0 {
			continue
		}
		if c.Kind == KindRange && c.Min == nil && c.Max == nil {
			continue
		}
		out = append(out, Predicate{Field: field, Constraint: c})
	}
	return out
}

// Key is a stable string form of the filter set, used for cache keys.
func (f FilterSet) Key() string {
	var b strings.Builder
	for _, p := range f.Predicates() {
		b.WriteString(p.String())
		b.WriteByte(';')
	}
	return b.String()
}

// Match reports whether r satisfies the predicate.
func (p Predicate) Match(r dataset.Repository) bool {
	if isCategorical(p.Field) {
		v := r.Value(dataset.Dimension(p.Field))
		for _, want := range p.Constraint.Values {
			if strings.EqualFold(v, want) {
				return true
			}
		}
		return false
	}

	var v float64
	switch p.Field {
	case FieldAffiliation:
		if r.Affiliation == nil {
			return !p.Constraint.Required
		}
		v = *r.Affiliation
	default:
		v = float64(r.Measure(dataset.Metric(p.Field)))
	}
	c := p.Constraint
	if c.Min != nil {
		if c.MinExclusive && v <= *c.Min || !c.MinExclusive && v < *c.Min {
			return false
		}
	}
	if c.Max != nil {
		if c.MaxExclusive && v >= *c.Max || !c.MaxExclusive && v > *c.Max {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	c := p.Constraint
	switch c.Kind {
	case KindEquals, KindIn:
		return fmt.Sprintf("%s in [%s]", p.Field, strings.Join(c.Values, ","))
	}
	var parts []string
	if c.Min != nil {
		op := ">="
		if c.MinExclusive {
			op = ">"
		}
		parts = append(parts, fmt.Sprintf("%s %s %v", p.Field, op, *c.Min))
	}
	if c.Max != nil {
		op := "<="
		if c.MaxExclusive {
			op = "<"
		}
		parts = append(parts, fmt.Sprintf("%s %s %v", p.Field, op, *c.Max))
	}
	if c.Required {
		parts = append(parts, p.Field+" present")
	}
	return strings.Join(parts, " and ")
}

// MatchText reports whether term occurs, ignoring case, in the name, owner,
// description, language, license or university of r. A blank term matches
// every row.
func MatchText(term string, r dataset.Repository) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, v := range []string{r.FullName, r.Owner, r.Description, r.Language, r.LicenseName(), r.University} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// MatchAll reports whether r satisfies every predicate.
func MatchAll(preds []Predicate, r dataset.Repository) bool {
	for _, p := range preds {
		if !p.Match(r) {
			return false
		}
	}
	return true
}
