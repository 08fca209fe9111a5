package dataset

import (
	"sort"
	"strings"
)

// Store holds the repositories table for the process lifetime. It is never
// mutated after construction, so concurrent readers need no locking.
type Store struct {
	records []Repository
	loaded  bool
	values  map[Dimension][]string
	index   map[Dimension]map[string]string
	aliases map[string]string
}

// NewStore builds a loaded store. aliases maps alternative university names
// (acronyms) to the university value used in the records.
func NewStore(records []Repository, aliases map[string]string) *Store {
	s := &Store{
		records: make([]Repository, len(records)),
		loaded:  true,
		values:  make(map[Dimension][]string, len(Dimensions)),
		index:   make(map[Dimension]map[string]string, len(Dimensions)),
		aliases: make(map[string]string, len(aliases)),
	}
	for i, r := range records {
		s.records[i] = r.normalize()
	}
	for _, d := range Dimensions {
		seen := map[string]string{}
		for _, r := range s.records {
			v := r.Value(d)
			if v == "" {
				continue
			}
			seen[strings.ToLower(v)] = v
		}
		vals := make([]string, 0, len(seen))
		for _, v := range seen {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		s.values[d] = vals
		s.index[d] = seen
	}
	for alias, name := range aliases {
		if canonical, ok := s.index[DimUniversity][strings.ToLower(name)]; ok {
			s.aliases[strings.ToLower(alias)] = canonical
		}
	}
	return s
}

// Unavailable returns a store that reports itself as not loaded.
func Unavailable() *Store {
	return &Store{}
}

func (s *Store) Loaded() bool {
	return s != nil && s.loaded
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns the backing slice. Callers must not modify it.
func (s *Store) Records() []Repository {
	if s == nil {
		return nil
	}
	return s.records
}

// Values returns the sorted distinct values of d.
func (s *Store) Values(d Dimension) []string {
	if s == nil {
		return nil
	}
	return s.values[d]
}

// Resolve matches token case-insensitively against the known values of d.
// University lookups also accept registered aliases.
func (s *Store) Resolve(d Dimension, token string) (string, bool) {
	if s == nil {
		return "", false
	}
	key := strings.ToLower(strings.TrimSpace(token))
	if key == "" {
		return "", false
	}
	if v, ok := s.index[d][key]; ok {
		return v, true
	}
	if d == DimUniversity {
		if v, ok := s.aliases[key]; ok {
			return v, true
		}
	}
	if d == DimLicense && (key == Unspecified || key == "no license" || key == "none") {
		return Unspecified, true
	}
	return "", false
}
