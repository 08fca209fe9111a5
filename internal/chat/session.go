package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"repo-explorer/internal/presenter"
	"repo-explorer/internal/query"
)

type Outcome string

const (
	OutcomeOK                 Outcome = "ok"
	OutcomeNoMatch            Outcome = "no_match"
	OutcomeUnresolvedEntity   Outcome = "unresolved_entity"
	OutcomeUnsupportedIntent  Outcome = "unsupported_intent"
	OutcomeDatasetUnavailable Outcome = "dataset_unavailable"
	OutcomeReset              Outcome = "reset"
	OutcomeError              Outcome = "error"
)

// Turn is one answered utterance. Query is nil when translation failed.
type Turn struct {
	Utterance string                 `json:"utterance"`
	Query     *query.StructuredQuery `json:"query,omitempty"`
	Answer    presenter.Answer       `json:"answer"`
	Outcome   Outcome                `json:"outcome"`
	At        time.Time              `json:"at"`
}

// Session holds the filters and history of one conversation. A session
// handles one turn at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	filters query.FilterSet
	turns   []Turn
}

func newSession(filters query.FilterSet) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		filters:   copyFilters(filters),
	}
}

// Snapshot is a copy of the session state safe to serialize.
type Snapshot struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Filters   query.FilterSet `json:"filters"`
	Turns     []Turn          `json:"turns"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	return Snapshot{ID: s.ID, CreatedAt: s.CreatedAt, Filters: copyFilters(s.filters), Turns: turns}
}

// Filters returns a copy of the active filter set.
func (s *Session) Filters() query.FilterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFilters(s.filters)
}

func copyFilters(f query.FilterSet) query.FilterSet {
	out := make(query.FilterSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
