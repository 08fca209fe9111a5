// Package chat runs conversational sessions over the repository dataset:
// each turn is translated, executed and rendered against the session's
// sidebar filters.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"repo-explorer/internal/presenter"
	"repo-explorer/internal/query"
	"repo-explorer/internal/translator"
)

var ErrSessionNotFound = errors.New("session not found")

// Recorder receives one observation per finished turn.
type Recorder interface {
	ObserveTurn(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTurn(string, time.Duration) {}

// Service owns the session registry. The dataset is shared read-only by
// all sessions.
type Service struct {
	source     query.Source
	classifier translator.Classifier
	recorder   Recorder
	logger     *zap.Logger

	defaults query.FilterSet

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Service)

// WithDefaultFilters sets the filters new sessions start with.
func WithDefaultFilters(filters query.FilterSet) Option {
	return func(s *Service) { s.defaults = copyFilters(filters) }
}

func NewService(source query.Source, classifier translator.Classifier, recorder Recorder, logger *zap.Logger, opts ...Option) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	s := &Service{
		source:     source,
		classifier: classifier,
		recorder:   recorder,
		logger:     logger,
		defaults:   query.FilterSet{},
		sessions:   map[string]*Session{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether questions can be answered.
func (s *Service) Available() bool {
	return s.source != nil && s.source.Loaded()
}

// Classifier returns the name of the active classifier.
func (s *Service) Classifier() string {
	return s.classifier.Name()
}

func (s *Service) NewSession() *Session {
	sess := newSession(s.defaults)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.logger.Debug("Session created", zap.String("session_id", sess.ID))
	return sess
}

func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// SetFilters replaces the sidebar filters of a session.
func (s *Service) SetFilters(id string, filters query.FilterSet) (query.FilterSet, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	sess.mu.Lock()
	sess.filters = copyFilters(filters)
	sess.mu.Unlock()
	return copyFilters(filters), nil
}

// Ask answers one utterance in a session. Translation and execution
// failures become part of the turn; only an unknown session is an error.
func (s *Service) Ask(ctx context.Context, id, utterance string) (Turn, error) {
	sess, err := s.Session(id)
	if err != nil {
		return Turn{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := time.Now()
	turn := s.answer(ctx, sess, utterance)
	turn.At = start.UTC()
	sess.turns = append(sess.turns, turn)

	elapsed := time.Since(start)
	s.recorder.ObserveTurn(string(turn.Outcome), elapsed)
	s.logger.Info("Chat turn",
		zap.String("session_id", sess.ID),
		zap.String("outcome", string(turn.Outcome)),
		zap.Int("count", turn.Answer.Count),
		zap.Duration("elapsed", elapsed))
	return turn, nil
}

// answer runs with sess.mu held.
func (s *Service) answer(ctx context.Context, sess *Session, utterance string) Turn {
	turn := Turn{Utterance: utterance}

	if translator.IsReset(utterance) {
		sess.filters = copyFilters(s.defaults)
		turn.Outcome = OutcomeReset
		turn.Answer = presenter.Answer{Kind: presenter.KindSentence, Text: "All filters have been reset."}
		return turn
	}

	q, err := s.classifier.Classify(ctx, utterance, sess.filters)
	if err != nil {
		return s.failed(turn, err)
	}
	turn.Query = &q

	res, err := query.Execute(s.source, q)
	if err != nil {
		return s.failed(turn, err)
	}
	turn.Answer = presenter.Present(res)
	turn.Outcome = OutcomeOK
	if res.NoMatch() {
		turn.Outcome = OutcomeNoMatch
	}
	return turn
}

func (s *Service) failed(turn Turn, err error) Turn {
	turn.Answer = presenter.Explain(err)
	turn.Outcome = outcomeOf(err)
	if turn.Outcome == OutcomeError {
		s.logger.Error("Chat turn failed", zap.String("utterance", turn.Utterance), zap.Error(err))
	}
	return turn
}

func outcomeOf(err error) Outcome {
	var unresolved *query.UnresolvedEntityError
	switch {
	case errors.Is(err, query.ErrEmptyDataset):
		return OutcomeDatasetUnavailable
	case errors.As(err, &unresolved):
		return OutcomeUnresolvedEntity
	case errors.Is(err, query.ErrUnsupportedIntent):
		return OutcomeUnsupportedIntent
	}
	return OutcomeError
}

// Overview summarizes the records under the session filters.
func (s *Service) Overview(id string) (query.Overview, error) {
	sess, err := s.Session(id)
	if err != nil {
		return query.Overview{}, err
	}
	return query.Summarize(s.source, sess.Filters())
}

// Repositories lists the records under the session filters whose text
// contains search, most starred first.
func (s *Service) Repositories(id string, limit int, search string) (query.Result, error) {
	sess, err := s.Session(id)
	if err != nil {
		return query.Result{}, err
	}
	q := query.New(query.IntentList, sess.Filters())
	q.Limit = limit
	q.Search = search
	return query.Execute(s.source, q)
}
