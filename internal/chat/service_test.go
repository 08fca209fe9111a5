package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"repo-explorer/internal/chat"
	"repo-explorer/internal/dataset"
	"repo-explorer/internal/dataset/datasettest"
	"repo-explorer/internal/query"
	"repo-explorer/internal/translator"
)

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *fakeRecorder) ObserveTurn(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func newService(store *dataset.Store, rec chat.Recorder) *chat.Service {
	return chat.NewService(store, translator.NewRuleClassifier(store), rec, zap.NewNop())
}

func TestSuggestionsClassify(t *testing.T) {
	greeting := chat.Greeting()
	c := translator.NewRuleClassifier(datasettest.Store())
	for _, s := range chat.Suggestions {
		if !strings.Contains(greeting, "- "+s) {
			t.Fatalf("greeting does not list %q", s)
		}
		q, err := c.Classify(context.Background(), s, nil)
		if err != nil {
			t.Fatalf("suggestion %q failed to classify: %v", s, err)
		}
		if _, err := query.Execute(datasettest.Store(), q); err != nil {
			t.Fatalf("suggestion %q failed to execute: %v", s, err)
		}
	}
}

func TestAskUnderSessionFilters(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newService(datasettest.Store(), rec)
	sess := svc.NewSession()

	if _, err := svc.SetFilters(sess.ID, query.FilterSet{query.FieldUniversity: query.In("UCLA")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turn, err := svc.Ask(context.Background(), sess.ID, "Show the top 20 repositories by stars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Outcome != chat.OutcomeOK || turn.Answer.Count != 4 {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if strings.Contains(turn.Answer.Text, "berkeley/") || strings.Contains(turn.Answer.Text, "cmu/") {
		t.Fatalf("answer escapes the university filter:\n%s", turn.Answer.Text)
	}
	if rec.outcomes["ok"] != 1 {
		t.Fatalf("expected one recorded ok turn, got %v", rec.outcomes)
	}
}

func TestAskSurvivesFailures(t *testing.T) {
	svc := newService(datasettest.Store(), nil)
	sess := svc.NewSession()
	ctx := context.Background()

	tests := []struct {
		utterance string
		outcome   chat.Outcome
	}{
		{"Show repositories from Mars", chat.OutcomeUnresolvedEntity},
		{"tell me a joke", chat.OutcomeUnsupportedIntent},
		{"Show repositories with more than 1000000 stars", chat.OutcomeNoMatch},
		{"How many repositories are there per university?", chat.OutcomeOK},
	}
	for _, tt := range tests {
		turn, err := svc.Ask(ctx, sess.ID, tt.utterance)
		if err != nil {
			t.Fatalf("Ask(%q): unexpected error: %v", tt.utterance, err)
		}
		if turn.Outcome != tt.outcome {
			t.Fatalf("Ask(%q): expected outcome %s, got %s", tt.utterance, tt.outcome, turn.Outcome)
		}
		if turn.Answer.Text == "" {
			t.Fatalf("Ask(%q): empty answer", tt.utterance)
		}
	}

	snap := sess.Snapshot()
	if len(snap.Turns) != len(tests) {
		t.Fatalf("expected %d turns, got %d", len(tests), len(snap.Turns))
	}
	if snap.Turns[0].Query != nil {
		t.Fatalf("failed translation should not record a query")
	}
}

func TestAskDatasetUnavailable(t *testing.T) {
	svc := newService(dataset.Unavailable(), nil)
	sess := svc.NewSession()

	turn, err := svc.Ask(context.Background(), sess.ID, "Show the top 20 repositories by stars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Outcome != chat.OutcomeDatasetUnavailable {
		t.Fatalf("expected dataset_unavailable, got %s", turn.Outcome)
	}
	if !strings.Contains(strings.ToLower(turn.Answer.Text), "dataset unavailable") {
		t.Fatalf("unexpected answer %q", turn.Answer.Text)
	}
	if svc.Available() {
		t.Fatalf("expected service to report unavailable")
	}
}

func TestResetAllFilters(t *testing.T) {
	svc := newService(datasettest.Store(), nil)
	sess := svc.NewSession()
	if _, err := svc.SetFilters(sess.ID, query.FilterSet{query.FieldStars: query.AtLeast(100)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turn, err := svc.Ask(context.Background(), sess.ID, "reset all filters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Outcome != chat.OutcomeReset {
		t.Fatalf("expected reset outcome, got %s", turn.Outcome)
	}
	if len(sess.Filters()) != 0 {
		t.Fatalf("expected filters to be cleared, got %v", sess.Filters())
	}
}

func TestDefaultFilters(t *testing.T) {
	store := datasettest.Store()
	defaults := query.FilterSet{query.FieldAffiliation: query.AtLeast(0.8)}
	svc := chat.NewService(store, translator.NewRuleClassifier(store), nil, zap.NewNop(), chat.WithDefaultFilters(defaults))
	sess := svc.NewSession()

	turn, err := svc.Ask(context.Background(), sess.ID, "How many repositories are there?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ucla/tiny scores 0.5; cmu/course-site has no score and is kept
	if turn.Answer.Total != 8 {
		t.Fatalf("expected 8 repositories above the threshold, got %d", turn.Answer.Total)
	}

	if _, err := svc.SetFilters(sess.ID, query.FilterSet{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Ask(context.Background(), sess.ID, "reset all filters"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sess.Filters()[query.FieldAffiliation]; !ok {
		t.Fatalf("expected reset to restore the default threshold")
	}
}

func TestSetFiltersValidates(t *testing.T) {
	svc := newService(datasettest.Store(), nil)
	sess := svc.NewSession()

	if _, err := svc.SetFilters(sess.ID, query.FilterSet{"colour": query.Equals("red")}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if _, err := svc.SetFilters("nope", nil); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Ask(context.Background(), "nope", "hi"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOverviewAndRepositories(t *testing.T) {
	svc := newService(datasettest.Store(), nil)
	sess := svc.NewSession()
	if _, err := svc.SetFilters(sess.ID, query.FilterSet{query.FieldUniversity: query.Equals("UCLA")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ov, err := svc.Overview(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.Repositories != 4 || ov.Contributors != 17 {
		t.Fatalf("unexpected overview %+v", ov)
	}

	res, err := svc.Repositories(sess.ID, 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 2 || res.Total != 4 {
		t.Fatalf("expected 2 of 4 rows, got %d of %d", len(res.Rows), res.Total)
	}

	res, err = svc.Repositories(sess.ID, 0, "mit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || res.Rows[0].FullName != "ucla/tied-b" || res.Rows[1].FullName != "ucla/tiny" {
		t.Fatalf("expected the two MIT licensed UCLA rows, got %+v", res.Rows)
	}
}

func TestConcurrentTurnsInOneSession(t *testing.T) {
	svc := newService(datasettest.Store(), nil)
	sess := svc.NewSession()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Ask(context.Background(), sess.ID, "What are the most common licenses overall?"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := len(sess.Snapshot().Turns); n != 20 {
		t.Fatalf("expected 20 turns, got %d", n)
	}
}
