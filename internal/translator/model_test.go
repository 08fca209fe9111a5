package translator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/dataset/datasettest"
	"repo-explorer/internal/query"
	"repo-explorer/internal/translator"
)

type fakeCompleter struct {
	answer string
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func (f *fakeCompleter) Model() string { return "fake" }

func (f *fakeCompleter) Close() error { return nil }

func newModelClassifier(c *fakeCompleter) *translator.ModelClassifier {
	store := datasettest.Store()
	return translator.NewModelClassifier(c, store, translator.NewRuleClassifier(store), zap.NewNop())
}

func TestModelClassifierResolvesAnswer(t *testing.T) {
	c := &fakeCompleter{answer: "```json\n" + `{"intent": "list", "filters": {"university": ["ucla"],
		"ranges": [{"field": "stars", "op": "gt", "value": 100}]}}` + "\n```"}

	q, err := newModelClassifier(c).Classify(context.Background(), "UCLA repos over 100 stars", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"university in [UCLA]", "stars > 100"}
	if got := predicateStrings(q); !sameStrings(got, want) {
		t.Fatalf("expected predicates %v, got %v", want, got)
	}
	if q.Intent != query.IntentList {
		t.Fatalf("expected list intent, got %s", q.Intent)
	}
}

func TestModelClassifierUnresolvedEntity(t *testing.T) {
	c := &fakeCompleter{answer: `{"intent": "list", "filters": {"university": ["Mars"]}}`}

	_, err := newModelClassifier(c).Classify(context.Background(), "repos from Mars", nil)
	var unresolved *query.UnresolvedEntityError
	if !errors.As(err, &unresolved) || unresolved.Token != "Mars" {
		t.Fatalf("expected UnresolvedEntityError for Mars, got %v", err)
	}
}

func TestModelClassifierUnsupported(t *testing.T) {
	for _, answer := range []string{
		`{"intent": "unsupported"}`,
		`{"intent": "compare", "group_by": "language"}`,
		`{"intent": "aggregate", "group_by": "colour"}`,
	} {
		c := &fakeCompleter{answer: answer}
		if _, err := newModelClassifier(c).Classify(context.Background(), "anything", nil); !errors.Is(err, query.ErrUnsupportedIntent) {
			t.Fatalf("answer %s: expected ErrUnsupportedIntent, got %v", answer, err)
		}
	}
}

func TestModelClassifierFallsBackToRules(t *testing.T) {
	for _, c := range []*fakeCompleter{
		{err: errors.New("quota exceeded")},
		{answer: "Sorry, I can't help with that."},
	} {
		q, err := newModelClassifier(c).Classify(context.Background(), "How many repositories are there per university?", nil)
		if err != nil {
			t.Fatalf("expected fallback to rules, got %v", err)
		}
		if q.Intent != query.IntentCount || q.GroupBy != dataset.DimUniversity {
			t.Fatalf("unexpected fallback query %+v", q)
		}
	}
}

type slowCompleter struct{ fakeCompleter }

func (s *slowCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestModelClassifierTimeoutFallsBack(t *testing.T) {
	store := datasettest.Store()
	c := translator.NewModelClassifier(&slowCompleter{}, store, translator.NewRuleClassifier(store), zap.NewNop()).
		WithTimeout(10 * time.Millisecond)
	q, err := c.Classify(context.Background(), "What are the most common licenses overall?", nil)
	if err != nil {
		t.Fatalf("expected fallback after the timeout, got %v", err)
	}
	if q.Intent != query.IntentAggregate {
		t.Fatalf("expected aggregate, got %s", q.Intent)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Classify(ctx, "What are the most common licenses overall?", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the caller's cancellation, got %v", err)
	}
}

type countingClassifier struct {
	translator.Classifier
	calls int
}

func (c *countingClassifier) Classify(ctx context.Context, u string, f query.FilterSet) (query.StructuredQuery, error) {
	c.calls++
	return c.Classifier.Classify(ctx, u, f)
}

func TestCachedClassifier(t *testing.T) {
	inner := &countingClassifier{Classifier: translator.NewRuleClassifier(datasettest.Store())}
	cached, err := translator.NewCachedClassifier(inner, 100, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cached.Close()

	ctx := context.Background()
	ucla := query.FilterSet{query.FieldUniversity: query.In("UCLA")}
	for i := 0; i < 3; i++ {
		if _, err := cached.Classify(ctx, "Show the top 20 repositories  by stars", ucla); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}

	// different filters are a different key
	if _, err := cached.Classify(ctx, "Show the top 20 repositories by stars", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}

	// failures are not cached
	for i := 0; i < 2; i++ {
		if _, err := cached.Classify(ctx, "tell me a joke", nil); !errors.Is(err, query.ErrUnsupportedIntent) {
			t.Fatalf("expected ErrUnsupportedIntent, got %v", err)
		}
	}
	if inner.calls != 4 {
		t.Fatalf("expected 4 inner calls, got %d", inner.calls)
	}
}
