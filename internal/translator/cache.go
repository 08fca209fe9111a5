package translator

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"repo-explorer/internal/query"
)

const DefaultCacheTTL = 30 * time.Minute

// CachedClassifier memoizes successful classifications in an in-process
// ristretto cache keyed by the normalized utterance and the filter set.
type CachedClassifier struct {
	next  Classifier
	cache *ristretto.Cache[string, query.StructuredQuery]
	ttl   time.Duration
}

// NewCachedClassifier wraps next with a cache holding up to maxEntries
// classifications.
func NewCachedClassifier(next Classifier, maxEntries int64, ttl time.Duration) (*CachedClassifier, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, query.StructuredQuery]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &CachedClassifier{next: next, cache: c, ttl: ttl}, nil
}

func (c *CachedClassifier) Name() string { return c.next.Name() }

func (c *CachedClassifier) Classify(ctx context.Context, utterance string, filters query.FilterSet) (query.StructuredQuery, error) {
	key := cacheKey(utterance, filters)
	if q, ok := c.cache.Get(key); ok {
		return q, nil
	}
	q, err := c.next.Classify(ctx, utterance, filters)
	if err != nil {
		return q, err
	}
	c.cache.SetWithTTL(key, q, 1, c.ttl)
	c.cache.Wait()
	return q, nil
}

func (c *CachedClassifier) Close() {
	c.cache.Close()
}

func cacheKey(utterance string, filters query.FilterSet) string {
	normalized := strings.Join(strings.Fields(utterance), " ")
	return normalized + "\x00" + filters.Key()
}
