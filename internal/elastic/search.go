package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/query"
)

// Search runs a multi-match over name and description, restricted by the
// given predicates.
func (c *Client) Search(ctx context.Context, text string, preds []query.Predicate, top int) ([]Hit, int, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchQuery(text, preds, top)); err != nil {
		return nil, 0, fmt.Errorf("encoding query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search error: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search error: %s", res.String())
	}
	return decodeHits(res.Body)
}

func buildSearchQuery(text string, preds []query.Predicate, top int) map[string]interface{} {
	must := []map[string]interface{}{}
	if strings.TrimSpace(text) == "" {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	} else {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"full_name^3", "description"},
			},
		})
	}

	filters := []map[string]interface{}{}
	for _, p := range preds {
		filters = append(filters, predicateClause(p))
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filters,
			},
		},
		"size": top,
	}
}

// predicateClause maps one filter predicate to an ES filter clause.
func predicateClause(p query.Predicate) map[string]interface{} {
	c := p.Constraint
	if c.Kind == query.KindEquals || c.Kind == query.KindIn {
		values := make([]string, len(c.Values))
		for i, v := range c.Values {
			values[i] = strings.ToLower(v)
		}
		return map[string]interface{}{
			"terms": map[string]interface{}{p.Field + ".lower": values},
		}
	}

	bounds := map[string]interface{}{}
	if c.Min != nil {
		op := "gte"
		if c.MinExclusive {
			op = "gt"
		}
		bounds[op] = *c.Min
	}
	if c.Max != nil {
		op := "lte"
		if c.MaxExclusive {
			op = "lt"
		}
		bounds[op] = *c.Max
	}
	clause := map[string]interface{}{
		"range": map[string]interface{}{p.Field: bounds},
	}
	if p.Field != query.FieldAffiliation || c.Required {
		return clause
	}
	// documents without an affiliation score pass the threshold
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should": []map[string]interface{}{
				clause,
				{"bool": map[string]interface{}{
					"must_not": map[string]interface{}{"exists": map[string]interface{}{"field": p.Field}},
				}},
			},
			"minimum_should_match": 1,
		},
	}
}

func decodeHits(body io.Reader) ([]Hit, int, error) {
	var r map[string]interface{}
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}

	hitsMap, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("invalid response format: missing 'hits'")
	}
	total := 0
	if t, ok := hitsMap["total"].(map[string]interface{}); ok {
		if v, ok := t["value"].(float64); ok {
			total = int(v)
		}
	}

	hitArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("invalid response format: missing 'hits.hits'")
	}

	var results []Hit
	for _, hit := range hitArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"]
		if !ok {
			continue
		}
		score, _ := hitMap["_score"].(float64)

		data, err := json.Marshal(source)
		if err != nil {
			continue
		}
		var doc RepoDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		results = append(results, Hit{RepoDoc: doc, Score: score})
	}
	return results, total, nil
}

// Facets returns the most frequent values of a categorical dimension among
// documents matching preds.
func (c *Client) Facets(ctx context.Context, dim dataset.Dimension, preds []query.Predicate, size int) ([]Bucket, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildFacetQuery(dim, preds, size)); err != nil {
		return nil, fmt.Errorf("encode agg query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("ES search agg error: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("ES search agg error: %s", res.String())
	}
	return decodeBuckets(res.Body)
}

func buildFacetQuery(dim dataset.Dimension, preds []query.Predicate, size int) map[string]interface{} {
	filters := []map[string]interface{}{}
	for _, p := range preds {
		filters = append(filters, predicateClause(p))
	}
	return map[string]interface{}{
		"size":  0,
		"query": map[string]interface{}{"bool": map[string]interface{}{"filter": filters}},
		"aggs": map[string]interface{}{
			"facet": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": string(dim),
					"size":  size,
				},
			},
		},
	}
}

func decodeBuckets(body io.Reader) ([]Bucket, error) {
	var r struct {
		Aggregations struct {
			Facet struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"facet"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out := make([]Bucket, 0, len(r.Aggregations.Facet.Buckets))
	for _, b := range r.Aggregations.Facet.Buckets {
		out = append(out, Bucket{Key: b.Key, Count: b.DocCount})
	}
	return out, nil
}
