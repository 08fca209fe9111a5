package elastic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/dataset/datasettest"
	"repo-explorer/internal/query"
)

func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestPredicateClause(t *testing.T) {
	tests := []struct {
		pred query.Predicate
		want string
	}{
		{
			query.Predicate{Field: query.FieldUniversity, Constraint: query.In("UCLA", "CMU")},
			`{"terms":{"university.lower":["ucla","cmu"]}}`,
		},
		{
			query.Predicate{Field: query.FieldStars, Constraint: query.MoreThan(100)},
			`{"range":{"stars":{"gt":100}}}`,
		},
		{
			query.Predicate{Field: query.FieldForks, Constraint: query.Between(1, 5)},
			`{"range":{"forks":{"gte":1,"lte":5}}}`,
		},
		{
			query.Predicate{Field: query.FieldAffiliation, Constraint: query.AtLeast(0.8)},
			`{"bool":{"minimum_should_match":1,"should":[{"range":{"affiliation":{"gte":0.8}}},{"bool":{"must_not":{"exists":{"field":"affiliation"}}}}]}}`,
		},
		{
			query.Predicate{Field: query.FieldAffiliation, Constraint: required(query.AtLeast(0.8))},
			`{"range":{"affiliation":{"gte":0.8}}}`,
		},
	}
	for _, tt := range tests {
		if got := toJSON(t, predicateClause(tt.pred)); got != tt.want {
			t.Fatalf("predicateClause(%s):\n got %s\nwant %s", tt.pred, got, tt.want)
		}
	}
}

func required(c query.Constraint) query.Constraint {
	c.Required = true
	return c
}

func TestBuildSearchQuery(t *testing.T) {
	preds := []query.Predicate{{Field: query.FieldLicense, Constraint: query.Equals(dataset.Unspecified)}}
	got := toJSON(t, buildSearchQuery("robot", preds, 5))
	for _, want := range []string{
		`"multi_match":{"fields":["full_name^3","description"],"query":"robot"}`,
		`"filter":[{"terms":{"license.lower":["unspecified"]}}]`,
		`"size":5`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}

	if got := toJSON(t, buildSearchQuery("  ", nil, 5)); !strings.Contains(got, `"match_all":{}`) {
		t.Fatalf("expected match_all for an empty query, got %s", got)
	}
}

func TestDecodeHits(t *testing.T) {
	body := `{"hits":{"total":{"value":12},"hits":[
		{"_score":3.5,"_source":{"id":7,"full_name":"cmu/robot-os","university":"CMU","stars":1200}},
		{"_score":1.0,"_source":{"id":9,"full_name":"cmu/parser","university":"CMU","stars":1200}},
		"garbage"
	]}}`
	hits, total, err := decodeHits(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 12 || len(hits) != 2 {
		t.Fatalf("expected 2 hits of 12, got %d of %d", len(hits), total)
	}
	if hits[0].FullName != "cmu/robot-os" || hits[0].Score != 3.5 || hits[0].Stars != 1200 {
		t.Fatalf("unexpected first hit %+v", hits[0])
	}

	if _, _, err := decodeHits(strings.NewReader(`{"error":"boom"}`)); err == nil {
		t.Fatalf("expected error for a response without hits")
	}
}

// fakeCluster answers the handful of endpoints the client uses.
func fakeCluster(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	indexed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			var items []string
			sc := bufio.NewScanner(r.Body)
			sc.Buffer(make([]byte, 1<<20), 1<<20)
			for line := 0; sc.Scan(); line++ {
				if line%2 == 0 {
					var action map[string]map[string]string
					if err := json.Unmarshal(sc.Bytes(), &action); err != nil {
						t.Errorf("bad bulk action line: %v", err)
						continue
					}
					indexed++
					items = append(items, fmt.Sprintf(`{"index":{"_id":%q,"status":201}}`, action["index"]["_id"]))
				}
			}
			fmt.Fprintf(w, `{"took":1,"errors":false,"items":[%s]}`, strings.Join(items, ","))
		case strings.HasSuffix(r.URL.Path, "/_search"):
			io.Copy(io.Discard, r.Body)
			fmt.Fprint(w, `{"hits":{"total":{"value":1},"hits":[{"_score":2,"_source":{"id":5,"full_name":"berkeley/spark-tools"}}]},
				"aggregations":{"facet":{"buckets":[{"key":"Python","doc_count":3},{"key":"JavaScript","doc_count":2}]}}}`)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut:
			fmt.Fprint(w, `{"acknowledged":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &indexed
}

func TestClientAgainstFakeCluster(t *testing.T) {
	srv, indexed := fakeCluster(t)
	c, err := NewClient(Config{Addresses: []string{srv.URL}, Index: "repos-test"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := c.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	n, err := c.IndexRepositories(ctx, datasettest.Records())
	if err != nil {
		t.Fatalf("IndexRepositories: %v", err)
	}
	if n != 9 || *indexed != 9 {
		t.Fatalf("expected 9 indexed documents, got %d (server saw %d)", n, *indexed)
	}

	hits, total, err := c.Search(ctx, "spark", nil, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 1 || hits[0].FullName != "berkeley/spark-tools" {
		t.Fatalf("unexpected hits %+v", hits)
	}

	buckets, err := c.Facets(ctx, dataset.DimLanguage, nil, 2)
	if err != nil {
		t.Fatalf("Facets: %v", err)
	}
	if len(buckets) != 2 || buckets[0].Key != "Python" || buckets[0].Count != 3 {
		t.Fatalf("unexpected buckets %+v", buckets)
	}
}
