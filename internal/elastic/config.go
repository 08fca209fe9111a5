package elastic

import "repo-explorer/internal/dataset"

// Config selects the cluster. CloudID wins over Addresses when both are set.
type Config struct {
	Addresses []string
	CloudID   string
	Username  string
	Password  string
	Index     string
}

// RepoDoc is the indexed form of a dataset.Repository.
type RepoDoc struct {
	ID           int64    `json:"id"`
	FullName     string   `json:"full_name"`
	Description  string   `json:"description"`
	University   string   `json:"university"`
	Type         string   `json:"type"`
	Language     string   `json:"language"`
	License      string   `json:"license"`
	URL          string   `json:"html_url"`
	Stars        int64    `json:"stars"`
	Forks        int64    `json:"forks"`
	Downloads    int64    `json:"downloads"`
	Contributors int64    `json:"contributors"`
	Affiliation  *float64 `json:"affiliation,omitempty"`
}

func NewRepoDoc(r dataset.Repository) RepoDoc {
	return RepoDoc{
		ID:           r.ID,
		FullName:     r.FullName,
		Description:  r.Description,
		University:   r.University,
		Type:         r.Type,
		Language:     r.Language,
		License:      r.LicenseName(),
		URL:          r.HTMLURL,
		Stars:        r.Stars,
		Forks:        r.Forks,
		Downloads:    r.Downloads,
		Contributors: r.ContributorCount,
		Affiliation:  r.Affiliation,
	}
}

// Hit is one search result.
type Hit struct {
	RepoDoc
	Score float64 `json:"score"`
}

// Bucket is one terms-aggregation bucket.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// indexMapping stores categorical fields as keywords with a lowercase
// ".lower" subfield; filters use the subfield, facets the original value.
var indexMapping = map[string]interface{}{
	"settings": map[string]interface{}{
		"analysis": map[string]interface{}{
			"normalizer": map[string]interface{}{
				"lowercase": map[string]interface{}{
					"type":   "custom",
					"filter": []string{"lowercase"},
				},
			},
		},
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":           map[string]interface{}{"type": "long"},
			"full_name":    map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}}},
			"description":  map[string]interface{}{"type": "text"},
			"university":   keywordField,
			"type":         keywordField,
			"language":     keywordField,
			"license":      keywordField,
			"html_url":     map[string]interface{}{"type": "keyword", "index": false},
			"stars":        map[string]interface{}{"type": "long"},
			"forks":        map[string]interface{}{"type": "long"},
			"downloads":    map[string]interface{}{"type": "long"},
			"contributors": map[string]interface{}{"type": "long"},
			"affiliation":  map[string]interface{}{"type": "float"},
		},
	},
}

var keywordField = map[string]interface{}{
	"type": "keyword",
	"fields": map[string]interface{}{
		"lower": map[string]interface{}{"type": "keyword", "normalizer": "lowercase"},
	},
}
