package llm

// QueryIntent is the JSON shape the model is asked to return for one
// utterance.
type QueryIntent struct {
	Intent  string  `json:"intent"`
	GroupBy string  `json:"group_by"`
	Across  string  `json:"across"`
	Metric  string  `json:"metric"`
	Limit   int     `json:"limit"`
	Filters Filters `json:"filters"`
}

type Filters struct {
	University []string `json:"university"`
	Language   []string `json:"language"`
	License    []string `json:"license"`
	Type       []string `json:"type"`
	Ranges     []Range  `json:"ranges"`
}

// Range is a numeric comparison such as {"field": "stars", "op": "gt", "value": 100}.
type Range struct {
	Field string  `json:"field"`
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

// Schema lists the values the model may reference.
type Schema struct {
	Universities []string
	Languages    []string
	Licenses     []string
	Types        []string
}
