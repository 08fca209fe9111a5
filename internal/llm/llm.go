package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Completer sends one system+user prompt pair to a chat model and returns
// the raw text answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
	Close() error
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\}|\\[.*\\])\\s*```")

// ExtractJSON returns the JSON object in a model answer, with or without a
// ```json fence around it.
func ExtractJSON(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if m := fencedJSON.FindStringSubmatch(trimmed); len(m) == 2 {
		return m[1], nil
	}
	start := strings.IndexAny(trimmed, "{[")
	end := strings.LastIndexAny(trimmed, "}]")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object or array found in model response")
	}
	return trimmed[start : end+1], nil
}

const systemPrompt = `You translate questions about a dataset of university open-source repositories into a structured query.
Respond with strict JSON only. No comments, no markdown, no explanation.`

func buildPrompt(utterance string, schema Schema) string {
	return `Given a user question, return:

{
	"intent": "list" | "count" | "rank" | "aggregate" | "compare" | "unsupported",
	"group_by": "university" | "language" | "license" | "type" | "",
	"across": "university" | "language" | "license" | "type" | "",
	"metric": "stars" | "forks" | "downloads" | "contributors" | "",
	"limit": <number_or_0>,
	"filters": {
		"university": ["<values_or_empty_array>"],
		"language": ["<values_or_empty_array>"],
		"license": ["<values_or_empty_array>"],
		"type": ["<values_or_empty_array>"],
		"ranges": [{"field": "stars" | "forks" | "downloads" | "contributors", "op": "gt" | "gte" | "lt" | "lte", "value": <number>}]
	}
}

Guidelines:
- "rank": "top N by <metric>", "most starred". Put N in limit, 0 if not stated.
- "list": show repositories matching filters.
- "count": "how many ...". Put the "per <dimension>" in group_by, empty for a single total.
- "aggregate": "most common <attribute>". Put the attribute in group_by.
- "compare": "compare <attribute> across <dimension>". Attribute in group_by, dimension in across.
- "unsupported": anything else.
- Copy entity names exactly as the user wrote them; do not invent values. Known values:
	universities: ` + strings.Join(schema.Universities, ", ") + `
	languages: ` + strings.Join(schema.Languages, ", ") + `
	licenses: ` + strings.Join(schema.Licenses, ", ") + `
	project types: ` + strings.Join(schema.Types, ", ") + `
- "more than 100 stars" is {"field": "stars", "op": "gt", "value": 100}. If the comparison is unclear use "gte".

User question: "` + utterance + `"`
}

// UnderstandQuery asks the model to classify utterance.
func UnderstandQuery(ctx context.Context, c Completer, utterance string, schema Schema) (*QueryIntent, error) {
	rawResp, err := c.Complete(ctx, systemPrompt, buildPrompt(utterance, schema))
	if err != nil {
		return nil, err
	}

	jsonStr, err := ExtractJSON(rawResp)
	if err != nil {
		return nil, fmt.Errorf("failed to extract JSON: %w", err)
	}

	var result QueryIntent
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	result.Intent = strings.ToLower(strings.TrimSpace(result.Intent))
	return &result, nil
}
