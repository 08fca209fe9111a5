// Package presenter renders query results as chat-ready markdown.
package presenter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/query"
)

type Kind string

const (
	KindTable      Kind = "table"
	KindSentence   Kind = "sentence"
	KindRankedList Kind = "ranked_list"
	KindEmpty      Kind = "empty"
	KindError      Kind = "error"
)

// Answer is a rendered result. Count is the number of rows or groups shown.
type Answer struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text"`
	Count int    `json:"count"`
	Total int    `json:"total"`
}

const noMatchText = "0 repositories match the current filters and question."

// Present renders res according to the intent of its query.
func Present(res query.Result) Answer {
	if res.NoMatch() {
		return Answer{Kind: KindEmpty, Text: noMatchText}
	}
	q := res.Query
	switch q.Intent {
	case query.IntentRank:
		return rankedRows(res)
	case query.IntentList:
		return table(res)
	case query.IntentCount:
		return countSentence(res)
	case query.IntentAggregate:
		return rankedGroups(res)
	case query.IntentCompare:
		return crossTable(res)
	}
	return Answer{Kind: KindError, Text: fmt.Sprintf("Unknown query intent %q.", q.Intent)}
}

// Explain turns a translation or execution failure into the message shown
// to the user.
func Explain(err error) Answer {
	var unresolved *query.UnresolvedEntityError
	switch {
	case errors.Is(err, query.ErrEmptyDataset):
		return Answer{Kind: KindError, Text: "Dataset unavailable: no repository data was loaded, so questions can't be answered right now."}
	case errors.As(err, &unresolved):
		what := unresolved.Dimension
		if what == "" {
			what = "value"
		}
		return Answer{Kind: KindError, Text: fmt.Sprintf("I couldn't find a %s called %q in the dataset.", what, unresolved.Token)}
	case errors.Is(err, query.ErrUnsupportedIntent):
		return Answer{Kind: KindError, Text: "Sorry, I can't answer that yet. Try asking for the top repositories by a metric, counts per university or the most common licenses."}
	}
	return Answer{Kind: KindError, Text: "Something went wrong while answering: " + err.Error()}
}

func metricOf(q query.StructuredQuery) dataset.Metric {
	if q.Metric == "" {
		return dataset.MetricStars
	}
	return q.Metric
}

func rankedRows(res query.Result) Answer {
	metric := metricOf(res.Query)
	var b strings.Builder
	fmt.Fprintf(&b, "Top %s %s by %s (%s matching):\n\n",
		humanize.Comma(int64(len(res.Rows))), plural(len(res.Rows), "repository", "repositories"),
		metric, humanize.Comma(int64(res.Total)))
	for i, r := range res.Rows {
		fmt.Fprintf(&b, "%d. **%s** (%s): %s %s\n", i+1, r.FullName, r.University,
			humanize.Comma(r.Measure(metric)), metric)
	}
	return Answer{Kind: KindRankedList, Text: strings.TrimRight(b.String(), "\n"), Count: len(res.Rows), Total: res.Total}
}

func table(res query.Result) Answer {
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %s of %s %s.\n\n",
		humanize.Comma(int64(len(res.Rows))), humanize.Comma(int64(res.Total)),
		plural(res.Total, "repository", "repositories"))
	b.WriteString("| Repository | University | Type | Language | License | Stars | Forks | Downloads |\n")
	b.WriteString("|---|---|---|---|---|---:|---:|---:|\n")
	for _, r := range res.Rows {
		writeRow(&b,
			r.FullName, r.University, r.Type, r.Language, r.LicenseName(),
			humanize.Comma(r.Stars), humanize.Comma(r.Forks), humanize.Comma(r.Downloads))
	}
	return Answer{Kind: KindTable, Text: strings.TrimRight(b.String(), "\n"), Count: len(res.Rows), Total: res.Total}
}

func countSentence(res query.Result) Answer {
	total := humanize.Comma(int64(res.Total))
	noun := plural(res.Total, "repository", "repositories")
	verb := plural(res.Total, "is", "are")
	if res.Query.GroupBy == "" {
		return Answer{
			Kind:  KindSentence,
			Text:  fmt.Sprintf("There %s %s %s matching the current filters.", verb, total, noun),
			Count: 1,
			Total: res.Total,
		}
	}

	parts := make([]string, len(res.Groups))
	for i, g := range res.Groups {
		parts[i] = fmt.Sprintf("%s %s", g.Key, humanize.Comma(int64(g.Count)))
	}
	text := fmt.Sprintf("There %s %s %s across %s %s: %s.", verb, total, noun,
		humanize.Comma(int64(len(res.Groups))), dimensionName(res.Query.GroupBy, len(res.Groups)),
		strings.Join(parts, ", "))
	return Answer{Kind: KindSentence, Text: text, Count: len(res.Groups), Total: res.Total}
}

func rankedGroups(res query.Result) Answer {
	var b strings.Builder
	fmt.Fprintf(&b, "Most common %s (%s shown, %s repositories):\n\n",
		dimensionName(res.Query.GroupBy, 2), humanize.Comma(int64(len(res.Groups))), humanize.Comma(int64(res.Total)))
	for i, g := range res.Groups {
		fmt.Fprintf(&b, "%d. %s: %s %s\n", i+1, g.Key, humanize.Comma(int64(g.Count)),
			plural(g.Count, "repository", "repositories"))
	}
	return Answer{Kind: KindRankedList, Text: strings.TrimRight(b.String(), "\n"), Count: len(res.Groups), Total: res.Total}
}

// crossTable lays compare groups out with one row per GroupBy value and one
// column per Across value.
func crossTable(res query.Result) Answer {
	q := res.Query
	cells := map[[2]string]int{}
	rowTotals := map[string]int{}
	colSet := map[string]bool{}
	for _, g := range res.Groups {
		cells[[2]string{g.Key, g.Across}] = g.Count
		rowTotals[g.Key] += g.Count
		colSet[g.Across] = true
	}
	rows := make([]string, 0, len(rowTotals))
	for k := range rowTotals {
		rows = append(rows, k)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rowTotals[rows[i]] != rowTotals[rows[j]] {
			return rowTotals[rows[i]] > rowTotals[rows[j]]
		}
		return rows[i] < rows[j]
	})
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var b strings.Builder
	fmt.Fprintf(&b, "%s across %s (%s %s, %s repositories):\n\n",
		capitalize(dimensionName(q.GroupBy, 2)), dimensionName(q.Across, 2),
		humanize.Comma(int64(len(res.Groups))), plural(len(res.Groups), "pair", "pairs"),
		humanize.Comma(int64(res.Total)))

	header := append([]string{capitalize(dimensionName(q.GroupBy, 1))}, cols...)
	header = append(header, "Total")
	writeRow(&b, header...)
	b.WriteString("|---|" + strings.Repeat("---:|", len(cols)+1) + "\n")
	for _, r := range rows {
		line := []string{r}
		for _, c := range cols {
			line = append(line, humanize.Comma(int64(cells[[2]string{r, c}])))
		}
		line = append(line, humanize.Comma(int64(rowTotals[r])))
		writeRow(&b, line...)
	}
	return Answer{Kind: KindTable, Text: strings.TrimRight(b.String(), "\n"), Count: len(res.Groups), Total: res.Total}
}

func writeRow(b *strings.Builder, cells ...string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(c, "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func dimensionName(d dataset.Dimension, n int) string {
	switch d {
	case dataset.DimUniversity:
		return plural(n, "university", "universities")
	case dataset.DimLanguage:
		return plural(n, "language", "languages")
	case dataset.DimLicense:
		return plural(n, "license", "licenses")
	case dataset.DimType:
		return plural(n, "project type", "project types")
	}
	return string(d)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
