package translator

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/query"
)

var (
	comparePattern = regexp.MustCompile(`(?i)\bcompare\s+(?:the\s+)?(.+?)\s+(?:across|between|among|by|per|for)\s+(?:the\s+|all\s+|different\s+|each\s+)?(.+?)[?.!]*$`)

	mostCommonPattern = regexp.MustCompile(`(?i)\bmost\s+(?:common|frequent|frequently used|widely used|used|popular)\s+(.+?)[?.!]*$`)
	whichMostPattern  = regexp.MustCompile(`(?i)\b(?:which|what)\s+(.+?)\s+(?:has|have|had|own|host|hosts)\s+(?:the\s+)?most\s+(?:repositories|repos|projects)\b`)
	topGroupPattern   = regexp.MustCompile(`(?i)\btop\s+(\d+)?\s*([a-z]+(?:\s+[a-z]+)?)`)

	topPattern      = regexp.MustCompile(`(?i)\b(?:top|first)\s+(\d+)\b`)
	byMetricPattern = regexp.MustCompile(`(?i)\b(?:by|on|in terms of|sorted by|ordered by|ranked by)\s+(?:the\s+)?(?:number of\s+|most\s+)?([a-z]+)`)
	mostPattern     = regexp.MustCompile(`(?i)\b(?:most|highest|largest|biggest)\s+(?:number of\s+)?([a-z]+)`)
	rankWordPattern = regexp.MustCompile(`(?i)\b(?:top|rank|ranked|ranking|best)\b`)
	showNPattern    = regexp.MustCompile(`(?i)\b(?:show|list|give|find|get)\s+(?:me\s+)?(\d+)\s+(?:repositories|repos|projects)\b`)

	countPattern   = regexp.MustCompile(`(?i)\b(?:how many|number of|count|total)\b`)
	groupByPattern = regexp.MustCompile(`(?i)\b(?:per|for each|in each|each|by|grouped by|broken down by|across)\s+(?:the\s+)?([a-z]+(?:\s+[a-z]+)?)`)

	listPattern = regexp.MustCompile(`(?i)\b(?:show|list|find|display|search|give me|get me|repositories|repos|repo|projects)\b`)

	betweenPattern = regexp.MustCompile(`(?i)\bbetween\s+(\d[\d,]*(?:\.\d+)?)(k|m)?\s+and\s+(\d[\d,]*(?:\.\d+)?)(k|m)?\s+(stars?|forks?|downloads?|contributors?)\b`)
	numericPattern = regexp.MustCompile(`(?i)(?:\b(no more than|no less than|more than|greater than|fewer than|less than|at least|at most|over|above|under|below|exactly)\s+|(>=|<=|>|<|=)\s*)?\b(\d[\d,]*(?:\.\d+)?)(k|m)?\+?\s+(stars?|forks?|downloads?|contributors?)\b`)

	fromPattern    = regexp.MustCompile(`(?i)\b(?:from|at)\s+(?:the\s+)?([a-z][\w&.'-]*(?:\s+[A-Z][\w&.'-]*)*)`)
	writtenPattern = regexp.MustCompile(`(?i)\b(?:written|implemented|coded)\s+in\s+([a-z][\w+#.-]*)`)
	underPattern   = regexp.MustCompile(`(?i)\bunder\s+(?:the\s+|an?\s+)?([a-z][\w.+-]*)`)
	licensedWord   = regexp.MustCompile(`(?i)\b([a-z][\w.+-]*)[\s-]licen[cs]ed\b`)
	noLicense      = regexp.MustCompile(`(?i)\b(?:no|without|missing|lacking)\s+(?:an?\s+)?licen[cs]es?\b|\bunlicensed\b`)

	wordPattern = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9+#.'&-]*`)
)

// words after "from"/"at" that never name a university
var fromStopWords = map[string]bool{
	"least": true, "most": true, "each": true, "every": true, "all": true, "any": true,
	"this": true, "these": true, "that": true, "those": true, "them": true, "it": true,
	"dataset": true, "data": true, "same": true, "a": true, "an": true, "my": true,
	"different": true, "various": true, "other": true, "both": true,
}

// lowercase words that are also GitHub languages, licenses or project types
// ("Less", "Other", "Red"); they only count as values when cased as such
var commonWords = map[string]bool{
	"less": true, "other": true, "others": true, "just": true, "red": true,
	"more": true, "most": true, "new": true, "open": true, "free": true,
	"public": true, "data": true, "pure": true, "unknown": true, "none": true,
	"simple": true, "basic": true,
}

// RuleClassifier classifies utterances with a fixed set of phrase patterns.
type RuleClassifier struct {
	schema Schema
}

func NewRuleClassifier(schema Schema) *RuleClassifier {
	return &RuleClassifier{schema: schema}
}

func (c *RuleClassifier) Name() string { return "rules" }

func (c *RuleClassifier) Classify(_ context.Context, utterance string, filters query.FilterSet) (query.StructuredQuery, error) {
	if c.schema == nil || !c.schema.Loaded() {
		return query.StructuredQuery{}, query.ErrEmptyDataset
	}
	spec, err := c.parse(utterance)
	if err != nil {
		return query.StructuredQuery{}, err
	}
	return spec.build(c.schema, filters)
}

func (c *RuleClassifier) parse(utterance string) (intentSpec, error) {
	text := strings.TrimSpace(utterance)
	var spec intentSpec
	if text == "" {
		return spec, query.ErrUnsupportedIntent
	}

	c.parseEntities(text, &spec)
	parseRanges(text, &spec)

	if !classifyIntent(text, &spec) {
		return spec, query.ErrUnsupportedIntent
	}
	return spec, nil
}

func classifyIntent(text string, spec *intentSpec) bool {
	if m := comparePattern.FindStringSubmatch(text); m != nil {
		a, okA := dimensionIn(m[1])
		b, okB := dimensionIn(m[2])
		if !okA || !okB || a == b {
			return false
		}
		spec.intent = query.IntentCompare
		spec.groupBy, spec.across = a, b
		return true
	}

	if m := mostCommonPattern.FindStringSubmatch(text); m != nil {
		if d, ok := dimensionIn(m[1]); ok {
			spec.intent = query.IntentAggregate
			spec.groupBy = d
			return true
		}
	}
	if m := whichMostPattern.FindStringSubmatch(text); m != nil {
		if d, ok := dimensionIn(m[1]); ok {
			spec.intent = query.IntentAggregate
			spec.groupBy = d
			return true
		}
	}
	if m := topGroupPattern.FindStringSubmatch(text); m != nil {
		if d, ok := dimensionIn(m[2]); ok {
			spec.intent = query.IntentAggregate
			spec.groupBy = d
			spec.limit = atoi(m[1])
			return true
		}
	}

	// "how many ... ranked" without a metric is still a count
	metric, hasMetric := rankMetric(text)
	if hasMetric || rankWordPattern.MatchString(text) && !countPattern.MatchString(text) {
		spec.intent = query.IntentRank
		spec.metric = metric
		if m := topPattern.FindStringSubmatch(text); m != nil {
			spec.limit = atoi(m[1])
		}
		return true
	}

	if countPattern.MatchString(text) {
		spec.intent = query.IntentCount
		for _, m := range groupByPattern.FindAllStringSubmatch(text, -1) {
			if d, ok := dimensionIn(m[1]); ok {
				spec.groupBy = d
				break
			}
		}
		return true
	}

	if listPattern.MatchString(text) || len(spec.mentions) > 0 || len(spec.ranges) > 0 {
		spec.intent = query.IntentList
		if m := byMetricPattern.FindStringSubmatch(text); m != nil {
			if metric, ok := dataset.ParseMetric(m[1]); ok {
				spec.metric = metric
			}
		}
		if m := showNPattern.FindStringSubmatch(text); m != nil {
			spec.limit = atoi(m[1])
		}
		return true
	}
	return false
}

// rankMetric finds the ordering metric in "by stars", "most starred",
// "highest number of forks".
func rankMetric(text string) (dataset.Metric, bool) {
	for _, p := range []*regexp.Regexp{mostPattern, byMetricPattern} {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if metric, ok := dataset.ParseMetric(m[1]); ok {
				return metric, true
			}
		}
	}
	return "", false
}

// dimensionIn finds the first dimension word in a phrase such as
// "languages used" or "project types".
func dimensionIn(phrase string) (dataset.Dimension, bool) {
	words := strings.Fields(strings.ToLower(strings.Trim(phrase, " ?.!,")))
	for i := range words {
		if i+1 < len(words) {
			if d, ok := dataset.ParseDimension(words[i] + " " + words[i+1]); ok {
				return d, true
			}
		}
		if d, ok := dataset.ParseDimension(strings.Trim(words[i], ",")); ok {
			return d, true
		}
	}
	return "", false
}

func (c *RuleClassifier) parseEntities(text string, spec *intentSpec) {
	for _, m := range fromPattern.FindAllStringSubmatch(text, -1) {
		phrase := strings.TrimRight(m[1], ".,?!")
		first := strings.ToLower(strings.Fields(phrase)[0])
		if fromStopWords[first] {
			continue
		}
		if _, isDim := dataset.ParseDimension(first); isDim {
			continue
		}
		spec.mention(dataset.DimUniversity, c.longestResolvable(dataset.DimUniversity, phrase))
	}
	for _, m := range writtenPattern.FindAllStringSubmatch(text, -1) {
		spec.mention(dataset.DimLanguage, strings.TrimRight(m[1], ".,?!"))
	}
	if noLicense.MatchString(text) {
		spec.mention(dataset.DimLicense, dataset.Unspecified)
	}
	for _, p := range []*regexp.Regexp{underPattern, licensedWord} {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			token := strings.TrimRight(m[1], ".,?!")
			if strings.EqualFold(token, "no") || strings.EqualFold(token, "un") {
				continue
			}
			spec.mention(dataset.DimLicense, token)
		}
	}
	c.scanValues(stripRanges(text), spec)
}

// stripRanges removes numeric comparisons ("less than 200 stars") so their
// words are not read as values.
func stripRanges(text string) string {
	text = betweenPattern.ReplaceAllString(text, " ")
	return numericPattern.ReplaceAllString(text, " ")
}

// longestResolvable shortens a captured phrase word by word until it names
// a known value. The full phrase is returned when nothing matches so the
// error names what the user typed.
func (c *RuleClassifier) longestResolvable(d dataset.Dimension, phrase string) string {
	words := strings.Fields(phrase)
	for n := len(words); n > 0; n-- {
		candidate := strings.Join(words[:n], " ")
		if _, ok := c.schema.Resolve(d, candidate); ok {
			return candidate
		}
	}
	if len(words) > 1 {
		return words[0]
	}
	return phrase
}

// scanValues picks up known values mentioned anywhere, e.g. "Python
// repositories" or "top 5 UCLA projects". Values of one or two characters
// ("R", "Go") and common English words must match case exactly.
func (c *RuleClassifier) scanValues(text string, spec *intentSpec) {
	words := wordPattern.FindAllString(text, -1)
	for i := range words {
		words[i] = strings.TrimRight(words[i], ".'")
	}
	scan := []dataset.Dimension{dataset.DimUniversity, dataset.DimLanguage, dataset.DimLicense, dataset.DimType}
	for i := 0; i < len(words); {
		matched := 0
		for n := min(4, len(words)-i); n > 0 && matched == 0; n-- {
			phrase := strings.Join(words[i:i+n], " ")
			for _, d := range scan {
				v, ok := c.schema.Resolve(d, phrase)
				if !ok {
					continue
				}
				if (len(phrase) <= 2 || commonWords[strings.ToLower(phrase)]) && v != phrase {
					continue
				}
				if d == dataset.DimLicense && v == dataset.Unspecified {
					// "none" and friends are handled by the explicit license patterns
					continue
				}
				spec.mention(d, phrase)
				matched = n
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
}

func parseRanges(text string, spec *intentSpec) {
	for _, m := range betweenPattern.FindAllStringSubmatch(text, -1) {
		metric, ok := dataset.ParseMetric(m[5])
		if !ok {
			continue
		}
		lo, hi := number(m[1], m[2]), number(m[3], m[4])
		if lo > hi {
			lo, hi = hi, lo
		}
		spec.ranges = append(spec.ranges, rangeSpec{field: query.FieldForMetric(metric), c: query.Between(lo, hi)})
	}
	text = betweenPattern.ReplaceAllString(text, "")

	for _, idx := range numericPattern.FindAllStringSubmatchIndex(text, -1) {
		group := func(n int) string {
			if idx[2*n] < 0 {
				return ""
			}
			return text[idx[2*n]:idx[2*n+1]]
		}
		op := strings.ToLower(group(1) + group(2))
		if op == "" && strings.HasSuffix(strings.ToLower(strings.TrimSpace(text[:idx[0]])), "top") {
			continue
		}
		metric, ok := dataset.ParseMetric(group(5))
		if !ok {
			continue
		}
		n := number(group(3), group(4))
		spec.ranges = append(spec.ranges, rangeSpec{field: query.FieldForMetric(metric), c: comparison(op, n)})
	}
}

func comparison(op string, n float64) query.Constraint {
	switch op {
	case "more than", "greater than", "over", "above", ">":
		return query.MoreThan(n)
	case "fewer than", "less than", "under", "below", "<":
		return query.LessThan(n)
	case "at most", "no more than", "<=":
		return query.AtMost(n)
	case "exactly", "=":
		return query.Between(n, n)
	}
	// "at least", "no less than", ">=" and a bare number
	return query.AtLeast(n)
}

func number(digits, suffix string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(suffix) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return v
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
