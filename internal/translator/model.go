package translator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/llm"
	"repo-explorer/internal/query"
)

// ModelClassifier asks a chat model to classify the utterance and resolves
// its answer through the same entity resolver as the rules. Provider and
// parse failures fall back to the rules.
type ModelClassifier struct {
	completer llm.Completer
	schema    Schema
	fallback  Classifier
	timeout   time.Duration
	logger    *zap.Logger
}

func NewModelClassifier(completer llm.Completer, schema Schema, fallback Classifier, logger *zap.Logger) *ModelClassifier {
	return &ModelClassifier{completer: completer, schema: schema, fallback: fallback, logger: logger}
}

// WithTimeout bounds each model call; a timed out call falls back like any
// other provider failure.
func (c *ModelClassifier) WithTimeout(d time.Duration) *ModelClassifier {
	c.timeout = d
	return c
}

func (c *ModelClassifier) Name() string { return "model:" + c.completer.Model() }

func (c *ModelClassifier) Classify(ctx context.Context, utterance string, filters query.FilterSet) (query.StructuredQuery, error) {
	if c.schema == nil || !c.schema.Loaded() {
		return query.StructuredQuery{}, query.ErrEmptyDataset
	}

	mctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	intent, err := llm.UnderstandQuery(mctx, c.completer, utterance, llm.Schema{
		Universities: c.schema.Values(dataset.DimUniversity),
		Languages:    c.schema.Values(dataset.DimLanguage),
		Licenses:     c.schema.Values(dataset.DimLicense),
		Types:        c.schema.Values(dataset.DimType),
	})
	if err != nil {
		if ctx.Err() != nil || c.fallback == nil {
			return query.StructuredQuery{}, err
		}
		c.logger.Warn("Model classification failed, using rules",
			zap.String("model", c.completer.Model()),
			zap.Error(err))
		return c.fallback.Classify(ctx, utterance, filters)
	}

	spec, err := fromModel(intent)
	if err != nil {
		return query.StructuredQuery{}, err
	}
	return spec.build(c.schema, filters)
}

func fromModel(in *llm.QueryIntent) (intentSpec, error) {
	var spec intentSpec
	switch query.Intent(in.Intent) {
	case query.IntentList, query.IntentCount, query.IntentRank, query.IntentAggregate, query.IntentCompare:
		spec.intent = query.Intent(in.Intent)
	default:
		return spec, query.ErrUnsupportedIntent
	}

	if in.GroupBy != "" {
		d, ok := dataset.ParseDimension(in.GroupBy)
		if !ok {
			return spec, query.ErrUnsupportedIntent
		}
		spec.groupBy = d
	}
	if in.Across != "" {
		d, ok := dataset.ParseDimension(in.Across)
		if !ok {
			return spec, query.ErrUnsupportedIntent
		}
		spec.across = d
	}
	if in.Metric != "" {
		m, ok := dataset.ParseMetric(in.Metric)
		if !ok {
			return spec, query.ErrUnsupportedIntent
		}
		spec.metric = m
	}
	switch spec.intent {
	case query.IntentAggregate:
		if spec.groupBy == "" {
			return spec, query.ErrUnsupportedIntent
		}
	case query.IntentCompare:
		if spec.groupBy == "" || spec.across == "" || spec.groupBy == spec.across {
			return spec, query.ErrUnsupportedIntent
		}
	}
	if in.Limit > 0 {
		spec.limit = in.Limit
	}

	mentions := map[dataset.Dimension][]string{
		dataset.DimUniversity: in.Filters.University,
		dataset.DimLanguage:   in.Filters.Language,
		dataset.DimLicense:    in.Filters.License,
		dataset.DimType:       in.Filters.Type,
	}
	for _, d := range dataset.Dimensions {
		for _, token := range mentions[d] {
			if strings.TrimSpace(token) != "" {
				spec.mention(d, token)
			}
		}
	}

	for _, r := range in.Filters.Ranges {
		m, ok := dataset.ParseMetric(r.Field)
		if !ok {
			continue
		}
		var op string
		switch strings.ToLower(r.Op) {
		case "gt":
			op = "more than"
		case "lt":
			op = "less than"
		case "lte":
			op = "at most"
		case "eq":
			op = "exactly"
		}
		spec.ranges = append(spec.ranges, rangeSpec{field: query.FieldForMetric(m), c: comparison(op, r.Value)})
	}
	return spec, nil
}
