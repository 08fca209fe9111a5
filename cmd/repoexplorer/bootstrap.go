package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"repo-explorer/internal/config"
	"repo-explorer/internal/dataset"
	"repo-explorer/internal/elastic"
	"repo-explorer/internal/llm"
	"repo-explorer/internal/logger"
	"repo-explorer/internal/query"
	"repo-explorer/internal/translator"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func bootstrap(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: log}, nil
}

// loadDataset never fails: a missing dataset yields an unavailable store and
// a warning.
func (a *app) loadDataset(ctx context.Context) *dataset.Store {
	store, err := dataset.Load(ctx, dataset.LoadOptions{
		Dir:          a.cfg.Data.Dir,
		ConfigDir:    a.cfg.Data.ConfigDir,
		Universities: a.cfg.Data.Universities,
		Workers:      a.cfg.Data.Workers,
	}, a.logger)
	if err != nil {
		a.logger.Warn("Dataset unavailable, chat is disabled", zap.String("dir", a.cfg.Data.Dir), zap.Error(err))
	}
	return store
}

func (a *app) defaultFilters() query.FilterSet {
	c := query.AtLeast(a.cfg.Data.AffiliationThreshold)
	c.Required = a.cfg.Data.DropUnscored
	return query.FilterSet{query.FieldAffiliation: c}
}

// completer picks the chat model from the configured provider. It returns
// nil when the rules should be used.
func (a *app) completer(ctx context.Context) (llm.Completer, error) {
	c := a.cfg.LLM
	provider := c.Provider
	if provider == "auto" {
		switch {
		case c.OpenAIAPIKey != "":
			provider = "openai"
		case c.GoogleAPIKey != "":
			provider = "gemini"
		default:
			provider = "rules"
		}
	}
	switch provider {
	case "openai":
		return llm.NewOpenAIClient(c.OpenAIAPIKey, c.OpenAIModel, a.logger)
	case "gemini":
		return llm.NewGeminiClient(ctx, c.GoogleAPIKey, c.GeminiModel, a.logger)
	}
	return nil, nil
}

// classifier builds the translator chain: model (when configured) falling
// back to rules, behind the classification cache. The returned func releases
// the model client and the cache.
func (a *app) classifier(ctx context.Context, store *dataset.Store) (translator.Classifier, func(), error) {
	rules := translator.NewRuleClassifier(store)
	completer, err := a.completer(ctx)
	if err != nil {
		a.logger.Warn("Chat model unavailable, using rules", zap.Error(err))
		completer = nil
	}

	var next translator.Classifier = rules
	if completer != nil {
		next = translator.NewModelClassifier(completer, store, rules, a.logger).WithTimeout(a.cfg.LLM.Timeout)
	}
	cached, err := translator.NewCachedClassifier(next, a.cfg.LLM.CacheEntries, a.cfg.LLM.CacheTTL)
	if err != nil {
		if completer != nil {
			completer.Close()
		}
		return nil, nil, fmt.Errorf("create classification cache: %w", err)
	}
	a.logger.Info("Classifier ready", zap.String("classifier", cached.Name()))
	return cached, func() {
		cached.Close()
		if completer != nil {
			completer.Close()
		}
	}, nil
}

func (a *app) elasticClient() (*elastic.Client, error) {
	e := a.cfg.Elastic
	if !e.Enabled() {
		return nil, elastic.ErrDisabled
	}
	return elastic.NewClient(elastic.Config{
		Addresses: e.Addresses,
		CloudID:   e.CloudID,
		Username:  e.Username,
		Password:  e.Password,
		Index:     e.Index,
	}, a.logger)
}
