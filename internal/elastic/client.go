package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"

	"repo-explorer/internal/dataset"
)

const DefaultIndex = "repositories"

var ErrDisabled = errors.New("full-text search is not configured")

type Client struct {
	es     *elasticsearch.Client
	index  string
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	esCfg := elasticsearch.Config{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.CloudID != "" {
		esCfg.CloudID = cfg.CloudID
	} else {
		esCfg.Addresses = cfg.Addresses
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}
	logger.Info("Elasticsearch client initialized", zap.String("index", index))
	return &Client{es: es, index: index, logger: logger}, nil
}

func (c *Client) Index() string { return c.index }

// EnsureIndex creates the index with its mapping when it does not exist.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists check: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.String())
	}
	c.logger.Info("Created index", zap.String("index", c.index))
	return nil
}

// IndexRepositories bulk-indexes records, keyed by repository ID. It returns
// the number of documents indexed.
func (c *Client) IndexRepositories(ctx context.Context, records []dataset.Repository) (int, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      c.index,
		Client:     c.es,
		NumWorkers: 4,
		FlushBytes: 5 << 20,
	})
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	var failed atomic.Int64
	for _, r := range records {
		data, err := json.Marshal(NewRepoDoc(r))
		if err != nil {
			return 0, fmt.Errorf("marshal %s: %w", r.FullName, err)
		}
		item := esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.FormatInt(r.ID, 10),
			Body:       bytes.NewReader(data),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					c.logger.Warn("Bulk item failed", zap.String("id", item.DocumentID), zap.Error(err))
					return
				}
				c.logger.Warn("Bulk item rejected",
					zap.String("id", item.DocumentID),
					zap.String("type", res.Error.Type),
					zap.String("reason", res.Error.Reason))
			},
		}
		if err := bi.Add(ctx, item); err != nil {
			return 0, fmt.Errorf("bulk add: %w", err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("bulk close: %w", err)
	}

	stats := bi.Stats()
	if n := failed.Load(); n > 0 {
		return int(stats.NumFlushed), fmt.Errorf("%d of %d documents failed to index", n, len(records))
	}
	return int(stats.NumFlushed), nil
}
