package cache

import (
	"context"
	"log/slog"

	"github.com/codeatlas/codeatlas/internal/retrieval"
)

// QueryCache caches whole retrieval responses in Redis. All operations
// are best effort: a Redis failure looks like a miss to the retriever,
// which recomputes the answer.
type QueryCache struct {
	client *Client
	logger *slog.Logger
}

// NewQueryCache wraps a Redis client as a retrieval response cache
func NewQueryCache(client *Client) *QueryCache {
	return &QueryCache{
		client: client,
		logger: slog.Default().With("component", "query_cache"),
	}
}

var _ retrieval.ResponseCache = (*QueryCache)(nil)

func (q *QueryCache) Get(ctx context.Context, key string) (*retrieval.Response, bool) {
	var resp retrieval.Response
	hit, err := q.client.Get(ctx, key, &resp)
	if err != nil {
		q.logger.Debug("query cache read failed", "error", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &resp, true
}

func (q *QueryCache) Set(ctx context.Context, key string, resp *retrieval.Response) {
	if err := q.client.Set(ctx, key, resp); err != nil {
		q.logger.Debug("query cache write failed", "error", err)
	}
}

// Invalidate drops all cached retrieval responses, called after a scan
// changes the graph
func (q *QueryCache) Invalidate(ctx context.Context) error {
	_, err := q.client.DeletePattern(ctx, "retrieval:*")
	return err
}
