package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/codeatlas/codeatlas/internal/errors"
	"github.com/codeatlas/codeatlas/internal/models"
)

// ResponseCache caches whole retrieval responses. Implementations are
// best effort; a miss and an unavailable cache look the same.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*Response, bool)
	Set(ctx context.Context, key string, resp *Response)
}

// Retriever answers natural-language queries by fusing weighted results
// from multiple sources. It is stateless per request; all persistent
// state lives in the externally-owned stores and indexes.
type Retriever struct {
	sources map[models.ContextSource]Source
	cache   ResponseCache // may be nil
	logger  *slog.Logger
}

// New creates a retriever over the given sources
func New(sources ...Source) *Retriever {
	m := make(map[models.ContextSource]Source, len(sources))
	for _, s := range sources {
		m[s.Name()] = s
	}
	return &Retriever{
		sources: m,
		logger:  slog.Default().With("component", "retriever"),
	}
}

// WithCache attaches a response cache
func (r *Retriever) WithCache(cache ResponseCache) *Retriever {
	r.cache = cache
	return r
}

// Retrieve runs one query. The only error it returns is a validation
// failure; per-source failures degrade that source to an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ValidationError("query cannot be empty")
	}

	opts.applyDefaults()

	if r.cache != nil {
		if resp, ok := r.cache.Get(ctx, cacheKey(query, opts)); ok {
			return resp, nil
		}
	}

	tokens := tokenize(query)

	// One retrieval per enabled source, concurrently. A source failing
	// contributes nothing; the call still succeeds.
	var mu sync.Mutex
	bySource := make(map[models.ContextSource][]models.RetrievedContext)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range opts.Sources {
		source, ok := r.sources[name]
		if !ok {
			r.logger.Debug("no source registered", "source", name)
			continue
		}
		g.Go(func() error {
			contexts, err := source.Retrieve(gctx, tokens, opts.MaxResults)
			if err != nil {
				r.logger.Warn("source retrieval failed",
					"source", source.Name(), "error", err)
				return nil
			}
			mu.Lock()
			bySource[source.Name()] = contexts
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	// Weighted fusion. A single enabled source keeps its raw scores.
	singleSource := len(opts.Sources) == 1

	var fused []models.RetrievedContext
	for name, contexts := range bySource {
		weight := 1.0
		if !singleSource {
			if w, ok := opts.Weights[name]; ok {
				weight = w
			}
		}
		for _, c := range contexts {
			c.Score = models.Clamp01(c.Score * weight)
			fused = append(fused, c)
		}
	}

	// Threshold applies after weighting
	filtered := fused[:0]
	for _, c := range fused {
		if c.Score >= opts.MinScore {
			filtered = append(filtered, c)
		}
	}

	if opts.Rerank {
		rerank(filtered, tokens, time.Now())
	}

	sortContexts(filtered)

	totalFound := len(filtered)
	if len(filtered) > opts.MaxResults {
		filtered = filtered[:opts.MaxResults]
	}

	breakdown := make(map[models.ContextSource]int)
	for _, c := range filtered {
		breakdown[c.Source]++
	}

	resp := &Response{
		Query:           query,
		Strategy:        opts.Strategy,
		Contexts:        filtered,
		TotalFound:      totalFound,
		Returned:        len(filtered),
		SourceBreakdown: breakdown,
		RetrievalTimeMs: time.Since(start).Milliseconds(),
		Reranked:        opts.Rerank,
	}

	if r.cache != nil {
		r.cache.Set(ctx, cacheKey(query, opts), resp)
	}

	return resp, nil
}

// sortContexts orders by score descending with id as the stable tie-break
func sortContexts(contexts []models.RetrievedContext) {
	sort.SliceStable(contexts, func(i, j int) bool {
		if contexts[i].Score != contexts[j].Score {
			return contexts[i].Score > contexts[j].Score
		}
		return contexts[i].ID < contexts[j].ID
	})
}

// cacheKey derives a stable key from the query and the options that
// affect the result
func cacheKey(query string, opts Options) string {
	var sb strings.Builder
	sb.WriteString(query)
	fmt.Fprintf(&sb, "|%s|%d|%v|%t", opts.Strategy, opts.MaxResults, opts.MinScore, opts.Rerank)
	for _, s := range opts.Sources {
		sb.WriteString("|" + string(s))
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return "retrieval:" + hex.EncodeToString(sum[:16])
}
