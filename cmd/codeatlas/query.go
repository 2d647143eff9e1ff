package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/codeatlas/codeatlas/internal/cache"
	"github.com/codeatlas/codeatlas/internal/config"
	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/codeatlas/codeatlas/internal/index"
	"github.com/codeatlas/codeatlas/internal/models"
	"github.com/codeatlas/codeatlas/internal/retrieval"
	"github.com/spf13/cobra"
)

var (
	querySources    []string
	queryMaxResults int
	queryMinScore   float64
	queryNoRerank   bool
	queryProfile    string
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve context for a natural-language query",
	Long: `Query blends graph search over the knowledge graph with prebuilt
documentation, prevention, and task indexes, then reranks the fused
results.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVar(&querySources, "sources", nil, "sources to search (code,documentation,prevention,task)")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "maximum results (default from config)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", -1, "minimum blended score (default from config)")
	queryCmd.Flags().BoolVar(&queryNoRerank, "no-rerank", false, "disable reranking")
	queryCmd.Flags().StringVar(&queryProfile, "profile", "", "weight profile (default, code_heavy, docs_heavy, safety)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "emit JSON output")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if result := cfg.Validate(config.ValidationContextQuery); result.HasErrors() {
		return fmt.Errorf("%s", result.Error())
	}

	retriever, cleanup, err := buildRetriever(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	opts, err := buildQueryOptions()
	if err != nil {
		return err
	}

	resp, err := retriever.Retrieve(ctx, args[0], opts)
	if err != nil {
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printQueryResults(resp)
	return nil
}

// buildRetriever wires the code source, the configured index sources, and
// the optional redis response cache. The returned cleanup closes whatever
// was opened.
func buildRetriever(ctx context.Context) (*retrieval.Retriever, func(), error) {
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	backend, err := graph.NewNeo4jBackend(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() { backend.Close(ctx) })

	var idxCache *index.Cache
	if !cfg.Indexes.CacheDisabled && cfg.Indexes.CachePath != "" {
		idxCache, err = index.OpenCache(cfg.Indexes.CachePath)
		if err != nil {
			logger.WithError(err).Warn("Index cache unavailable, parsing indexes each run")
		} else {
			closers = append(closers, func() { idxCache.Close() })
		}
	}
	reader := index.NewReader(cfg.Indexes.Directory, idxCache)

	retriever := retrieval.New(
		retrieval.NewCodeSource(backend),
		retrieval.NewIndexSource(reader, models.SourceDocumentation),
		retrieval.NewIndexSource(reader, models.SourcePrevention),
		retrieval.NewIndexSource(reader, models.SourceTask),
	)

	if cfg.Cache.RedisHost != "" {
		client, err := cache.NewClient(ctx, cfg.Cache.RedisHost, cfg.Cache.RedisPort, cfg.Cache.RedisPassword, cfg.Cache.TTL)
		if err != nil {
			logger.WithError(err).Debug("Query cache unavailable")
		} else {
			closers = append(closers, func() { client.Close() })
			retriever = retriever.WithCache(cache.NewQueryCache(client))
		}
	}

	return retriever, cleanup, nil
}

func buildQueryOptions() (retrieval.Options, error) {
	opts := retrieval.DefaultOptions()

	if cfg.Retrieval.MaxResults > 0 {
		opts.MaxResults = cfg.Retrieval.MaxResults
	}
	if cfg.Retrieval.MinScore > 0 {
		opts.MinScore = cfg.Retrieval.MinScore
	}
	opts.Rerank = cfg.Retrieval.Rerank
	if len(cfg.Retrieval.Weights) > 0 {
		opts.Weights = sourceWeights(cfg.Retrieval.Weights)
	}

	if queryProfile != "" {
		profile, err := config.GetProfile(queryProfile)
		if err != nil {
			return opts, err
		}
		opts.Weights = sourceWeights(profile.Weights)
	}
	if queryMaxResults > 0 {
		opts.MaxResults = queryMaxResults
	}
	if queryMinScore >= 0 {
		opts.MinScore = queryMinScore
	}
	if queryNoRerank {
		opts.Rerank = false
	}

	if len(querySources) > 0 {
		opts.Sources = nil
		for _, s := range querySources {
			source := models.ContextSource(strings.TrimSpace(strings.ToLower(s)))
			switch source {
			case models.SourceCode, models.SourceDocumentation, models.SourcePrevention, models.SourceTask:
				opts.Sources = append(opts.Sources, source)
			default:
				return opts, fmt.Errorf("unknown source %q", s)
			}
		}
	}

	return opts, nil
}

func sourceWeights(weights map[string]float64) map[models.ContextSource]float64 {
	out := make(map[models.ContextSource]float64, len(weights))
	for name, w := range weights {
		out[models.ContextSource(name)] = w
	}
	return out
}

func printQueryResults(resp *retrieval.Response) {
	fmt.Println()
	fmt.Printf("🔍 %q\n", resp.Query)
	fmt.Printf("Found %d, returning %d (%dms)\n", resp.TotalFound, resp.Returned, resp.RetrievalTimeMs)
	fmt.Println()

	if len(resp.Contexts) == 0 {
		fmt.Println("No results above the score threshold.")
		return
	}

	for i, c := range resp.Contexts {
		fmt.Printf("%2d. [%.2f] %-13s %s\n", i+1, c.Score, c.Source, c.ID)
		if c.FilePath != "" {
			fmt.Printf("    %s\n", c.FilePath)
		}
		text := c.Snippet
		if text == "" {
			text = c.Content
		}
		if text != "" {
			fmt.Printf("    %s\n", firstLine(text))
		}
	}

	if len(resp.SourceBreakdown) > 0 {
		fmt.Println()
		fmt.Print("Sources:")
		for _, source := range []models.ContextSource{models.SourceCode, models.SourceDocumentation, models.SourcePrevention, models.SourceTask} {
			if n := resp.SourceBreakdown[source]; n > 0 {
				fmt.Printf(" %s=%d", source, n)
			}
		}
		fmt.Println()
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}
