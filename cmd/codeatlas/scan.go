package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codeatlas/codeatlas/internal/cache"
	"github.com/codeatlas/codeatlas/internal/config"
	"github.com/codeatlas/codeatlas/internal/database"
	"github.com/codeatlas/codeatlas/internal/embedding"
	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/codeatlas/codeatlas/internal/models"
	"github.com/codeatlas/codeatlas/internal/pipeline"
	"github.com/codeatlas/codeatlas/internal/storage"
	"github.com/spf13/cobra"
)

var (
	scanExtraction string
	scanWorkers    int
	scanNoGraph    bool
	scanNoEmbed    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [workspace]",
	Short: "Build the knowledge graph from extraction output",
	Long: `Scan runs the enrichment pipeline over a workspace: extraction output
is filtered, deduplicated, classified, linked, and persisted to the
graph store. The extraction dump is produced by an external extractor.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanExtraction, "extraction", "e", "", "extraction dump file (JSON)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "extraction workers (default from config)")
	scanCmd.Flags().BoolVar(&scanNoGraph, "no-graph", false, "skip graph persistence")
	scanCmd.Flags().BoolVar(&scanNoEmbed, "no-embed", false, "skip embedding generation")
	scanCmd.MarkFlagRequired("extraction")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	workspace := cfg.Workspace
	if len(args) > 0 {
		workspace = args[0]
	}
	if workspace == "" || workspace == "." {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve workspace: %w", err)
		}
		workspace = wd
	}

	if result := cfg.Validate(config.ValidationContextScan); result.HasErrors() {
		return fmt.Errorf("%s", result.Error())
	}

	extractor, err := pipeline.NewDumpExtractor(scanExtraction, workspace)
	if err != nil {
		return err
	}

	files, err := collectSourceFiles(workspace)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		files = extractor.Files()
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.Workers = cfg.Pipeline.Workers
	if scanWorkers > 0 {
		pcfg.Workers = scanWorkers
	}
	pcfg.Filter = pipeline.FilterConfig{
		SkipLocalVariables: cfg.Pipeline.SkipLocalVariables,
		SkipPrimitiveTypes: cfg.Pipeline.SkipPrimitiveTypes,
		SkipAssetImports:   cfg.Pipeline.SkipAssetImports,
		SkipPrivateMembers: cfg.Pipeline.SkipPrivateMembers,
	}

	var opts []pipeline.Option

	if !scanNoGraph && cfg.Graph.URI != "" {
		backend, err := graph.NewNeo4jBackend(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
		if err != nil {
			logger.WithError(err).Warn("Graph store unavailable, scanning without persistence")
		} else {
			defer backend.Close(ctx)
			opts = append(opts, pipeline.WithGraph(backend))
		}
	}

	store, err := openStore()
	if err != nil {
		logger.WithError(err).Warn("Scan bookkeeping unavailable")
	} else {
		defer store.Close()
		opts = append(opts, pipeline.WithStore(store))
	}

	if !scanNoEmbed {
		if svc := openEmbedder(ctx); svc != nil {
			opts = append(opts, pipeline.WithEmbedder(svc))
		}
	}

	chunks := loadChunks(ctx)

	start := time.Now()
	p := pipeline.New(pcfg, extractor, opts...)
	result, err := p.Run(ctx, workspace, files, chunks)
	if err != nil {
		return err
	}

	printScanSummary(result, time.Since(start))
	invalidateQueryCache(ctx)
	return nil
}

// collectSourceFiles drains the workspace walker into a slice
func collectSourceFiles(workspace string) ([]string, error) {
	paths, err := pipeline.WalkSourceFiles(workspace)
	if err != nil {
		return nil, err
	}
	var files []string
	for path := range paths {
		files = append(files, path)
	}
	return files, nil
}

func openStore() (storage.Store, error) {
	if cfg.Storage.Type == "postgres" {
		return storage.NewPostgresStore(cfg.Storage.PostgresDSN, logger)
	}
	return storage.NewSQLiteStore(cfg.Storage.LocalPath, logger)
}

func openEmbedder(ctx context.Context) embedding.Service {
	apiKey := resolveAPIKey()
	if apiKey == "" {
		logger.Debug("No embedding API key configured, skipping embeddings")
		return nil
	}
	svc, err := embedding.NewOpenAIService(apiKey, cfg.Embedding.Model, cfg.Embedding.RatePerSec)
	if err != nil {
		logger.WithError(err).Warn("Embedding service unavailable")
		return nil
	}
	if err := svc.Initialize(ctx); err != nil {
		logger.WithError(err).Warn("Embedding service unavailable")
		return nil
	}
	return svc
}

// resolveAPIKey prefers the OS keychain over the config file
func resolveAPIKey() string {
	if cfg.Embedding.UseKeychain {
		km := config.NewKeyringManager()
		if key, err := km.GetAPIKey(); err == nil && key != "" {
			return key
		}
	}
	return cfg.Embedding.APIKey
}

func loadChunks(ctx context.Context) []models.Chunk {
	if cfg.Chunks.PostgresDSN == "" {
		return nil
	}
	cs, err := database.NewChunkStore(ctx, cfg.Chunks.PostgresDSN)
	if err != nil {
		logger.WithError(err).Warn("Chunk store unavailable, skipping documentation attachment")
		return nil
	}
	defer cs.Close()

	chunks, err := cs.ListChunks(ctx, 5000)
	if err != nil {
		logger.WithError(err).Warn("Failed to load chunks")
		return nil
	}
	return chunks
}

// invalidateQueryCache drops cached retrieval responses after a scan
func invalidateQueryCache(ctx context.Context) {
	if cfg.Cache.RedisHost == "" {
		return
	}
	client, err := cache.NewClient(ctx, cfg.Cache.RedisHost, cfg.Cache.RedisPort, cfg.Cache.RedisPassword, cfg.Cache.TTL)
	if err != nil {
		logger.WithError(err).Debug("Query cache unavailable, skipping invalidation")
		return
	}
	defer client.Close()

	if err := cache.NewQueryCache(client).Invalidate(ctx); err != nil {
		logger.WithError(err).Warn("Failed to invalidate query cache")
	}
}

func printScanSummary(result *pipeline.Result, elapsed time.Duration) {
	run := result.Run
	fmt.Println()
	fmt.Println("📦 Scan Complete")
	fmt.Println("================")
	fmt.Printf("Run ID:        %s\n", run.ID)
	fmt.Printf("Workspace:     %s\n", run.Workspace)
	fmt.Printf("Files:         %d scanned, %d failed\n", run.FilesTotal, run.FilesFailed)
	fmt.Printf("Entities:      %d raw, %d kept\n", run.EntitiesRaw, run.EntitiesKept)
	fmt.Printf("Relationships: %d\n", run.Relationships)
	fmt.Printf("Duration:      %s\n", elapsed.Round(time.Millisecond))

	if len(result.Errors) > 0 {
		fmt.Printf("\n⚠️  %d file(s) failed:\n", len(result.Errors))
		for _, err := range result.Errors {
			fmt.Printf("  - %v\n", err)
		}
	}
}
