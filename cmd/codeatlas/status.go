package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeatlas/codeatlas/internal/cache"
	"github.com/codeatlas/codeatlas/internal/config"
	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show CodeAtlas status and connectivity",
	Long:  `Display current configuration, graph store connectivity, the latest scan run, and index availability.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Printf("🗺️  CodeAtlas Status\n")
	fmt.Printf("%s\n", strings.Repeat("═", 50))

	// Configuration info
	fmt.Printf("\n📋 Configuration:\n")
	fmt.Printf("  Workspace: %s\n", cfg.Workspace)
	fmt.Printf("  Storage: %s\n", cfg.Storage.Type)
	fmt.Printf("  Index directory: %s\n", cfg.Indexes.Directory)

	km := config.NewKeyringManager()
	keyInfo := km.GetAPIKeySource(cfg)
	fmt.Printf("  Embedding key: %s\n", keyInfo.Source)

	// Graph store
	fmt.Printf("\n🕸️  Graph Store:\n")
	fmt.Printf("  URI: %s\n", cfg.Graph.URI)
	backend, err := graph.NewNeo4jBackend(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
	if err != nil {
		fmt.Printf("  Status: ❌ Unreachable (%v)\n", err)
	} else {
		fmt.Printf("  Status: ✅ Connected\n")
		backend.Close(ctx)
	}

	// Latest scan run
	fmt.Printf("\n📦 Last Scan:\n")
	printLatestScan(cmd)

	// Auxiliary indexes
	fmt.Printf("\n📚 Indexes:\n")
	for _, name := range []string{"documentation.json", "prevention.json", "tasks.json"} {
		path := filepath.Join(cfg.Indexes.Directory, name)
		if info, err := os.Stat(path); err == nil {
			fmt.Printf("  %-20s ✅ %s\n", name, info.ModTime().Format("2006-01-02 15:04"))
		} else {
			fmt.Printf("  %-20s ❌ missing\n", name)
		}
	}

	// Query cache
	if cfg.Cache.RedisHost != "" {
		fmt.Printf("\n💾 Query Cache:\n")
		client, err := cache.NewClient(ctx, cfg.Cache.RedisHost, cfg.Cache.RedisPort, cfg.Cache.RedisPassword, cfg.Cache.TTL)
		if err != nil {
			fmt.Printf("  Status: ❌ Unreachable (%v)\n", err)
		} else {
			fmt.Printf("  Status: ✅ Connected (TTL %s)\n", cfg.Cache.TTL)
			client.Close()
		}
	}

	fmt.Println()
	return nil
}

func printLatestScan(cmd *cobra.Command) {
	store, err := openStore()
	if err != nil {
		fmt.Printf("  Status: ❌ Store unavailable (%v)\n", err)
		return
	}
	defer store.Close()

	run, err := store.GetLatestScanRun(cmd.Context(), cfg.Workspace)
	if err != nil {
		fmt.Printf("  Status: no scan recorded (run 'codeatlas scan')\n")
		return
	}

	fmt.Printf("  Run: %s\n", run.ID)
	fmt.Printf("  Finished: %s (%s ago)\n", run.FinishedAt.Format("2006-01-02 15:04:05"), formatAge(time.Since(run.FinishedAt)))
	fmt.Printf("  Files: %d (%d failed)\n", run.FilesTotal, run.FilesFailed)
	fmt.Printf("  Entities: %d kept of %d raw\n", run.EntitiesKept, run.EntitiesRaw)
	fmt.Printf("  Relationships: %d\n", run.Relationships)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
