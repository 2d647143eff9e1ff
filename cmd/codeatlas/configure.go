package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeatlas/codeatlas/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard for CodeAtlas (with OS keychain support)",
	Long: `Walk through CodeAtlas configuration step-by-step with secure credential storage.

This will configure:
1. Graph store connection (Neo4j)
2. Embedding API key (stored in OS keychain by default)
3. Workspace and index locations`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 CodeAtlas Configuration Wizard")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	// Load existing config if it exists
	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".codeatlas", "config.yaml")
	loadedCfg, err := config.Load(configPath)
	if err != nil {
		loadedCfg = config.Default()
	}

	// Step 1: Graph store
	fmt.Println("Step 1/3: Graph Store (Neo4j)")
	fmt.Println()

	loadedCfg.Graph.URI = promptDefault(reader, "Neo4j URI", loadedCfg.Graph.URI)
	loadedCfg.Graph.Username = promptDefault(reader, "Username", loadedCfg.Graph.Username)
	if password := promptSecret(reader, "Password (leave blank to keep current)"); password != "" {
		loadedCfg.Graph.Password = password
	}
	loadedCfg.Graph.Database = promptDefault(reader, "Database", loadedCfg.Graph.Database)
	fmt.Println()

	// Step 2: Embedding API key
	fmt.Println("Step 2/3: Embedding API Key")
	fmt.Println()

	km := config.NewKeyringManager()
	keychainAvailable := km.IsAvailable()
	if !keychainAvailable {
		fmt.Println("⚠️  OS keychain not available (headless system or Linux without libsecret)")
		fmt.Println("   Will store API key in config file instead.")
		fmt.Println()
	}

	sourceInfo := km.GetAPIKeySource(loadedCfg)
	skipKey := false
	if sourceInfo.Source != "none" {
		fmt.Printf("Current: %s (from %s)\n", config.MaskAPIKey(loadedCfg.Embedding.APIKey), sourceInfo.Source)
		fmt.Print("Keep existing key? (Y/n): ")
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		skipKey = response == "" || response == "y"
	} else {
		fmt.Println("Embeddings are optional; without a key, scans skip vector generation.")
		fmt.Println()
	}

	if !skipKey {
		apiKey := promptSecret(reader, "Enter your OpenAI API key (blank to skip)")
		switch {
		case apiKey == "":
			fmt.Println("Skipping embedding configuration.")
		case !strings.HasPrefix(apiKey, "sk-"):
			fmt.Println("⚠️  Invalid API key format (should start with sk-), skipping")
		case keychainAvailable:
			if err := km.SaveAPIKey(apiKey); err != nil {
				fmt.Printf("⚠️  Failed to save to keychain: %v\n", err)
				fmt.Println("Saving to config file instead...")
				loadedCfg.Embedding.APIKey = apiKey
				loadedCfg.Embedding.UseKeychain = false
			} else {
				fmt.Println("✅ API key saved to OS keychain (secure)")
				loadedCfg.Embedding.APIKey = ""
				loadedCfg.Embedding.UseKeychain = true
			}
		default:
			loadedCfg.Embedding.APIKey = apiKey
			loadedCfg.Embedding.UseKeychain = false
		}
	}
	fmt.Println()

	// Step 3: Workspace and indexes
	fmt.Println("Step 3/3: Workspace")
	fmt.Println()

	loadedCfg.Workspace = promptDefault(reader, "Workspace root", loadedCfg.Workspace)
	loadedCfg.Indexes.Directory = promptDefault(reader, "Index directory", loadedCfg.Indexes.Directory)
	fmt.Println()

	if result := loadedCfg.Validate(config.ValidationContextConfigure); len(result.Warnings) > 0 {
		for _, w := range result.Warnings {
			fmt.Printf("⚠️  %s\n", w)
		}
		fmt.Println()
	}

	if err := loadedCfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ Configuration saved to %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  codeatlas scan --extraction <dump.json>")
	fmt.Println("  codeatlas query \"how does auth work\"")
	return nil
}

func promptDefault(reader *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(response)
	if response == "" {
		return current
	}
	return response
}

// promptSecret reads without echo when stdin is a terminal
func promptSecret(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(raw))
		}
	}
	response, _ := reader.ReadString('\n')
	return strings.TrimSpace(response)
}
