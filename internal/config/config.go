package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Workspace root the knowledge graph is built over
	Workspace string `yaml:"workspace"`

	// Graph store connection
	Graph GraphConfig `yaml:"graph"`

	// Pipeline filter settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Retrieval defaults
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Auxiliary index locations
	Indexes IndexConfig `yaml:"indexes"`

	// Embedding service configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Local scan bookkeeping storage
	Storage StorageConfig `yaml:"storage"`

	// Chunk store (documentation fragments)
	Chunks ChunkConfig `yaml:"chunks"`

	// Query cache
	Cache CacheConfig `yaml:"cache"`
}

type GraphConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type PipelineConfig struct {
	Workers            int  `yaml:"workers"`
	SkipLocalVariables bool `yaml:"skip_local_variables"`
	SkipPrimitiveTypes bool `yaml:"skip_primitive_types"`
	SkipAssetImports   bool `yaml:"skip_asset_imports"`
	SkipPrivateMembers bool `yaml:"skip_private_members"`
}

type RetrievalConfig struct {
	MaxResults int                `yaml:"max_results"`
	MinScore   float64            `yaml:"min_score"`
	Rerank     bool               `yaml:"rerank"`
	Weights    map[string]float64 `yaml:"weights"`
}

type IndexConfig struct {
	Directory     string `yaml:"directory"`  // holds <source>.json index files
	CachePath     string `yaml:"cache_path"` // bbolt parsed-index cache
	CacheDisabled bool   `yaml:"cache_disabled"`
}

type EmbeddingConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	RatePerSec  float64 `yaml:"rate_per_sec"`
	UseKeychain bool    `yaml:"use_keychain"` // prefer keychain over config file
}

type StorageConfig struct {
	Type        string `yaml:"type"` // "sqlite", "postgres"
	PostgresDSN string `yaml:"postgres_dsn"`
	LocalPath   string `yaml:"local_path"`
}

type ChunkConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

type CacheConfig struct {
	RedisHost     string        `yaml:"redis_host"`
	RedisPort     int           `yaml:"redis_port"`
	RedisPassword string        `yaml:"redis_password"`
	TTL           time.Duration `yaml:"ttl"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Workspace: ".",
		Graph: GraphConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Pipeline: PipelineConfig{
			Workers:            8,
			SkipLocalVariables: true,
			SkipPrimitiveTypes: true,
			SkipAssetImports:   true,
			SkipPrivateMembers: false,
		},
		Retrieval: RetrievalConfig{
			MaxResults: 10,
			MinScore:   0.5,
			Rerank:     true,
		},
		Indexes: IndexConfig{
			Directory: filepath.Join(".codeatlas", "indexes"),
			CachePath: filepath.Join(homeDir, ".codeatlas", "index-cache.db"),
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			RatePerSec: 5,
		},
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".codeatlas", "local.db"),
		},
		Cache: CacheConfig{
			RedisPort: 6379,
			TTL:       15 * time.Minute,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("workspace", cfg.Workspace)
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("pipeline", cfg.Pipeline)
	v.SetDefault("retrieval", cfg.Retrieval)
	v.SetDefault("indexes", cfg.Indexes)
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("cache", cfg.Cache)

	// Load from environment variables
	v.SetEnvPrefix("CODEATLAS")
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".codeatlas")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".codeatlas"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".codeatlas", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	// Graph store
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		cfg.Graph.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.Graph.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		cfg.Graph.Database = db
	}

	// Embedding service
	// Precedence: 1. Env var (highest) 2. Keychain 3. Config file (lowest)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	} else if cfg.Embedding.APIKey == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainKey, err := km.GetAPIKey(); err == nil && keychainKey != "" {
				cfg.Embedding.APIKey = keychainKey
			}
		}
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		cfg.Embedding.Model = model
	}

	// Storage
	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if dsn := os.Getenv("CHUNKS_POSTGRES_DSN"); dsn != "" {
		cfg.Chunks.PostgresDSN = dsn
	}
	if path := os.Getenv("LOCAL_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}

	// Cache
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Cache.RedisHost = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Cache.RedisPort = p
		}
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Cache.RedisPassword = pass
	}

	// Indexes
	if dir := os.Getenv("INDEX_DIRECTORY"); dir != "" {
		cfg.Indexes.Directory = expandPath(dir)
	}

	// Workspace
	if ws := os.Getenv("CODEATLAS_WORKSPACE"); ws != "" {
		cfg.Workspace = expandPath(ws)
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("workspace", c.Workspace)
	v.Set("graph", c.Graph)
	v.Set("pipeline", c.Pipeline)
	v.Set("retrieval", c.Retrieval)
	v.Set("indexes", c.Indexes)
	v.Set("embedding", c.Embedding)
	v.Set("storage", c.Storage)
	v.Set("chunks", c.Chunks)
	v.Set("cache", c.Cache)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
