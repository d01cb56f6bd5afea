package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CODERAG_*)
// 2. Config file (.coderag/config.yml or .coderag/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".coderag")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CODERAG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("embedding.provider")
	v.BindEnv("embedding.endpoint")
	v.BindEnv("embedding.api_key")
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("embedding.batch_size")

	v.BindEnv("ingestion.max_tokens_per_chunk")

	v.BindEnv("search.top_k")
	v.BindEnv("search.vector_weight")
	v.BindEnv("search.bm25_weight")

	v.BindEnv("reranker.enabled")
	v.BindEnv("reranker.provider")
	v.BindEnv("reranker.endpoint")
	v.BindEnv("reranker.top_n")

	v.BindEnv("storage.path")
	v.BindEnv("storage.sqlite_file")
	v.BindEnv("storage.lexical_file")
	v.BindEnv("storage.graph_file")

	v.BindEnv("context.max_related")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)

	v.SetDefault("ingestion.code", d.Ingestion.Code)
	v.SetDefault("ingestion.docs", d.Ingestion.Docs)
	v.SetDefault("ingestion.exclude", d.Ingestion.Exclude)
	v.SetDefault("ingestion.max_tokens_per_chunk", d.Ingestion.MaxTokensPerChunk)

	v.SetDefault("search.top_k", d.Search.TopK)
	v.SetDefault("search.vector_weight", d.Search.VectorWeight)
	v.SetDefault("search.bm25_weight", d.Search.BM25Weight)

	v.SetDefault("reranker.enabled", d.Reranker.Enabled)
	v.SetDefault("reranker.provider", d.Reranker.Provider)
	v.SetDefault("reranker.endpoint", d.Reranker.Endpoint)
	v.SetDefault("reranker.top_n", d.Reranker.TopN)

	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.sqlite_file", d.Storage.SQLiteFile)
	v.SetDefault("storage.lexical_file", d.Storage.LexicalFile)
	v.SetDefault("storage.graph_file", d.Storage.GraphFile)

	v.SetDefault("context.max_related", d.Context.MaxRelated)
}

// LoadConfig is a convenience function that creates a loader and loads config
// rooted at the current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
