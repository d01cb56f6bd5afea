package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Loader:
// - Load from a directory with no config file returns defaults
// - Load from .coderag/config.yml merges file values over defaults
// - an environment variable overrides both the file and the defaults
// - a malformed YAML file is a load error
// - an invalid merged configuration is a load error

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Embedding.Provider, cfg.Embedding.Provider)
	assert.Equal(t, expected.Embedding.Dimensions, cfg.Embedding.Dimensions)
	assert.Equal(t, expected.Search.TopK, cfg.Search.TopK)
}

func TestLoad_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".coderag")
	require.NoError(t, os.MkdirAll(dir, 0755))

	configContent := `
embedding:
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
  endpoint: https://api.openai.com

search:
  top_k: 25
  vector_weight: 0.5
  bm25_weight: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(configContent), 0644))

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, 25, cfg.Search.TopK)
	assert.Equal(t, 0.5, cfg.Search.VectorWeight)
}

func TestLoad_EnvironmentOverridesFileAndDefaults(t *testing.T) {
	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".coderag")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("embedding:\n  provider: local\n"), 0644))

	t.Setenv("CODERAG_EMBEDDING_PROVIDER", "openai")
	t.Setenv("CODERAG_EMBEDDING_DIMENSIONS", "1536")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
}

func TestLoad_MalformedYAMLIsAnError(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".coderag")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("embedding: [this is not valid"), 0644))

	_, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
}

func TestLoad_InvalidMergedConfigurationIsAnError(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".coderag")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("embedding:\n  provider: bogus\n"), 0644))

	_, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
}
