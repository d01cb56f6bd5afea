package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Default:
// - returns a non-nil configuration
// - embedding, search, reranker, storage, and context sections carry the
//   documented defaults
// - the default configuration passes Validate

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.NotEmpty(t, cfg.Embedding.Endpoint)

	assert.Equal(t, 512, cfg.Ingestion.MaxTokensPerChunk)
	assert.NotEmpty(t, cfg.Ingestion.Code)
	assert.NotEmpty(t, cfg.Ingestion.Docs)

	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, 0.7, cfg.Search.VectorWeight)
	assert.Equal(t, 0.3, cfg.Search.BM25Weight)

	assert.False(t, cfg.Reranker.Enabled)
	assert.Equal(t, 20, cfg.Reranker.TopN)

	assert.Equal(t, ".coderag", cfg.Storage.Path)
	assert.Equal(t, "index.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "lexical.json", cfg.Storage.LexicalFile)
	assert.Equal(t, "graph.json", cfg.Storage.GraphFile)

	assert.Equal(t, 10, cfg.Context.MaxRelated)

	assert.NoError(t, Validate(cfg))
}
