package hybrid

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/embed"
	"github.com/coderag/coderag/internal/lexical"
	"github.com/coderag/coderag/internal/vectorstore"
)

// Test Plan for Searcher.Search:
// - a chunk found by both vector and lexical search is tagged "both" and
//   ranks above a chunk found by only one side
// - filters are applied after fusion and before top_k truncation
// - rerank failure falls back to the unreranked fused order

func setupSearcher(t *testing.T) (*Searcher, map[string]chunk.Chunk) {
	t.Helper()

	mock := embed.NewMockProvider()
	chunks := map[string]chunk.Chunk{
		"c1": {ID: "c1", Content: "hybrid retrieval over chunks", FilePath: "a.go", Language: "go", Metadata: chunk.Metadata{ChunkType: chunk.TypeFunction, Name: "Search"}},
		"c2": {ID: "c2", Content: "completely unrelated content about gardening", FilePath: "b.go", Language: "go", Metadata: chunk.Metadata{ChunkType: chunk.TypeFunction, Name: "Garden"}},
	}

	store, err := vectorstore.Open(filepath.Join(t.TempDir(), "v.db"), mock.Dimensions())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, c := range chunks {
		vecs, err := mock.Embed(ctx, []string{c.Content}, embed.EmbedModePassage)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, []vectorstore.Record{{ID: c.ID, Embedding: vecs[0]}}))
	}

	lex, err := lexical.New()
	require.NoError(t, err)
	t.Cleanup(func() { lex.Close() })
	require.NoError(t, lex.Add(ctx, []chunk.Chunk{chunks["c1"], chunks["c2"]}))

	lookup := func(ctx context.Context, id string) (chunk.Chunk, bool, error) {
		c, ok := chunks[id]
		return c, ok, nil
	}

	return &Searcher{
		Embedder: mock,
		Vectors:  store,
		Lexical:  lex,
		Lookup:   lookup,
	}, chunks
}

func TestSearcher_BothSidesRanksAboveSingleSide(t *testing.T) {
	t.Parallel()
	s, chunks := setupSearcher(t)

	results, err := s.Search(context.Background(), chunks["c1"].Content, DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, MethodBoth, results[0].Method)
}

func TestSearcher_FiltersAppliedAfterFusion(t *testing.T) {
	t.Parallel()
	s, chunks := setupSearcher(t)

	cfg := DefaultConfig()
	cfg.Filters = Filters{FileSubstring: "b.go"}

	results, err := s.Search(context.Background(), chunks["c1"].Content, cfg)
	require.NoError(t, err)
	for _, r := range results {
		assert.Contains(t, r.ChunkID, "c2")
	}
}

type failingReranker struct{}

func (failingReranker) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	return nil, assert.AnError
}

func TestSearcher_RerankFailureFallsBackToFusedOrder(t *testing.T) {
	t.Parallel()
	s, chunks := setupSearcher(t)
	s.Reranker = failingReranker{}

	results, err := s.Search(context.Background(), chunks["c1"].Content, DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ChunkID)
}
