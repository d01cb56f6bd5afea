package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/internal/chunk"
)

// Test Plan for Index:
// - exact-field match ranks above a weaker field-only match
// - nl_summary matches outrank equivalent content-only matches (field weights)
// - remove makes a chunk unsearchable
// - count reflects additions and removals
// - serialize/deserialize round-trips searchable content

func sampleChunk(id, content, nlSummary, name, filePath string) chunk.Chunk {
	return chunk.Chunk{
		ID:        id,
		Content:   content,
		NLSummary: nlSummary,
		FilePath:  filePath,
		Metadata:  chunk.Metadata{Name: name},
	}
}

func TestIndex_SearchAndFieldWeighting(t *testing.T) {
	t.Parallel()
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []chunk.Chunk{
		sampleChunk("c1", "this mentions retrieval only in passing", "", "Other", "a.go"),
		sampleChunk("c2", "unrelated content", "a summary about retrieval systems", "Retrieval", "b.go"),
	}))

	results, err := idx.Search(ctx, "retrieval", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c2", results[0].ID)
}

func TestIndex_Remove(t *testing.T) {
	t.Parallel()
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []chunk.Chunk{
		sampleChunk("c1", "hello world", "", "Hello", "a.go"),
	}))
	require.NoError(t, idx.Remove(ctx, []string{"c1"}))

	results, err := idx.Search(ctx, "hello", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestIndex_SerializeDeserialize(t *testing.T) {
	t.Parallel()
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []chunk.Chunk{
		sampleChunk("c1", "searchable content about parsers", "", "Parser", "a.go"),
	}))

	data, err := idx.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)
	defer restored.Close()

	results, err := restored.Search(ctx, "parsers", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
}
