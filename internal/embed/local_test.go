package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for localProvider:
// - Embed posts to /api/embed and returns embeddings in request order
// - a non-200 response is reported as an embed error
// - a response with the wrong embedding count is reported as an embed error
// - empty input returns no embeddings without a request

func TestLocalProvider_Embed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p, err := newLocalProvider(Config{Endpoint: server.URL, Model: "test-model", Dimensions: 2})
	require.NoError(t, err)

	out, err := p.Embed(context.Background(), []string{"a", "b"}, EmbedModePassage)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, p.Dimensions())
}

func TestLocalProvider_NonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p, err := newLocalProvider(Config{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"}, EmbedModeQuery)
	assert.Error(t, err)
}

func TestLocalProvider_MismatchedCount(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1}}}))
	}))
	defer server.Close()

	p, err := newLocalProvider(Config{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a", "b"}, EmbedModeQuery)
	assert.Error(t, err)
}

func TestLocalProvider_EmptyInput(t *testing.T) {
	t.Parallel()

	p, err := newLocalProvider(Config{Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)

	out, err := p.Embed(context.Background(), nil, EmbedModeQuery)
	require.NoError(t, err)
	assert.Nil(t, out)
}
