// Package rerank implements the optional cross-encoder reranking step:
// an HTTP provider that scores (query, candidate) pairs, used to reorder
// the top of a fused hybrid search result.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coderag/coderag/internal/coderr"
)

// DefaultTopN is the number of top fused results passed to the reranker
// when a caller does not specify one.
const DefaultTopN = 20

// MaxTopN bounds how many fused results may ever be sent to the reranker
// in a single call.
const MaxTopN = 50

// Provider scores a query against a batch of candidate contents and
// returns one score per candidate, in the same order.
type Provider interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// HTTPProvider calls a cross-encoder-style HTTP reranking endpoint.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPProvider returns a reranker that posts to endpoint + "/rerank".
func NewHTTPProvider(endpoint string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Score implements Provider.
func (p *HTTPProvider) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Candidates: candidates})
	if err != nil {
		return nil, coderr.NewRerankError("encoding rerank request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, coderr.NewRerankError("building rerank request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, coderr.NewRerankError("calling rerank endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, coderr.NewRerankError(fmt.Sprintf("rerank endpoint returned status %d", resp.StatusCode), nil)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, coderr.NewRerankError("decoding rerank response", err)
	}
	if len(parsed.Scores) != len(candidates) {
		return nil, coderr.NewRerankError(fmt.Sprintf("rerank endpoint returned %d scores for %d candidates", len(parsed.Scores), len(candidates)), nil)
	}

	return parsed.Scores, nil
}

// ClampTopN applies the default/cap rules from the reranker contract.
func ClampTopN(n int) int {
	if n <= 0 {
		return DefaultTopN
	}
	if n > MaxTopN {
		return MaxTopN
	}
	return n
}
