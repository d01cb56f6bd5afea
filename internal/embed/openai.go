package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coderag/coderag/internal/coderr"
)

// openAIProvider talks to an OpenAI-compatible /v1/embeddings endpoint,
// the second external-provider shape the core supports per §4.2.
type openAIProvider struct {
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

func newOpenAIProvider(cfg Config) (*openAIProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = 1536
	}
	return &openAIProvider{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dims,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type openAIEmbedResponse struct {
	Data []openAIEmbedDatum `json:"data"`
}

// Embed implements the OpenAI-compatible embeddings request shape. The
// mode parameter is not sent: OpenAI-style embedding models do not
// distinguish query/passage inputs.
func (p *openAIProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, coderr.NewEmbedError("encoding openai embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, coderr.NewEmbedError("building openai embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, coderr.NewEmbedError("calling openai embed endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, coderr.NewEmbedError(fmt.Sprintf("openai embed endpoint returned status %d", resp.StatusCode), nil)
	}

	var parsed openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, coderr.NewEmbedError("decoding openai embed response", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, coderr.NewEmbedError(fmt.Sprintf("openai embed endpoint returned %d embeddings for %d inputs", len(parsed.Data), len(texts)), nil)
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, coderr.NewEmbedError(fmt.Sprintf("openai embed response index %d out of range", d.Index), nil)
		}
		out[d.Index] = d.Embedding
	}

	return out, nil
}

func (p *openAIProvider) Dimensions() int { return p.dimensions }

func (p *openAIProvider) Close() error { return nil }
