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

// localProvider talks to an Ollama-style local embedding endpoint over
// HTTP. Unlike the teacher's daemon-managed ONNX runtime, it never spawns
// or supervises a subprocess: the endpoint is assumed to already be
// running, matching the external-provider contract of §4.2.
type localProvider struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

func newLocalProvider(cfg Config) (*localProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://127.0.0.1:11434"
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = 768
	}
	return &localProvider{
		endpoint:   endpoint,
		model:      cfg.Model,
		dimensions: dims,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends texts to the local endpoint's /api/embed route in a single
// request. The mode is not sent: Ollama-style local models are typically
// symmetric and do not distinguish query from passage embeddings.
func (p *localProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, coderr.NewEmbedError("encoding local embed request", err)
	}

	url := p.endpoint + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, coderr.NewEmbedError("building local embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, coderr.NewEmbedError("calling local embed endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, coderr.NewEmbedError(fmt.Sprintf("local embed endpoint returned status %d", resp.StatusCode), nil)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, coderr.NewEmbedError("decoding local embed response", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, coderr.NewEmbedError(fmt.Sprintf("local embed endpoint returned %d embeddings for %d inputs", len(parsed.Embeddings), len(texts)), nil)
	}

	return parsed.Embeddings, nil
}

func (p *localProvider) Dimensions() int { return p.dimensions }

func (p *localProvider) Close() error { return nil }
