package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidDimensions indicates invalid embedding dimensions.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidChunkSize indicates an invalid chunk size.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidWeight indicates a search weight outside 0..1.
	ErrInvalidWeight = errors.New("invalid search weight")

	// ErrInvalidTopN indicates a reranker top_n outside 1..50.
	ErrInvalidTopN = errors.New("invalid reranker top_n")

	// ErrInvalidRerankerProvider indicates an unsupported reranker provider.
	ErrInvalidRerankerProvider = errors.New("invalid reranker provider")

	// ErrEmptyEndpoint indicates a missing required endpoint.
	ErrEmptyEndpoint = errors.New("empty endpoint")

	// ErrPathEscape indicates a storage path that escapes the project root.
	ErrPathEscape = errors.New("storage path escapes project root")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if err := validateIngestion(&cfg.Ingestion); err != nil {
		errs = append(errs, err)
	}
	if err := validateSearch(&cfg.Search); err != nil {
		errs = append(errs, err)
	}
	if err := validateReranker(&cfg.Reranker); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}
	if err := validateContext(&cfg.Context); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error

	provider := strings.ToLower(cfg.Provider)
	if provider != "local" && provider != "openai" {
		errs = append(errs, fmt.Errorf("%w: must be 'local' or 'openai', got '%s'", ErrInvalidProvider, cfg.Provider))
	}

	if cfg.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("%w: dimensions must be positive, got %d", ErrInvalidDimensions, cfg.Dimensions))
	}

	if strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("%w: embedding endpoint is required", ErrEmptyEndpoint))
	}

	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidChunkSize, cfg.BatchSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateIngestion(cfg *IngestionConfig) error {
	if cfg.MaxTokensPerChunk <= 0 {
		return fmt.Errorf("%w: max_tokens_per_chunk must be positive, got %d", ErrInvalidChunkSize, cfg.MaxTokensPerChunk)
	}
	return nil
}

func validateSearch(cfg *SearchConfig) error {
	var errs []error

	if cfg.TopK <= 0 {
		errs = append(errs, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidChunkSize, cfg.TopK))
	}
	if cfg.VectorWeight < 0 || cfg.VectorWeight > 1 {
		errs = append(errs, fmt.Errorf("%w: vector_weight must be in 0..1, got %f", ErrInvalidWeight, cfg.VectorWeight))
	}
	if cfg.BM25Weight < 0 || cfg.BM25Weight > 1 {
		errs = append(errs, fmt.Errorf("%w: bm25_weight must be in 0..1, got %f", ErrInvalidWeight, cfg.BM25Weight))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateReranker(cfg *RerankerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	var errs []error

	provider := strings.ToLower(cfg.Provider)
	if provider != "none" && provider != "http" {
		errs = append(errs, fmt.Errorf("%w: must be 'none' or 'http', got '%s'", ErrInvalidRerankerProvider, cfg.Provider))
	}
	if provider == "http" && strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("%w: reranker endpoint is required for the http provider", ErrEmptyEndpoint))
	}
	if cfg.TopN < 1 || cfg.TopN > 50 {
		errs = append(errs, fmt.Errorf("%w: top_n must be in 1..50, got %d", ErrInvalidTopN, cfg.TopN))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	if strings.TrimSpace(cfg.Path) == "" {
		return fmt.Errorf("%w: storage.path is required", ErrEmptyEndpoint)
	}
	if filepath.IsAbs(cfg.Path) {
		return nil
	}
	cleaned := filepath.Clean(cfg.Path)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %q", ErrPathEscape, cfg.Path)
	}
	return nil
}

func validateContext(cfg *ContextConfig) error {
	if cfg.MaxRelated <= 0 {
		return fmt.Errorf("%w: context.max_related must be positive, got %d", ErrInvalidChunkSize, cfg.MaxRelated)
	}
	return nil
}

// joinErrors combines multiple errors into a single error that still
// unwraps to each of the originals (errors.Is/errors.As keep working).
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
