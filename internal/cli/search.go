package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/embed"
	"github.com/coderag/coderag/internal/hybrid"
	"github.com/coderag/coderag/internal/indexer"
	"github.com/coderag/coderag/internal/rerank"
)

var (
	searchTopK      int
	searchLanguage  string
	searchChunkType string
)

// searchCmd runs a single hybrid search against an already-built index.
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index built by 'coderag index'",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 10, "maximum number of results to return")
	searchCmd.Flags().StringVar(&searchLanguage, "language", "", "restrict results to a single source language")
	searchCmd.Flags().StringVar(&searchChunkType, "chunk-type", "", "restrict results to a chunk type (e.g. function, doc)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	embedder, err := embed.NewProvider(embed.Config{
		Provider:   cfg.Embedding.Provider,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	defer embedder.Close()

	sess, err := indexer.NewSession(rootDir, cfg, embedder, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer sess.Close()

	searchCfg := hybrid.Config{
		TopK:         searchTopK,
		VectorWeight: cfg.Search.VectorWeight,
		BM25Weight:   cfg.Search.BM25Weight,
		Filters: hybrid.Filters{
			Language:  searchLanguage,
			ChunkType: chunk.Type(searchChunkType),
		},
	}

	var reranker rerank.Provider
	if cfg.Reranker.Enabled && cfg.Reranker.Provider == "http" {
		reranker = rerank.NewHTTPProvider(cfg.Reranker.Endpoint)
	}

	results, err := sess.Search(ctx, query, searchCfg, reranker)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%s] %s (score=%.3f, method=%s)\n", i+1, r.Metadata.ChunkType, r.Metadata.Name, r.Score, r.Method)
		fmt.Printf("   %s\n\n", truncate(r.Content, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
