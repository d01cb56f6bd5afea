package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/corelog"
	"github.com/coderag/coderag/internal/embed"
	"github.com/coderag/coderag/internal/indexer"
	"github.com/coderag/coderag/internal/watch"
)

var (
	quietFlag bool
	watchFlag bool
	fullFlag  bool
)

// indexCmd represents the index command.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the codebase for hybrid search",
	Long: `Index processes the current project's source code and documentation and
generates a hybrid vector+lexical search index.

The indexer:
  - Discovers source and doc files matching the configured glob patterns
  - Chunks code by top-level declaration and docs by section
  - Embeds chunks via the configured embedding provider
  - Stores chunks, vectors, a lexical index, and a dependency graph under
    .coderag/

Running index again performs an incremental update: only files that
changed since the last run are reprocessed.

Examples:
  # Index (or incrementally update) the current directory
  coderag index

  # Index with progress bars disabled
  coderag index --quiet

  # Watch for changes and reindex incrementally as files are saved
  coderag index --watch
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and non-error output except a one-line summary")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "watch for file changes and reindex incrementally")
	indexCmd.Flags().BoolVar(&fullFlag, "full", false, "wipe and rebuild the index from scratch instead of incrementally updating it")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted! Cancelling indexing...")
		cancel()
	}()

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !quietFlag {
		fmt.Println("Initializing embedding provider...")
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

	logger := corelog.Default()
	if quietFlag {
		logger = corelog.Quiet()
	}

	sess, err := indexer.NewSession(rootDir, cfg, embedder, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize index session: %w", err)
	}
	defer sess.Close()

	progress := newIndexProgressReporter(quietFlag)
	progressCh := make(chan embed.BatchProgress, 8)
	sess.SetProgressChan(progressCh)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progressCh {
			progress.onEmbeddingProgress(p)
		}
	}()

	if !quietFlag {
		fmt.Println("Indexing...")
	}
	var stats *indexer.Stats
	if fullFlag {
		stats, err = sess.Build(ctx)
	} else {
		stats, err = sess.Update(ctx)
	}
	close(progressCh)
	<-done
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}
	progress.printSummary(stats)
	sess.SetProgressChan(nil)

	if watchFlag {
		return runWatch(ctx, rootDir, cfg, sess, quietFlag)
	}
	return nil
}

func runWatch(ctx context.Context, rootDir string, cfg *config.Config, sess *indexer.Session, quiet bool) error {
	w, err := watch.New(rootDir, cfg, sess, nil)
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer w.Stop()

	if !quiet {
		fmt.Println("Watching for file changes (Ctrl+C to stop)...")
	}
	w.Start(ctx)
	<-ctx.Done()
	return nil
}
