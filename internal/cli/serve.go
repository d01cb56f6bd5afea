package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/embed"
	"github.com/coderag/coderag/internal/indexer"
	"github.com/coderag/coderag/internal/mcpbind"
	"github.com/coderag/coderag/internal/watch"
)

var serveWatchFlag bool

// serveCmd starts the MCP server over stdio, exposing the search and
// expand_context tools against the current directory's index.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index as an MCP server over stdio",
	Long: `Serve starts an MCP server on stdio, exposing the indexed project
through two tools: search (hybrid vector+lexical retrieval) and
expand_context (dependency-graph neighborhood expansion of prior results).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVarP(&serveWatchFlag, "watch", "w", true, "watch for file changes and reindex incrementally while serving")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	logger := log.New(os.Stderr, "", log.LstdFlags)

	sess, err := indexer.NewSession(rootDir, cfg, embedder, logger)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer sess.Close()

	mcpServer := server.NewMCPServer("coderag", "1.0.0", server.WithToolCapabilities(true))
	mcpbind.AddSearchTool(mcpServer, sess)
	mcpbind.AddExpandContextTool(mcpServer, sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var w *watch.Watcher
	if serveWatchFlag {
		w, err = watch.New(rootDir, cfg, sess, logger)
		if err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		w.Start(ctx)
		defer w.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("serve: starting MCP server on stdio")
		if err := server.ServeStdio(mcpServer); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		logger.Printf("serve: received shutdown signal, stopping")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	}
}
