// Package mcpbind exposes the retrieval core as MCP tools: search for
// hybrid vector+lexical queries, expand_context for dependency-graph
// neighborhood expansion. Adapted from the original search/graph tool
// registration shape (composable AddXTool functions wrapping a handler
// factory that captures the backing searcher).
package mcpbind

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/expand"
	"github.com/coderag/coderag/internal/hybrid"
	"github.com/coderag/coderag/internal/rerank"
)

// Searcher is the subset of *indexer.Session the search tool depends on.
type Searcher interface {
	Search(ctx context.Context, query string, cfg hybrid.Config, reranker rerank.Provider) ([]hybrid.Result, error)
}

// Expander is the subset of *indexer.Session the expand_context tool
// depends on.
type Expander interface {
	Expand(ctx context.Context, primaryIDs []string, maxRelated int) (*expand.Expansion, error)
}

// searchResponse is the JSON payload returned by the search tool.
type searchResponse struct {
	Results []searchResult `json:"results"`
	Total   int            `json:"total"`
}

type searchResult struct {
	ChunkID   string  `json:"chunk_id"`
	Name      string  `json:"name,omitempty"`
	ChunkType string  `json:"chunk_type"`
	Content   string  `json:"content"`
	NLSummary string  `json:"nl_summary,omitempty"`
	Score     float64 `json:"score"`
	Method    string  `json:"method"`
}

// expandResponse is the JSON payload returned by the expand_context tool.
type expandResponse struct {
	PrimaryIDs []string       `json:"primary_ids"`
	Related    []relatedEntry `json:"related"`
}

type relatedEntry struct {
	ChunkID      string `json:"chunk_id"`
	FilePath     string `json:"file_path"`
	Distance     int    `json:"distance"`
	Relationship string `json:"relationship"`
}

// AddSearchTool registers the "search" tool with an MCP server.
func AddSearchTool(s *server.MCPServer, searcher Searcher) {
	tool := mcp.NewTool(
		"search",
		mcp.WithDescription("Search the indexed codebase and documentation using hybrid vector+lexical retrieval. Returns ranked code chunks and doc sections relevant to the query."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword search query")),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of results to return (default: 10)")),
		mcp.WithString("language",
			mcp.Description("Restrict results to a single source language (e.g. 'go', 'python')")),
		mcp.WithString("chunk_type",
			mcp.Description("Restrict results to a chunk type: 'function', 'method', 'class', 'interface', 'type_alias', 'module', 'doc', 'import_block', 'config_block', or 'other'")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, searchHandler(searcher))
}

func searchHandler(searcher Searcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		query, ok := argsMap["query"].(string)
		if !ok || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		cfg := hybrid.DefaultConfig()
		if topK, ok := argsMap["top_k"].(float64); ok && topK > 0 {
			cfg.TopK = int(topK)
		}
		if lang, ok := argsMap["language"].(string); ok {
			cfg.Filters.Language = lang
		}
		if ct, ok := argsMap["chunk_type"].(string); ok && ct != "" {
			cfg.Filters.ChunkType = chunk.Type(ct)
		}

		results, err := searcher.Search(ctx, query, cfg, nil)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		resp := searchResponse{Total: len(results)}
		for _, r := range results {
			resp.Results = append(resp.Results, searchResult{
				ChunkID:   r.ChunkID,
				Name:      r.Metadata.Name,
				ChunkType: string(r.Metadata.ChunkType),
				Content:   r.Content,
				NLSummary: r.NLSummary,
				Score:     r.Score,
				Method:    string(r.Method),
			})
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// AddExpandContextTool registers the "expand_context" tool with an MCP
// server.
func AddExpandContextTool(s *server.MCPServer, expander Expander) {
	tool := mcp.NewTool(
		"expand_context",
		mcp.WithDescription("Expand a set of search result chunk ids across the dependency graph, surfacing imports, importers, and tests for deeper context."),
		mcp.WithArray("chunk_ids",
			mcp.Required(),
			mcp.Description("Chunk ids returned by a prior search call")),
		mcp.WithNumber("max_related",
			mcp.Description("Maximum number of related chunks to surface (default: 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, expandContextHandler(expander))
}

func expandContextHandler(expander Expander) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		rawIDs, ok := argsMap["chunk_ids"].([]interface{})
		if !ok || len(rawIDs) == 0 {
			return mcp.NewToolResultError("chunk_ids parameter is required"), nil
		}
		ids := make([]string, 0, len(rawIDs))
		for _, raw := range rawIDs {
			if s, ok := raw.(string); ok {
				ids = append(ids, s)
			}
		}

		maxRelated := 0
		if n, ok := argsMap["max_related"].(float64); ok {
			maxRelated = int(n)
		}

		exp, err := expander.Expand(ctx, ids, maxRelated)
		if err != nil {
			return nil, fmt.Errorf("expand_context failed: %w", err)
		}

		resp := expandResponse{PrimaryIDs: exp.PrimaryIDs}
		for _, r := range exp.Related {
			resp.Related = append(resp.Related, relatedEntry{
				ChunkID:      r.Chunk.ID,
				FilePath:     r.Chunk.FilePath,
				Distance:     r.Distance,
				Relationship: string(r.Relationship),
			})
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
