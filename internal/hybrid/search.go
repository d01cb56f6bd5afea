// Package hybrid implements the hybrid searcher: it embeds a query,
// dispatches concurrent vector and lexical lookups, fuses their scores,
// and optionally reranks the top of the fused list.
//
// The concurrent-dispatch-with-graceful-degradation shape is grounded on
// Aman-CERP-amanmcp/pkg/searcher/fusion.go (errgroup.WithContext, each
// goroutine captures its own error rather than failing the group, single-
// source fallback when one side errors). The fusion math itself follows
// the normalize-by-max, weighted-sum contract of the hybrid searcher
// component rather than that file's Reciprocal Rank Fusion.
package hybrid

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/coderr"
	"github.com/coderag/coderag/internal/embed"
	"github.com/coderag/coderag/internal/lexical"
	"github.com/coderag/coderag/internal/rerank"
	"github.com/coderag/coderag/internal/vectorstore"
)

// Method identifies which source(s) a result was found through.
type Method string

const (
	MethodVector  Method = "vector"
	MethodLexical Method = "lexical"
	MethodBoth    Method = "both"
)

// Filters narrow the fused result set after fusion, before top_k
// truncation. They never cause additional fetches.
type Filters struct {
	Language      string
	ChunkType     chunk.Type
	FileSubstring string
}

// Config controls a single hybrid search call.
type Config struct {
	TopK         int
	VectorWeight float64
	BM25Weight   float64
	Filters      Filters
}

// DefaultConfig returns the configuration defaults from the hybrid
// searcher contract.
func DefaultConfig() Config {
	return Config{TopK: 10, VectorWeight: 0.7, BM25Weight: 0.3}
}

// Result is a single fused hybrid search hit.
type Result struct {
	ChunkID   string
	Content   string
	NLSummary string
	Score     float64
	Method    Method
	Metadata  chunk.Metadata
}

// ChunkLookup resolves a chunk id to its full chunk, for filtering and
// response assembly after fusion.
type ChunkLookup func(ctx context.Context, id string) (chunk.Chunk, bool, error)

// Searcher ties the embedding provider, vector store, and lexical index
// into the hybrid search algorithm, with optional reranking.
type Searcher struct {
	Embedder embed.Provider
	Vectors  *vectorstore.Store
	Lexical  *lexical.Index
	Lookup   ChunkLookup
	Reranker rerank.Provider
	RerankN  int
	Logger   *log.Logger
}

type scoredID struct {
	id        string
	vScore    float64
	lScore    float64
	fused     float64
	inVector  bool
	inLexical bool
}

// Search implements the §4.5 hybrid search algorithm.
func (s *Searcher) Search(ctx context.Context, query string, cfg Config) ([]Result, error) {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.VectorWeight == 0 && cfg.BM25Weight == 0 {
		def := DefaultConfig()
		cfg.VectorWeight, cfg.BM25Weight = def.VectorWeight, def.BM25Weight
	}

	vecs, err := s.Embedder.Embed(ctx, []string{query}, embed.EmbedModeQuery)
	if err != nil {
		return nil, coderr.NewEmbedError("embedding query", err)
	}
	if len(vecs) != 1 {
		return nil, coderr.NewEmbedError("embedding provider returned no vector for query", nil)
	}
	queryVec := vecs[0]

	topKOver := cfg.TopK * 2
	if topKOver < cfg.TopK {
		topKOver = cfg.TopK
	}

	var vectorResults []vectorstore.Result
	var lexicalResults []lexical.Result
	var vectorErr, lexicalErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorResults, vectorErr = s.Vectors.Query(gctx, queryVec, topKOver)
		return nil
	})
	g.Go(func() error {
		lexicalResults, lexicalErr = s.Lexical.Search(gctx, query, topKOver)
		return nil
	})
	_ = g.Wait()

	if vectorErr != nil && lexicalErr != nil {
		return nil, coderr.NewStoreError(coderr.ComponentSearch, fmt.Sprintf("both search sides failed: vector: %v, lexical: %v", vectorErr, lexicalErr), nil)
	}
	if vectorErr != nil && s.Logger != nil {
		s.Logger.Printf("hybrid: vector search failed, degrading to lexical-only: %v", vectorErr)
	}
	if lexicalErr != nil && s.Logger != nil {
		s.Logger.Printf("hybrid: lexical search failed, degrading to vector-only: %v", lexicalErr)
	}

	fused := fuse(vectorResults, lexicalResults, cfg.VectorWeight, cfg.BM25Weight)

	results, err := s.resolve(ctx, fused, cfg.Filters)
	if err != nil {
		return nil, err
	}

	if len(results) > cfg.TopK {
		results = results[:cfg.TopK]
	}

	if s.Reranker != nil && len(results) > 0 {
		results = s.rerankTop(ctx, query, results)
	}

	return results, nil
}

func fuse(vectorResults []vectorstore.Result, lexicalResults []lexical.Result, vectorWeight, bm25Weight float64) []scoredID {
	byID := make(map[string]*scoredID)

	maxV := 0.0
	for _, r := range vectorResults {
		if r.Score > maxV {
			maxV = r.Score
		}
	}
	maxL := 0.0
	for _, r := range lexicalResults {
		if r.Score > maxL {
			maxL = r.Score
		}
	}

	get := func(id string) *scoredID {
		s, ok := byID[id]
		if !ok {
			s = &scoredID{id: id}
			byID[id] = s
		}
		return s
	}

	for _, r := range vectorResults {
		s := get(r.ID)
		s.inVector = true
		if maxV > 0 {
			s.vScore = r.Score / maxV
		}
	}
	for _, r := range lexicalResults {
		s := get(r.ID)
		s.inLexical = true
		if maxL > 0 {
			s.lScore = r.Score / maxL
		}
	}

	out := make([]scoredID, 0, len(byID))
	for _, s := range byID {
		s.fused = vectorWeight*s.vScore + bm25Weight*s.lScore
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].fused != out[j].fused {
			return out[i].fused > out[j].fused
		}
		bothI, bothJ := out[i].inVector && out[i].inLexical, out[j].inVector && out[j].inLexical
		if bothI != bothJ {
			return bothI
		}
		if out[i].vScore != out[j].vScore {
			return out[i].vScore > out[j].vScore
		}
		if out[i].lScore != out[j].lScore {
			return out[i].lScore > out[j].lScore
		}
		return out[i].id < out[j].id
	})

	return out
}

func (s *Searcher) resolve(ctx context.Context, fused []scoredID, filters Filters) ([]Result, error) {
	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		c, ok, err := s.Lookup(ctx, f.id)
		if err != nil {
			return nil, coderr.NewStoreError(coderr.ComponentSearch, "resolving chunk "+f.id, err)
		}
		if !ok {
			continue
		}
		if !passesFilters(c, filters) {
			continue
		}

		method := MethodVector
		switch {
		case f.inVector && f.inLexical:
			method = MethodBoth
		case f.inLexical:
			method = MethodLexical
		}

		results = append(results, Result{
			ChunkID:   c.ID,
			Content:   c.Content,
			NLSummary: c.NLSummary,
			Score:     f.fused,
			Method:    method,
			Metadata:  c.Metadata,
		})
	}
	return results, nil
}

func passesFilters(c chunk.Chunk, filters Filters) bool {
	if filters.Language != "" && c.Language != filters.Language {
		return false
	}
	if filters.ChunkType != "" && c.Metadata.ChunkType != filters.ChunkType {
		return false
	}
	if filters.FileSubstring != "" && !strings.Contains(c.FilePath, filters.FileSubstring) {
		return false
	}
	return true
}

// rerankTop scores the top rerank.ClampTopN results with the configured
// reranker. Reranker failure is non-fatal: it is logged and the
// unreranked fused order is returned unchanged.
func (s *Searcher) rerankTop(ctx context.Context, query string, results []Result) []Result {
	n := rerank.ClampTopN(s.RerankN)
	if n > len(results) {
		n = len(results)
	}

	head := results[:n]
	tail := results[n:]

	candidates := make([]string, len(head))
	for i, r := range head {
		candidates[i] = r.Content
	}

	scores, err := s.Reranker.Score(ctx, query, candidates)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("hybrid: rerank failed, keeping fused order: %v", err)
		}
		return results
	}

	reranked := make([]Result, len(head))
	copy(reranked, head)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}
	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })

	return append(reranked, tail...)
}
