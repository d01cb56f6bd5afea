package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/chunker"
	"github.com/coderag/coderag/internal/coderr"
	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/embed"
	"github.com/coderag/coderag/internal/expand"
	"github.com/coderag/coderag/internal/graph"
	"github.com/coderag/coderag/internal/hybrid"
	"github.com/coderag/coderag/internal/lexical"
	"github.com/coderag/coderag/internal/rerank"
	"github.com/coderag/coderag/internal/vectorstore"
)

// Stats tracks what a Build or Update call did, mirroring the teacher's
// processor.Stats shape.
type Stats struct {
	// BuildID correlates this run's log lines; a fresh uuid per Build/Update call.
	BuildID        string
	FilesAdded     int
	FilesModified  int
	FilesDeleted   int
	FilesUnchanged int
	ChunksIndexed  int
	ChunksRemoved  int
	Duration       time.Duration
}

// Session owns every on-disk artifact of a single project's index and
// drives the full-build and incremental-update pipelines: discover,
// detect changes against the manifest, chunk, embed, and fan out the
// result to the vector store, chunk store, lexical index, and
// dependency graph.
type Session struct {
	rootDir string
	cfg     *config.Config
	logger  *log.Logger

	discovery   *Discovery
	codeChunker *chunker.Code
	docChunker  *chunker.Markdown
	embedder    embed.Provider

	vectors *vectorstore.Store
	chunks  *ChunkStore
	lexical *lexical.Index
	graph   *graph.Graph

	manifestPath string
	lexicalPath  string
	graphPath    string

	progressCh chan<- embed.BatchProgress
}

// SetProgressChan attaches a channel that receives embedding batch progress
// during Build and Update. Pass nil (the default) to disable progress
// reporting.
func (s *Session) SetProgressChan(ch chan<- embed.BatchProgress) {
	s.progressCh = ch
}

// NewSession wires a Session's storage layer into cfg.Storage.Path,
// loading any persisted lexical index and dependency graph, and creating
// the sqlite-vec and chunk tables if they do not already exist.
func NewSession(rootDir string, cfg *config.Config, embedder embed.Provider, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}

	storageDir := filepath.Join(rootDir, cfg.Storage.Path)
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "creating storage directory", err)
	}

	sqlitePath := filepath.Join(storageDir, cfg.Storage.SQLiteFile)

	vectors, err := vectorstore.Open(sqlitePath, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}

	chunkStore, err := OpenChunkStore(sqlitePath)
	if err != nil {
		vectors.Close()
		return nil, err
	}

	lexicalPath := filepath.Join(storageDir, cfg.Storage.LexicalFile)
	lexIndex, err := loadOrCreateLexical(lexicalPath)
	if err != nil {
		vectors.Close()
		chunkStore.Close()
		return nil, err
	}

	graphPath := filepath.Join(storageDir, cfg.Storage.GraphFile)
	depGraph, err := loadOrCreateGraph(graphPath)
	if err != nil {
		vectors.Close()
		chunkStore.Close()
		lexIndex.Close()
		return nil, err
	}

	discovery, err := NewDiscovery(rootDir, cfg.Ingestion.Code, cfg.Ingestion.Docs, cfg.Ingestion.Exclude)
	if err != nil {
		vectors.Close()
		chunkStore.Close()
		lexIndex.Close()
		return nil, err
	}

	return &Session{
		rootDir:      rootDir,
		cfg:          cfg,
		logger:       logger,
		discovery:    discovery,
		codeChunker:  chunker.NewCode(cfg.Ingestion.MaxTokensPerChunk),
		docChunker:   chunker.NewMarkdown(cfg.Ingestion.MaxTokensPerChunk),
		embedder:     embedder,
		vectors:      vectors,
		chunks:       chunkStore,
		lexical:      lexIndex,
		graph:        depGraph,
		manifestPath: filepath.Join(storageDir, "manifest.json"),
		lexicalPath:  lexicalPath,
		graphPath:    graphPath,
	}, nil
}

func loadOrCreateLexical(path string) (*lexical.Index, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lexical.New()
	}
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentLexical, "reading lexical index snapshot", err)
	}
	return lexical.Deserialize(data)
}

func loadOrCreateGraph(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return graph.New(), nil
	}
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentGraph, "reading graph snapshot", err)
	}
	return graph.Deserialize(data)
}

// Build runs a full reindex: every existing chunk, vector, lexical
// document, and graph node is discarded first, so no chunk from a file
// removed since the last run can survive a full rebuild.
func (s *Session) Build(ctx context.Context) (*Stats, error) {
	if err := s.wipe(ctx); err != nil {
		return nil, err
	}
	return s.run(ctx, NewManifest())
}

// wipe discards every chunk currently stored, ahead of a full rebuild.
func (s *Session) wipe(ctx context.Context) error {
	all, err := s.chunks.All(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	if err := s.vectors.Delete(ctx, ids); err != nil {
		return err
	}
	if err := s.lexical.Remove(ctx, ids); err != nil {
		return err
	}
	if err := s.chunks.Delete(ctx, ids); err != nil {
		return err
	}
	s.graph = graph.New()
	return nil
}

// Update runs an incremental reindex: only files added, modified, or
// deleted since the last Build/Update are reprocessed.
func (s *Session) Update(ctx context.Context) (*Stats, error) {
	manifest, err := LoadManifest(s.manifestPath)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "loading manifest", err)
	}
	return s.run(ctx, manifest)
}

func (s *Session) run(ctx context.Context, manifest *Manifest) (*Stats, error) {
	start := time.Now()
	stats := &Stats{BuildID: uuid.NewString()}

	codeFiles, docFiles, err := s.discovery.DiscoverFiles()
	if err != nil {
		return nil, coderr.NewParseError("discovering files", err)
	}
	s.logger.Printf("indexer[%s]: discovered %d code files, %d doc files\n", stats.BuildID, len(codeFiles), len(docFiles))

	isDoc := make(map[string]bool, len(docFiles))
	for _, f := range docFiles {
		isDoc[f] = true
	}

	allFiles := append(append([]string{}, codeFiles...), docFiles...)

	changes, err := DetectChanges(s.rootDir, manifest, allFiles)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "detecting file changes", err)
	}
	stats.FilesAdded = len(changes.Added)
	stats.FilesModified = len(changes.Modified)
	stats.FilesDeleted = len(changes.Deleted)
	stats.FilesUnchanged = len(changes.Unchanged)
	s.logger.Printf("indexer[%s]: %d added, %d modified, %d deleted, %d unchanged\n",
		stats.BuildID, stats.FilesAdded, stats.FilesModified, stats.FilesDeleted, stats.FilesUnchanged)

	toClear := append(append([]string{}, changes.Modified...), changes.Deleted...)
	removed, err := s.clearFiles(ctx, toClear)
	if err != nil {
		return nil, err
	}
	stats.ChunksRemoved = removed

	toProcess := append(append([]string{}, changes.Added...), changes.Modified...)
	indexed, err := s.processFiles(ctx, toProcess, isDoc)
	if err != nil {
		return nil, err
	}
	stats.ChunksIndexed = indexed

	if len(toClear) > 0 || len(toProcess) > 0 {
		if err := s.rebuildGraph(ctx); err != nil {
			return nil, err
		}
		if err := s.persist(); err != nil {
			return nil, err
		}
	}

	if err := UpdateManifest(s.rootDir, manifest, changes); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "updating manifest", err)
	}
	if err := manifest.Save(s.manifestPath); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "saving manifest", err)
	}

	stats.Duration = time.Since(start)
	s.logger.Printf("indexer: reindex complete in %v (%d chunks indexed, %d removed)\n",
		stats.Duration, stats.ChunksIndexed, stats.ChunksRemoved)
	return stats, nil
}

// clearFiles removes every chunk belonging to the given relative file
// paths from the chunk store, vector store, and lexical index, ahead of
// reprocessing or dropping them entirely.
func (s *Session) clearFiles(ctx context.Context, relPaths []string) (int, error) {
	var ids []string
	for _, rel := range relPaths {
		fileIDs, err := s.chunks.IDsForFile(ctx, rel)
		if err != nil {
			return 0, err
		}
		ids = append(ids, fileIDs...)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.vectors.Delete(ctx, ids); err != nil {
		return 0, err
	}
	if err := s.lexical.Remove(ctx, ids); err != nil {
		return 0, err
	}
	if err := s.chunks.Delete(ctx, ids); err != nil {
		return 0, err
	}
	s.graph.RemoveNodes(ids)
	return len(ids), nil
}

func (s *Session) processFiles(ctx context.Context, relPaths []string, isDoc map[string]bool) (int, error) {
	var all []chunk.Chunk

	for _, rel := range relPaths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		abs := filepath.Join(s.rootDir, rel)
		content, err := os.ReadFile(abs)
		if err != nil {
			s.logger.Printf("indexer: warning: failed to read %s: %v\n", rel, err)
			continue
		}

		var chunks []chunk.Chunk
		if isDoc[rel] {
			chunks, err = s.docChunker.Chunk(ctx, rel, string(content))
		} else {
			parsed := chunker.ParsedFile{
				FilePath:     rel,
				Language:     languageForPath(rel),
				Content:      string(content),
				Declarations: ParseDeclarations(string(content)),
			}
			chunks, err = s.codeChunker.Chunk(ctx, parsed)
		}
		if err != nil {
			s.logger.Printf("indexer: warning: failed to chunk %s: %v\n", rel, err)
			continue
		}
		all = append(all, chunks...)
	}

	if len(all) == 0 {
		return 0, nil
	}

	if err := s.embedAndStore(ctx, all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// embedAndStore embeds every chunk's content in batches of
// cfg.Embedding.BatchSize and fans the result out to the chunk store,
// vector store, and lexical index.
func (s *Session) embedAndStore(ctx context.Context, chunks []chunk.Chunk) error {
	batchSize := s.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = embeddingText(c)
	}

	vecs, err := embed.EmbedWithProgress(ctx, s.embedder, texts, embed.EmbedModePassage, batchSize, s.progressCh)
	if err != nil {
		return coderr.NewEmbedError("embedding chunks", err)
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{ID: c.ID, Embedding: vecs[i]}
	}

	if err := s.chunks.Upsert(ctx, chunks); err != nil {
		return err
	}
	if err := s.vectors.Upsert(ctx, records); err != nil {
		return err
	}
	if err := s.lexical.Add(ctx, chunks); err != nil {
		return err
	}
	return nil
}

// embeddingText is what actually gets embedded: the natural-language
// summary when present (it is what a query is most likely to resemble),
// falling back to raw content.
func embeddingText(c chunk.Chunk) string {
	if c.NLSummary != "" {
		return c.NLSummary + "\n\n" + c.Content
	}
	return c.Content
}

// rebuildGraph regenerates the dependency graph from every chunk
// currently in the chunk store. Rebuilding wholesale rather than
// patching in place is cheap relative to embedding and keeps the
// heuristic import/reference resolution in graphbuilder.go simple.
func (s *Session) rebuildGraph(ctx context.Context) error {
	all, err := s.chunks.All(ctx)
	if err != nil {
		return err
	}
	g, err := BuildGraph(all)
	if err != nil {
		return err
	}
	s.graph = g
	return nil
}

func (s *Session) persist() error {
	data, err := s.lexical.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.lexicalPath, data, 0644); err != nil {
		return coderr.NewStoreError(coderr.ComponentLexical, "writing lexical index snapshot", err)
	}

	gdata, err := s.graph.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.graphPath, gdata, 0644); err != nil {
		return coderr.NewStoreError(coderr.ComponentGraph, "writing graph snapshot", err)
	}
	return nil
}

// Search runs a hybrid vector+lexical search over the current index,
// optionally reranking the fused top results.
func (s *Session) Search(ctx context.Context, query string, cfg hybrid.Config, reranker rerank.Provider) ([]hybrid.Result, error) {
	searcher := &hybrid.Searcher{
		Embedder: s.embedder,
		Vectors:  s.vectors,
		Lexical:  s.lexical,
		Lookup:   s.lookupChunk,
		Reranker: reranker,
		RerankN:  s.cfg.Reranker.TopN,
		Logger:   s.logger,
	}
	return searcher.Search(ctx, query, cfg)
}

// Expand surfaces the neighborhood of primaryIDs in the dependency
// graph, bounded by maxRelated (falling back to cfg.Context.MaxRelated
// when non-positive).
func (s *Session) Expand(ctx context.Context, primaryIDs []string, maxRelated int) (*expand.Expansion, error) {
	if maxRelated <= 0 {
		maxRelated = s.cfg.Context.MaxRelated
	}
	lookup := func(ctx context.Context, id string) (expand.Resolved, bool, error) {
		c, ok, err := s.chunks.Get(ctx, id)
		if err != nil || !ok {
			return expand.Resolved{}, ok, err
		}
		return expand.Resolved{ID: c.ID, FilePath: c.FilePath, Payload: c}, true, nil
	}
	return expand.Expand(ctx, s.graph, primaryIDs, maxRelated, lookup)
}

func (s *Session) lookupChunk(ctx context.Context, id string) (chunk.Chunk, bool, error) {
	return s.chunks.Get(ctx, id)
}

// Close releases every resource the session opened.
func (s *Session) Close() error {
	var errs []error
	if err := s.vectors.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.chunks.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.lexical.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("closing session: %s", strings.Join(msgs, "; "))
}

// languageForPath classifies a source file by extension, grounded on the
// teacher's internal/indexer/parser.go detectLanguage.
func languageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	default:
		return "unknown"
	}
}
