// Package lexical implements the field-weighted BM25-style sparse index,
// grounded on the teacher's internal/mcp/exact_searcher.go: an in-memory
// bleve index with per-field mappings, batched indexing, and
// bleve MatchQuery/PrefixQuery/FuzzyQuery search. Extended with
// the retrieval core's custom tokenizer and explicit per-field weights.
package lexical

import (
	"bytes"
	"context"
	"encoding/gob"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/coderr"
)

// FieldWeights are the fixed per-field score multipliers from the
// field-weighted retrieval contract.
var FieldWeights = map[string]float64{
	"nl_summary": 2.0,
	"name":       1.5,
	"content":    1.0,
	"file_path":  0.5,
}

// Result is a single lexical search hit.
type Result struct {
	ID            string
	Score         float64
	StoredContent string
	StoredFields  map[string]interface{}
}

// Index is the bleve-backed field-weighted lexical index.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	seq   int64
}

// New creates an empty in-memory lexical index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentLexical, "creating lexical index", err)
	}
	return &Index{index: idx}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = analyzerName

	field := func(weight float64) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzerName
		fm.Store = true
		fm.Index = true
		fm.IncludeTermVectors = true
		return fm
	}

	idMapping := bleve.NewTextFieldMapping()
	idMapping.Analyzer = "keyword"
	idMapping.Store = true
	idMapping.Index = false

	seqMapping := bleve.NewNumericFieldMapping()
	seqMapping.Store = true
	seqMapping.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("id", idMapping)
	doc.AddFieldMappingsAt("seq", seqMapping)
	doc.AddFieldMappingsAt("content", field(FieldWeights["content"]))
	doc.AddFieldMappingsAt("nl_summary", field(FieldWeights["nl_summary"]))
	doc.AddFieldMappingsAt("name", field(FieldWeights["name"]))
	doc.AddFieldMappingsAt("file_path", field(FieldWeights["file_path"]))

	im.DefaultMapping = doc
	return im
}

type lexicalDoc struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	Content   string `json:"content"`
	NLSummary string `json:"nl_summary"`
	Name      string `json:"name"`
	FilePath  string `json:"file_path"`
}

// Add indexes the given chunks in batches of 1000, matching the
// teacher's batch size. Each batch is applied as a unit, so a failed batch
// leaves none of its documents half-indexed; batches already applied by
// the same call stay indexed.
func (idx *Index) Add(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	const batchSize = 1000
	b := idx.index.NewBatch()
	for i, c := range chunks {
		select {
		case <-ctx.Done():
			return coderr.NewStoreError(coderr.ComponentLexical, "context canceled while indexing", ctx.Err())
		default:
		}

		seq := atomic.AddInt64(&idx.seq, 1)
		doc := lexicalDoc{
			ID:        c.ID,
			Seq:       seq,
			Content:   c.Content,
			NLSummary: c.NLSummary,
			Name:      c.Metadata.Name,
			FilePath:  c.FilePath,
		}
		if err := b.Index(c.ID, doc); err != nil {
			return coderr.NewStoreError(coderr.ComponentLexical, "adding chunk "+c.ID+" to batch", err)
		}

		if b.Size() >= batchSize || i == len(chunks)-1 {
			if err := idx.index.Batch(b); err != nil {
				return coderr.NewStoreError(coderr.ComponentLexical, "executing index batch", err)
			}
			b = idx.index.NewBatch()
		}
	}
	return nil
}

// Remove deletes documents by id. Missing ids are ignored.
func (idx *Index) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	b := idx.index.NewBatch()
	for _, id := range ids {
		b.Delete(id)
	}
	if err := idx.index.Batch(b); err != nil {
		return coderr.NewStoreError(coderr.ComponentLexical, "removing chunks from lexical index", err)
	}
	return nil
}

// Count returns the number of documents in the index.
func (idx *Index) Count() (uint64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n, err := idx.index.DocCount()
	if err != nil {
		return 0, coderr.NewStoreError(coderr.ComponentLexical, "counting lexical index", err)
	}
	return n, nil
}

// Search runs a field-weighted query across content/nl_summary/name/
// file_path, combining exact, prefix, and bounded-fuzzy matches per
// field. Ties are broken by insertion order.
func (idx *Index) Search(ctx context.Context, queryStr string, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	terms := Tokenize(queryStr)
	if len(terms) == 0 {
		return nil, nil
	}

	fields := []string{"content", "nl_summary", "name", "file_path"}
	var disjuncts []bleve.Query

	for _, field := range fields {
		weight := FieldWeights[field]

		matchQ := bleve.NewMatchQuery(queryStr)
		matchQ.SetField(field)
		matchQ.SetBoost(weight)
		disjuncts = append(disjuncts, matchQ)

		for _, term := range terms {
			prefixQ := bleve.NewPrefixQuery(term)
			prefixQ.SetField(field)
			prefixQ.SetBoost(weight * 0.6)
			disjuncts = append(disjuncts, prefixQ)

			fuzzyQ := bleve.NewFuzzyQuery(term)
			fuzzyQ.SetField(field)
			fuzzyQ.SetFuzziness(fuzzinessFor(term))
			fuzzyQ.SetBoost(weight * 0.4)
			disjuncts = append(disjuncts, fuzzyQ)
		}
	}

	finalQuery := bleve.NewDisjunctionQuery(disjuncts...)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	overFetch := topK * 4
	if overFetch < topK {
		overFetch = topK
	}
	req := bleve.NewSearchRequestOptions(finalQuery, overFetch, 0, false)
	req.Fields = []string{"id", "seq", "content", "nl_summary", "name", "file_path"}

	res, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentLexical, "executing lexical search", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, _ := hit.Fields["id"].(string)
		content, _ := hit.Fields["content"].(string)
		results = append(results, Result{
			ID:            id,
			Score:         hit.Score,
			StoredContent: content,
			StoredFields:  hit.Fields,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		si := seqOf(results[i].StoredFields)
		sj := seqOf(results[j].StoredFields)
		return si < sj
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func seqOf(fields map[string]interface{}) float64 {
	switch v := fields["seq"].(type) {
	case float64:
		return v
	default:
		return 0
	}
}

// fuzzinessFor bounds edit-distance tolerance to roughly 20% of the term
// length, clamped to bleve's supported fuzziness range of [0,2].
func fuzzinessFor(term string) int {
	f := len(term) / 5
	if f > 2 {
		f = 2
	}
	if f < 0 {
		f = 0
	}
	return f
}

// serializedIndex is the gob-encoded snapshot of every document
// currently in the index, used by Serialize/Deserialize. The snapshot is
// gob, not JSON, whatever name the file it is written to carries.
type serializedIndex struct {
	Docs []lexicalDoc
}

// Serialize snapshots the index contents to bytes using gob encoding.
// bleve's on-disk formats are not stable across versions, so the
// snapshot is of logical documents, replayed through Add on Deserialize.
func (idx *Index) Serialize() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	docs, err := idx.allDocs()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(serializedIndex{Docs: docs}); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentLexical, "encoding lexical index snapshot", err)
	}
	return buf.Bytes(), nil
}

func (idx *Index) allDocs() ([]lexicalDoc, error) {
	matchAll := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequestOptions(matchAll, int(^uint(0)>>1), 0, false)
	req.Fields = []string{"id", "seq", "content", "nl_summary", "name", "file_path"}

	res, err := idx.index.Search(req)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentLexical, "enumerating lexical index for snapshot", err)
	}

	docs := make([]lexicalDoc, 0, len(res.Hits))
	for _, hit := range res.Hits {
		d := lexicalDoc{}
		d.ID, _ = hit.Fields["id"].(string)
		d.Content, _ = hit.Fields["content"].(string)
		d.NLSummary, _ = hit.Fields["nl_summary"].(string)
		d.Name, _ = hit.Fields["name"].(string)
		d.FilePath, _ = hit.Fields["file_path"].(string)
		d.Seq = int64(seqOf(hit.Fields))
		docs = append(docs, d)
	}
	return docs, nil
}

// Deserialize replaces the index's contents with the documents captured
// by a prior Serialize call.
func Deserialize(data []byte) (*Index, error) {
	var snap serializedIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentLexical, "decoding lexical index snapshot", err)
	}

	idx, err := New()
	if err != nil {
		return nil, err
	}

	b := idx.index.NewBatch()
	var maxSeq int64
	for _, d := range snap.Docs {
		if err := b.Index(d.ID, d); err != nil {
			return nil, coderr.NewStoreError(coderr.ComponentLexical, "replaying chunk "+d.ID, err)
		}
		if d.Seq > maxSeq {
			maxSeq = d.Seq
		}
	}
	if err := idx.index.Batch(b); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentLexical, "replaying lexical index snapshot", err)
	}
	idx.seq = maxSeq

	return idx, nil
}

// Close releases resources held by the underlying bleve index.
func (idx *Index) Close() error {
	return idx.index.Close()
}
