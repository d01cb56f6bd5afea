package indexer

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/coderr"
)

// ChunkStore persists full chunk records (content, metadata, file
// location) alongside the vector store's embedding table, so the hybrid
// searcher and context expander can resolve a chunk id back to its
// content without holding every chunk in memory.
//
// Grounded on the teacher's internal/storage chunk tables (schema.go,
// chunk_reader.go): one row per chunk, file_path indexed for the
// incremental-reindex delete-by-file path, WAL mode so this and the
// vector store's *sql.DB can share the same file.
type ChunkStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenChunkStore opens (creating if necessary) the chunk metadata table
// at path.
func OpenChunkStore(path string) (*ChunkStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "opening chunk store database", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, coderr.NewStoreError(coderr.ComponentStore, "enabling WAL mode", err)
	}

	const createSQL = `CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		content TEXT NOT NULL,
		nl_summary TEXT,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		language TEXT,
		metadata_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);`
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, coderr.NewStoreError(coderr.ComponentStore, "creating chunk table", err)
	}

	return &ChunkStore{db: db}, nil
}

// Upsert replaces any existing rows sharing a chunk id.
func (s *ChunkStore) Upsert(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "beginning chunk upsert transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(id, file_path, content, nl_summary, start_line, end_line, language, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path=excluded.file_path, content=excluded.content,
			nl_summary=excluded.nl_summary, start_line=excluded.start_line,
			end_line=excluded.end_line, language=excluded.language,
			metadata_json=excluded.metadata_json`)
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "preparing chunk upsert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return coderr.NewStoreError(coderr.ComponentStore, "encoding metadata for "+c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.FilePath, c.Content, c.NLSummary, c.StartLine, c.EndLine, c.Language, string(metaJSON)); err != nil {
			return coderr.NewStoreError(coderr.ComponentStore, "upserting chunk "+c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "committing chunk upsert transaction", err)
	}
	return nil
}

// Get resolves a single chunk id.
func (s *ChunkStore) Get(ctx context.Context, id string) (chunk.Chunk, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, file_path, content, nl_summary, start_line, end_line, language, metadata_json
		FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return chunk.Chunk{}, false, nil
	}
	if err != nil {
		return chunk.Chunk{}, false, coderr.NewStoreError(coderr.ComponentStore, "reading chunk "+id, err)
	}
	return c, true, nil
}

// IDsForFile returns the ids of every chunk currently stored for a file,
// used to clear stale chunks before reprocessing a modified file.
func (s *ChunkStore) IDsForFile(ctx context.Context, filePath string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM chunks WHERE file_path = ?", filePath)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "listing chunks for "+filePath, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, coderr.NewStoreError(coderr.ComponentStore, "scanning chunk id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the given chunk ids. Missing ids are ignored.
func (s *ChunkStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "beginning chunk delete transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE id = ?")
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "preparing chunk delete", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return coderr.NewStoreError(coderr.ComponentStore, "deleting chunk "+id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "committing chunk delete transaction", err)
	}
	return nil
}

// All returns every stored chunk, used to wipe the index before a full
// build and to rebuild the dependency graph after each run.
func (s *ChunkStore) All(ctx context.Context) ([]chunk.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, file_path, content, nl_summary, start_line, end_line, language, metadata_json FROM chunks`)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "listing all chunks", err)
	}
	defer rows.Close()

	var out []chunk.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, coderr.NewStoreError(coderr.ComponentStore, "scanning chunk", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (chunk.Chunk, error) {
	var c chunk.Chunk
	var metaJSON string
	var nlSummary, language sql.NullString
	if err := row.Scan(&c.ID, &c.FilePath, &c.Content, &nlSummary, &c.StartLine, &c.EndLine, &language, &metaJSON); err != nil {
		return chunk.Chunk{}, err
	}
	c.NLSummary = nlSummary.String
	c.Language = language.String
	if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
		return chunk.Chunk{}, err
	}
	return c, nil
}

func scanChunkRows(rows *sql.Rows) (chunk.Chunk, error) {
	return scanChunk(rows)
}
