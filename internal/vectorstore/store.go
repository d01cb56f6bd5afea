// Package vectorstore provides a persistent, content-addressed store from
// chunk id to embedding vector, backed by SQLite and the sqlite-vec
// extension.
//
// Grounded on the teacher's internal/storage/vector_index.go: same vec0
// virtual table shape, same delete-then-insert upsert pattern (vec0
// tables do not support INSERT OR REPLACE), same vec_distance_cosine
// query. Extended to satisfy the store-error/id-validation/score-transform
// contract of the retrieval core's vector store component.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/coderag/coderag/internal/coderr"
)

func init() {
	sqlitevec.Auto()
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{1,256}$`)

// Record pairs a chunk id with its embedding vector.
type Record struct {
	ID        string
	Embedding []float32
}

// Result is a single top-K query hit. Score is monotonically increasing
// in similarity: larger means more similar.
type Result struct {
	ID    string
	Score float64
}

// Store is the sqlite-vec-backed vector store.
type Store struct {
	mu         sync.Mutex
	db         *sql.DB
	dimensions int
}

// Open opens (creating if necessary) a sqlite-vec database at path with a
// vec0 virtual table sized for dimensions.
func Open(path string, dimensions int) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "opening vector store database", err)
	}
	db.SetMaxOpenConns(1)

	createSQL := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(
		chunk_id TEXT PRIMARY KEY,
		embedding float[%d]
	)`, dimensions)
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, coderr.NewStoreError(coderr.ComponentStore, "creating vector index", err)
	}

	return &Store{db: db, dimensions: dimensions}, nil
}

// Dimensions returns the vector width this store was opened with.
func (s *Store) Dimensions() int { return s.dimensions }

// Upsert replaces any existing rows sharing an id and inserts the rest,
// as a single atomic batch. All ids are validated before any mutation is
// attempted; any invalid id or dimension mismatch fails the whole batch.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if !idPattern.MatchString(r.ID) {
			return coderr.NewStoreError(coderr.ComponentStore, "invalid chunk id: "+r.ID, nil)
		}
		if len(r.Embedding) != s.dimensions {
			return coderr.NewStoreError(coderr.ComponentStore, fmt.Sprintf("embedding dimension %d does not match store dimension %d", len(r.Embedding), s.dimensions), nil)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "beginning upsert transaction", err)
	}
	defer tx.Rollback()

	deleteStmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "preparing delete statement", err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks_vec (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "preparing insert statement", err)
	}
	defer insertStmt.Close()

	for _, r := range records {
		if _, err := deleteStmt.ExecContext(ctx, r.ID); err != nil {
			return coderr.NewStoreError(coderr.ComponentStore, "deleting existing vector for "+r.ID, err)
		}
		blob, err := sqlitevec.SerializeFloat32(r.Embedding)
		if err != nil {
			return coderr.NewStoreError(coderr.ComponentStore, "serializing embedding for "+r.ID, err)
		}
		if _, err := insertStmt.ExecContext(ctx, r.ID, blob); err != nil {
			return coderr.NewStoreError(coderr.ComponentStore, "inserting vector for "+r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "committing upsert transaction", err)
	}
	return nil
}

// Query returns up to k rows closest to queryVec, scored by 1/(1+distance)
// so that larger scores mean more similar.
func (s *Store) Query(ctx context.Context, queryVec []float32, k int) ([]Result, error) {
	if len(queryVec) != s.dimensions {
		return nil, coderr.NewStoreError(coderr.ComponentStore, fmt.Sprintf("query dimension %d does not match store dimension %d", len(queryVec), s.dimensions), nil)
	}
	if k <= 0 {
		return nil, nil
	}

	blob, err := sqlitevec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "serializing query embedding", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, vec_distance_cosine(embedding, ?) AS distance
		FROM chunks_vec
		ORDER BY distance
		LIMIT ?`, blob, k)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "querying vector index", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, coderr.NewStoreError(coderr.ComponentStore, "scanning vector query result", err)
		}
		out = append(out, Result{ID: id, Score: 1 / (1 + distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentStore, "iterating vector query results", err)
	}
	return out, nil
}

// Delete removes any rows matching the given ids. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "beginning delete transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "preparing delete statement", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return coderr.NewStoreError(coderr.ComponentStore, "deleting vector for "+id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return coderr.NewStoreError(coderr.ComponentStore, "committing delete transaction", err)
	}
	return nil
}

// Count returns the number of vectors currently stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_vec").Scan(&n); err != nil {
		return 0, coderr.NewStoreError(coderr.ComponentStore, "counting vectors", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
