// Package docstore provides the SQLite-backed persistence layer for
// documents and their embedding vectors. Documents are the canonical source
// of truth for content; vectors hold one embedding per document and are
// foreign-keyed to their document with cascading delete, so removing a
// document can never leave an orphan vector behind.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/voxidesk/voxi-go/internal/rag"
)

// ErrNotFound is returned when a document with the requested id does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// ErrEmptyTitle is the validation failure for a missing document title.
// It is rejected before any I/O.
var ErrEmptyTitle = errors.New("docstore: title must not be empty")

// ErrEmptyContent is the validation failure for a missing document body.
// It is rejected before any I/O.
var ErrEmptyContent = errors.New("docstore: content must not be empty")

// Vector is one stored embedding row, paired one-to-one with a document.
type Vector struct {
	// ID is the unique identifier of the vector row.
	ID string
	// DocID references the owning document.
	DocID string
	// Embedding is the fixed-dimensionality float vector.
	Embedding []float32
}

// Store is the SQLite-backed document and vector store. It is safe for
// concurrent use; writes are serialised through a single connection.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the knowledge database.
// It resolves to ~/.voxi/knowledge.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("docstore: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".voxi")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("docstore: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "knowledge.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL improves concurrent read performance; foreign_keys must be ON for
	// the vectors→documents cascade to be enforced.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL CHECK(length(title) > 0),
    content    TEXT NOT NULL CHECK(length(content) > 0),
    created_at INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_documents_created
    ON documents (created_at DESC);

CREATE TABLE IF NOT EXISTS vectors (
    id        TEXT PRIMARY KEY,
    doc_id    TEXT NOT NULL UNIQUE
              REFERENCES documents(id) ON DELETE CASCADE,
    embedding TEXT NOT NULL,  -- JSON-encoded float32 array
    dims      INTEGER NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// CreateDocument validates, assigns an id and timestamp, and persists a new
// document. No vector is written here — that is the ingestion pipeline's job.
func (s *Store) CreateDocument(ctx context.Context, title, content string) (rag.Document, error) {
	if title == "" {
		return rag.Document{}, ErrEmptyTitle
	}
	if content == "" {
		return rag.Document{}, ErrEmptyContent
	}

	doc := rag.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	const q = `INSERT INTO documents (id, title, content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, doc.ID, doc.Title, doc.Content, doc.CreatedAt.Unix()); err != nil {
		return rag.Document{}, fmt.Errorf("docstore: create document: %w", err)
	}
	return doc, nil
}

// GetDocument returns the document with the given id, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (rag.Document, error) {
	const q = `SELECT id, title, content, created_at FROM documents WHERE id = ?`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rag.Document{}, ErrNotFound
	}
	if err != nil {
		return rag.Document{}, fmt.Errorf("docstore: get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns every document, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]rag.Document, error) {
	const q = `SELECT id, title, content, created_at FROM documents ORDER BY created_at DESC, id DESC`
	return s.queryDocuments(ctx, q)
}

// RecentDocuments returns up to n documents, newest first. It backs the
// retriever's degraded fallback path.
func (s *Store) RecentDocuments(ctx context.Context, n int) ([]rag.Document, error) {
	const q = `SELECT id, title, content, created_at FROM documents ORDER BY created_at DESC, id DESC LIMIT ?`
	return s.queryDocuments(ctx, q, n)
}

// DeleteDocument removes the document with the given id. The foreign key
// cascade removes its vector in the same statement. Returns ErrNotFound when
// no row matched.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("docstore: delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: delete document rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateVector persists the embedding for a document, replacing any previous
// vector wholesale (embeddings are never mutated in place). All stored
// vectors must share one dimensionality; a mismatch is rejected.
func (s *Store) CreateVector(ctx context.Context, docID string, embedding []float32) (Vector, error) {
	if len(embedding) == 0 {
		return Vector{}, fmt.Errorf("docstore: embedding must not be empty")
	}

	dims, err := s.VectorDims(ctx)
	if err != nil {
		return Vector{}, err
	}
	if dims > 0 && dims != len(embedding) {
		return Vector{}, fmt.Errorf("docstore: embedding has %d dimensions, store holds %d-dimensional vectors", len(embedding), dims)
	}

	encoded, err := json.Marshal(embedding)
	if err != nil {
		return Vector{}, fmt.Errorf("docstore: encode embedding: %w", err)
	}

	v := Vector{ID: uuid.NewString(), DocID: docID, Embedding: embedding}

	const q = `
INSERT INTO vectors (id, doc_id, embedding, dims) VALUES (?, ?, ?, ?)
ON CONFLICT(doc_id) DO UPDATE SET embedding = excluded.embedding, dims = excluded.dims`
	if _, err := s.db.ExecContext(ctx, q, v.ID, v.DocID, string(encoded), len(embedding)); err != nil {
		return Vector{}, fmt.Errorf("docstore: create vector for document %s: %w", docID, err)
	}
	return v, nil
}

// GetVector returns the stored embedding for a document, or ErrNotFound when
// the document has no vector (a consistency gap the reindex sweep can heal).
func (s *Store) GetVector(ctx context.Context, docID string) (Vector, error) {
	const q = `SELECT id, doc_id, embedding FROM vectors WHERE doc_id = ?`

	var v Vector
	var encoded string
	err := s.db.QueryRowContext(ctx, q, docID).Scan(&v.ID, &v.DocID, &encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return Vector{}, ErrNotFound
	}
	if err != nil {
		return Vector{}, fmt.Errorf("docstore: get vector: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &v.Embedding); err != nil {
		return Vector{}, fmt.Errorf("docstore: decode embedding for document %s: %w", docID, err)
	}
	return v, nil
}

// DeleteAllVectors removes every vector row and returns how many were
// deleted. Documents are untouched. Used only by the reindex sweep.
func (s *Store) DeleteAllVectors(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vectors`)
	if err != nil {
		return 0, fmt.Errorf("docstore: delete all vectors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("docstore: delete all vectors rows affected: %w", err)
	}
	return n, nil
}

// CountVectors returns the number of stored vectors.
func (s *Store) CountVectors(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("docstore: count vectors: %w", err)
	}
	return n, nil
}

// VectorDims returns the dimensionality shared by all stored vectors, or 0
// when the vector table is empty.
func (s *Store) VectorDims(ctx context.Context) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx, `SELECT dims FROM vectors LIMIT 1`).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("docstore: vector dims: %w", err)
	}
	return dims, nil
}

// Ping reports whether the underlying database is reachable. Satisfies the
// server's readiness Pinger contract.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("docstore: ping: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (*Store) Name() string { return "docstore" }

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("docstore: close: %w", err)
	}
	return nil
}

// queryDocuments runs a SELECT over the documents table and scans the rows.
func (s *Store) queryDocuments(ctx context.Context, q string, args ...any) ([]rag.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: list documents: %w", err)
	}
	defer rows.Close()

	var docs []rag.Document
	for rows.Next() {
		var d rag.Document
		var ts int64
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &ts); err != nil {
			return nil, fmt.Errorf("docstore: list scan: %w", err)
		}
		d.CreatedAt = time.Unix(ts, 0).UTC()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: list rows: %w", err)
	}
	return docs, nil
}

// scanner matches *sql.Row so single-row scans share one helper.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (rag.Document, error) {
	var d rag.Document
	var ts int64
	if err := row.Scan(&d.ID, &d.Title, &d.Content, &ts); err != nil {
		return rag.Document{}, err
	}
	d.CreatedAt = time.Unix(ts, 0).UTC()
	return d, nil
}
