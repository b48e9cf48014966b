// Package rag defines the interfaces and types for the retrieval core:
// document representation, embedding, ranked vector search, and the
// retriever that ties them together. Concrete backends (Qdrant, SQLite,
// Gemini, etc.) satisfy these interfaces so callers never depend on a
// specific implementation.
package rag

import (
	"context"
	"time"
)

// Document is a single unit of stored and retrievable knowledge.
type Document struct {
	// ID is the unique identifier, assigned on creation and immutable.
	ID string

	// Title is a short human-readable label. Required, non-empty.
	Title string

	// Content is the free-form text body. Required, non-empty; this is
	// what gets embedded and what grounds generated answers.
	Content string

	// CreatedAt is the creation timestamp, set once and immutable.
	CreatedAt time.Time
}

// ScoredDocument is a Document paired with the similarity score assigned
// during retrieval.
type ScoredDocument struct {
	Document

	// Score is the cosine similarity of this document to the query, in
	// [0, 1]. Results produced by the degraded fallback path carry the
	// fixed FallbackScore instead of a computed value.
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines, must
// propagate provider errors rather than returning zero vectors, and must not
// cache — callers decide caching policy.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the ranked nearest-neighbour index over document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// Upsert stores or replaces the embedding for a document. Embeddings
	// are never mutated in place — a re-embed replaces the point wholesale.
	Upsert(ctx context.Context, doc Document, embedding []float32) error

	// Search returns the top-k documents most similar to queryEmbedding,
	// best match first, with cosine similarity scores.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]ScoredDocument, error)

	// Delete removes documents from the index by their IDs.
	Delete(ctx context.Context, ids []string) error

	// DeleteAll removes every point from the index. Used by the reindex
	// maintenance sweep before re-embedding.
	DeleteAll(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}

// RecencyLister provides the unranked document listing the retriever falls
// back to when ranked search is degraded. *docstore.Store satisfies it.
type RecencyLister interface {
	// RecentDocuments returns up to n documents, newest first.
	RecentDocuments(ctx context.Context, n int) ([]Document, error)
}
