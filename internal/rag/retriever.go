package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// FallbackScore is the sentinel similarity assigned to documents returned by
// the degraded fallback path. Cosine scores live in [0, 1]; the midpoint
// marks "relevance unknown" without colliding with either extreme.
const FallbackScore = 0.5

// DefaultTopK is the number of ranked results returned when the caller does
// not ask for a specific k.
const DefaultTopK = 3

// DefaultFallbackLimit is the maximum number of documents the fallback path
// returns. It is deliberately independent of the caller's k: the fallback
// trades relevance for availability and hands the answer generator as much
// recent context as it can.
const DefaultFallbackLimit = 10

// ErrEmptyQuery is returned by Retriever.Search for an empty query string.
// It is a validation failure rejected before any I/O.
var ErrEmptyQuery = errors.New("rag: query must not be empty")

// Result is the outcome of one retrieval.
type Result struct {
	// Documents is the retrieved set, best match first. On the ranked path
	// it holds at most the requested k entries; on the fallback path it may
	// hold up to the configured fallback limit regardless of k, in
	// newest-first store order.
	Documents []ScoredDocument

	// Fallback is true when ranked search was unavailable or empty and the
	// documents carry the sentinel FallbackScore.
	Fallback bool
}

// Retriever is the retrieval engine: it embeds the query, runs ranked
// similarity search against the vector index, and degrades to an unranked
// recency listing when the index errors or returns nothing. Ranked-search
// failure is never surfaced to the caller — only an embedding failure or a
// document store outage on the fallback path propagates as an error.
type Retriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// index performs the ranked vector similarity search.
	index VectorIndex

	// recent supplies unranked fallback documents from the document store.
	recent RecencyLister

	// defaultTopK is the result count used when the caller passes k <= 0.
	defaultTopK int

	// fallbackLimit caps the fallback path, independent of k.
	fallbackLimit int

	// log records degraded retrievals.
	log *slog.Logger
}

// RetrieverConfig holds the dependencies and tuning for a Retriever.
type RetrieverConfig struct {
	// Embedder converts query text into an embedding. Required.
	Embedder Embedder
	// Index is the ranked similarity index. Required.
	Index VectorIndex
	// Recent supplies fallback documents. Required.
	Recent RecencyLister
	// DefaultTopK is used when Search is called with k <= 0.
	// Defaults to DefaultTopK.
	DefaultTopK int
	// FallbackLimit caps fallback results. Defaults to DefaultFallbackLimit.
	FallbackLimit int
	// Logger records fallback activations. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewRetriever constructs a Retriever from the given config.
func NewRetriever(cfg *RetrieverConfig) (*Retriever, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if cfg.Recent == nil {
		return nil, fmt.Errorf("rag: recency lister must not be nil")
	}

	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	limit := cfg.FallbackLimit
	if limit <= 0 {
		limit = DefaultFallbackLimit
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Retriever{
		embedder:      cfg.Embedder,
		index:         cfg.Index,
		recent:        cfg.Recent,
		defaultTopK:   topK,
		fallbackLimit: limit,
		log:           log,
	}, nil
}

// Search retrieves the documents most relevant to query. If topK <= 0 the
// configured default is used. Ranked results come back best match first; if
// the ranked query errors or returns zero rows (including the legitimate
// empty-store case) the fallback set is returned instead of an error.
func (r *Retriever) Search(ctx context.Context, query string, topK int) (Result, error) {
	if query == "" {
		return Result{}, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return Result{}, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return Result{}, fmt.Errorf("rag: embedder returned empty result for query")
	}

	docs, err := r.index.Search(ctx, embeddings[0], topK)
	if err != nil {
		r.log.Warn("ranked search failed, degrading to recency fallback",
			slog.Any("error", err),
		)
		return r.fallback(ctx)
	}
	if len(docs) == 0 {
		r.log.Debug("ranked search returned no rows, degrading to recency fallback")
		return r.fallback(ctx)
	}

	return Result{Documents: docs}, nil
}

// fallback returns up to fallbackLimit most-recent documents with the
// sentinel score. A document store failure here is a real outage and does
// propagate to the caller.
func (r *Retriever) fallback(ctx context.Context) (Result, error) {
	recent, err := r.recent.RecentDocuments(ctx, r.fallbackLimit)
	if err != nil {
		return Result{}, fmt.Errorf("rag: fallback listing failed: %w", err)
	}

	docs := make([]ScoredDocument, 0, len(recent))
	for _, d := range recent {
		docs = append(docs, ScoredDocument{Document: d, Score: FallbackScore})
	}

	return Result{Documents: docs, Fallback: true}, nil
}
