// Package ingestion implements the document ingestion and maintenance
// pipeline: create → embed → index for new documents, cascade removal for
// deletes, and the full rebuild sweep that regenerates every embedding.
// It is invoked by the HTTP admin endpoints and the `voxi add/delete/reindex`
// CLI commands.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/voxidesk/voxi-go/internal/docstore"
	"github.com/voxidesk/voxi-go/internal/logging"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// DocumentStore is the slice of the docstore the pipeline needs.
// Satisfied by *docstore.Store.
type DocumentStore interface {
	CreateDocument(ctx context.Context, title, content string) (rag.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]rag.Document, error)
	CreateVector(ctx context.Context, docID string, embedding []float32) (docstore.Vector, error)
	DeleteAllVectors(ctx context.Context) (int64, error)
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// Store persists documents and their vectors.
	Store DocumentStore

	// Embedder converts document text into dense vector embeddings.
	Embedder rag.Embedder

	// Index is the similarity index kept in sync with the store.
	Index rag.VectorIndex

	// EmbedRPS caps embedding API calls per second during bulk operations.
	// Defaults to 5 if zero.
	EmbedRPS float64

	// Logger receives pipeline progress. Defaults to slog.Default.
	Logger *slog.Logger
}

// Report summarises a reindex sweep.
type Report struct {
	// Indexed is the number of documents successfully re-embedded.
	Indexed int
	// Failed is the number of documents whose embedding or write failed.
	Failed int
}

// Pipeline orchestrates document writes across the store, the embedder, and
// the similarity index. Writes are not transactional across those three
// systems: a document whose embedding fails stays in the store without a
// vector until the next reindex sweep heals it.
type Pipeline struct {
	store    DocumentStore
	embedder rag.Embedder
	index    rag.VectorIndex
	// limiter throttles embedding API calls during bulk operations.
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided config.
func NewPipeline(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ingestion: config must not be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}

	rps := cfg.EmbedRPS
	if rps <= 0 {
		rps = 5
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		index:    cfg.Index,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		log:      log,
	}, nil
}

// AddDocument persists a new document, embeds it, and indexes the embedding.
// The document row is written first and is NOT rolled back when the embed or
// index write fails — the returned error then accompanies a valid document,
// and a later reindex sweep restores consistency.
func (p *Pipeline) AddDocument(ctx context.Context, title, content string) (rag.Document, error) {
	doc, err := p.store.CreateDocument(ctx, title, content)
	if err != nil {
		return rag.Document{}, err
	}

	if err := p.embedAndIndex(ctx, doc); err != nil {
		p.log.Warn("ingestion: document stored without vector",
			slog.String("doc_id", doc.ID),
			slog.Any("error", err),
		)
		return doc, fmt.Errorf("ingestion: document %s stored but not indexed: %w", doc.ID, err)
	}

	p.log.Info("ingestion: document added",
		slog.String("doc_id", doc.ID),
		slog.String("title", doc.Title),
	)
	return doc, nil
}

// DeleteDocument removes a document from the store (the vector row goes with
// it via cascade) and from the similarity index. Returns docstore.ErrNotFound
// when the document does not exist.
func (p *Pipeline) DeleteDocument(ctx context.Context, id string) error {
	if err := p.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := p.index.Delete(ctx, []string{id}); err != nil {
		// The store row is already gone; surface the stale index entry.
		return fmt.Errorf("ingestion: document %s deleted but index cleanup failed: %w", id, err)
	}
	p.log.Info("ingestion: document deleted", slog.String("doc_id", id))
	return nil
}

// Reindex wipes all stored vectors and the similarity index, then re-embeds
// every document sequentially. The wipes abort the sweep on failure; per
// document failures afterwards are counted and skipped so one bad document
// cannot block the rest.
func (p *Pipeline) Reindex(ctx context.Context) (Report, error) {
	log := logging.FromContext(ctx)

	if err := p.index.DeleteAll(ctx); err != nil {
		return Report{}, fmt.Errorf("ingestion: wipe index: %w", err)
	}
	wiped, err := p.store.DeleteAllVectors(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("ingestion: wipe vectors: %w", err)
	}

	docs, err := p.store.ListDocuments(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("ingestion: list documents: %w", err)
	}

	log.Info("ingestion: reindex started",
		slog.Int64("vectors_wiped", wiped),
		slog.Int("documents", len(docs)),
	)

	var report Report
	for _, doc := range docs {
		if err := p.embedAndIndex(ctx, doc); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			log.Warn("ingestion: reindex skipped document",
				slog.String("doc_id", doc.ID),
				slog.Any("error", err),
			)
			continue
		}
		report.Indexed++
	}

	log.Info("ingestion: reindex finished",
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// embedAndIndex embeds a single document and writes the vector to both the
// store and the similarity index.
func (p *Pipeline) embedAndIndex(ctx context.Context, doc rag.Document) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	embeddings, err := p.embedder.Embed(ctx, []string{embedInput(doc)})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != 1 {
		return fmt.Errorf("embed: expected 1 embedding, got %d", len(embeddings))
	}

	if _, err := p.store.CreateVector(ctx, doc.ID, embeddings[0]); err != nil {
		return fmt.Errorf("store vector: %w", err)
	}
	if err := p.index.Upsert(ctx, doc, embeddings[0]); err != nil {
		return fmt.Errorf("index vector: %w", err)
	}
	return nil
}

// embedInput is the canonical text embedded for a document. Title and body
// are embedded together so searches can match either.
func embedInput(doc rag.Document) string {
	return doc.Title + "\n\n" + doc.Content
}
