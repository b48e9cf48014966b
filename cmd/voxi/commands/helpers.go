package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/voxidesk/voxi-go/internal/docstore"
	"github.com/voxidesk/voxi-go/internal/embedder"
	"github.com/voxidesk/voxi-go/internal/ingestion"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// stack bundles the wired retrieval components shared by the CLI commands:
// the document store, the embedder, the Qdrant index, the retriever, and the
// ingestion pipeline.
type stack struct {
	store     *docstore.Store
	embedder  rag.Embedder
	index     *rag.QdrantIndex
	retriever *rag.Retriever
	pipeline  *ingestion.Pipeline
}

// buildStack wires the full retrieval stack from environment configuration.
// Callers must Close the returned stack when done.
func buildStack(ctx context.Context, log *slog.Logger) (*stack, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}

	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("backend", embedder.ResolveBackend()))

	store, err := openStore()
	if err != nil {
		return nil, err
	}

	index, err := buildIndex(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	retriever, err := rag.NewRetriever(&rag.RetrieverConfig{
		Embedder:      emb,
		Index:         index,
		Recent:        store,
		DefaultTopK:   getEnvInt("VOXI_TOP_K", rag.DefaultTopK),
		FallbackLimit: getEnvInt("VOXI_FALLBACK_LIMIT", rag.DefaultFallbackLimit),
		Logger:        log,
	})
	if err != nil {
		_ = index.Close()
		_ = store.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(&ingestion.Config{
		Store:    store,
		Embedder: emb,
		Index:    index,
		Logger:   log,
	})
	if err != nil {
		_ = index.Close()
		_ = store.Close()
		return nil, err
	}

	return &stack{
		store:     store,
		embedder:  emb,
		index:     index,
		retriever: retriever,
		pipeline:  pipeline,
	}, nil
}

// Close releases the stack's store and index connections.
func (s *stack) Close() {
	_ = s.index.Close()
	_ = s.store.Close()
}

// openStore opens the SQLite document store. VOXI_DB overrides the default
// path (~/.voxi/knowledge.db).
func openStore() (*docstore.Store, error) {
	dbPath := os.Getenv("VOXI_DB")
	if dbPath == "" {
		var err error
		dbPath, err = docstore.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
	}

	store, err := docstore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store at %s: %w", dbPath, err)
	}
	return store, nil
}

// buildIndex connects to Qdrant using environment configuration. The vector
// size follows the active embedding backend so the collection and the
// embedder can never disagree on dimensionality.
func buildIndex(ctx context.Context) (*rag.QdrantIndex, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)

	index, err := rag.NewQdrantIndex(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "voxi-docs"),
		VectorSize: uint64(embedder.DefaultDimensions(embedder.ResolveBackend())), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return index, nil
}

// getEnvOrDefault returns the environment variable value or a fallback.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the environment variable parsed as int, or a fallback.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
