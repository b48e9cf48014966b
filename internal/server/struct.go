package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voxidesk/voxi-go/internal/answer"
	"github.com/voxidesk/voxi-go/internal/ingestion"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry is where server metrics are registered.
	// Defaults to prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs the GET /metrics endpoint.
	// Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// answerer is the interface handleChat calls to stream a grounded reply.
// *answer.Generator satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, question string, history []*schema.Message, w io.Writer) (answer.Reply, error)
}

// searcher is the interface handleSearch calls to run a similarity query.
// *rag.Retriever satisfies it.
type searcher interface {
	Search(ctx context.Context, query string, topK int) (rag.Result, error)
}

// ingestor is the interface the document write handlers call.
// *ingestion.Pipeline satisfies it.
type ingestor interface {
	AddDocument(ctx context.Context, title, content string) (rag.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Reindex(ctx context.Context) (ingestion.Report, error)
}

// library is the read-only document access the list/get handlers need.
// *docstore.Store satisfies it.
type library interface {
	GetDocument(ctx context.Context, id string) (rag.Document, error)
	ListDocuments(ctx context.Context) ([]rag.Document, error)
}

// Deps bundles the domain services the server exposes over HTTP.
type Deps struct {
	// Answerer streams grounded chat replies. Required.
	Answerer answerer
	// Searcher runs similarity queries for POST /api/search. Required.
	Searcher searcher
	// Ingestor handles document writes and reindexing. Required.
	Ingestor ingestor
	// Library serves document reads. Required.
	Library library
}

// Server is the HTTP server that fronts the assistant.
type Server struct {
	// answerer streams chat replies; overridden by a fake in tests.
	answerer answerer
	// searcher runs similarity queries.
	searcher searcher
	// ingestor handles document writes.
	ingestor ingestor
	// library serves document reads.
	library library
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments for this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's question.
	Message string `json:"message"`
	// History is the prior conversation as alternating user/assistant turns.
	History []chatTurn `json:"history,omitempty"`
}

// chatTurn is one prior message in a chat conversation.
type chatTurn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the natural language search query.
	Query string `json:"query"`
	// TopK caps the number of results; the retriever default applies when zero.
	TopK int `json:"top_k,omitempty"`
}

// searchResult is one scored document in a search response.
type searchResult struct {
	// ID is the document identifier.
	ID string `json:"id"`
	// Title is the document title.
	Title string `json:"title"`
	// Content is the document body.
	Content string `json:"content"`
	// Score is the cosine similarity, or the fixed recency score on fallback.
	Score float32 `json:"score"`
	// CreatedAt is the document creation time in RFC 3339.
	CreatedAt time.Time `json:"createdAt"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	// Results is the ranked list of matching documents.
	Results []searchResult `json:"results"`
	// Fallback is true when the index was unavailable or empty and the
	// results are the most recent documents instead of similarity matches.
	Fallback bool `json:"fallback"`
}

// documentCreateRequest is the JSON body for POST /api/documents.
type documentCreateRequest struct {
	// Title is the document title. Must be non-empty.
	Title string `json:"title"`
	// Content is the document body. Must be non-empty.
	Content string `json:"content"`
}

// documentResponse is the JSON representation of a stored document.
type documentResponse struct {
	// ID is the document identifier.
	ID string `json:"id"`
	// Title is the document title.
	Title string `json:"title"`
	// Content is the document body.
	Content string `json:"content"`
	// CreatedAt is the document creation time in RFC 3339.
	CreatedAt time.Time `json:"createdAt"`
}

// documentListResponse is the JSON response for GET /api/documents.
type documentListResponse struct {
	// Documents is the full list, newest first.
	Documents []documentResponse `json:"documents"`
}

// reindexResponse is the JSON response for POST /api/admin/reindex.
type reindexResponse struct {
	// Indexed is the number of documents successfully re-embedded.
	Indexed int `json:"indexed"`
	// Failed is the number of documents whose embedding failed.
	Failed int `json:"failed"`
}
