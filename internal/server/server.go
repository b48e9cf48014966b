// Package server implements the HTTP server that exposes the assistant via a
// REST/SSE API: streamed chat answers, similarity search, document CRUD, and
// the admin reindex sweep. The server is started by the `voxi serve` CLI
// command.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxidesk/voxi-go/internal/answer"
)

// New constructs a Server from the provided dependencies and config.
func New(deps *Deps, cfg *Config) (*Server, error) {
	if deps == nil {
		return nil, fmt.Errorf("server: deps must not be nil")
	}
	if deps.Answerer == nil {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if deps.Searcher == nil {
		return nil, fmt.Errorf("server: searcher must not be nil")
	}
	if deps.Ingestor == nil {
		return nil, fmt.Errorf("server: ingestor must not be nil")
	}
	if deps.Library == nil {
		return nil, fmt.Errorf("server: library must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must be long enough for streaming responses.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		answerer: deps.Answerer,
		searcher: deps.Searcher,
		ingestor: deps.Ingestor,
		library:  deps.Library,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not set — authentication disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/documents", s.handleDocumentCreate)
	mux.HandleFunc("GET /api/documents", s.handleDocumentList)
	mux.HandleFunc("GET /api/documents/{id}", s.handleDocumentGet)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDocumentDelete)
	mux.HandleFunc("POST /api/admin/reindex", s.handleReindex)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	// Health, readiness, and metrics stay outside auth and rate limiting so
	// probes and scrapers keep working when a client floods the API.
	protected := authMiddleware(cfg.APIKey, rl.middleware(mux))
	root := http.NewServeMux()
	root.Handle("/api/health", mux)
	root.Handle("/api/ready", mux)
	root.Handle("/metrics", mux)
	root.Handle("/", protected)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.metrics.httpMiddleware(requestLogger(s.log, root)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		defer s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat requests. It streams the assistant's
// answer using Server-Sent Events (SSE) so clients can render tokens as they
// arrive, then emits the source documents and a done event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	// Set SSE headers so the client receives a streaming response.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()
	start := time.Now()

	// sseWriter wraps the ResponseWriter to emit SSE-formatted data events.
	sw := &sseWriter{w: w, flusher: flusher}

	reply, err := s.answerer.Answer(r.Context(), req.Message, historyMessages(req.History), sw)
	if err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues("error").Inc()
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
		flusher.Flush()
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.chatDuration.Observe(time.Since(start).Seconds())
	if reply.Fallback {
		s.metrics.searchFallbackTotal.Inc()
	}

	if len(reply.Sources) > 0 {
		if data, err := json.Marshal(sourcesPayload(reply)); err == nil {
			fmt.Fprintf(w, "event: sources\ndata: %s\n\n", data)
		}
	}
	// Signal stream completion.
	fmt.Fprintf(w, "event: done\ndata: [DONE]\n\n")
	flusher.Flush()
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// historyMessages converts the wire-format history into model messages.
// Turns with unknown roles are dropped rather than rejected.
func historyMessages(turns []chatTurn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case "user":
			msgs = append(msgs, schema.UserMessage(t.Content))
		case "assistant":
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		}
	}
	return msgs
}

// sourcesPayload shapes a reply's source documents for the SSE sources event.
func sourcesPayload(reply answer.Reply) searchResponse {
	resp := searchResponse{Fallback: reply.Fallback}
	for _, d := range reply.Sources {
		resp.Results = append(resp.Results, searchResult{
			ID:        d.ID,
			Title:     d.Title,
			Content:   d.Content,
			Score:     d.Score,
			CreatedAt: d.CreatedAt,
		})
	}
	return resp
}

// sseWriter wraps an http.ResponseWriter to emit Server-Sent Event data frames.
type sseWriter struct {
	// w is the underlying response writer.
	w http.ResponseWriter

	// flusher flushes buffered data to the client after each write.
	flusher http.Flusher
}

// Write formats p as one or more SSE data lines and flushes to the client.
// Each newline in p is prefixed with "data: " so multi-line chunks never
// break the SSE frame boundary.
func (s *sseWriter) Write(p []byte) (n int, err error) {
	chunk := strings.TrimRight(string(bytes.Clone(p)), "\n")
	lines := strings.Split(chunk, "\n")
	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	if _, err = fmt.Fprint(s.w, buf.String()); err != nil {
		return 0, err
	}
	s.flusher.Flush()
	return len(p), nil
}
