package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voxidesk/voxi-go/internal/answer"
	"github.com/voxidesk/voxi-go/internal/ingestion"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// ---------------------------------------------------------------------------
// Shared handler-test scaffolding
//
// Handler tests never open a network listener:
//  1. Build a fake request with httptest.NewRequest.
//  2. Create a recorder with httptest.NewRecorder.
//  3. Call the handler directly (no network, no goroutines, no port).
//  4. Assert on recorder.Code (status) and recorder.Body (response body).
// ---------------------------------------------------------------------------

// newTestServer builds a minimal *Server for handler tests. Each server gets
// its own metrics registry so parallel tests never collide on registration.
func newTestServer() *Server {
	return &Server{
		cfg:     &Config{},
		log:     slog.Default(),
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}

// ---------------------------------------------------------------------------
// Fakes for the server's consumer interfaces
// ---------------------------------------------------------------------------

// fakeAnswerer implements the answerer interface for tests.
// It writes a fixed response to the writer and returns configurable values.
type fakeAnswerer struct {
	// response is written verbatim to the writer on each Answer call.
	response string
	// reply is returned on success.
	reply answer.Reply
	// err is returned as the error value.
	err error
	// gotHistory records the history passed to the last Answer call.
	gotHistory []*schema.Message
}

func (f *fakeAnswerer) Answer(_ context.Context, _ string, history []*schema.Message, w io.Writer) (answer.Reply, error) {
	f.gotHistory = history
	if f.err != nil {
		return answer.Reply{}, f.err
	}
	_, _ = fmt.Fprint(w, f.response)
	return f.reply, nil
}

// fakeSearcher implements the searcher interface for tests.
type fakeSearcher struct {
	result rag.Result
	err    error
	// gotQuery and gotTopK record the last Search call.
	gotQuery string
	gotTopK  int
}

func (f *fakeSearcher) Search(_ context.Context, query string, topK int) (rag.Result, error) {
	f.gotQuery = query
	f.gotTopK = topK
	if f.err != nil {
		return rag.Result{}, f.err
	}
	return f.result, nil
}

// fakeIngestor implements the ingestor interface for tests.
type fakeIngestor struct {
	doc        rag.Document
	addErr     error
	deleteErr  error
	report     ingestion.Report
	reindexErr error
	// deletedID records the id passed to the last DeleteDocument call.
	deletedID string
}

func (f *fakeIngestor) AddDocument(_ context.Context, _, _ string) (rag.Document, error) {
	return f.doc, f.addErr
}

func (f *fakeIngestor) DeleteDocument(_ context.Context, id string) error {
	f.deletedID = id
	return f.deleteErr
}

func (f *fakeIngestor) Reindex(_ context.Context) (ingestion.Report, error) {
	if f.reindexErr != nil {
		return ingestion.Report{}, f.reindexErr
	}
	return f.report, nil
}

// fakeLibrary implements the library interface for tests.
type fakeLibrary struct {
	docs    []rag.Document
	getDoc  rag.Document
	getErr  error
	listErr error
}

func (f *fakeLibrary) GetDocument(_ context.Context, _ string) (rag.Document, error) {
	return f.getDoc, f.getErr
}

func (f *fakeLibrary) ListDocuments(_ context.Context) ([]rag.Document, error) {
	return f.docs, f.listErr
}

// ---------------------------------------------------------------------------
// New — dependency validation
// ---------------------------------------------------------------------------

func TestNew_NilDeps(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil deps")
	}
}

func TestNew_MissingDependency(t *testing.T) {
	t.Parallel()

	deps := &Deps{
		Answerer: &fakeAnswerer{},
		Searcher: &fakeSearcher{},
		Ingestor: &fakeIngestor{},
		// Library intentionally nil.
	}
	if _, err := New(deps, nil); err == nil {
		t.Error("expected error when library is nil")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	deps := &Deps{
		Answerer: &fakeAnswerer{},
		Searcher: &fakeSearcher{},
		Ingestor: &fakeIngestor{},
		Library:  &fakeLibrary{},
	}
	reg := prometheus.NewRegistry()
	s, err := New(deps, &Config{MetricsRegistry: reg, MetricsGatherer: reg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	if s.cfg.Host != "127.0.0.1" {
		t.Errorf("host: expected 127.0.0.1, got %q", s.cfg.Host)
	}
	if s.cfg.Port != 8080 {
		t.Errorf("port: expected 8080, got %d", s.cfg.Port)
	}
	if s.httpServer.Addr != "127.0.0.1:8080" {
		t.Errorf("addr: expected 127.0.0.1:8080, got %q", s.httpServer.Addr)
	}
}
