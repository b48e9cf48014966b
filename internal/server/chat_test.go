package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/voxidesk/voxi-go/internal/answer"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// newChatTestServer builds a *Server wired with the given answerer fake.
func newChatTestServer(a answerer) *Server {
	s := newTestServer()
	s.answerer = a
	return s
}

// ---------------------------------------------------------------------------
// POST /api/chat — validation error paths (no model needed)
// ---------------------------------------------------------------------------

func TestHandleChat_MissingMessage(t *testing.T) {
	t.Parallel()

	s := newChatTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"history":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newChatTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`not-json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat — happy path (fake answerer, SSE response)
// ---------------------------------------------------------------------------

// TestHandleChat_Success verifies that a valid request produces an SSE stream
// with a "done" event. httptest.ResponseRecorder implements http.Flusher so
// the handler's flusher check passes without a real connection.
func TestHandleChat_Success(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{response: "Our Pro plan costs $299 per month."}
	s := newChatTestServer(a)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"how much is the Pro plan?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	body := w.Body.String()

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type: expected text/event-stream, got %q", ct)
	}
	if !strings.Contains(body, "data: Our Pro plan costs $299 per month.") {
		t.Errorf("expected streamed answer as SSE data, got: %s", body)
	}
	if !strings.Contains(body, "event: done") {
		t.Errorf("expected SSE done event in body, got: %s", body)
	}
	if !strings.Contains(body, "[DONE]") {
		t.Errorf("expected [DONE] sentinel in body, got: %s", body)
	}
}

// TestHandleChat_SourcesEvent verifies that the source documents backing the
// answer are emitted as a "sources" SSE event after the streamed text.
func TestHandleChat_SourcesEvent(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{
		response: "answer",
		reply: answer.Reply{
			Text: "answer",
			Sources: []rag.ScoredDocument{
				{
					Document: rag.Document{
						ID:        "doc-1",
						Title:     "Pricing Plans",
						Content:   "Basic: $99/month",
						CreatedAt: time.Now().UTC(),
					},
					Score: 0.92,
				},
			},
		},
	}
	s := newChatTestServer(a)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"pricing?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event: sources") {
		t.Errorf("expected sources event in body, got: %s", body)
	}
	if !strings.Contains(body, "Pricing Plans") {
		t.Errorf("expected source title in body, got: %s", body)
	}
}

// TestHandleChat_AnswerError verifies that when the answerer returns an error,
// the SSE stream includes an "error" event and the response is still 200
// (SSE errors are delivered in-band, not via HTTP status).
func TestHandleChat_AnswerError(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{err: fmt.Errorf("model unavailable")}
	s := newChatTestServer(a)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Errorf("expected error event in body, got: %s", body)
	}
	if !strings.Contains(body, "model unavailable") {
		t.Errorf("expected error message in body, got: %s", body)
	}
}

// TestHandleChat_HistoryForwarded verifies that prior turns in the request
// body reach the answerer as schema messages in order.
func TestHandleChat_HistoryForwarded(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{response: "ok"}
	s := newChatTestServer(a)

	reqBody := `{"message":"and the Enterprise plan?","history":[
		{"role":"user","content":"what plans do you offer?"},
		{"role":"assistant","content":"Basic, Pro, and Enterprise."}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if len(a.gotHistory) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(a.gotHistory))
	}
	if a.gotHistory[0].Role != schema.User {
		t.Errorf("first turn: expected user role, got %v", a.gotHistory[0].Role)
	}
	if a.gotHistory[1].Role != schema.Assistant {
		t.Errorf("second turn: expected assistant role, got %v", a.gotHistory[1].Role)
	}
}

// Test_HistoryMessages verifies role conversion and that unknown roles are
// dropped rather than rejected.
func Test_HistoryMessages(t *testing.T) {
	t.Parallel()

	msgs := historyMessages([]chatTurn{
		{Role: "user", Content: "hi"},
		{Role: "system", Content: "ignored"},
		{Role: "assistant", Content: "hello"},
	})

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hi" || msgs[1].Content != "hello" {
		t.Errorf("unexpected message contents: %q, %q", msgs[0].Content, msgs[1].Content)
	}
}

// ---------------------------------------------------------------------------
// sseWriter framing
// ---------------------------------------------------------------------------

// TestSSEWriter_MultiLineChunk verifies that a chunk containing newlines is
// framed as one data line per source line, preserving the SSE frame boundary.
func TestSSEWriter_MultiLineChunk(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	sw := &sseWriter{w: w, flusher: w}

	if _, err := sw.Write([]byte("line one\nline two\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := "data: line one\ndata: line two\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("framing mismatch:\nwant %q\ngot  %q", want, got)
	}
}
