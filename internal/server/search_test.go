package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voxidesk/voxi-go/internal/rag"
)

// newSearchTestServer builds a *Server wired with the given searcher fake.
func newSearchTestServer(f *fakeSearcher) *Server {
	s := newTestServer()
	s.searcher = f
	return s
}

func TestHandleSearch_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newSearchTestServer(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`not-json`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	t.Parallel()

	s := newSearchTestServer(&fakeSearcher{err: rag.ErrEmptyQuery})
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":""}`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty query, got %d", w.Code)
	}
}

func TestHandleSearch_RankedResults(t *testing.T) {
	t.Parallel()

	f := &fakeSearcher{
		result: rag.Result{
			Documents: []rag.ScoredDocument{
				{
					Document: rag.Document{
						ID:        "doc-1",
						Title:     "Pricing Plans",
						Content:   "Basic: $99/month",
						CreatedAt: time.Now().UTC(),
					},
					Score: 0.91,
				},
				{
					Document: rag.Document{ID: "doc-2", Title: "Product Features"},
					Score:    0.72,
				},
			},
		},
	}
	s := newSearchTestServer(f)

	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"pricing","top_k":5}`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if f.gotQuery != "pricing" {
		t.Errorf("query: expected %q, got %q", "pricing", f.gotQuery)
	}
	if f.gotTopK != 5 {
		t.Errorf("top_k: expected 5, got %d", f.gotTopK)
	}

	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Fallback {
		t.Error("expected fallback:false for ranked results")
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "doc-1" || resp.Results[0].Score != 0.91 {
		t.Errorf("first result: expected doc-1 @ 0.91, got %s @ %v",
			resp.Results[0].ID, resp.Results[0].Score)
	}
}

// TestHandleSearch_Fallback verifies that a recency-fallback result is
// surfaced with fallback:true and the fixed fallback score, not as an error.
func TestHandleSearch_Fallback(t *testing.T) {
	t.Parallel()

	f := &fakeSearcher{
		result: rag.Result{
			Documents: []rag.ScoredDocument{
				{Document: rag.Document{ID: "doc-3", Title: "Company Overview"}, Score: rag.FallbackScore},
			},
			Fallback: true,
		},
	}
	s := newSearchTestServer(f)

	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"anything"}`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Fallback {
		t.Error("expected fallback:true")
	}
	if resp.Results[0].Score != rag.FallbackScore {
		t.Errorf("expected fallback score %v, got %v", rag.FallbackScore, resp.Results[0].Score)
	}
}

// TestHandleSearch_EmptyResults verifies that zero results marshal as an
// empty array, not null.
func TestHandleSearch_EmptyResults(t *testing.T) {
	t.Parallel()

	s := newSearchTestServer(&fakeSearcher{result: rag.Result{Fallback: true}})
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"anything"}`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("expected empty results array, got: %s", w.Body.String())
	}
}

func TestHandleSearch_Error(t *testing.T) {
	t.Parallel()

	s := newSearchTestServer(&fakeSearcher{err: errors.New("embed backend down")})
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"pricing"}`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
