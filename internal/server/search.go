package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voxidesk/voxi-go/internal/logging"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// handleSearch handles POST /api/search requests. It runs a similarity query
// against the index and returns the scored documents as JSON. When the index
// is unavailable or empty the response carries the most recent documents with
// fallback:true instead of an error.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.searcher.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) {
			http.Error(w, "query is required", http.StatusBadRequest)
			return
		}
		logging.FromContext(r.Context()).Error("search failed", slog.Any("error", err))
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	if result.Fallback {
		s.metrics.searchFallbackTotal.Inc()
	}

	resp := searchResponse{
		Results:  make([]searchResult, 0, len(result.Documents)),
		Fallback: result.Fallback,
	}
	for _, d := range result.Documents {
		resp.Results = append(resp.Results, searchResult{
			ID:        d.ID,
			Title:     d.Title,
			Content:   d.Content,
			Score:     d.Score,
			CreatedAt: d.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
