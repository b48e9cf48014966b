package server

import (
	"log/slog"
	"net/http"

	"github.com/voxidesk/voxi-go/internal/logging"
)

// handleReindex handles POST /api/admin/reindex. It wipes the similarity
// index and stored vectors, then re-embeds every document. The sweep runs
// synchronously within the request; WriteTimeout bounds its duration.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingestor.Reindex(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("reindex failed", slog.Any("error", err))
		http.Error(w, "reindex failed", http.StatusInternalServerError)
		return
	}

	s.metrics.reindexDocumentsTotal.WithLabelValues("indexed").Add(float64(report.Indexed))
	s.metrics.reindexDocumentsTotal.WithLabelValues("failed").Add(float64(report.Failed))

	writeJSON(w, http.StatusOK, reindexResponse{
		Indexed: report.Indexed,
		Failed:  report.Failed,
	})
}
