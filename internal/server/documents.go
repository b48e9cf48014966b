package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voxidesk/voxi-go/internal/docstore"
	"github.com/voxidesk/voxi-go/internal/logging"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// handleDocumentCreate handles POST /api/documents. The document is stored,
// embedded, and indexed; an embedding failure still creates the document and
// is reported as 202 so the caller knows a reindex sweep will finish the job.
func (s *Server) handleDocumentCreate(w http.ResponseWriter, r *http.Request) {
	var req documentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := s.ingestor.AddDocument(r.Context(), req.Title, req.Content)
	switch {
	case errors.Is(err, docstore.ErrEmptyTitle):
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	case errors.Is(err, docstore.ErrEmptyContent):
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	case err != nil && doc.ID != "":
		// Stored but not indexed — searchable again after the next reindex.
		logging.FromContext(r.Context()).Warn("document stored without vector",
			slog.String("doc_id", doc.ID),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusAccepted, toDocumentResponse(doc))
		return
	case err != nil:
		logging.FromContext(r.Context()).Error("document create failed", slog.Any("error", err))
		http.Error(w, "failed to create document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// handleDocumentList handles GET /api/documents, returning all documents
// newest first.
func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.library.ListDocuments(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("document list failed", slog.Any("error", err))
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}

	resp := documentListResponse{Documents: make([]documentResponse, 0, len(docs))}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDocumentGet handles GET /api/documents/{id}.
func (s *Server) handleDocumentGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	doc, err := s.library.GetDocument(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("document get failed", slog.Any("error", err))
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleDocumentDelete handles DELETE /api/documents/{id}, removing the
// document from the store and its vector from the index.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.ingestor.DeleteDocument(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("document delete failed",
			slog.String("doc_id", id),
			slog.Any("error", err),
		)
		http.Error(w, "failed to delete document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toDocumentResponse converts a stored document to its wire representation.
func toDocumentResponse(d rag.Document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
