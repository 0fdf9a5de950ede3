package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ragstack/internal/contextutil"
	"ragstack/internal/service"
	"ragstack/internal/storage"
)

// DocumentsHandler handles HTTP requests for document management.
type DocumentsHandler struct {
	documents *service.DocumentService
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(documents *service.DocumentService) *DocumentsHandler {
	return &DocumentsHandler{documents: documents}
}

// CreateDocumentRequest represents the HTTP request payload for creating a document.
type CreateDocumentRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Markdown bool           `json:"markdown,omitempty"`
	// ProcessEmbeddings defaults to true when omitted.
	ProcessEmbeddings *bool `json:"process_embeddings,omitempty"`
}

// UpdateDocumentRequest represents the HTTP request payload for updating a document.
type UpdateDocumentRequest struct {
	Title     *string        `json:"title,omitempty"`
	Content   *string        `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Markdown  bool           `json:"markdown,omitempty"`
	Reprocess *bool          `json:"reprocess,omitempty"`
}

// DocumentResponse represents a document in HTTP responses.
type DocumentResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	ChunkIDs  []string       `json:"chunk_ids"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ListDocumentsResponse is one page of documents.
type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
	Skip      int                `json:"skip"`
	Limit     int                `json:"limit"`
}

func toDocumentResponse(doc *storage.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		Metadata:  doc.Metadata,
		ChunkIDs:  doc.ChunkIDs,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// Create handles POST /documents.
func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	processEmbeddings := true
	if req.ProcessEmbeddings != nil {
		processEmbeddings = *req.ProcessEmbeddings
	}

	doc, err := h.documents.Create(ctx, service.CreateDocumentRequest{
		Title:             req.Title,
		Content:           req.Content,
		Metadata:          req.Metadata,
		Markdown:          req.Markdown,
		ProcessEmbeddings: processEmbeddings,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create document")
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// List handles GET /documents with skip/limit pagination and an optional
// title substring filter.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	skip := parseIntParam(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit := parseIntParam(r, "limit", 10)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	resp, err := h.documents.List(ctx, service.ListDocumentsRequest{
		Skip:  skip,
		Limit: limit,
		Title: r.URL.Query().Get("title"),
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list documents")
		return
	}

	documents := make([]DocumentResponse, len(resp.Documents))
	for i, doc := range resp.Documents {
		documents[i] = toDocumentResponse(doc)
	}

	writeJSON(w, http.StatusOK, ListDocumentsResponse{
		Documents: documents,
		Total:     resp.Total,
		Skip:      skip,
		Limit:     limit,
	})
}

// Get handles GET /documents/{id}.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := h.documents.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// Update handles PUT /documents/{id}.
func (h *DocumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Content changes reprocess by default; metadata-only updates do not.
	reprocess := req.Content != nil
	if req.Reprocess != nil {
		reprocess = *req.Reprocess
	}

	doc, err := h.documents.Update(ctx, chi.URLParam(r, "id"), service.UpdateDocumentRequest{
		Title:     req.Title,
		Content:   req.Content,
		Metadata:  req.Metadata,
		Markdown:  req.Markdown,
		Reprocess: reprocess,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to update document")
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// Delete handles DELETE /documents/{id}.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.documents.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam reads an integer query parameter with a fallback.
func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
