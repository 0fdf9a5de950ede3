package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ragstack/internal/service"
)

// ChunksHandler handles HTTP requests for inspecting stored chunks.
type ChunksHandler struct {
	documents *service.DocumentService
}

// NewChunksHandler creates a new ChunksHandler.
func NewChunksHandler(documents *service.DocumentService) *ChunksHandler {
	return &ChunksHandler{documents: documents}
}

// ChunkResponse represents a stored chunk record in HTTP responses.
type ChunkResponse struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	Indexed    bool           `json:"indexed"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ListChunksResponse is one page of a document's chunks.
type ListChunksResponse struct {
	Chunks []ChunkResponse `json:"chunks"`
	Total  int             `json:"total"`
	Skip   int             `json:"skip"`
	Limit  int             `json:"limit"`
}

// ListByDocument handles GET /chunks/{document_id}.
func (h *ChunksHandler) ListByDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.documents.Chunks(ctx, chi.URLParam(r, "document_id"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list chunks")
		return
	}

	skip := parseIntParam(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit := parseIntParam(r, "limit", 50)
	if limit < 1 {
		limit = 1
	}

	total := len(records)
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	chunks := make([]ChunkResponse, 0, end-skip)
	for _, record := range records[skip:end] {
		chunks = append(chunks, ChunkResponse{
			ID:         record.ID,
			DocumentID: record.DocumentID,
			ChunkIndex: record.ChunkIndex,
			Text:       record.Text,
			Metadata:   record.Metadata,
			Indexed:    record.VectorID != "",
			CreatedAt:  record.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, ListChunksResponse{
		Chunks: chunks,
		Total:  total,
		Skip:   skip,
		Limit:  limit,
	})
}
