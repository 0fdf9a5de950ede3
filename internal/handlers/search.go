package handlers

import (
	"encoding/json"
	"net/http"

	"ragstack/internal/contextutil"
	"ragstack/internal/rag"
)

// SearchHandler handles HTTP requests for semantic search.
type SearchHandler struct {
	engine rag.Engine
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(engine rag.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// SearchRequest represents the HTTP request payload for semantic search.
type SearchRequest struct {
	Query          string         `json:"query"`
	TopK           int            `json:"top_k,omitempty"`
	FilterMetadata map[string]any `json:"filter_metadata,omitempty"`
}

// SearchResultResponse represents one search hit.
type SearchResultResponse struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	Score      float64        `json:"score"`
}

// SearchResponse represents the HTTP response payload for semantic search.
type SearchResponse struct {
	Results []SearchResultResponse `json:"results"`
	Query   string                 `json:"query"`
	Total   int                    `json:"total"`
}

// ServeHTTP handles POST /search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Query == "" {
		logger.WarnContext(ctx, "empty query in search request")
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.TopK < 0 {
		req.TopK = 0
	}
	if req.TopK > 20 {
		req.TopK = 20
	}

	results, err := h.engine.Search(ctx, rag.SearchRequest{
		Query:  req.Query,
		TopK:   req.TopK,
		Filter: req.FilterMetadata,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to search")
		return
	}

	responses := make([]SearchResultResponse, len(results))
	for i, result := range results {
		responses[i] = SearchResultResponse{
			ChunkID:    result.ChunkID,
			DocumentID: result.DocumentID,
			Text:       result.Text,
			Metadata:   result.Metadata,
			Score:      result.Score,
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results: responses,
		Query:   req.Query,
		Total:   len(responses),
	})
}
