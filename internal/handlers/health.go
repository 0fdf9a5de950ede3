package handlers

import (
	"database/sql"
	"net/http"

	"ragstack/internal/contextutil"
	"ragstack/internal/vectorstore"
)

// HealthHandler reports service health including its backing stores.
type HealthHandler struct {
	db         *sql.DB
	vectors    vectorstore.VectorStore
	collection string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB, vectors vectorstore.VectorStore, collection string) *HealthHandler {
	return &HealthHandler{
		db:         db,
		vectors:    vectors,
		collection: collection,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	VectorStore string `json:"vector_store"`
}

// ServeHTTP handles GET /health. Degraded dependencies report 503 with the
// per-store status so operators can see which side is down.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	resp := HealthResponse{
		Status:      "ok",
		Database:    "ok",
		VectorStore: "ok",
	}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		logger.ErrorContext(ctx, "database health check failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if _, err := h.vectors.Count(ctx, h.collection); err != nil {
		logger.ErrorContext(ctx, "vector store health check failed", "error", err)
		resp.Status = "degraded"
		resp.VectorStore = "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
