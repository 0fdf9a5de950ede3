package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ragstack/internal/handlers"
	"ragstack/internal/rag"
	"ragstack/internal/service"
	"ragstack/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DocumentService   *service.DocumentService
	GenerationService *service.GenerationService
	SearchEngine      rag.Engine
	DB                *sql.DB
	VectorStore       vectorstore.VectorStore
	Collection        string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	documentsHandler := handlers.NewDocumentsHandler(deps.DocumentService)
	chunksHandler := handlers.NewChunksHandler(deps.DocumentService)
	searchHandler := handlers.NewSearchHandler(deps.SearchEngine)
	chatHandler := handlers.NewChatHandler(deps.GenerationService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.Collection)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentsHandler.Create)
			r.Get("/", documentsHandler.List)
			r.Get("/{id}", documentsHandler.Get)
			r.Put("/{id}", documentsHandler.Update)
			r.Delete("/{id}", documentsHandler.Delete)
		})

		r.Get("/embeddings/chunks/{document_id}", chunksHandler.ListByDocument)

		r.Method(http.MethodPost, "/search", searchHandler)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/generate", chatHandler.Generate)
			r.Post("/sessions", chatHandler.CreateSession)
			r.Get("/sessions", chatHandler.ListSessions)
			r.Get("/sessions/{id}/messages", chatHandler.SessionMessages)
			r.Delete("/sessions/{id}", chatHandler.DeleteSession)
		})
	})

	r.Method(http.MethodGet, "/health", healthHandler)

	return r
}
