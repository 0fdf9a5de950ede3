package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"ragstack/internal/config"
	"ragstack/internal/http"
	"ragstack/internal/indexer"
	"ragstack/internal/llm"
	"ragstack/internal/rag"
	"ragstack/internal/service"
	"ragstack/internal/storage"
	"ragstack/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	sessionRepo := storage.NewSessionRepo(db)
	messageRepo := storage.NewMessageRepo(db)

	// Initialize Qdrant vector store
	ctx := context.Background()

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.OpenRouterURL, cfg.OpenRouterAPIKey, cfg.EmbeddingModel, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Create chunker and indexing pipeline
	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}
	pipeline := indexer.NewPipeline(chunkRepo, embedder, vectorStore, cfg.QdrantCollection)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.OpenRouterURL, cfg.OpenRouterAPIKey, cfg.LLMModel)

	// Create search engine and services
	searchEngine := rag.NewSearchEngine(embedder, vectorStore, chunkRepo, cfg.QdrantCollection)
	documentService := service.NewDocumentService(documentRepo, chunkRepo, chunker, pipeline)
	generationService := service.NewGenerationService(sessionRepo, messageRepo, searchEngine, llmClient, cfg.LLMModel)
	slog.Info("Services initialized", "llm_model", cfg.LLMModel, "embedding_model", cfg.EmbeddingModel)

	// Create router with dependencies
	deps := &http.Deps{
		DocumentService:   documentService,
		GenerationService: generationService,
		SearchEngine:      searchEngine,
		DB:                db,
		VectorStore:       vectorStore,
		Collection:        cfg.QdrantCollection,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.OpenRouterURL, "model", cfg.LLMModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
