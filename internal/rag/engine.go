package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks ragstack/internal/rag Engine

import (
	"context"
	"errors"
	"fmt"

	"ragstack/internal/contextutil"
	"ragstack/internal/indexer"
	"ragstack/internal/storage"
	"ragstack/internal/vectorstore"
)

// Engine answers semantic search queries against the indexed chunks.
type Engine interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// SearchEngine implements Engine over a vector index and the durable chunk
// store. Hits come from the index; each hit is resolved back to its chunk
// record so callers get authoritative ids.
type SearchEngine struct {
	embedder   indexer.Embedder
	vectors    vectorstore.VectorStore
	chunks     storage.ChunkStore
	collection string
}

// NewSearchEngine creates a new search engine.
func NewSearchEngine(embedder indexer.Embedder, vectors vectorstore.VectorStore, chunks storage.ChunkStore, collection string) *SearchEngine {
	return &SearchEngine{
		embedder:   embedder,
		vectors:    vectors,
		chunks:     chunks,
		collection: collection,
	}
}

// Search embeds the query, finds its nearest chunks, and resolves each hit to
// its durable record. Results keep the index's nearest-first order and carry
// the index's denormalized text; only the identity comes from the record. A
// hit whose record is missing is kept with an empty ChunkID rather than
// dropped.
func (e *SearchEngine) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vecs, err := e.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}

	hits, err := e.vectors.Search(ctx, e.collection, vecs[0], topK, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := SearchResult{
			Text:     hit.Text,
			Metadata: hit.Meta,
			Score:    clampScore(1 - float64(hit.Distance)),
		}
		if documentID, ok := hit.Meta["document_id"].(string); ok {
			result.DocumentID = documentID
		}

		record, err := e.chunks.GetByVectorID(ctx, hit.VectorID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// The index returned a vector with no durable record behind it.
			// Surface the hit anyway and leave the drift to be repaired by a
			// reindex of the document.
			logger.WarnContext(ctx, "vector has no chunk record", "vector_id", hit.VectorID)
		case err != nil:
			return nil, fmt.Errorf("failed to resolve chunk record: %w", err)
		default:
			result.ChunkID = record.ID
			result.DocumentID = record.DocumentID
		}

		results = append(results, result)
	}

	logger.InfoContext(ctx, "search completed", "top_k", topK, "results", len(results))
	return results, nil
}

// clampScore bounds a similarity score to [0, 1]. Cosine distance ranges over
// [0, 2], so opposite-direction vectors would otherwise score negative.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
