package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks ragstack/internal/indexer Embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ragstack/internal/contextutil"
	"ragstack/internal/storage"
	"ragstack/internal/vectorstore"
)

// Embedder turns a batch of texts into vectors, one per text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline embeds chunks and writes them to the durable chunk store and the
// vector index, keeping the two consistent. A chunk record's vector id is set
// only after its vector is confirmed in the index.
type Pipeline struct {
	chunks     storage.ChunkStore
	embedder   Embedder
	vectors    vectorstore.VectorStore
	collection string
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(chunks storage.ChunkStore, embedder Embedder, vectors vectorstore.VectorStore, collection string) *Pipeline {
	return &Pipeline{
		chunks:     chunks,
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
	}
}

// IndexChunks embeds the chunks in one batch and writes them through both
// stores. On success it returns the new chunk record ids in chunk order.
//
// The write is two-phase: records are inserted pending (no vector id), the
// vectors are upserted in one batch, then each record is finalized with its
// vector id. A failure before the upsert leaves nothing behind; a failed
// upsert deletes the pending records so no record ever claims a vector that
// is not in the index.
func (p *Pipeline) IndexChunks(ctx context.Context, chunks []Chunk) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vecs, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vecs))
	}

	now := time.Now().UTC()
	chunkIDs := make([]string, len(chunks))
	vectorIDs := make([]string, len(chunks))
	points := make([]vectorstore.Point, len(chunks))

	for i, chunk := range chunks {
		chunkIDs[i] = uuid.NewString()
		vectorIDs[i] = uuid.NewString()

		meta := make(map[string]any, len(chunk.Metadata)+2)
		for k, v := range chunk.Metadata {
			meta[k] = v
		}
		meta["document_id"] = chunk.DocumentID
		meta["chunk_index"] = i

		points[i] = vectorstore.Point{
			ID:   vectorIDs[i],
			Vec:  vecs[i],
			Text: chunk.Text,
			Meta: meta,
		}
	}

	for i, chunk := range chunks {
		record := &storage.ChunkRecord{
			ID:         chunkIDs[i],
			DocumentID: chunk.DocumentID,
			ChunkIndex: i,
			Text:       chunk.Text,
			Metadata:   chunk.Metadata,
			CreatedAt:  now,
		}
		if err := p.chunks.Insert(ctx, record); err != nil {
			p.compensate(ctx, chunkIDs[:i])
			return nil, fmt.Errorf("failed to insert chunk record: %w", err)
		}
	}

	if err := p.vectors.Upsert(ctx, p.collection, points); err != nil {
		p.compensate(ctx, chunkIDs)
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	for i := range chunks {
		if err := p.chunks.SetVectorID(ctx, chunkIDs[i], vectorIDs[i]); err != nil {
			return nil, fmt.Errorf("failed to finalize chunk record: %w", err)
		}
	}

	logger.InfoContext(ctx, "indexed chunks", "document_id", chunks[0].DocumentID, "count", len(chunks))
	return chunkIDs, nil
}

// compensate removes pending chunk records after a failed write so the
// durable store never references vectors that were not confirmed.
func (p *Pipeline) compensate(ctx context.Context, chunkIDs []string) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunkIDs) == 0 {
		return
	}
	if err := p.chunks.Delete(ctx, chunkIDs); err != nil {
		logger.ErrorContext(ctx, "failed to remove pending chunk records", "count", len(chunkIDs), "error", err)
	}
}

// DeindexDocument removes a document's vectors from the index and its chunk
// records from the store. It reports whether anything was removed; calling it
// for a document with no chunks is not an error, so the operation is safe to
// retry.
//
// Vectors are deleted before records. If the record delete then fails, the
// leftover records have dangling vector ids, which retrieval tolerates, and a
// retry completes the removal.
func (p *Pipeline) DeindexDocument(ctx context.Context, documentID string) (bool, error) {
	logger := contextutil.LoggerFromContext(ctx)

	records, err := p.chunks.ListByDocument(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("failed to list chunk records: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}

	vectorIDs := make([]string, 0, len(records))
	for _, record := range records {
		if record.VectorID != "" {
			vectorIDs = append(vectorIDs, record.VectorID)
		}
	}

	if len(vectorIDs) > 0 {
		if err := p.vectors.Delete(ctx, p.collection, vectorIDs); err != nil {
			return false, fmt.Errorf("failed to delete vectors: %w", err)
		}
	}

	removed, err := p.chunks.DeleteByDocument(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete chunk records: %w", err)
	}

	logger.InfoContext(ctx, "deindexed document", "document_id", documentID, "records", removed, "vectors", len(vectorIDs))
	return true, nil
}
