package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_indexer.go -package=mocks ragstack/internal/service Indexer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ragstack/internal/contextutil"
	"ragstack/internal/indexer"
	"ragstack/internal/storage"
	"ragstack/internal/textutil"
)

// Indexer writes chunks through the vector index and the chunk store, and
// removes them again. This interface is defined from the service layer's
// perspective (consumer-first).
type Indexer interface {
	// IndexChunks embeds and indexes the chunks, returning their new chunk
	// record ids in chunk order.
	IndexChunks(ctx context.Context, chunks []indexer.Chunk) ([]string, error)
	// DeindexDocument removes a document's vectors and chunk records,
	// reporting whether anything was removed.
	DeindexDocument(ctx context.Context, documentID string) (bool, error)
}

// CreateDocumentRequest carries a new document's content.
type CreateDocumentRequest struct {
	Title    string
	Content  string
	Metadata map[string]any
	// Markdown marks the content as markdown; it is stripped to plain text
	// before chunking, while the stored document keeps the original.
	Markdown bool
	// ProcessEmbeddings controls whether the document is chunked and indexed
	// on creation. Defaults to true at the API boundary.
	ProcessEmbeddings bool
}

// UpdateDocumentRequest carries replacement fields for an existing document.
// Nil fields are left unchanged.
type UpdateDocumentRequest struct {
	Title    *string
	Content  *string
	Metadata map[string]any
	Markdown bool
	// Reprocess re-chunks and re-indexes the document after the update.
	Reprocess bool
}

// ListDocumentsRequest controls document listing.
type ListDocumentsRequest struct {
	Skip  int
	Limit int
	Title string
}

// ListDocumentsResponse is one page of documents plus the filtered total.
type ListDocumentsResponse struct {
	Documents []*storage.Document
	Total     int
}

// DocumentService owns the document lifecycle: persistence plus the derived
// chunks and vectors kept in step with the content.
type DocumentService struct {
	documents storage.DocumentStore
	chunks    storage.ChunkStore
	chunker   *indexer.Chunker
	indexer   Indexer
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documents storage.DocumentStore, chunks storage.ChunkStore, chunker *indexer.Chunker, idx Indexer) *DocumentService {
	return &DocumentService{
		documents: documents,
		chunks:    chunks,
		chunker:   chunker,
		indexer:   idx,
	}
}

// Create persists a new document and, when requested, chunks and indexes its
// content. The document's chunk id list is set only after indexing succeeds;
// a document whose indexing failed has an empty list and can be reprocessed
// via Update.
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*storage.Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	if req.Content == "" {
		return nil, &ValidationError{Field: "content", Message: "cannot be empty"}
	}

	now := time.Now().UTC()
	doc := &storage.Document{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   req.Content,
		Metadata:  req.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.documents.Insert(ctx, doc); err != nil {
		return nil, WrapError(err, "failed to insert document")
	}

	if req.ProcessEmbeddings {
		chunkIDs, err := s.index(ctx, doc, req.Markdown)
		if err != nil {
			return nil, WrapError(err, "failed to index document")
		}
		doc.ChunkIDs = chunkIDs
	}

	logger.InfoContext(ctx, "document created", "document_id", doc.ID, "chunks", len(doc.ChunkIDs))
	return doc, nil
}

// Get returns a document by id.
func (s *DocumentService) Get(ctx context.Context, id string) (*storage.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to get document")
	}
	return doc, nil
}

// List returns one page of documents, newest first, with the filtered total.
func (s *DocumentService) List(ctx context.Context, req ListDocumentsRequest) (*ListDocumentsResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Skip < 0 {
		req.Skip = 0
	}

	docs, err := s.documents.List(ctx, storage.ListDocumentsOptions{
		Skip:  req.Skip,
		Limit: req.Limit,
		Title: req.Title,
	})
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}

	total, err := s.documents.Count(ctx, req.Title)
	if err != nil {
		return nil, WrapError(err, "failed to count documents")
	}

	return &ListDocumentsResponse{Documents: docs, Total: total}, nil
}

// Chunks returns the stored chunk records of a document, ordered by chunk
// index. The document must exist.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]*storage.ChunkRecord, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}

	records, err := s.chunks.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, WrapError(err, "failed to list chunks")
	}
	return records, nil
}

// Update replaces document fields and, when reprocessing, rebuilds its chunks
// and vectors from the new content. The old chunks are removed before the new
// ones are written; a failure in between leaves the document unindexed with
// an empty chunk id list.
func (s *DocumentService) Update(ctx context.Context, id string, req UpdateDocumentRequest) (*storage.Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, &ValidationError{Field: "title", Message: "cannot be empty"}
		}
		doc.Title = *req.Title
	}
	if req.Content != nil {
		if *req.Content == "" {
			return nil, &ValidationError{Field: "content", Message: "cannot be empty"}
		}
		doc.Content = *req.Content
	}
	if req.Metadata != nil {
		doc.Metadata = req.Metadata
	}
	doc.UpdatedAt = time.Now().UTC()

	if err := s.documents.Update(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, WrapError(err, "failed to update document")
	}

	if req.Reprocess {
		if _, err := s.indexer.DeindexDocument(ctx, id); err != nil {
			return nil, WrapError(err, "failed to deindex document")
		}
		if err := s.documents.SetChunkIDs(ctx, id, nil); err != nil {
			return nil, WrapError(err, "failed to clear chunk ids")
		}
		doc.ChunkIDs = nil

		chunkIDs, err := s.index(ctx, doc, req.Markdown)
		if err != nil {
			return nil, WrapError(err, "failed to reindex document")
		}
		doc.ChunkIDs = chunkIDs
	}

	logger.InfoContext(ctx, "document updated", "document_id", id, "reprocessed", req.Reprocess)
	return doc, nil
}

// Delete removes a document together with its chunks and vectors. The
// derived data goes first so a partial failure leaves the document visible
// and the delete retryable.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := s.indexer.DeindexDocument(ctx, id); err != nil {
		return WrapError(err, "failed to deindex document")
	}

	if err := s.documents.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return WrapError(err, "failed to delete document")
	}

	logger.InfoContext(ctx, "document deleted", "document_id", id)
	return nil
}

// index chunks the document's content and writes the chunks through the
// indexer, recording the resulting chunk ids on the document.
func (s *DocumentService) index(ctx context.Context, doc *storage.Document, markdown bool) ([]string, error) {
	text := doc.Content
	if markdown {
		text = textutil.StripMarkdown([]byte(doc.Content))
	}

	meta := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["title"] = doc.Title

	chunks := s.chunker.Chunk(doc.ID, text, meta)
	chunkIDs, err := s.indexer.IndexChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if err := s.documents.SetChunkIDs(ctx, doc.ID, chunkIDs); err != nil {
		return nil, WrapError(err, "failed to set chunk ids")
	}
	return chunkIDs, nil
}
