package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"ragstack/internal/indexer"
	"ragstack/internal/service/mocks"
	"ragstack/internal/storage"
	storagemocks "ragstack/internal/storage/mocks"
)

func newTestChunker(t *testing.T) *indexer.Chunker {
	t.Helper()
	chunker, err := indexer.NewChunker(indexer.DefaultChunkSize, indexer.DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}
	return chunker
}

func TestDocumentService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	chunkStore := storagemocks.NewMockChunkStore(ctrl)
	idx := mocks.NewMockIndexer(ctrl)

	var insertedDoc *storage.Document
	documentStore.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *storage.Document) error {
			insertedDoc = doc
			return nil
		})

	idx.EXPECT().
		IndexChunks(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, chunks []indexer.Chunk) ([]string, error) {
			if len(chunks) != 1 {
				t.Fatalf("IndexChunks() received %d chunks, want 1", len(chunks))
			}
			if chunks[0].Metadata["title"] != "My Doc" {
				t.Errorf("chunk metadata missing title, got %v", chunks[0].Metadata)
			}
			if chunks[0].Metadata["source"] != "upload" {
				t.Errorf("chunk metadata missing document metadata, got %v", chunks[0].Metadata)
			}
			return []string{"chunk-1"}, nil
		})

	documentStore.EXPECT().
		SetChunkIDs(gomock.Any(), gomock.Any(), []string{"chunk-1"}).
		Return(nil)

	svc := NewDocumentService(documentStore, chunkStore, newTestChunker(t), idx)
	doc, err := svc.Create(context.Background(), CreateDocumentRequest{
		Title:             "My Doc",
		Content:           "Some content to index.",
		Metadata:          map[string]any{"source": "upload"},
		ProcessEmbeddings: true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if doc.ID == "" {
		t.Error("Create() document has no id")
	}
	if insertedDoc == nil || insertedDoc.ID != doc.ID {
		t.Error("Create() inserted document mismatch")
	}
	if len(doc.ChunkIDs) != 1 || doc.ChunkIDs[0] != "chunk-1" {
		t.Errorf("Create() chunk ids = %v, want [chunk-1]", doc.ChunkIDs)
	}
}

func TestDocumentService_Create_WithoutEmbeddings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	documentStore.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	svc := NewDocumentService(documentStore, storagemocks.NewMockChunkStore(ctrl), newTestChunker(t), mocks.NewMockIndexer(ctrl))
	doc, err := svc.Create(context.Background(), CreateDocumentRequest{
		Title:   "My Doc",
		Content: "Some content.",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(doc.ChunkIDs) != 0 {
		t.Errorf("Create() chunk ids = %v, want none", doc.ChunkIDs)
	}
}

func TestDocumentService_Create_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewDocumentService(
		storagemocks.NewMockDocumentStore(ctrl),
		storagemocks.NewMockChunkStore(ctrl),
		newTestChunker(t),
		mocks.NewMockIndexer(ctrl),
	)

	tests := []struct {
		name string
		req  CreateDocumentRequest
	}{
		{name: "empty title", req: CreateDocumentRequest{Content: "content"}},
		{name: "empty content", req: CreateDocumentRequest{Title: "title"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("Create() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestDocumentService_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	documentStore.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)

	svc := NewDocumentService(documentStore, storagemocks.NewMockChunkStore(ctrl), newTestChunker(t), mocks.NewMockIndexer(ctrl))
	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentService_Update_Reprocess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	idx := mocks.NewMockIndexer(ctrl)

	existing := &storage.Document{
		ID:       "doc-1",
		Title:    "Old Title",
		Content:  "Old content.",
		ChunkIDs: []string{"old-chunk"},
	}
	documentStore.EXPECT().GetByID(gomock.Any(), "doc-1").Return(existing, nil)
	documentStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	// Reprocess removes the old chunks, clears the list, then indexes anew.
	idx.EXPECT().DeindexDocument(gomock.Any(), "doc-1").Return(true, nil)
	documentStore.EXPECT().SetChunkIDs(gomock.Any(), "doc-1", nil).Return(nil)
	idx.EXPECT().IndexChunks(gomock.Any(), gomock.Any()).Return([]string{"new-chunk"}, nil)
	documentStore.EXPECT().SetChunkIDs(gomock.Any(), "doc-1", []string{"new-chunk"}).Return(nil)

	svc := NewDocumentService(documentStore, storagemocks.NewMockChunkStore(ctrl), newTestChunker(t), idx)

	newContent := "New content."
	doc, err := svc.Update(context.Background(), "doc-1", UpdateDocumentRequest{
		Content:   &newContent,
		Reprocess: true,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if doc.Content != "New content." {
		t.Errorf("Update() content = %q, want new content", doc.Content)
	}
	if len(doc.ChunkIDs) != 1 || doc.ChunkIDs[0] != "new-chunk" {
		t.Errorf("Update() chunk ids = %v, want [new-chunk]", doc.ChunkIDs)
	}
}

func TestDocumentService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	idx := mocks.NewMockIndexer(ctrl)

	// Derived data goes before the document row.
	gomock.InOrder(
		idx.EXPECT().DeindexDocument(gomock.Any(), "doc-1").Return(true, nil),
		documentStore.EXPECT().Delete(gomock.Any(), "doc-1").Return(nil),
	)

	svc := NewDocumentService(documentStore, storagemocks.NewMockChunkStore(ctrl), newTestChunker(t), idx)
	if err := svc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestDocumentService_Delete_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	idx := mocks.NewMockIndexer(ctrl)

	idx.EXPECT().DeindexDocument(gomock.Any(), "missing").Return(false, nil)
	documentStore.EXPECT().Delete(gomock.Any(), "missing").Return(storage.ErrNotFound)

	svc := NewDocumentService(documentStore, storagemocks.NewMockChunkStore(ctrl), newTestChunker(t), idx)
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentService_Chunks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	chunkStore := storagemocks.NewMockChunkStore(ctrl)

	documentStore.EXPECT().GetByID(gomock.Any(), "doc-1").Return(&storage.Document{ID: "doc-1"}, nil)
	chunkStore.EXPECT().ListByDocument(gomock.Any(), "doc-1").Return([]*storage.ChunkRecord{
		{ID: "c-1", ChunkIndex: 0},
		{ID: "c-2", ChunkIndex: 1},
	}, nil)

	svc := NewDocumentService(documentStore, chunkStore, newTestChunker(t), mocks.NewMockIndexer(ctrl))
	records, err := svc.Chunks(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Chunks() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Chunks() returned %d records, want 2", len(records))
	}
}
