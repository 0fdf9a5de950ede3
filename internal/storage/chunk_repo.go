package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for chunk record storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk record. The record.ID must be set before
	// calling. A record inserted with an empty VectorID is pending: its
	// vector has not been confirmed in the index yet.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// SetVectorID finalizes a pending record by attaching its vector key.
	SetVectorID(ctx context.Context, id, vectorID string) error
	// GetByID gets a chunk record by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// GetByVectorID gets the chunk record owning a vector key.
	// Returns ErrNotFound if no record has that key.
	GetByVectorID(ctx context.Context, vectorID string) (*ChunkRecord, error)
	// ListByDocument returns all chunk records for a document, ordered by
	// chunk index. An empty slice is not an error.
	ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error)
	// Delete removes chunk records by id. Used to compensate a failed index
	// upsert; deleting ids that do not exist is not an error.
	Delete(ctx context.Context, ids []string) error
	// DeleteByDocument removes all chunk records for a document and reports
	// how many were removed.
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
}

// ChunkRepo provides methods for chunk record operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk record.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	metadata, err := encodeMetadata(chunk.Metadata)
	if err != nil {
		return err
	}

	var vectorID any
	if chunk.VectorID != "" {
		vectorID = chunk.VectorID
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, text, metadata, vector_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Text, metadata, vectorID, chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// SetVectorID finalizes a pending record by attaching its vector key.
func (r *ChunkRepo) SetVectorID(ctx context.Context, id, vectorID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chunks SET vector_id = ? WHERE id = ?`, vectorID, id)
	if err != nil {
		return fmt.Errorf("failed to set vector id: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID gets a chunk record by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, document_id, chunk_index, text, metadata, vector_id, created_at
		 FROM chunks WHERE id = ?`, id)

	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	return chunk, nil
}

// GetByVectorID gets the chunk record owning a vector key.
func (r *ChunkRepo) GetByVectorID(ctx context.Context, vectorID string) (*ChunkRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, document_id, chunk_index, text, metadata, vector_id, created_at
		 FROM chunks WHERE vector_id = ?`, vectorID)

	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk by vector id: %w", err)
	}
	return chunk, nil
}

// ListByDocument returns all chunk records for a document, ordered by chunk index.
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, text, metadata, vector_id, created_at
		 FROM chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []*ChunkRecord
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return chunks, nil
}

// Delete removes chunk records by id.
func (r *ChunkRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// DeleteByDocument removes all chunk records for a document.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return removed, nil
}

// scanChunk rehydrates a ChunkRecord from a row, validating the JSON metadata.
func scanChunk(row rowScanner) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var metadata string
	var vectorID sql.NullString

	err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Text, &metadata, &vectorID, &chunk.CreatedAt)
	if err != nil {
		return nil, err
	}

	if chunk.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	if vectorID.Valid {
		chunk.VectorID = vectorID.String
	}
	return &chunk, nil
}
