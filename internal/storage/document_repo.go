package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_stores.go -package=mocks ragstack/internal/storage DocumentStore,ChunkStore,SessionStore,MessageStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ListDocumentsOptions controls pagination and filtering for document listing.
// Title, when non-empty, is matched as a case-insensitive substring.
type ListDocumentsOptions struct {
	Skip  int
	Limit int
	Title string
}

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Insert inserts a new document. The document.ID must be set before calling.
	Insert(ctx context.Context, doc *Document) error
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*Document, error)
	// List returns documents ordered by creation time, newest first.
	List(ctx context.Context, opts ListDocumentsOptions) ([]*Document, error)
	// Count counts documents matching the title filter (all when empty).
	Count(ctx context.Context, title string) (int, error)
	// Update replaces title, content, metadata and updated_at of an existing
	// document. Returns ErrNotFound if it does not exist.
	Update(ctx context.Context, doc *Document) error
	// SetChunkIDs replaces the ordered chunk id list of a document.
	SetChunkIDs(ctx context.Context, id string, chunkIDs []string) error
	// Delete removes a document. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert inserts a new document.
func (r *DocumentRepo) Insert(ctx context.Context, doc *Document) error {
	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	chunkIDs, err := encodeStringList(doc.ChunkIDs)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, metadata, chunk_ids, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, metadata, chunkIDs, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, metadata, chunk_ids, created_at, updated_at
		 FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// List returns documents ordered by creation time, newest first.
func (r *DocumentRepo) List(ctx context.Context, opts ListDocumentsOptions) ([]*Document, error) {
	query := `SELECT id, title, content, metadata, chunk_ids, created_at, updated_at
		 FROM documents`
	args := []any{}
	if opts.Title != "" {
		query += ` WHERE LOWER(title) LIKE '%' || LOWER(?) || '%'`
		args = append(args, opts.Title)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// Count counts documents matching the title filter (all when empty).
func (r *DocumentRepo) Count(ctx context.Context, title string) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	args := []any{}
	if title != "" {
		query += ` WHERE LOWER(title) LIKE '%' || LOWER(?) || '%'`
		args = append(args, title)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Update replaces title, content, metadata and updated_at of an existing document.
func (r *DocumentRepo) Update(ctx context.Context, doc *Document) error {
	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, content = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		doc.Title, doc.Content, metadata, doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
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

// SetChunkIDs replaces the ordered chunk id list of a document.
func (r *DocumentRepo) SetChunkIDs(ctx context.Context, id string, chunkIDs []string) error {
	encoded, err := encodeStringList(chunkIDs)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET chunk_ids = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("failed to set chunk ids: %w", err)
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

// Delete removes a document. Returns ErrNotFound if it does not exist.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument rehydrates a Document from a row, validating the JSON columns.
func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var metadata, chunkIDs string

	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &metadata, &chunkIDs, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if doc.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	if doc.ChunkIDs, err = decodeStringList(chunkIDs); err != nil {
		return nil, err
	}
	return &doc, nil
}
