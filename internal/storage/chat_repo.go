package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionStore defines the interface for chat session storage operations.
type SessionStore interface {
	// Insert inserts a new session. The session.ID must be set before calling.
	Insert(ctx context.Context, session *ChatSession) error
	// GetByID gets a session by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChatSession, error)
	// List returns all sessions ordered by updated time, newest first.
	List(ctx context.Context) ([]*ChatSession, error)
	// Touch advances a session's updated timestamp.
	Touch(ctx context.Context, id string, updatedAt time.Time) error
	// Delete removes a session. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// MessageStore defines the interface for chat message storage operations.
// Messages are append-only; they are never mutated or deleted individually.
type MessageStore interface {
	// Insert appends a message to its session. The message.ID must be set.
	Insert(ctx context.Context, msg *ChatMessage) error
	// ListBySession returns all messages for a session in creation order.
	ListBySession(ctx context.Context, sessionID string) ([]*ChatMessage, error)
	// DeleteBySession removes all messages of a session (cascade delete).
	DeleteBySession(ctx context.Context, sessionID string) error
}

// SessionRepo provides methods for chat session operations.
// It implements the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Insert inserts a new session.
func (r *SessionRepo) Insert(ctx context.Context, session *ChatSession) error {
	metadata, err := encodeMetadata(session.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, title, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.Title, metadata, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetByID gets a session by its ID. Returns ErrNotFound if not found.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*ChatSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, metadata, created_at, updated_at
		 FROM chat_sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return session, nil
}

// List returns all sessions ordered by updated time, newest first.
func (r *SessionRepo) List(ctx context.Context) ([]*ChatSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, metadata, created_at, updated_at
		 FROM chat_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sessions []*ChatSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

// Touch advances a session's updated timestamp.
func (r *SessionRepo) Touch(ctx context.Context, id string, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
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

// Delete removes a session. Returns ErrNotFound if it does not exist.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
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

// MessageRepo provides methods for chat message operations.
// It implements the MessageStore interface.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert appends a message to its session.
func (r *MessageRepo) Insert(ctx context.Context, msg *ChatMessage) error {
	metadata, err := encodeMetadata(msg.Metadata)
	if err != nil {
		return err
	}
	refs, err := encodeStringList(msg.References)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, metadata, refs, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, metadata, refs, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListBySession returns all messages for a session in creation order.
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID string) ([]*ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, metadata, refs, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var messages []*ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return messages, nil
}

// DeleteBySession removes all messages of a session.
func (r *MessageRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete messages by session: %w", err)
	}
	return nil
}

// scanSession rehydrates a ChatSession from a row, validating the JSON metadata.
func scanSession(row rowScanner) (*ChatSession, error) {
	var session ChatSession
	var metadata string

	err := row.Scan(&session.ID, &session.Title, &metadata, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if session.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &session, nil
}

// scanMessage rehydrates a ChatMessage from a row, validating the JSON columns.
func scanMessage(row rowScanner) (*ChatMessage, error) {
	var msg ChatMessage
	var metadata, refs string

	err := row.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &metadata, &refs, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	if msg.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	if msg.References, err = decodeStringList(refs); err != nil {
		return nil, err
	}
	return &msg, nil
}
