package storage

import "time"

// Document is a source text owned by the store. ChunkIDs is the ordered,
// authoritative cross-reference to the indexed content derived from it.
type Document struct {
	ID        string
	Title     string
	Content   string
	Metadata  map[string]any
	ChunkIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChunkRecord is the durable record of one chunk of a document.
// VectorID joins the record to its vector entry in the index: when set, a
// vector with that key exists in the index; when empty, no vector exists for
// this record. The indexing pipeline is responsible for never leaving a
// finished operation in between those two states.
type ChunkRecord struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	Metadata   map[string]any
	VectorID   string
	CreatedAt  time.Time
}

// ChatSession groups chat messages. UpdatedAt advances exactly once per
// completed generation turn and drives session listing order.
type ChatSession struct {
	ID        string
	Title     string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is a single turn in a session. Immutable after creation.
// References holds the chunk record ids that informed an assistant turn.
type ChatMessage struct {
	ID         string
	SessionID  string
	Role       string
	Content    string
	Metadata   map[string]any
	References []string
	CreatedAt  time.Time
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
