package indexer

import (
	"fmt"
	"strings"

	"ragstack/internal/textutil"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk is one bounded segment of a document's text, the unit of retrieval.
type Chunk struct {
	DocumentID string
	Text       string
	Metadata   map[string]any
}

// ConfigurationError reports an invalid chunk size / overlap combination.
// It fails fast, before any I/O.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("chunker configuration error: %s", e.Message)
}

// Chunker splits normalized text into overlapping segments along paragraph
// boundaries.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. size is the soft cap on chunk length and
// overlap the number of trailing characters shared between consecutive
// chunks; overlap must satisfy 0 <= overlap < size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, &ConfigurationError{Message: fmt.Sprintf("chunk size must be positive, got %d", size)}
	}
	if overlap < 0 {
		return nil, &ConfigurationError{Message: fmt.Sprintf("chunk overlap must not be negative, got %d", overlap)}
	}
	if overlap >= size {
		return nil, &ConfigurationError{Message: fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", overlap, size)}
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk normalizes text and splits it into overlapping chunks.
//
// Text at most one chunk size long becomes a single chunk. Longer text is
// split on paragraph boundaries: paragraphs accumulate into a buffer, and
// when the next paragraph would push a non-empty buffer past the size cap the
// buffer is emitted and the next one is seeded with the tail overlap of the
// emitted chunk. A single paragraph longer than the chunk size is never split
// mid-paragraph; the size is a soft cap. Chunk order is emission order.
func (c *Chunker) Chunk(documentID, text string, metadata map[string]any) []Chunk {
	text = textutil.Normalize(text)

	if metadata == nil {
		metadata = map[string]any{}
	}

	if len([]rune(text)) <= c.size {
		return []Chunk{{
			DocumentID: documentID,
			Text:       text,
			Metadata:   metadata,
		}}
	}

	paragraphs := strings.Split(text, "\n\n")

	var chunks []Chunk
	current := ""

	emit := func(text string) {
		chunks = append(chunks, Chunk{
			DocumentID: documentID,
			Text:       strings.TrimSpace(text),
			Metadata:   metadata,
		})
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		currentRunes := []rune(current)
		if len(currentRunes)+len([]rune(paragraph)) > c.size && current != "" {
			emit(current)

			// Seed the next buffer with the tail of the emitted chunk so
			// consecutive chunks share context across the boundary.
			overlapStart := len(currentRunes) - c.overlap
			if overlapStart < 0 {
				overlapStart = 0
			}
			current = string(currentRunes[overlapStart:]) + "\n\n" + paragraph
		} else if current == "" {
			current = paragraph
		} else {
			current += "\n\n" + paragraph
		}
	}

	if current != "" {
		emit(current)
	}

	return chunks
}
