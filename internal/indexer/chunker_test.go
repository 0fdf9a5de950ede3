package indexer

import (
	"errors"
	"strings"
	"testing"
)

func TestNewChunker(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "valid defaults", size: DefaultChunkSize, overlap: DefaultChunkOverlap, wantErr: false},
		{name: "zero overlap", size: 100, overlap: 0, wantErr: false},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewChunker(tt.size, tt.overlap)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewChunker() expected error, got nil")
				}
				var confErr *ConfigurationError
				if !errors.As(err, &confErr) {
					t.Errorf("NewChunker() error = %v, want ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewChunker() unexpected error: %v", err)
			}
			if chunker == nil {
				t.Fatal("NewChunker() returned nil")
			}
		})
	}
}

func TestChunker_Chunk_ShortText(t *testing.T) {
	chunker, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	chunks := chunker.Chunk("doc-1", "Hello world.", map[string]any{"title": "Test"})

	if len(chunks) != 1 {
		t.Fatalf("Chunk() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "Hello world." {
		t.Errorf("Chunk() text = %q, want %q", chunks[0].Text, "Hello world.")
	}
	if chunks[0].DocumentID != "doc-1" {
		t.Errorf("Chunk() document id = %q, want %q", chunks[0].DocumentID, "doc-1")
	}
	if chunks[0].Metadata["title"] != "Test" {
		t.Errorf("Chunk() metadata not carried through")
	}
}

func TestChunker_Chunk_Overlap(t *testing.T) {
	chunker, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	para1 := strings.Repeat("a", 600)
	para2 := strings.Repeat("b", 600)
	text := para1 + "\n\n" + para2

	chunks := chunker.Chunk("doc-1", text, nil)

	if len(chunks) != 2 {
		t.Fatalf("Chunk() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != para1 {
		t.Errorf("first chunk = %q, want first paragraph", truncate(chunks[0].Text))
	}

	// The second chunk opens with the tail of the first chunk, at most
	// overlap characters, before its own paragraph.
	if !strings.HasSuffix(chunks[0].Text, chunks[1].Text[:200]) {
		t.Errorf("second chunk does not start with the tail of the first")
	}
	if !strings.Contains(chunks[1].Text, para2) {
		t.Errorf("second chunk missing its own paragraph")
	}
	if !strings.HasPrefix(chunks[1].Text, strings.Repeat("a", 200)+"\n\n") {
		t.Errorf("second chunk prefix = %q, want 200-char overlap then paragraph break", truncate(chunks[1].Text))
	}
}

func TestChunker_Chunk_LongParagraphNotSplit(t *testing.T) {
	chunker, err := NewChunker(100, 20)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	// A single paragraph longer than the size cap stays whole.
	long := strings.Repeat("x", 300)
	chunks := chunker.Chunk("doc-1", "short\n\n"+long, nil)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, long) {
			found = true
		}
	}
	if !found {
		t.Error("long paragraph was split mid-paragraph")
	}
}

func TestChunker_Chunk_SkipsEmptyParagraphs(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	text := strings.Repeat("a", 40) + "\n\n\n\n" + strings.Repeat("b", 40)
	chunks := chunker.Chunk("doc-1", text, nil)

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestChunker_Chunk_NormalizesInput(t *testing.T) {
	chunker, err := NewChunker(1000, 200)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	chunks := chunker.Chunk("doc-1", "Hello   world.\r\n", nil)
	if len(chunks) != 1 {
		t.Fatalf("Chunk() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "Hello world." {
		t.Errorf("Chunk() text = %q, want normalized text", chunks[0].Text)
	}
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
