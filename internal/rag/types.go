package rag

// DefaultTopK is the number of results returned when a request does not set
// its own limit.
const DefaultTopK = 5

// SearchRequest is a semantic search over the indexed chunks.
type SearchRequest struct {
	Query  string
	TopK   int
	Filter map[string]any
}

// SearchResult is one retrieved chunk with its relevance score in [0, 1],
// higher is more similar. An empty ChunkID marks a hit whose durable record
// could not be resolved.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Text       string
	Metadata   map[string]any
	Score      float64
}
