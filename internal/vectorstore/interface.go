package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks ragstack/internal/vectorstore VectorStore

import "context"

// Point represents a vector entry with its denormalized chunk text and
// metadata. The text and metadata are copies for filterable search and
// display; the durable chunk record remains the source of truth.
type Point struct {
	ID   string
	Vec  []float32
	Text string
	Meta map[string]any
}

// Hit represents a single nearest-neighbor search result. Distance is the
// cosine distance in [0, 2]; callers derive similarity as 1 - Distance.
type Hit struct {
	VectorID string
	Distance float32
	Text     string
	Meta     map[string]any
}

// VectorStore defines the interface for vector index operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection in one batch.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k nearest neighbors of the query vector, closest
	// first, optionally constrained by exact-match metadata conditions.
	Search(ctx context.Context, collection string, query []float32, k int, filter map[string]any) ([]Hit, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (uint64, error)
}
