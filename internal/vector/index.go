// Package vector provides the flat inner-product vector index.
package vector

import "context"

// Result is a vector search hit.
type Result struct {
	ID    string
	Score float64
}

// Index stores embeddings and finds nearest neighbors by inner product.
// With unit vectors this equals cosine similarity.
type Index interface {
	// Add inserts or replaces a vector under id.
	Add(ctx context.Context, id string, vec []float32) error

	// Search returns up to k nearest vectors, sorted by descending score
	// with id as the tiebreak so results are deterministic.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)

	// Remove deletes a vector by id.
	Remove(ctx context.Context, id string) error

	// Reset drops every vector.
	Reset()

	// Save persists the index atomically to path.
	Save(path string) error

	// Load replaces the index contents from path.
	Load(path string) error

	// Size returns the number of stored vectors.
	Size() int

	// Dimensions returns the vector dimension, 0 when empty.
	Dimensions() int

	// Close releases resources.
	Close() error
}
