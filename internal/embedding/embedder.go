// Package embedding provides text embedding for retrieval.
package embedding

import "context"

// Embedder converts text into dense vectors. All implementations return
// L2-normalized vectors so inner product equals cosine similarity.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Name identifies the implementation, recorded in index metadata so a
	// persisted index is not reused across embedder changes.
	Name() string

	// Close releases resources.
	Close() error
}
