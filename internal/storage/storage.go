// Package storage persists corpus chunks and index metadata.
package storage

import (
	"context"

	"github.com/agrisage/agrisage/internal/models"
)

// ChunkStore is the persistent side of the index unit: every indexed
// chunk, addressable by ID and by insertion order.
type ChunkStore interface {
	// PutChunks inserts chunks in one transaction.
	PutChunks(ctx context.Context, chunks []*models.Chunk) error

	// GetChunk returns a chunk by ID.
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)

	// AllChunks returns every chunk ordered by insertion.
	AllChunks(ctx context.Context) ([]*models.Chunk, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int64, error)

	// DeleteAll removes every chunk.
	DeleteAll(ctx context.Context) error

	// Close closes the store.
	Close() error
}
