// Package keyword provides the Bleve lexical index over chunks. It backs
// up semantic recall: crop and place names that embed poorly still match
// by exact word.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/agrisage/agrisage/internal/models"
)

// Result is a lexical search hit.
type Result struct {
	ID    string
	Score float64
}

// Index is a Bleve index over chunk content.
type Index struct {
	index bleve.Index
}

type indexedChunk struct {
	Content string `json:"content"`
}

func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so crop names
	// like "ragi" or "paddy" match exactly.
	textField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textField)
	im.DefaultMapping = docMapping
	return im
}

// Open creates or opens a Bleve index at path. An empty path gives an
// in-memory index, used in tests and for ephemeral rebuilds.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &Index{index: idx}, nil
	}
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", err)
		}
		return &Index{index: idx}, nil
	}
	idx, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &Index{index: idx}, nil
}

// IndexChunk adds a chunk to the index.
func (b *Index) IndexChunk(ctx context.Context, chunk *models.Chunk) error {
	return b.index.Index(chunk.ID, indexedChunk{Content: chunk.Content})
}

// IndexChunks adds chunks in one batch.
func (b *Index) IndexChunks(ctx context.Context, chunks []*models.Chunk) error {
	batch := b.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, indexedChunk{Content: c.Content}); err != nil {
			return err
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over chunk content and returns up to limit
// hits.
func (b *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a chunk from the index.
func (b *Index) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Reset removes every document from the index.
func (b *Index) Reset(ctx context.Context) error {
	count, err := b.index.DocCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	// Bleve has no truncate; walk the doc IDs via a match-all query.
	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	res, err := b.index.Search(req)
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return b.index.Batch(batch)
}

// DocCount returns the number of indexed chunks.
func (b *Index) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *Index) Close() error {
	return b.index.Close()
}
