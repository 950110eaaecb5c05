// Package models defines the shared data types.
package models

import "time"

// Chunk is one retrievable unit of the corpus: a normalized row or
// paragraph of a source file, or a generated weather sentence.
type Chunk struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Content   string    `json:"content"`
	Index     int       `json:"index"`
	Weather   bool      `json:"weather"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchHit is a chunk with its similarity score after re-ranking.
type SearchHit struct {
	Chunk         *Chunk  `json:"chunk"`
	Score         float64 `json:"score"`
	LocationMatch bool    `json:"location_match"`
}

// IndexMeta describes a persisted index unit. The unit is valid only when
// the chunk count here matches both the vector index and the chunk store.
type IndexMeta struct {
	ChunkCount int       `json:"chunk_count"`
	Dimensions int       `json:"dimensions"`
	Embedder   string    `json:"embedder"`
	BuiltAt    time.Time `json:"built_at"`
	CorpusHash string    `json:"corpus_hash,omitempty"`
}
