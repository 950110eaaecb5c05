package embedding

import (
	"context"
	"math"
)

// MockEmbedder produces deterministic pseudo-embeddings from word hashes.
// It keeps the service usable without an ONNX model: vectors for texts
// sharing words correlate, and the same text always embeds identically.
type MockEmbedder struct {
	dimensions int
	cache      *Cache
}

// NewMockEmbedder creates a mock embedder with the given dimensionality.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{
		dimensions: dimensions,
		cache:      NewCache(1000),
	}
}

// Embed returns a deterministic normalized vector for text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := m.cache.Get(text); ok {
		return cached, nil
	}

	vec := make([]float32, m.dimensions)
	for _, word := range SplitWords(text) {
		h := HashString(word)
		for i := 0; i < m.dimensions; i++ {
			vec[i] += float32(math.Sin(float64(h%(i+7)) + float64(i)*0.1))
		}
	}
	NormalizeL2(vec)

	m.cache.Set(text, vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the vector size.
func (m *MockEmbedder) Dimensions() int { return m.dimensions }

// Name identifies the implementation.
func (m *MockEmbedder) Name() string { return "mock" }

// Close is a no-op.
func (m *MockEmbedder) Close() error { return nil }

// NormalizeL2 normalizes the vector in place to unit L2 norm.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}
