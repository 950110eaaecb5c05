package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
)

// FlatIndex is an in-memory brute-force inner-product index. Exact and
// fast enough for corpora in the thousands of chunks.
type FlatIndex struct {
	mu      sync.RWMutex
	ids     []string
	vectors [][]float32
	byID    map[string]int
	dims    int
}

// NewFlatIndex creates an empty index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{byID: make(map[string]int)}
}

// Add inserts or replaces a vector.
func (f *FlatIndex) Add(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("empty vector id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dims == 0 {
		f.dims = len(vec)
	} else if len(vec) != f.dims {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), f.dims)
	}

	if i, ok := f.byID[id]; ok {
		f.vectors[i] = vec
		return nil
	}
	f.byID[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vec)
	return nil
}

// Search scans all vectors and returns the top k by inner product.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.ids) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dims {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dims)
	}

	results := make([]Result, 0, len(f.ids))
	for i, id := range f.ids {
		results = append(results, Result{ID: id, Score: DotProduct(query, f.vectors[i])})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Remove deletes a vector by id. The last entry takes its slot.
func (f *FlatIndex) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.byID[id]
	if !ok {
		return nil
	}
	last := len(f.ids) - 1
	f.ids[i] = f.ids[last]
	f.vectors[i] = f.vectors[last]
	f.byID[f.ids[i]] = i
	f.ids = f.ids[:last]
	f.vectors = f.vectors[:last]
	delete(f.byID, id)
	if len(f.ids) == 0 {
		f.dims = 0
	}
	return nil
}

// Reset drops every vector.
func (f *FlatIndex) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = nil
	f.vectors = nil
	f.byID = make(map[string]int)
	f.dims = 0
}

// File format: uint32 dims, uint32 count, then per vector uint32 id
// length, id bytes, dims float32 values. Everything little-endian.

// Save writes the index to path via a temp file and rename, so a crash
// mid-write never leaves a truncated index behind.
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	size := 8
	for i, id := range f.ids {
		size += 4 + len(id) + 4*len(f.vectors[i])
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.dims))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(f.ids)))
	off := 8
	for i, id := range f.ids {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(id)))
		off += 4
		copy(buf[off:], id)
		off += len(id)
		for _, v := range f.vectors[i] {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the index contents with the file at path.
func (f *FlatIndex) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	if len(data) < 8 {
		return fmt.Errorf("index file too short")
	}

	dims := int(binary.LittleEndian.Uint32(data[0:4]))
	count := int(binary.LittleEndian.Uint32(data[4:8]))

	ids := make([]string, 0, count)
	vectors := make([][]float32, 0, count)
	byID := make(map[string]int, count)

	off := 8
	for i := 0; i < count; i++ {
		if off+4 > len(data) {
			return fmt.Errorf("index file truncated at record %d", i)
		}
		idLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		if off+idLen+4*dims > len(data) {
			return fmt.Errorf("index file truncated at record %d", i)
		}
		id := string(data[off : off+idLen])
		off += idLen
		vec := make([]float32, dims)
		for j := 0; j < dims; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		byID[id] = len(ids)
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.dims = dims
	f.ids = ids
	f.vectors = vectors
	f.byID = byID
	return nil
}

// Size returns the number of vectors.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dims
}

// Close is a no-op for the in-memory index.
func (f *FlatIndex) Close() error { return nil }

// DotProduct returns the inner product of a and b.
func DotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
