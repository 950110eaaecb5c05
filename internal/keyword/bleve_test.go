package keyword

import (
	"context"
	"testing"

	"github.com/agrisage/agrisage/internal/models"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seedChunks() []*models.Chunk {
	return []*models.Chunk{
		{ID: "c1", Content: "rice grows well in standing water paddies"},
		{ID: "c2", Content: "wheat prefers cool dry weather during growth"},
		{ID: "c3", Content: "ragi is a hardy millet for dry regions"},
	}
}

func TestIndex_SearchMatchesExactWords(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexChunks(ctx, seedChunks()); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}

	hits, err := idx.Search(ctx, "ragi", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "c3" {
		t.Fatalf("hits = %+v, want single c3", hits)
	}
	if hits[0].Score <= 0 {
		t.Error("hit has non-positive score")
	}
}

func TestIndex_SearchCaseInsensitive(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexChunks(ctx, seedChunks()); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, "WHEAT", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "c2" {
		t.Errorf("hits = %+v, want c2", hits)
	}
}

func TestIndex_SearchLimit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	chunks := []*models.Chunk{
		{ID: "c1", Content: "water for rice"},
		{ID: "c2", Content: "water for wheat"},
		{ID: "c3", Content: "water for millet"},
	}
	if err := idx.IndexChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, "water", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("len = %d, want limit 2", len(hits))
	}
}

func TestIndex_IndexChunkAndDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexChunk(ctx, &models.Chunk{ID: "c1", Content: "turmeric needs warm humid climate"}); err != nil {
		t.Fatal(err)
	}
	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("DocCount = %d, want 1", count)
	}

	if err := idx.Delete(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, "turmeric", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("deleted doc still matches: %+v", hits)
	}
}

func TestIndex_Reset(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexChunks(ctx, seedChunks()); err != nil {
		t.Fatal(err)
	}
	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("DocCount after Reset = %d, want 0", count)
	}

	// Reset on an empty index is a no-op.
	if err := idx.Reset(ctx); err != nil {
		t.Errorf("Reset on empty index: %v", err)
	}
}

func TestOpen_OnDisk(t *testing.T) {
	path := t.TempDir() + "/bleve"
	ctx := context.Background()

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.IndexChunk(ctx, &models.Chunk{ID: "c1", Content: "mustard sown in the rabi season"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	hits, err := idx.Search(ctx, "mustard", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "c1" {
		t.Errorf("hits after reopen = %+v", hits)
	}
}
