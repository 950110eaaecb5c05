package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/agrisage/agrisage/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func chunk(id, content string) *models.Chunk {
	return &models.Chunk{ID: id, SourceID: "test.csv", Content: content}
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &models.Chunk{
		ID:       "c1",
		SourceID: "crops.csv",
		Content:  "rice needs standing water",
		Index:    3,
		Weather:  true,
		Location: "pune",
	}
	if err := store.PutChunks(ctx, []*models.Chunk{in}); err != nil {
		t.Fatalf("PutChunks: %v", err)
	}

	got, err := store.GetChunk(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if got.SourceID != in.SourceID || got.Content != in.Content || got.Index != 3 {
		t.Errorf("got %+v", got)
	}
	if !got.Weather || got.Location != "pune" {
		t.Errorf("weather/location = %v/%q", got.Weather, got.Location)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetChunk(context.Background(), "nope"); err == nil {
		t.Error("missing chunk did not error")
	}
}

func TestSQLiteStore_AllChunksPreservesOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var first []*models.Chunk
	for i := 0; i < 5; i++ {
		first = append(first, chunk(fmt.Sprintf("a%d", i), fmt.Sprintf("batch one chunk %d", i)))
	}
	if err := store.PutChunks(ctx, first); err != nil {
		t.Fatal(err)
	}
	// Order must hold across transactions too.
	if err := store.PutChunks(ctx, []*models.Chunk{chunk("b0", "batch two chunk")}); err != nil {
		t.Fatal(err)
	}

	all, err := store.AllChunks(ctx)
	if err != nil {
		t.Fatalf("AllChunks: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("len = %d, want 6", len(all))
	}
	wantIDs := []string{"a0", "a1", "a2", "a3", "a4", "b0"}
	for i, want := range wantIDs {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %s, want %s", i, all[i].ID, want)
		}
	}
}

func TestSQLiteStore_EmptyLocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutChunks(ctx, []*models.Chunk{chunk("c1", "no location here")}); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetChunk(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Location != "" {
		t.Errorf("Location = %q, want empty", got.Location)
	}
	if got.Weather {
		t.Error("Weather flag set unexpectedly")
	}
}

func TestSQLiteStore_CountAndDeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*models.Chunk{chunk("c1", "one"), chunk("c2", "two"), chunk("c3", "three")}
	if err := store.PutChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	count, err = store.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count after DeleteAll = %d, want 0", count)
	}
	all, err := store.AllChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("AllChunks after DeleteAll = %d", len(all))
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.PutChunks(ctx, []*models.Chunk{chunk("c1", "survives restart")}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	got, err := store.GetChunk(ctx, "c1")
	if err != nil {
		t.Fatalf("chunk lost after reopen: %v", err)
	}
	if got.Content != "survives restart" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestSQLiteStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "chunks.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore with missing parents: %v", err)
	}
	_ = store.Close()
}
