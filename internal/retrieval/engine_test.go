package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agrisage/agrisage/internal/corpus"
	"github.com/agrisage/agrisage/internal/embedding"
	"github.com/agrisage/agrisage/internal/keyword"
	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/storage"
	"github.com/agrisage/agrisage/internal/vector"
)

// stubEmbedder maps texts onto fixed axes by keyword so scores in tests
// are exact: same-topic texts score 1, cross-topic texts score 0.
type stubEmbedder struct {
	name string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	switch {
	case strings.Contains(text, "rice"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(text, "wheat"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Name() string {
	if s.name != "" {
		return s.name
	}
	return "stub"
}
func (s *stubEmbedder) Close() error { return nil }

type testEnv struct {
	engine    *Engine
	corpusDir string
	dataDir   string
	store     *storage.SQLiteStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	corpusDir := t.TempDir()
	dataDir := t.TempDir()

	writeCorpusFile(t, corpusDir, "rice.txt",
		"rice grows well in pune region with standing water\n")
	writeCorpusFile(t, corpusDir, "wheat.txt",
		"wheat prefers cool dry weather during growth stages\n")
	writeCorpusFile(t, corpusDir, "machinery.txt",
		"tractor maintenance requires regular oil changes always\n")

	return buildEnv(t, corpusDir, dataDir, &stubEmbedder{})
}

func buildEnv(t *testing.T, corpusDir, dataDir string, emb embedding.Embedder) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(dataDir, "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	keywords, err := keyword.Open("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = keywords.Close() })

	loader := corpus.NewLoader(corpus.LoaderConfig{Paths: []string{corpusDir}}, nil)
	engine := NewEngine(emb, store, vector.NewFlatIndex(), keywords, loader, Config{DataDir: dataDir})
	return &testEnv{engine: engine, corpusDir: corpusDir, dataDir: dataDir, store: store}
}

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestEngine_BuildAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	hits, candidates, err := env.engine.Search(ctx, "how do I grow rice", "", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if candidates != 3 {
		t.Errorf("candidates = %d, want 3", candidates)
	}
	if len(hits) == 0 {
		t.Fatal("no hits")
	}
	if !strings.Contains(hits[0].Chunk.Content, "rice") {
		t.Errorf("top hit = %q, want the rice chunk", hits[0].Chunk.Content)
	}
	if hits[0].Score < 0.99 {
		t.Errorf("top score = %f, want ~1", hits[0].Score)
	}
	// Cross-topic chunks score 0, below the threshold.
	for _, h := range hits {
		if strings.Contains(h.Chunk.Content, "tractor") && h.Score < env.engine.cfg.ScoreThreshold {
			t.Errorf("below-threshold chunk surfaced at %f", h.Score)
		}
	}
}

func TestEngine_PersistedUnitReload(t *testing.T) {
	corpusDir := t.TempDir()
	dataDir := t.TempDir()
	writeCorpusFile(t, corpusDir, "rice.txt", "rice grows well in standing water paddies\n")

	env := buildEnv(t, corpusDir, dataDir, &stubEmbedder{})
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}

	// Empty the corpus: a rebuild would now fail, so success proves the
	// persisted unit was loaded.
	if err := os.Remove(filepath.Join(corpusDir, "rice.txt")); err != nil {
		t.Fatal(err)
	}
	env2 := buildEnv(t, corpusDir, dataDir, &stubEmbedder{})
	if err := env2.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	st := env2.engine.Status(ctx)
	if !st.IndexExists || st.ChunkCount != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestEngine_PartialUnitRebuilds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}

	// Losing any piece of the unit invalidates the whole of it.
	if err := os.Remove(filepath.Join(env.dataDir, "index.bin")); err != nil {
		t.Fatal(err)
	}
	env2 := buildEnv(t, env.corpusDir, env.dataDir, &stubEmbedder{})
	if err := env2.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatalf("rebuild after missing index.bin: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.dataDir, "index.bin")); err != nil {
		t.Error("index.bin not re-persisted")
	}
}

func TestEngine_EmbedderChangeRebuilds(t *testing.T) {
	corpusDir := t.TempDir()
	dataDir := t.TempDir()
	writeCorpusFile(t, corpusDir, "rice.txt", "rice grows well in standing water paddies\n")

	env := buildEnv(t, corpusDir, dataDir, &stubEmbedder{})
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}

	// A different embedder name must reject the persisted unit. With the
	// corpus gone the forced rebuild fails, which is how we observe it.
	if err := os.Remove(filepath.Join(corpusDir, "rice.txt")); err != nil {
		t.Fatal(err)
	}
	env2 := buildEnv(t, corpusDir, dataDir, &stubEmbedder{name: "other"})
	if err := env2.engine.EnsureIndex(ctx, nil); err == nil {
		t.Error("stale-embedder unit accepted")
	}
}

func TestEngine_MarkStaleForcesRebuild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if got := env.engine.Status(ctx).ChunkCount; got != 3 {
		t.Fatalf("initial chunks = %d", got)
	}

	writeCorpusFile(t, env.corpusDir, "millet.txt",
		"millet tolerates drought and poor soils quite well\n")
	env.engine.MarkStale()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if got := env.engine.Status(ctx).ChunkCount; got != 4 {
		t.Errorf("chunks after rebuild = %d, want 4", got)
	}
}

func TestEngine_LocationBoostOrdersFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}

	hits, _, err := env.engine.Search(ctx, "rice cultivation", "Pune", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits")
	}
	if !hits[0].LocationMatch {
		t.Error("location-matching chunk not first")
	}
	if hits[0].Score < 1.0+env.engine.cfg.LocationBoost-0.01 {
		t.Errorf("boosted score = %f", hits[0].Score)
	}
}

func TestEngine_EphemeralChunksMerged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}

	live := []*models.Chunk{{
		ID:       "weather-live",
		SourceID: "weather_current_pune",
		Content:  "current weather for rice growers in pune",
		Weather:  true,
		Location: "pune",
	}}
	hits, candidates, err := env.engine.Search(ctx, "rice weather", "", live)
	if err != nil {
		t.Fatal(err)
	}
	if candidates != 4 {
		t.Errorf("candidates = %d, want 3 indexed + 1 ephemeral", candidates)
	}
	found := false
	for _, h := range hits {
		if h.Chunk.ID == "weather-live" {
			found = true
			if !h.Chunk.Weather {
				t.Error("ephemeral hit lost weather flag")
			}
		}
	}
	if !found {
		t.Error("ephemeral chunk missing from hits")
	}
}

func TestEngine_ResultCap(t *testing.T) {
	corpusDir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "rice cultivation practice number %d for wet fields\n", i)
	}
	writeCorpusFile(t, corpusDir, "rice.txt", b.String())

	env := buildEnv(t, corpusDir, t.TempDir(), &stubEmbedder{})
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}

	hits, candidates, err := env.engine.Search(ctx, "rice", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != env.engine.cfg.MaxResults {
		t.Errorf("len = %d, want cap %d", len(hits), env.engine.cfg.MaxResults)
	}
	if candidates != 12 {
		t.Errorf("candidates = %d, want 12", candidates)
	}
}

func TestEngine_SearchBeforeBuild(t *testing.T) {
	env := newTestEnv(t)
	if _, _, err := env.engine.Search(context.Background(), "rice", "", nil); err == nil {
		t.Error("search on unbuilt index did not error")
	}
}

func TestEngine_Refresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}

	if err := env.engine.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	for _, name := range []string{"index.bin", "meta.json", "embeddings.bin"} {
		if _, err := os.Stat(filepath.Join(env.dataDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s survived Refresh", name)
		}
	}
	count, err := env.store.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("chunk store count = %d after Refresh", count)
	}
	if env.engine.Status(ctx).IndexExists {
		t.Error("status still reports an index")
	}

	// The next EnsureIndex rebuilds from the corpus.
	if err := env.engine.EnsureIndex(ctx, nil); err != nil {
		t.Fatalf("rebuild after Refresh: %v", err)
	}
}

func TestEngine_Confidence(t *testing.T) {
	e := NewEngine(&stubEmbedder{}, nil, vector.NewFlatIndex(), nil, nil, Config{})

	hit := func(score float64, weather bool) models.SearchHit {
		return models.SearchHit{Chunk: &models.Chunk{ID: "x", Weather: weather}, Score: score}
	}

	tests := []struct {
		name string
		hits []models.SearchHit
		want float64
	}{
		{"empty", nil, 0.0},
		{"average", []models.SearchHit{hit(0.4, false), hit(0.6, false)}, 0.5},
		{"capped", []models.SearchHit{hit(1.3, false), hit(1.3, false)}, 0.95},
		{"weather boost", []models.SearchHit{hit(0.5, true)}, 0.6},
		{"boost recapped", []models.SearchHit{hit(0.94, true)}, 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Confidence(tt.hits)
			if got < tt.want-1e-9 || got > tt.want+1e-9 {
				t.Errorf("Confidence = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestPreprocessQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"growing rice in kharif", "growing rice in kharif paddy"},
		{"rice and paddy fields", "rice and paddy fields"},
		{"maize yield", "maize yield corn"},
		{"wheat sowing", "wheat sowing"},
	}
	for _, tt := range tests {
		if got := PreprocessQuery(tt.in); got != tt.want {
			t.Errorf("PreprocessQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
