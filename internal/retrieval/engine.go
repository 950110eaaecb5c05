// Package retrieval builds, persists and searches the chunk index.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/corpus"
	"github.com/agrisage/agrisage/internal/embedding"
	"github.com/agrisage/agrisage/internal/keyword"
	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/storage"
	"github.com/agrisage/agrisage/internal/vector"
)

// Index unit file names under the data dir. The three files plus the
// chunk store form one unit: if any piece is missing or inconsistent the
// whole unit is rebuilt.
const (
	indexFileName      = "index.bin"
	metaFileName       = "meta.json"
	embeddingsFileName = "embeddings.bin"
)

// Config bounds search behavior.
type Config struct {
	TopK           int
	MaxResults     int
	ScoreThreshold float64
	LocationBoost  float64
	WeatherBoost   float64
	ConfidenceCap  float64
	DataDir        string
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 15
	}
	if c.MaxResults == 0 {
		c.MaxResults = 10
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = 0.2
	}
	if c.LocationBoost == 0 {
		c.LocationBoost = 0.3
	}
	if c.WeatherBoost == 0 {
		c.WeatherBoost = 0.1
	}
	if c.ConfidenceCap == 0 {
		c.ConfidenceCap = 0.95
	}
}

// Status reports the index state.
type Status struct {
	IndexExists bool      `json:"index_exists"`
	ChunkCount  int       `json:"chunk_count"`
	Embedder    string    `json:"embedder"`
	BuiltAt     time.Time `json:"built_at,omitempty"`
}

// Engine owns the index lifecycle: lazy build on first use, atomic
// persistence, staleness, search with location-aware re-ranking.
type Engine struct {
	embedder embedding.Embedder
	store    storage.ChunkStore
	vectors  vector.Index
	keywords *keyword.Index
	loader   *corpus.Loader
	cfg      Config
	logger   *zap.Logger

	mu        sync.RWMutex
	ready     bool
	stale     bool
	chunkByID map[string]*models.Chunk
	builtAt   time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an Engine. The keyword index may be nil to disable
// lexical backfill.
func NewEngine(
	embedder embedding.Embedder,
	store storage.ChunkStore,
	vectors vector.Index,
	keywords *keyword.Index,
	loader *corpus.Loader,
	cfg Config,
	opts ...Option,
) *Engine {
	cfg.ApplyDefaults()
	e := &Engine{
		embedder:  embedder,
		store:     store,
		vectors:   vectors,
		keywords:  keywords,
		loader:    loader,
		cfg:       cfg,
		logger:    zap.NewNop(),
		chunkByID: make(map[string]*models.Chunk),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) indexPath() string { return filepath.Join(e.cfg.DataDir, indexFileName) }
func (e *Engine) metaPath() string  { return filepath.Join(e.cfg.DataDir, metaFileName) }
func (e *Engine) embedPath() string { return filepath.Join(e.cfg.DataDir, embeddingsFileName) }

// EnsureIndex makes the index ready: reuse the in-memory one, load the
// persisted unit, or rebuild from the corpus. weatherChunks are placed
// first so the global chunk cap never drops them.
func (e *Engine) EnsureIndex(ctx context.Context, weatherChunks []*models.Chunk) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready && !e.stale {
		return nil
	}
	if !e.stale {
		if err := e.loadLocked(ctx); err == nil {
			return nil
		} else {
			e.logger.Info("persisted index unusable, rebuilding", zap.Error(err))
		}
	}
	return e.buildLocked(ctx, weatherChunks)
}

// loadLocked restores the persisted unit. Every piece must be present
// and the counts must agree; any inconsistency is an error so the caller
// rebuilds.
func (e *Engine) loadLocked(ctx context.Context) error {
	metaData, err := os.ReadFile(e.metaPath())
	if err != nil {
		return fmt.Errorf("meta missing: %w", err)
	}
	var meta models.IndexMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return fmt.Errorf("meta corrupt: %w", err)
	}
	if meta.Embedder != e.embedder.Name() || meta.Dimensions != e.embedder.Dimensions() {
		return fmt.Errorf("index built with embedder %s/%d, current is %s/%d",
			meta.Embedder, meta.Dimensions, e.embedder.Name(), e.embedder.Dimensions())
	}

	if err := e.vectors.Load(e.indexPath()); err != nil {
		return fmt.Errorf("vector index missing or corrupt: %w", err)
	}

	chunks, err := e.store.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("chunk store unreadable: %w", err)
	}
	if len(chunks) != meta.ChunkCount || e.vectors.Size() != meta.ChunkCount {
		return fmt.Errorf("index unit inconsistent: meta=%d chunks=%d vectors=%d",
			meta.ChunkCount, len(chunks), e.vectors.Size())
	}

	e.chunkByID = make(map[string]*models.Chunk, len(chunks))
	for _, c := range chunks {
		e.chunkByID[c.ID] = c
	}
	e.builtAt = meta.BuiltAt
	e.ready = true
	e.stale = false
	e.logger.Info("loaded persisted index", zap.Int("chunks", len(chunks)))
	return nil
}

// buildLocked rebuilds the whole unit from the corpus and persists it.
func (e *Engine) buildLocked(ctx context.Context, weatherChunks []*models.Chunk) error {
	start := time.Now()
	chunks, err := e.loader.Load(weatherChunks)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("corpus produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	// Reuse the cached embedding matrix when its row count still matches;
	// any mismatch means the corpus changed and everything is re-embedded.
	var vecs [][]float32
	if cached, err := embedding.LoadMatrix(e.embedPath()); err == nil && len(cached) == len(chunks) {
		vecs = cached
		e.logger.Info("reusing cached embeddings", zap.Int("rows", len(cached)))
	} else {
		vecs, err = e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed corpus: %w", err)
		}
	}

	e.vectors.Reset()
	for i, c := range chunks {
		if err := e.vectors.Add(ctx, c.ID, vecs[i]); err != nil {
			return fmt.Errorf("failed to index chunk: %w", err)
		}
	}

	if err := e.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset chunk store: %w", err)
	}
	if err := e.store.PutChunks(ctx, chunks); err != nil {
		return fmt.Errorf("failed to persist chunks: %w", err)
	}

	if e.keywords != nil {
		if err := e.keywords.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset keyword index: %w", err)
		}
		if err := e.keywords.IndexChunks(ctx, chunks); err != nil {
			return fmt.Errorf("failed to build keyword index: %w", err)
		}
	}

	if e.cfg.DataDir != "" {
		if err := os.MkdirAll(e.cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		if err := e.vectors.Save(e.indexPath()); err != nil {
			return fmt.Errorf("failed to save vector index: %w", err)
		}
		if err := embedding.SaveMatrix(e.embedPath(), vecs); err != nil {
			return fmt.Errorf("failed to save embeddings: %w", err)
		}
		meta := models.IndexMeta{
			ChunkCount: len(chunks),
			Dimensions: e.embedder.Dimensions(),
			Embedder:   e.embedder.Name(),
			BuiltAt:    time.Now().UTC(),
		}
		if err := saveJSONAtomic(e.metaPath(), meta); err != nil {
			return fmt.Errorf("failed to save index meta: %w", err)
		}
		e.builtAt = meta.BuiltAt
	}

	e.chunkByID = make(map[string]*models.Chunk, len(chunks))
	for _, c := range chunks {
		e.chunkByID[c.ID] = c
	}
	e.ready = true
	e.stale = false
	e.logger.Info("index built",
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// MarkStale forces a rebuild on next use. Called by the corpus watcher
// and the refresh scheduler.
func (e *Engine) MarkStale() {
	e.mu.Lock()
	e.stale = true
	e.mu.Unlock()
}

// querySynonyms widens queries with agronomy synonyms before embedding.
var querySynonyms = map[string]string{
	"rice":  "paddy",
	"maize": "corn",
}

// PreprocessQuery appends synonyms for known crop terms.
func PreprocessQuery(query string) string {
	lower := strings.ToLower(query)
	out := query
	for term, syn := range querySynonyms {
		if strings.Contains(lower, term) && !strings.Contains(lower, syn) {
			out += " " + syn
		}
	}
	return out
}

// Search embeds the query and returns the re-ranked hits plus the raw
// candidate count before the score threshold, so callers can tell an
// empty corpus from a low-relevance one. location may be empty; when set,
// chunks mentioning it are boosted and ordered first. ephemeral chunks
// (live weather for the query location) are scored in-memory and merged
// without being persisted.
func (e *Engine) Search(ctx context.Context, query, location string, ephemeral []*models.Chunk) ([]models.SearchHit, int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.ready {
		return nil, 0, fmt.Errorf("index not built")
	}

	normalized := corpus.NormalizeText(PreprocessQuery(query), 1000)
	if normalized == "" {
		return nil, 0, nil
	}
	queryVec, err := e.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to embed query: %w", err)
	}

	vecResults, err := e.vectors.Search(ctx, queryVec, e.cfg.TopK)
	if err != nil {
		return nil, 0, fmt.Errorf("vector search failed: %w", err)
	}
	candidates := len(vecResults) + len(ephemeral)

	seen := make(map[string]bool, len(vecResults))
	hits := make([]models.SearchHit, 0, e.cfg.TopK)
	for _, r := range vecResults {
		if r.Score < e.cfg.ScoreThreshold {
			continue
		}
		chunk, ok := e.chunkByID[r.ID]
		if !ok {
			continue
		}
		seen[r.ID] = true
		hits = append(hits, models.SearchHit{Chunk: chunk, Score: r.Score})
	}

	// Lexical backfill: when semantic recall is thin, exact word matches
	// on crop or place names fill the remaining slots at threshold score.
	if e.keywords != nil && len(hits) < e.cfg.MaxResults {
		kwResults, err := e.keywords.Search(ctx, normalized, e.cfg.TopK)
		if err != nil {
			e.logger.Warn("keyword backfill failed", zap.Error(err))
		} else {
			for _, r := range kwResults {
				if seen[r.ID] {
					continue
				}
				chunk, ok := e.chunkByID[r.ID]
				if !ok {
					continue
				}
				seen[r.ID] = true
				hits = append(hits, models.SearchHit{Chunk: chunk, Score: e.cfg.ScoreThreshold})
				if len(hits) >= e.cfg.TopK {
					break
				}
			}
		}
	}

	// Ephemeral weather chunks are scored directly against the query.
	for _, c := range ephemeral {
		vec, err := e.embedder.Embed(ctx, c.Content)
		if err != nil {
			continue
		}
		score := vector.DotProduct(queryVec, vec)
		if score < e.cfg.ScoreThreshold {
			continue
		}
		hits = append(hits, models.SearchHit{Chunk: c, Score: score})
	}

	return e.rerank(hits, location), candidates, nil
}

// rerank applies the location boost, orders location-specific hits before
// general ones, and caps the result count. Ordering is deterministic:
// score descending with chunk ID as tiebreak.
func (e *Engine) rerank(hits []models.SearchHit, location string) []models.SearchHit {
	loc := strings.ToLower(strings.TrimSpace(location))
	for i := range hits {
		if loc != "" && strings.Contains(hits[i].Chunk.Content, loc) {
			hits[i].LocationMatch = true
			hits[i].Score += e.cfg.LocationBoost
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].LocationMatch != hits[j].LocationMatch {
			return hits[i].LocationMatch
		}
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if len(hits) > e.cfg.MaxResults {
		hits = hits[:e.cfg.MaxResults]
	}
	return hits
}

// Confidence derives the retrieval confidence from hit scores: the
// capped average, plus the weather boost when live weather made it into
// the results, still capped.
func (e *Engine) Confidence(hits []models.SearchHit) float64 {
	if len(hits) == 0 {
		return 0.0
	}
	var sum float64
	weather := false
	for _, h := range hits {
		sum += h.Score
		if h.Chunk.Weather {
			weather = true
		}
	}
	conf := sum / float64(len(hits))
	if conf > e.cfg.ConfidenceCap {
		conf = e.cfg.ConfidenceCap
	}
	if weather {
		conf += e.cfg.WeatherBoost
		if conf > e.cfg.ConfidenceCap {
			conf = e.cfg.ConfidenceCap
		}
	}
	return conf
}

// Refresh removes the persisted unit and in-memory state so the next
// query rebuilds from scratch. The caller clears the weather cache in the
// same operation.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range []string{e.indexPath(), e.metaPath(), e.embedPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	if err := e.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear chunk store: %w", err)
	}
	if e.keywords != nil {
		if err := e.keywords.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset keyword index: %w", err)
		}
	}
	e.vectors.Reset()
	e.chunkByID = make(map[string]*models.Chunk)
	e.ready = false
	e.stale = false
	e.logger.Info("index unit removed")
	return nil
}

// Status reports the current index state without touching the corpus.
func (e *Engine) Status(ctx context.Context) Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Status{Embedder: e.embedder.Name()}
	if e.ready {
		st.IndexExists = true
		st.ChunkCount = len(e.chunkByID)
		st.BuiltAt = e.builtAt
		return st
	}
	if _, err := os.Stat(e.metaPath()); err == nil {
		st.IndexExists = true
		if data, err := os.ReadFile(e.metaPath()); err == nil {
			var meta models.IndexMeta
			if json.Unmarshal(data, &meta) == nil {
				st.ChunkCount = meta.ChunkCount
				st.BuiltAt = meta.BuiltAt
			}
		}
	}
	return st
}

func saveJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
