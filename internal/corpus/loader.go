package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/models"
)

// minChunkLen drops chunks that carry no useful signal after
// normalization.
const minChunkLen = 20

// LoaderConfig bounds corpus ingestion.
type LoaderConfig struct {
	Paths          []string
	MaxChunks      int
	MaxRowsPerFile int
	MaxChunkChars  int
}

// Loader walks the corpus paths and turns files into normalized chunks.
// Weather chunks are prepended by the caller before the global cap is
// applied, so they are never evicted by large corpora.
type Loader struct {
	cfg       LoaderConfig
	extractor *Extractor
	logger    *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig, logger *zap.Logger) *Loader {
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 4000
	}
	if cfg.MaxRowsPerFile <= 0 {
		cfg.MaxRowsPerFile = 1000
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, extractor: NewExtractor(), logger: logger}
}

// Load returns chunks for every supported file under the corpus paths.
// Files are visited in sorted order so repeated loads produce the same
// chunk sequence.
func (l *Loader) Load(reserved []*models.Chunk) ([]*models.Chunk, error) {
	files, err := l.listFiles()
	if err != nil {
		return nil, err
	}

	chunks := make([]*models.Chunk, 0, len(reserved))
	chunks = append(chunks, reserved...)

	for _, path := range files {
		if len(chunks) >= l.cfg.MaxChunks {
			l.logger.Warn("chunk cap reached, skipping remaining files",
				zap.Int("max_chunks", l.cfg.MaxChunks))
			break
		}
		fileChunks, err := l.loadFile(path)
		if err != nil {
			l.logger.Warn("failed to load corpus file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		chunks = append(chunks, fileChunks...)
		l.logger.Debug("loaded corpus file",
			zap.String("path", path), zap.Int("chunks", len(fileChunks)))
	}

	if len(chunks) > l.cfg.MaxChunks {
		chunks = chunks[:l.cfg.MaxChunks]
	}
	return chunks, nil
}

func (l *Loader) listFiles() ([]string, error) {
	var files []string
	for _, root := range l.cfg.Paths {
		info, err := os.Stat(root)
		if err != nil {
			l.logger.Warn("corpus path missing", zap.String("path", root))
			continue
		}
		if !info.IsDir() {
			if Supported(root) {
				files = append(files, root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && Supported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk corpus dir %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadFile converts one file into chunks. Tabular files produce one chunk
// per row in "col: value | col: value" form; text files one chunk per
// line.
func (l *Loader) loadFile(path string) ([]*models.Chunk, error) {
	content, err := l.extractor.ExtractFile(path)
	if err != nil {
		return nil, err
	}

	sourceID := filepath.Base(path)
	var chunks []*models.Chunk
	add := func(text string) {
		normalized := NormalizeText(text, l.cfg.MaxChunkChars)
		if len(normalized) <= minChunkLen {
			return
		}
		chunks = append(chunks, &models.Chunk{
			ID:       uuid.New().String(),
			SourceID: sourceID,
			Content:  normalized,
			Index:    len(chunks),
		})
	}

	if content.Tabular() {
		for i, row := range content.Rows {
			if i >= l.cfg.MaxRowsPerFile || len(chunks) >= l.cfg.MaxRowsPerFile {
				break
			}
			add(formatRow(content.Columns, row))
		}
	} else {
		for i, line := range content.Lines {
			if i >= l.cfg.MaxRowsPerFile {
				break
			}
			add(line)
		}
	}
	return chunks, nil
}

// formatRow renders a table row as "col: value | col: value", skipping
// empty cells.
func formatRow(columns []string, row []string) string {
	parts := make([]string, 0, len(row))
	for i, val := range row {
		val = strings.TrimSpace(val)
		if val == "" || strings.EqualFold(val, "nan") {
			continue
		}
		col := fmt.Sprintf("col%d", i)
		if i < len(columns) && strings.TrimSpace(columns[i]) != "" {
			col = strings.TrimSpace(columns[i])
		}
		parts = append(parts, fmt.Sprintf("%s: %s", col, val))
	}
	return strings.Join(parts, " | ")
}
