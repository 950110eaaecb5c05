package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agrisage/agrisage/internal/models"
)

// SQLiteStore implements ChunkStore on SQLite with WAL enabled.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and initializes
// the schema. Parent directories are created as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		weather INTEGER NOT NULL DEFAULT 0,
		location TEXT,
		rowid_order INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_order ON chunks(rowid_order);
	`
	_, err := db.Exec(schema)
	return err
}

// PutChunks inserts chunks in one transaction, preserving slice order.
func (s *SQLiteStore) PutChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(rowid_order), -1) + 1 FROM chunks`).Scan(&next); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source_id, content, chunk_index, weather, location, rowid_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, c := range chunks {
		c.CreatedAt = now
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.SourceID, c.Content, c.Index, boolToInt(c.Weather), c.Location, next+int64(i), c.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	var c models.Chunk
	var weather int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_id, content, chunk_index, weather, COALESCE(location, ''), created_at
		 FROM chunks WHERE id = ?`, id,
	).Scan(&c.ID, &c.SourceID, &c.Content, &c.Index, &weather, &c.Location, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	c.Weather = weather != 0
	return &c, nil
}

// AllChunks returns every chunk in insertion order.
func (s *SQLiteStore) AllChunks(ctx context.Context) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, content, chunk_index, weather, COALESCE(location, ''), created_at
		 FROM chunks ORDER BY rowid_order`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var c models.Chunk
		var weather int
		if err := rows.Scan(&c.ID, &c.SourceID, &c.Content, &c.Index, &weather, &c.Location, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Weather = weather != 0
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// DeleteAll removes every chunk.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
