package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeatlas/codeatlas/internal/models"
)

// ChunkStore wraps a PostgreSQL pool holding content fragments that
// back documentation attachment and related-chunk reads
type ChunkStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewChunkStore creates a chunk store from a connection string and
// verifies connectivity before returning
func NewChunkStore(ctx context.Context, dsn string) (*ChunkStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("chunk store dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to chunk store: %w", err)
	}

	logger := slog.Default().With("component", "chunks")

	store := &ChunkStore{pool: pool, logger: logger}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("chunk store connected")
	return store, nil
}

func (s *ChunkStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		file_path TEXT NOT NULL DEFAULT '',
		last_modified TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_symbol ON chunks(symbol);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to init chunk schema: %w", err)
	}
	return nil
}

// SaveChunks upserts content fragments by id
func (s *ChunkStore) SaveChunks(ctx context.Context, chunks []models.Chunk) error {
	query := `
		INSERT INTO chunks (id, symbol, kind, content, file_path, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			kind = EXCLUDED.kind,
			content = EXCLUDED.content,
			file_path = EXCLUDED.file_path,
			last_modified = EXCLUDED.last_modified
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin chunk tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		if _, err := tx.Exec(ctx, query,
			c.ID, c.Symbol, c.Kind, c.Content, c.FilePath, c.LastModified); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}

	s.logger.Debug("chunks saved", "count", len(chunks))
	return nil
}

// GetChunks returns the fragments with the given ids, in store order
func (s *ChunkStore) GetChunks(ctx context.Context, ids []string) ([]models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, kind, content, file_path, last_modified
		FROM chunks WHERE id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ListChunks returns up to limit fragments, most recently modified first
func (s *ChunkStore) ListChunks(ctx context.Context, limit int) ([]models.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, kind, content, file_path, last_modified
		FROM chunks
		ORDER BY last_modified DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// GetChunksBySymbol returns all fragments attached to a symbol name
func (s *ChunkStore) GetChunksBySymbol(ctx context.Context, symbol string) ([]models.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, kind, content, file_path, last_modified
		FROM chunks WHERE symbol = $1
		ORDER BY id
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks for %s: %w", symbol, err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanChunks(rows pgxRows) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.Symbol, &c.Kind, &c.Content, &c.FilePath, &c.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// HealthCheck verifies connectivity
func (s *ChunkStore) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("chunk store health check failed: %w", err)
	}
	return nil
}

// Close closes the pool
func (s *ChunkStore) Close() {
	s.pool.Close()
	s.logger.Info("chunk store closed")
}
