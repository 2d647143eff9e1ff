package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/codeatlas/codeatlas/internal/models"
)

// PostgresStore implements scan bookkeeping using PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_runs (
		id TEXT PRIMARY KEY,
		workspace TEXT NOT NULL,
		files_total INTEGER,
		files_failed INTEGER,
		entities_raw INTEGER,
		entities_kept INTEGER,
		relationships INTEGER,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS file_stats (
		run_id TEXT NOT NULL REFERENCES scan_runs(id),
		file_path TEXT NOT NULL,
		entities_raw INTEGER,
		entities_kept INTEGER,
		PRIMARY KEY (run_id, file_path)
	);

	CREATE INDEX IF NOT EXISTS idx_scan_runs_workspace ON scan_runs(workspace, finished_at);
	CREATE INDEX IF NOT EXISTS idx_file_stats_run ON file_stats(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Scan run operations

func (s *PostgresStore) SaveScanRun(ctx context.Context, run *models.ScanRun) error {
	query := `
		INSERT INTO scan_runs (id, workspace, files_total, files_failed,
			entities_raw, entities_kept, relationships, started_at, finished_at)
		VALUES (:id, :workspace, :files_total, :files_failed,
			:entities_raw, :entities_kept, :relationships, :started_at, :finished_at)
		ON CONFLICT (id) DO UPDATE SET
			files_total = EXCLUDED.files_total,
			files_failed = EXCLUDED.files_failed,
			entities_raw = EXCLUDED.entities_raw,
			entities_kept = EXCLUDED.entities_kept,
			relationships = EXCLUDED.relationships,
			finished_at = EXCLUDED.finished_at
	`

	_, err := s.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("save scan run: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetScanRun(ctx context.Context, id string) (*models.ScanRun, error) {
	var run models.ScanRun
	query := `SELECT * FROM scan_runs WHERE id = $1`

	err := s.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get scan run: %w", err)
	}

	return &run, nil
}

func (s *PostgresStore) GetLatestScanRun(ctx context.Context, workspace string) (*models.ScanRun, error) {
	var run models.ScanRun
	query := `SELECT * FROM scan_runs WHERE workspace = $1 ORDER BY finished_at DESC LIMIT 1`

	err := s.db.GetContext(ctx, &run, query, workspace)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest scan run: %w", err)
	}

	return &run, nil
}

func (s *PostgresStore) ListScanRuns(ctx context.Context, workspace string, limit int) ([]*models.ScanRun, error) {
	var runs []*models.ScanRun
	query := `SELECT * FROM scan_runs WHERE workspace = $1 ORDER BY finished_at DESC LIMIT $2`

	err := s.db.SelectContext(ctx, &runs, query, workspace, limit)
	if err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}

	return runs, nil
}

// Per-file statistics

func (s *PostgresStore) SaveFileStats(ctx context.Context, stats []*models.FileStat) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO file_stats (run_id, file_path, entities_raw, entities_kept)
		VALUES (:run_id, :file_path, :entities_raw, :entities_kept)
		ON CONFLICT (run_id, file_path) DO UPDATE SET
			entities_raw = EXCLUDED.entities_raw,
			entities_kept = EXCLUDED.entities_kept
	`

	for _, stat := range stats {
		if _, err := tx.NamedExecContext(ctx, query, stat); err != nil {
			return fmt.Errorf("save file stat %s: %w", stat.FilePath, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetFileStats(ctx context.Context, runID string) ([]*models.FileStat, error) {
	var stats []*models.FileStat
	query := `SELECT * FROM file_stats WHERE run_id = $1 ORDER BY file_path`

	err := s.db.SelectContext(ctx, &stats, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get file stats: %w", err)
	}

	return stats, nil
}
