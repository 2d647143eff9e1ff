package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/codeatlas/codeatlas/internal/models"
)

// SQLiteStore implements scan bookkeeping using SQLite (local default)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_runs (
		id TEXT PRIMARY KEY,
		workspace TEXT NOT NULL,
		files_total INTEGER,
		files_failed INTEGER,
		entities_raw INTEGER,
		entities_kept INTEGER,
		relationships INTEGER,
		started_at DATETIME,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS file_stats (
		run_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		entities_raw INTEGER,
		entities_kept INTEGER,
		PRIMARY KEY (run_id, file_path),
		FOREIGN KEY (run_id) REFERENCES scan_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_scan_runs_workspace ON scan_runs(workspace, finished_at);
	CREATE INDEX IF NOT EXISTS idx_file_stats_run ON file_stats(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scan run operations
func (s *SQLiteStore) SaveScanRun(ctx context.Context, run *models.ScanRun) error {
	query := `
		INSERT OR REPLACE INTO scan_runs
		(id, workspace, files_total, files_failed,
		 entities_raw, entities_kept, relationships, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Workspace, run.FilesTotal, run.FilesFailed,
		run.EntitiesRaw, run.EntitiesKept, run.Relationships,
		run.StartedAt, run.FinishedAt)

	return err
}

func (s *SQLiteStore) GetScanRun(ctx context.Context, id string) (*models.ScanRun, error) {
	var run models.ScanRun
	query := `SELECT * FROM scan_runs WHERE id = ?`

	err := s.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &run, nil
}

func (s *SQLiteStore) GetLatestScanRun(ctx context.Context, workspace string) (*models.ScanRun, error) {
	var run models.ScanRun
	query := `SELECT * FROM scan_runs WHERE workspace = ? ORDER BY finished_at DESC LIMIT 1`

	err := s.db.GetContext(ctx, &run, query, workspace)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &run, nil
}

func (s *SQLiteStore) ListScanRuns(ctx context.Context, workspace string, limit int) ([]*models.ScanRun, error) {
	var runs []*models.ScanRun
	query := `SELECT * FROM scan_runs WHERE workspace = ? ORDER BY finished_at DESC LIMIT ?`

	err := s.db.SelectContext(ctx, &runs, query, workspace, limit)
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// Per-file statistics
func (s *SQLiteStore) SaveFileStats(ctx context.Context, stats []*models.FileStat) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO file_stats
		(run_id, file_path, entities_raw, entities_kept)
		VALUES (?, ?, ?, ?)
	`

	for _, stat := range stats {
		_, err := tx.ExecContext(ctx, query,
			stat.RunID, stat.FilePath, stat.EntitiesRaw, stat.EntitiesKept)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetFileStats(ctx context.Context, runID string) ([]*models.FileStat, error) {
	var stats []*models.FileStat
	query := `SELECT * FROM file_stats WHERE run_id = ? ORDER BY file_path`

	err := s.db.SelectContext(ctx, &stats, query, runID)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
