package storage

import (
	"context"
	"errors"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Store defines the scan bookkeeping interface
type Store interface {
	// Scan run operations
	SaveScanRun(ctx context.Context, run *models.ScanRun) error
	GetScanRun(ctx context.Context, id string) (*models.ScanRun, error)
	GetLatestScanRun(ctx context.Context, workspace string) (*models.ScanRun, error)
	ListScanRuns(ctx context.Context, workspace string, limit int) ([]*models.ScanRun, error)

	// Per-file statistics
	SaveFileStats(ctx context.Context, stats []*models.FileStat) error
	GetFileStats(ctx context.Context, runID string) ([]*models.FileStat, error)

	// Close connection
	Close() error
}
