package models

import "time"

// ScanRun records one pipeline execution over a workspace
type ScanRun struct {
	ID            string    `json:"id" db:"id"`
	Workspace     string    `json:"workspace" db:"workspace"`
	FilesTotal    int       `json:"files_total" db:"files_total"`
	FilesFailed   int       `json:"files_failed" db:"files_failed"`
	EntitiesRaw   int       `json:"entities_raw" db:"entities_raw"`
	EntitiesKept  int       `json:"entities_kept" db:"entities_kept"`
	Relationships int       `json:"relationships" db:"relationships"`
	StartedAt     time.Time `json:"started_at" db:"started_at"`
	FinishedAt    time.Time `json:"finished_at" db:"finished_at"`
}

// FileStat records per-file entity counts for one scan run
type FileStat struct {
	RunID        string `json:"run_id" db:"run_id"`
	FilePath     string `json:"file_path" db:"file_path"`
	EntitiesRaw  int    `json:"entities_raw" db:"entities_raw"`
	EntitiesKept int    `json:"entities_kept" db:"entities_kept"`
}
