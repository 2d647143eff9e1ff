package models

import "time"

// ContextSource is the provenance category of a retrieved context
type ContextSource string

const (
	SourceCode          ContextSource = "code"
	SourceDocumentation ContextSource = "documentation"
	SourceTask          ContextSource = "task"
	SourcePrevention    ContextSource = "prevention"
	SourceMetadata      ContextSource = "metadata"
)

// RetrievedContext is a scored content fragment returned for one query.
// Contexts are ephemeral: built per query, discarded after the response.
type RetrievedContext struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Source   ContextSource  `json:"source"`
	Score    float64        `json:"score"`
	FilePath string         `json:"file_path,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Snippet  string         `json:"snippet,omitempty"`
}

// IndexEntry is one row of a prebuilt auxiliary index
// (documentation, prevention rules, tasks); read-only, externally generated
type IndexEntry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	Keywords     []string  `json:"keywords"`
	LastModified time.Time `json:"lastModified"`
}
