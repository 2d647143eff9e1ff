package index

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/codeatlas/codeatlas/internal/errors"
	"github.com/codeatlas/codeatlas/internal/models"
)

// Reader loads prebuilt auxiliary indexes (documentation, prevention
// rules, tasks). Index files are JSON arrays produced by external
// tooling; the reader never writes them. A missing or corrupt file is
// surfaced as SourceUnavailable so the caller can degrade that source
// to an empty result.
type Reader struct {
	dir    string
	cache  *Cache // may be nil
	logger *slog.Logger
}

// NewReader creates a reader over a directory of index files. cache may
// be nil to disable the parsed-index cache.
func NewReader(dir string, cache *Cache) *Reader {
	return &Reader{
		dir:    dir,
		cache:  cache,
		logger: slog.Default().With("component", "index"),
	}
}

// indexFileNames maps a context source to its index file
var indexFileNames = map[models.ContextSource]string{
	models.SourceDocumentation: "documentation.json",
	models.SourcePrevention:    "prevention.json",
	models.SourceTask:          "tasks.json",
}

// Load returns the entries for one source
func (r *Reader) Load(source models.ContextSource) ([]models.IndexEntry, error) {
	name, ok := indexFileNames[source]
	if !ok {
		return nil, apperrors.ValidationErrorf("no index file for source %s", source)
	}
	return r.LoadFile(filepath.Join(r.dir, name))
}

// LoadFile reads and parses one index file, consulting the cache first
func (r *Reader) LoadFile(path string) ([]models.IndexEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.SourceUnavailablef(err, "index file %s unavailable", path)
	}

	if r.cache != nil {
		if entries, ok := r.cache.Get(path, info.ModTime()); ok {
			return entries, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.SourceUnavailablef(err, "index file %s unreadable", path)
	}

	var entries []models.IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, apperrors.SourceUnavailablef(err, "index file %s is corrupt", path)
	}

	if r.cache != nil {
		if err := r.cache.Put(path, info.ModTime(), entries); err != nil {
			r.logger.Debug("index cache write failed", "path", path, "error", err)
		}
	}

	return entries, nil
}
