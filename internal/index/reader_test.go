package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/codeatlas/codeatlas/internal/errors"
	"github.com/codeatlas/codeatlas/internal/models"
)

const sampleIndex = `[
  {"id": "doc-1", "title": "Auth guide", "path": "docs/auth.md",
   "content": "How sessions are issued.", "category": "security",
   "keywords": ["auth", "session"], "lastModified": "2026-08-01T00:00:00Z"},
  {"id": "doc-2", "title": "Storage layout", "path": "docs/storage.md",
   "content": "Tables and indexes.", "category": "storage",
   "keywords": ["postgres"], "lastModified": "2026-07-01T00:00:00Z"}
]`

func writeIndex(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ParsesIndexFile(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "documentation.json", sampleIndex)

	reader := NewReader(dir, nil)
	entries, err := reader.Load(models.SourceDocumentation)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "doc-1", entries[0].ID)
	assert.Equal(t, []string{"auth", "session"}, entries[0].Keywords)
	assert.Equal(t, "security", entries[0].Category)
}

func TestLoad_MissingFileIsSourceUnavailable(t *testing.T) {
	reader := NewReader(t.TempDir(), nil)

	_, err := reader.Load(models.SourcePrevention)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSourceUnavailable, apperrors.GetType(err))
}

func TestLoad_CorruptFileIsSourceUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "tasks.json", "{not json")

	reader := NewReader(dir, nil)
	_, err := reader.Load(models.SourceTask)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeSourceUnavailable, apperrors.GetType(err))
}

func TestLoad_UnknownSourceRejected(t *testing.T) {
	reader := NewReader(t.TempDir(), nil)

	_, err := reader.Load(models.SourceCode)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}

func TestCache_RoundTripAndInvalidation(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(filepath.Join(dir, "cache", "indexes.db"))
	require.NoError(t, err)
	defer cache.Close()

	path := writeIndex(t, dir, "documentation.json", sampleIndex)
	info, err := os.Stat(path)
	require.NoError(t, err)

	reader := NewReader(dir, cache)

	entries, err := reader.Load(models.SourceDocumentation)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Cache hit for the same modification time
	cached, ok := cache.Get(path, info.ModTime())
	require.True(t, ok)
	assert.Len(t, cached, 2)

	// A different modification time misses
	_, ok = cache.Get(path, info.ModTime().Add(time.Second))
	assert.False(t, ok)
}
