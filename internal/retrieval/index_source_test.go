package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/codeatlas/internal/index"
	"github.com/codeatlas/codeatlas/internal/models"
)

func writeDocIndex(t *testing.T, content string) *index.Reader {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "documentation.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return index.NewReader(dir, nil)
}

const authIndex = `[
  {"id": "doc-auth", "title": "Session handling", "path": "docs/auth.md",
   "content": "Sessions are issued on login and validated per request.",
   "category": "security", "keywords": ["session", "login", "auth"],
   "lastModified": "2026-08-15T00:00:00Z"},
  {"id": "doc-build", "title": "Build pipeline", "path": "docs/build.md",
   "content": "How the bundler is configured.", "category": "tooling",
   "keywords": ["bundler", "webpack"], "lastModified": "2026-01-01T00:00:00Z"}
]`

func TestIndexSource_ScoresByFieldMatches(t *testing.T) {
	source := NewIndexSource(writeDocIndex(t, authIndex), models.SourceDocumentation)

	contexts, err := source.Retrieve(context.Background(), []string{"session", "login"}, 10)
	require.NoError(t, err)

	require.Len(t, contexts, 1)
	c := contexts[0]
	assert.Equal(t, "doc-auth", c.ID)
	assert.Equal(t, models.SourceDocumentation, c.Source)

	// title 0.4*(1/2) + keywords 0.3*(2/2) + content 0.2*(2/2)
	assert.InDelta(t, 0.7, c.Score, 1e-9)
}

func TestIndexSource_CategoryBonus(t *testing.T) {
	source := NewIndexSource(writeDocIndex(t, authIndex), models.SourceDocumentation)

	contexts, err := source.Retrieve(context.Background(), []string{"security", "login"}, 10)
	require.NoError(t, err)

	require.Len(t, contexts, 1)
	// keywords 0.3*(1/2) + content 0.2*(1/2) + category 0.2
	assert.InDelta(t, 0.45, contexts[0].Score, 1e-9)
}

func TestIndexSource_FloorDropsWeakMatches(t *testing.T) {
	source := NewIndexSource(writeDocIndex(t, authIndex), models.SourceDocumentation)

	// "configured" only hits doc-build's content: 0.2 < 0.3
	contexts, err := source.Retrieve(context.Background(), []string{"configured"}, 10)
	require.NoError(t, err)
	assert.Empty(t, contexts)
}

func TestIndexSource_MissingIndexErrors(t *testing.T) {
	reader := index.NewReader(t.TempDir(), nil)
	source := NewIndexSource(reader, models.SourcePrevention)

	_, err := source.Retrieve(context.Background(), []string{"anything"}, 10)
	assert.Error(t, err)
}

func TestIndexSource_MetadataCarriesModificationTime(t *testing.T) {
	source := NewIndexSource(writeDocIndex(t, authIndex), models.SourceDocumentation)

	contexts, err := source.Retrieve(context.Background(), []string{"session", "login"}, 10)
	require.NoError(t, err)
	require.Len(t, contexts, 1)

	modified, ok := contexts[0].Metadata["last_modified"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2026, modified.Year())
}
