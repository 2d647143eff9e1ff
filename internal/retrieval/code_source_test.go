package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/codeatlas/codeatlas/internal/models"
)

func seededBackend(t *testing.T) *graph.MemoryBackend {
	t.Helper()
	backend := graph.NewMemoryBackend()

	err := backend.UpsertEntities(context.Background(), []graph.GraphNode{
		{ID: "class:UserService", Label: "class", Name: "UserService",
			Properties: map[string]any{"semantic_type": "service"}},
		{ID: "function:getUser", Label: "function", Name: "getUser",
			Properties: map[string]any{"file_path": "src/users.ts"}},
		{ID: "function:renderChart", Label: "function", Name: "renderChart"},
	})
	require.NoError(t, err)

	err = backend.CreateRelationships(context.Background(), []graph.GraphEdge{
		{Label: "contains", From: "class:UserService", To: "function:getUser"},
	})
	require.NoError(t, err)

	return backend
}

func TestCodeSource_ScoresAndFloors(t *testing.T) {
	source := NewCodeSource(seededBackend(t))

	contexts, err := source.Retrieve(context.Background(), []string{"user"}, 10)
	require.NoError(t, err)

	byID := map[string]models.RetrievedContext{}
	for _, c := range contexts {
		byID[c.ID] = c
	}

	// Identifier matches score 0.3 and survive the floor
	require.Contains(t, byID, "class:UserService")
	require.Contains(t, byID, "function:getUser")

	// renderChart matches nothing; even if pulled into the subgraph it
	// must be dropped below the floor
	assert.NotContains(t, byID, "function:renderChart")
}

func TestCodeSource_LabelMatchOutscoresIdentifier(t *testing.T) {
	source := NewCodeSource(seededBackend(t))

	contexts, err := source.Retrieve(context.Background(), []string{"service", "user"}, 10)
	require.NoError(t, err)

	var userService models.RetrievedContext
	for _, c := range contexts {
		if c.ID == "class:UserService" {
			userService = c
		}
	}

	// "service" hits the semantic type (+0.4) and the identifier (+0.3),
	// "user" hits the identifier (+0.3)
	assert.InDelta(t, 1.0, userService.Score, 1e-9)
}

func TestCodeSource_IsolatedNodeSurfaces(t *testing.T) {
	backend := graph.NewMemoryBackend()
	err := backend.UpsertEntities(context.Background(), []graph.GraphNode{
		{ID: "class:OrphanWidget", Label: "class", Name: "OrphanWidget"},
	})
	require.NoError(t, err)

	source := NewCodeSource(backend)

	// A matched node with no relationships must still come back
	contexts, err := source.Retrieve(context.Background(), []string{"orphanwidget"}, 10)
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	assert.Equal(t, "class:OrphanWidget", contexts[0].ID)
}

func TestCodeSource_NoSeedsNoContexts(t *testing.T) {
	source := NewCodeSource(seededBackend(t))

	contexts, err := source.Retrieve(context.Background(), []string{"nonexistent"}, 10)
	require.NoError(t, err)
	assert.Empty(t, contexts)
}

func TestCodeSource_ContextShape(t *testing.T) {
	source := NewCodeSource(seededBackend(t))

	contexts, err := source.Retrieve(context.Background(), []string{"getuser"}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, contexts)

	var c models.RetrievedContext
	for _, candidate := range contexts {
		if candidate.ID == "function:getUser" {
			c = candidate
		}
	}
	assert.Equal(t, models.SourceCode, c.Source)
	assert.Equal(t, "src/users.ts", c.FilePath)
	assert.Equal(t, "function", c.Metadata["kind"])
}
