package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/codeatlas/codeatlas/internal/models"
)

// fixtureExtractor serves canned entities for two files and fails a third
func fixtureExtractor() Extractor {
	byFile := map[string][]models.RawEntity{
		"src/users.ts": {
			{Kind: models.KindImport, Name: "express", Source: "express", FilePath: "src/users.ts", Line: 1, Scope: models.ScopeModule},
			{Kind: models.KindClass, Name: "UserService", FilePath: "src/users.ts", Line: 5, Scope: models.ScopeModule,
				Text: "class UserService extends BaseService {"},
			{Kind: models.KindVariable, Name: "tmp", FilePath: "src/users.ts", Line: 7, Scope: models.ScopeLocal},
		},
		"src/app.ts": {
			{Kind: models.KindImport, Name: "express", Source: "express", FilePath: "src/app.ts", Line: 1, Scope: models.ScopeModule},
			{Kind: models.KindFunction, Name: "startServer", FilePath: "src/app.ts", Line: 3, Scope: models.ScopeModule},
		},
	}

	return ExtractorFunc(func(_ context.Context, path string) ([]models.RawEntity, error) {
		entities, ok := byFile[path]
		if !ok {
			return nil, assert.AnError
		}
		return entities, nil
	})
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	backend := graph.NewMemoryBackend()

	p := New(nil, fixtureExtractor(), WithGraph(backend))

	files := []string{"src/users.ts", "src/app.ts", "src/broken.ts"}
	result, err := p.Run(ctx, "demo", files, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Run.FilesTotal)
	assert.Equal(t, 1, result.Run.FilesFailed)
	assert.Equal(t, 5, result.Run.EntitiesRaw)
	// local variable dropped, two express imports merged
	assert.Equal(t, 3, result.Run.EntitiesKept)
	assert.Len(t, result.Errors, 1)

	var express *models.EnrichedEntity
	for i := range result.Entities {
		if result.Entities[i].Name == "express" {
			express = &result.Entities[i]
		}
	}
	require.NotNil(t, express)
	assert.Equal(t, 2, express.Occurrences)
	assert.Equal(t, models.CategoryExternal, express.Category)

	// Persisted nodes include the scanned entities
	node, err := backend.FindNode(ctx, "UserService", "class")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "class:UserService", node.ID)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	ctx := context.Background()
	files := []string{"src/users.ts", "src/app.ts"}

	first, err := New(nil, fixtureExtractor()).Run(ctx, "demo", files, nil)
	require.NoError(t, err)
	second, err := New(nil, fixtureExtractor()).Run(ctx, "demo", files, nil)
	require.NoError(t, err)

	require.Equal(t, len(first.Entities), len(second.Entities))
	for i := range first.Entities {
		assert.Equal(t, first.Entities[i].Name, second.Entities[i].Name)
		assert.Equal(t, first.Entities[i].Confidence, second.Entities[i].Confidence)
		assert.Equal(t, first.Entities[i].SemanticType, second.Entities[i].SemanticType)
	}
}

func TestRun_RelationshipEdgesReachModuleNodes(t *testing.T) {
	ctx := context.Background()
	backend := graph.NewMemoryBackend()

	p := New(nil, fixtureExtractor(), WithGraph(backend))
	_, err := p.Run(ctx, "demo", []string{"src/users.ts"}, nil)
	require.NoError(t, err)

	// The express import produces an edge to a module node for the package
	node, err := backend.FindNode(ctx, "express", "module")
	require.NoError(t, err)
	assert.NotNil(t, node)
}

func TestPersistGraph_SharedNameResolvesByKindPriority(t *testing.T) {
	ctx := context.Background()
	backend := graph.NewMemoryBackend()
	p := New(nil, fixtureExtractor(), WithGraph(backend))

	// The typeRef comes first so insertion order cannot pick the winner
	entities := []models.EnrichedEntity{
		{NormalizedEntity: models.NormalizedEntity{
			RawEntity: models.RawEntity{Kind: models.KindTypeRef, Name: "Logger"}}},
		{NormalizedEntity: models.NormalizedEntity{
			RawEntity: models.RawEntity{Kind: models.KindClass, Name: "Logger"}}},
		{NormalizedEntity: models.NormalizedEntity{
			RawEntity: models.RawEntity{Kind: models.KindFunction, Name: "startServer"}},
			Relationships: []models.Relationship{
				{Target: "Logger", Type: models.RelCalls, Confidence: 0.8},
			}},
	}

	require.NoError(t, p.persistGraph(ctx, entities))

	sub, err := backend.GetSubgraph(ctx, []string{"function:startServer"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, sub.Edges, 1)
	assert.Equal(t, "function:startServer", sub.Edges[0].From)
	assert.Equal(t, "class:Logger", sub.Edges[0].To)
}

func TestRun_EmptyFileList(t *testing.T) {
	result, err := New(nil, fixtureExtractor()).Run(context.Background(), "demo", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Run.FilesTotal)
	assert.Empty(t, result.Entities)
}
