package pipeline

import (
	"context"
	"log/slog"

	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/codeatlas/codeatlas/internal/models"
)

// confidenceGraphReference is the confidence for linking a fresh mention
// to a node that already exists in the graph store
const confidenceGraphReference = 0.85

// Discovery links newly enriched entities to pre-existing graph nodes
// and attaches documentation from supplied content fragments. The graph
// store is optional: absence or failure degrades to no linking, never
// an error.
type Discovery struct {
	backend graph.Backend // may be nil
	logger  *slog.Logger
}

// NewDiscovery creates a discovery filter. backend may be nil when no
// graph store is reachable.
func NewDiscovery(backend graph.Backend) *Discovery {
	return &Discovery{
		backend: backend,
		logger:  slog.Default().With("component", "discovery"),
	}
}

// Link mutates the enriched entities in place: known graph nodes gain a
// references relationship, and matching doc-comment chunks become the
// entity's documentation.
func (d *Discovery) Link(ctx context.Context, entities []models.EnrichedEntity, chunks []models.Chunk) {
	for i := range entities {
		d.linkExisting(ctx, &entities[i])
		attachDocumentation(&entities[i], chunks)
	}
}

// linkExisting checks the graph store for a node with the same name and
// kind. A hit with at least one linked content fragment produces a
// references edge, which is how the graph grows across files and scans
// without duplicating nodes.
func (d *Discovery) linkExisting(ctx context.Context, e *models.EnrichedEntity) {
	if d.backend == nil {
		return
	}

	node, err := d.backend.FindNode(ctx, e.Name, string(e.Kind))
	if err != nil {
		d.logger.Debug("graph lookup failed, skipping link",
			"entity", e.Name, "error", err)
		return
	}
	if node == nil {
		return
	}

	chunkIDs, err := d.backend.GetRelatedChunks(ctx, []string{node.ID}, 1)
	if err != nil {
		d.logger.Debug("chunk lookup failed, skipping link",
			"entity", e.Name, "error", err)
		return
	}
	if len(chunkIDs) == 0 {
		return
	}

	for _, rel := range e.Relationships {
		if rel.Type == models.RelReferences && rel.Target == node.ID {
			return
		}
	}

	e.Relationships = append(e.Relationships, models.Relationship{
		Target:     node.ID,
		Type:       models.RelReferences,
		Confidence: confidenceGraphReference,
		Evidence:   []string{"existing graph node with linked content"},
	})
}

// attachDocumentation copies the first matching doc-comment fragment
// onto the entity, unless enrichment already found one inline.
func attachDocumentation(e *models.EnrichedEntity, chunks []models.Chunk) {
	if e.Documentation != "" {
		return
	}
	for _, chunk := range chunks {
		if chunk.Symbol == e.Name && chunk.IsDocComment() {
			e.Documentation = chunk.Content
			return
		}
	}
}
