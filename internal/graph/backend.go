package graph

import "context"

// Backend defines the interface for knowledge graph store operations.
// The production implementation targets Neo4j over Bolt; tests use the
// in-memory backend.
type Backend interface {
	// UpsertEntities writes enriched entity nodes in batch (idempotent)
	UpsertEntities(ctx context.Context, nodes []GraphNode) error

	// CreateRelationships creates typed edges between entity nodes in batch
	CreateRelationships(ctx context.Context, edges []GraphEdge) error

	// FindNode looks up a single node by name and kind label
	FindNode(ctx context.Context, name, kind string) (*GraphNode, error)

	// SearchNodes returns candidate nodes whose name or label matches any
	// of the query tokens, up to limit
	SearchNodes(ctx context.Context, tokens []string, limit int) ([]GraphNode, error)

	// GetSubgraph expands outward from the seed node IDs up to depth hops,
	// returning at most maxNodes nodes
	GetSubgraph(ctx context.Context, seedIDs []string, depth, maxNodes int) (*Subgraph, error)

	// GetRelatedChunks returns chunk IDs reachable from the given entity
	// node IDs within depth hops
	GetRelatedChunks(ctx context.Context, nodeIDs []string, depth int) ([]string, error)

	// Close closes the backend connection
	Close(ctx context.Context) error
}

// GraphNode represents an entity node in the knowledge graph
type GraphNode struct {
	ID         string                 // Unique identifier (kind:name or kind:name:source)
	Label      string                 // Node kind: "function", "class", "import", etc.
	Name       string                 // Entity name
	Properties map[string]interface{} // Node properties (confidence, category, file path, ...)
}

// GraphEdge represents a typed relationship between entity nodes
type GraphEdge struct {
	Label      string                 // Relationship type: "CALLS", "IMPORTS", "EXTENDS", etc.
	From       string                 // Source node ID
	To         string                 // Target node ID
	Properties map[string]interface{} // Edge properties (confidence, evidence, ...)
}

// Subgraph is the result of a seeded expansion query
type Subgraph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}
