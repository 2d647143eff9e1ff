package graph

import (
	"context"
	"strings"
	"sync"
)

// MemoryBackend is an in-process Backend used in tests and for dry runs.
// It mirrors the Neo4j backend's semantics: idempotent upserts, typed
// edges, breadth-first subgraph expansion with a node cap.
type MemoryBackend struct {
	mu    sync.RWMutex
	nodes map[string]GraphNode
	edges []GraphEdge
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		nodes: make(map[string]GraphNode),
	}
}

func (m *MemoryBackend) UpsertEntities(_ context.Context, nodes []GraphNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, node := range nodes {
		m.nodes[node.ID] = node
	}
	return nil
}

func (m *MemoryBackend) CreateRelationships(_ context.Context, edges []GraphEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, edge := range edges {
		edge.Label = SanitizeRelType(edge.Label)
		if m.hasEdge(edge) {
			continue
		}
		m.edges = append(m.edges, edge)
	}
	return nil
}

// hasEdge checks for an existing edge with the same type and endpoints.
// Caller must hold the lock.
func (m *MemoryBackend) hasEdge(edge GraphEdge) bool {
	for _, existing := range m.edges {
		if existing.Label == edge.Label && existing.From == edge.From && existing.To == edge.To {
			return true
		}
	}
	return false
}

func (m *MemoryBackend) FindNode(_ context.Context, name, kind string) (*GraphNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, node := range m.nodes {
		if node.Name == name && node.Label == kind {
			found := node
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryBackend) SearchNodes(_ context.Context, tokens []string, limit int) ([]GraphNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []GraphNode
	for _, node := range m.nodes {
		lowerName := strings.ToLower(node.Name)
		for _, tok := range tokens {
			if strings.Contains(lowerName, tok) || node.Label == tok {
				matches = append(matches, node)
				break
			}
		}
		if len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

func (m *MemoryBackend) GetSubgraph(_ context.Context, seedIDs []string, depth, maxNodes int) (*Subgraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub := &Subgraph{}
	visited := make(map[string]bool)
	frontier := make([]string, 0, len(seedIDs))

	for _, id := range seedIDs {
		if node, ok := m.nodes[id]; ok && !visited[id] {
			visited[id] = true
			sub.Nodes = append(sub.Nodes, node)
			frontier = append(frontier, id)
		}
	}

	for hop := 0; hop < depth && len(frontier) > 0 && len(sub.Nodes) < maxNodes; hop++ {
		var next []string
		for _, edge := range m.edges {
			for _, id := range frontier {
				var neighborID string
				switch id {
				case edge.From:
					neighborID = edge.To
				case edge.To:
					neighborID = edge.From
				default:
					continue
				}

				sub.Edges = append(sub.Edges, edge)
				if visited[neighborID] {
					continue
				}
				neighbor, ok := m.nodes[neighborID]
				if !ok {
					continue
				}
				visited[neighborID] = true
				sub.Nodes = append(sub.Nodes, neighbor)
				next = append(next, neighborID)
				if len(sub.Nodes) >= maxNodes {
					return sub, nil
				}
			}
		}
		frontier = next
	}

	return sub, nil
}

func (m *MemoryBackend) GetRelatedChunks(ctx context.Context, nodeIDs []string, depth int) ([]string, error) {
	sub, err := m.GetSubgraph(ctx, nodeIDs, depth, len(m.nodes)+1)
	if err != nil {
		return nil, err
	}

	var chunkIDs []string
	for _, node := range sub.Nodes {
		if node.Label == "chunk" {
			chunkIDs = append(chunkIDs, node.ID)
		}
	}
	return chunkIDs, nil
}

func (m *MemoryBackend) Close(_ context.Context) error {
	return nil
}
