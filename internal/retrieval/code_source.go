package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeatlas/codeatlas/internal/graph"
	"github.com/codeatlas/codeatlas/internal/models"
)

// Per-token scoring for graph nodes
const (
	codeLabelWeight      = 0.4
	codeIdentifierWeight = 0.3
	codeScoreFloor       = 0.3

	subgraphDepth    = 2
	subgraphMinNodes = 500
	seedLimit        = 25
)

// Source retrieves candidate contexts for a tokenized query. Retrieval
// errors fail only that source; the retriever degrades it to an empty
// result.
type Source interface {
	Name() models.ContextSource
	Retrieve(ctx context.Context, tokens []string, maxResults int) ([]models.RetrievedContext, error)
}

// CodeSource retrieves contexts from the knowledge graph: find seed
// nodes matching the query, expand a bounded subgraph around them,
// score every node in it.
type CodeSource struct {
	backend graph.Backend
}

// NewCodeSource creates a code source over a graph store
func NewCodeSource(backend graph.Backend) *CodeSource {
	return &CodeSource{backend: backend}
}

func (s *CodeSource) Name() models.ContextSource {
	return models.SourceCode
}

func (s *CodeSource) Retrieve(ctx context.Context, tokens []string, maxResults int) ([]models.RetrievedContext, error) {
	seeds, err := s.backend.SearchNodes(ctx, tokens, seedLimit)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	seedIDs := make([]string, len(seeds))
	for i, seed := range seeds {
		seedIDs[i] = seed.ID
	}

	// The subgraph is bounded regardless of store size
	maxNodes := subgraphMinNodes
	if n := 50 * maxResults; n > maxNodes {
		maxNodes = n
	}

	sub, err := s.backend.GetSubgraph(ctx, seedIDs, subgraphDepth, maxNodes)
	if err != nil {
		return nil, err
	}

	var contexts []models.RetrievedContext
	for _, node := range sub.Nodes {
		score := scoreNode(node, tokens)
		if score < codeScoreFloor {
			continue
		}
		contexts = append(contexts, nodeContext(node, score))
	}

	return contexts, nil
}

// scoreNode scores one graph node against the query tokens: label
// matches count more than identifier matches, clipped to 1.0
func scoreNode(node graph.GraphNode, tokens []string) float64 {
	label := strings.ToLower(node.Label)
	name := strings.ToLower(node.Name)
	semantic, _ := node.Properties["semantic_type"].(string)

	var score float64
	for _, tok := range tokens {
		if strings.Contains(label, tok) || (semantic != "" && strings.Contains(semantic, tok)) {
			score += codeLabelWeight
		}
		if strings.Contains(name, tok) {
			score += codeIdentifierWeight
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// nodeContext converts a graph node into a retrieved context
func nodeContext(node graph.GraphNode, score float64) models.RetrievedContext {
	content := fmt.Sprintf("%s %s", node.Label, node.Name)
	if semantic, ok := node.Properties["semantic_type"].(string); ok && semantic != "" {
		content = fmt.Sprintf("%s (%s)", content, semantic)
	}

	filePath, _ := node.Properties["file_path"].(string)

	return models.RetrievedContext{
		ID:       node.ID,
		Content:  content,
		Source:   models.SourceCode,
		Score:    score,
		FilePath: filePath,
		Metadata: map[string]any{
			"kind": node.Label,
			"name": node.Name,
		},
	}
}
