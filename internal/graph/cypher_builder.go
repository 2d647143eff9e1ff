package graph

import (
	"fmt"
	"regexp"
	"strings"
)

// CypherBuilder builds safe, parameterized Cypher queries.
// All values go through parameters to prevent Cypher injection;
// identifiers (labels, property keys) are validated separately since
// Cypher cannot parameterize them.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a query builder
func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{
		params:  make(map[string]any),
		counter: 0,
	}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	paramName := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[paramName] = value
	return "$" + paramName
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildUpsertEntities creates a batched UNWIND MERGE for entity nodes of a
// single label. Rows must carry an "id" key plus the node properties.
func (b *CypherBuilder) BuildUpsertEntities(label string, rows []map[string]any) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s (must be alphanumeric + underscore)", label)
	}

	rowsParam := b.AddParam(rows)

	return fmt.Sprintf(
		"UNWIND %s AS row MERGE (n:%s {id: row.id}) SET n += row.props",
		rowsParam, label,
	), nil
}

// BuildMergeRelationships creates a batched UNWIND MERGE for edges of a
// single relationship type. Rows carry "from", "to" and "props" keys.
func (b *CypherBuilder) BuildMergeRelationships(relType string, rows []map[string]any) (string, error) {
	if !isValidIdentifier(relType) {
		return "", fmt.Errorf("invalid relationship type: %s (must be alphanumeric + underscore)", relType)
	}

	rowsParam := b.AddParam(rows)

	return fmt.Sprintf(
		"UNWIND %s AS row "+
			"MATCH (from:Entity {id: row.from}) "+
			"MATCH (to:Entity {id: row.to}) "+
			"MERGE (from)-[r:%s]->(to) SET r += row.props",
		rowsParam, relType,
	), nil
}

// BuildFindNode creates a lookup query for a single node by name and kind
func (b *CypherBuilder) BuildFindNode(name, kind string) (string, error) {
	nameParam := b.AddParam(name)
	kindParam := b.AddParam(kind)

	return fmt.Sprintf(
		"MATCH (n:Entity {name: %s, kind: %s}) "+
			"RETURN n.id AS id, n.kind AS kind, n.name AS name, properties(n) AS props LIMIT 1",
		nameParam, kindParam,
	), nil
}

// BuildSearchNodes creates a token match query over node names and kinds
func (b *CypherBuilder) BuildSearchNodes(tokens []string, limit int) (string, error) {
	if len(tokens) == 0 {
		return "", fmt.Errorf("at least one search token is required")
	}
	if limit < 1 {
		return "", fmt.Errorf("search limit must be positive, got %d", limit)
	}

	tokensParam := b.AddParam(tokens)
	limitParam := b.AddParam(limit)

	return fmt.Sprintf(
		"MATCH (n:Entity) "+
			"WHERE any(tok IN %s WHERE toLower(n.name) CONTAINS tok OR n.kind = tok) "+
			"RETURN n.id AS id, n.kind AS kind, n.name AS name, properties(n) AS props "+
			"LIMIT %s",
		tokensParam, limitParam,
	), nil
}

// BuildSubgraph creates a seeded variable-length expansion query.
// Depth is embedded in the pattern since Cypher cannot parameterize
// the bounds of a variable-length relationship.
func (b *CypherBuilder) BuildSubgraph(seedIDs []string, depth, maxNodes int) (string, error) {
	if len(seedIDs) == 0 {
		return "", fmt.Errorf("at least one seed node ID is required")
	}
	if depth < 1 || depth > 5 {
		return "", fmt.Errorf("subgraph depth must be in [1, 5], got %d", depth)
	}
	if maxNodes < 1 {
		return "", fmt.Errorf("subgraph node cap must be positive, got %d", maxNodes)
	}

	seedsParam := b.AddParam(seedIDs)
	capParam := b.AddParam(maxNodes)

	// The inner match is optional so isolated seeds still yield a row;
	// returning the path nodes keeps edge endpoints resolvable.
	return fmt.Sprintf(
		"MATCH (seed:Entity) WHERE seed.id IN %s "+
			"CALL { WITH seed OPTIONAL MATCH p = (seed)-[*1..%d]-(:Entity) "+
			"RETURN nodes(p) AS others, relationships(p) AS rels LIMIT %s } "+
			"RETURN seed, others, rels",
		seedsParam, depth, capParam,
	), nil
}

// BuildRelatedChunks creates a query for chunk IDs reachable from entity nodes
func (b *CypherBuilder) BuildRelatedChunks(nodeIDs []string, depth int) (string, error) {
	if len(nodeIDs) == 0 {
		return "", fmt.Errorf("at least one node ID is required")
	}
	if depth < 1 || depth > 5 {
		return "", fmt.Errorf("chunk expansion depth must be in [1, 5], got %d", depth)
	}

	idsParam := b.AddParam(nodeIDs)

	return fmt.Sprintf(
		"MATCH (n:Entity) WHERE n.id IN %s "+
			"MATCH (n)-[*1..%d]-(c:Chunk) "+
			"RETURN DISTINCT c.id AS chunk_id",
		idsParam, depth,
	), nil
}

// isValidIdentifier validates that a string can be safely used as a Cypher
// identifier. Only allows alphanumeric characters and underscores.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	// Must start with letter or underscore, then alphanumeric or underscore
	matched, _ := regexp.MatchString(`^[a-zA-Z_][a-zA-Z0-9_]*$`, s)
	return matched
}

// SanitizeRelType uppercases a relationship type and replaces separators,
// e.g. "calls" -> "CALLS", "depends-on" -> "DEPENDS_ON".
func SanitizeRelType(relType string) string {
	upper := strings.ToUpper(relType)
	upper = strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(upper)
	return upper
}
