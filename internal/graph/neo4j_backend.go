package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "github.com/codeatlas/codeatlas/internal/errors"
)

// Neo4jBackend implements Backend for Neo4j with Cypher queries.
// Stateless design: context passed per-request, safe for concurrent use.
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// QueryWithParams represents a Cypher query with its parameters
type QueryWithParams struct {
	Query  string
	Params map[string]any
}

// NewNeo4jBackend creates a Neo4j backend instance
func NewNeo4jBackend(ctx context.Context, uri, username, password, database string) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, apperrors.SourceUnavailable(err, "failed to create Neo4j driver")
	}

	// Verify connectivity
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, apperrors.SourceUnavailablef(err, "failed to connect to Neo4j at %s", uri)
	}

	return &Neo4jBackend{
		driver:   driver,
		database: database,
		logger:   slog.Default().With("component", "graph"),
	}, nil
}

// UpsertEntities writes entity nodes in batch using the UNWIND pattern.
// Nodes keep their kind as a property on the shared Entity label so that
// lookups and expansions stay on one label index.
func (n *Neo4jBackend) UpsertEntities(ctx context.Context, nodes []GraphNode) error {
	if len(nodes) == 0 {
		return nil
	}

	rows := make([]map[string]any, len(nodes))
	for i, node := range nodes {
		props := make(map[string]any, len(node.Properties)+2)
		for k, v := range node.Properties {
			props[k] = v
		}
		props["kind"] = node.Label
		props["name"] = node.Name
		rows[i] = map[string]any{
			"id":    node.ID,
			"props": props,
		}
	}

	builder := NewCypherBuilder()
	cypher, err := builder.BuildUpsertEntities("Entity", rows)
	if err != nil {
		return apperrors.StoreError(err, "failed to build entity upsert")
	}

	_, err = neo4j.ExecuteQuery(ctx, n.driver, cypher,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return apperrors.StoreErrorf(err, "failed to upsert %d entities", len(nodes))
	}

	n.logger.Debug("upserted entity nodes", "count", len(nodes))
	return nil
}

// CreateRelationships creates edges in batch, grouped by relationship type
// since Cypher cannot parameterize the type in a MERGE pattern.
func (n *Neo4jBackend) CreateRelationships(ctx context.Context, edges []GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}

	edgesByType := make(map[string][]GraphEdge)
	for _, edge := range edges {
		relType := SanitizeRelType(edge.Label)
		edgesByType[relType] = append(edgesByType[relType], edge)
	}

	queries := make([]QueryWithParams, 0, len(edgesByType))
	for relType, typeEdges := range edgesByType {
		rows := make([]map[string]any, len(typeEdges))
		for i, edge := range typeEdges {
			props := edge.Properties
			if props == nil {
				props = map[string]any{}
			}
			rows[i] = map[string]any{
				"from":  edge.From,
				"to":    edge.To,
				"props": props,
			}
		}

		builder := NewCypherBuilder()
		cypher, err := builder.BuildMergeRelationships(relType, rows)
		if err != nil {
			return apperrors.StoreErrorf(err, "failed to build %s relationship batch", relType)
		}

		queries = append(queries, QueryWithParams{Query: cypher, Params: builder.Params()})
	}

	if err := n.executeBatch(ctx, queries); err != nil {
		return apperrors.StoreErrorf(err, "failed to create %d relationships", len(edges))
	}

	n.logger.Debug("created relationships", "count", len(edges), "types", len(edgesByType))
	return nil
}

// FindNode looks up a single entity node by name and kind
func (n *Neo4jBackend) FindNode(ctx context.Context, name, kind string) (*GraphNode, error) {
	builder := NewCypherBuilder()
	cypher, err := builder.BuildFindNode(name, kind)
	if err != nil {
		return nil, apperrors.StoreError(err, "failed to build node lookup")
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, cypher,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, apperrors.StoreErrorf(err, "node lookup failed for %s:%s", kind, name)
	}

	if len(result.Records) == 0 {
		return nil, nil
	}

	node := recordToNode(result.Records[0])
	return &node, nil
}

// SearchNodes returns candidate nodes matching any of the query tokens
func (n *Neo4jBackend) SearchNodes(ctx context.Context, tokens []string, limit int) ([]GraphNode, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	builder := NewCypherBuilder()
	cypher, err := builder.BuildSearchNodes(tokens, limit)
	if err != nil {
		return nil, apperrors.StoreError(err, "failed to build node search")
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, cypher,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, apperrors.StoreError(err, "node search failed")
	}

	nodes := make([]GraphNode, 0, len(result.Records))
	for _, record := range result.Records {
		nodes = append(nodes, recordToNode(record))
	}
	return nodes, nil
}

// GetSubgraph expands outward from the seed IDs up to depth hops,
// capped at maxNodes nodes.
func (n *Neo4jBackend) GetSubgraph(ctx context.Context, seedIDs []string, depth, maxNodes int) (*Subgraph, error) {
	if len(seedIDs) == 0 {
		return &Subgraph{}, nil
	}

	builder := NewCypherBuilder()
	cypher, err := builder.BuildSubgraph(seedIDs, depth, maxNodes)
	if err != nil {
		return nil, apperrors.StoreError(err, "failed to build subgraph query")
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, cypher,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, apperrors.StoreError(err, "subgraph expansion failed")
	}

	sub := &Subgraph{}
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)
	idByElement := make(map[string]string)

	addNode := func(raw any) {
		neoNode, ok := raw.(neo4j.Node)
		if !ok {
			return
		}
		node := neoNodeToGraphNode(neoNode)
		if node.ID == "" {
			return
		}
		idByElement[neoNode.ElementId] = node.ID
		if seenNodes[node.ID] {
			return
		}
		seenNodes[node.ID] = true
		sub.Nodes = append(sub.Nodes, node)
	}

	for _, record := range result.Records {
		if seed, ok := record.Get("seed"); ok {
			addNode(seed)
		}
		if others, ok := record.Get("others"); ok {
			if nodeList, ok := others.([]any); ok {
				for _, raw := range nodeList {
					addNode(raw)
				}
			}
		}
		if len(sub.Nodes) >= maxNodes {
			break
		}
		rels, ok := record.Get("rels")
		if !ok {
			continue
		}
		relList, ok := rels.([]any)
		if !ok {
			continue
		}
		for _, raw := range relList {
			rel, ok := raw.(neo4j.Relationship)
			if !ok {
				continue
			}
			edge, ok := relationshipToEdge(rel, idByElement)
			if !ok {
				continue
			}
			key := edge.Label + "|" + edge.From + "|" + edge.To
			if seenEdges[key] {
				continue
			}
			seenEdges[key] = true
			sub.Edges = append(sub.Edges, edge)
		}
	}

	if len(sub.Nodes) > maxNodes {
		sub.Nodes = sub.Nodes[:maxNodes]
	}

	return sub, nil
}

// GetRelatedChunks returns chunk IDs reachable from the entity nodes
func (n *Neo4jBackend) GetRelatedChunks(ctx context.Context, nodeIDs []string, depth int) ([]string, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	builder := NewCypherBuilder()
	cypher, err := builder.BuildRelatedChunks(nodeIDs, depth)
	if err != nil {
		return nil, apperrors.StoreError(err, "failed to build chunk expansion")
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, cypher,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, apperrors.StoreError(err, "chunk expansion failed")
	}

	chunkIDs := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		if id, ok := record.Get("chunk_id"); ok {
			chunkIDs = append(chunkIDs, fmt.Sprintf("%v", id))
		}
	}
	return chunkIDs, nil
}

// executeBatch runs multiple parameterized queries in a single write transaction
func (n *Neo4jBackend) executeBatch(ctx context.Context, queries []QueryWithParams) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for i, q := range queries {
			if _, err := tx.Run(ctx, q.Query, q.Params); err != nil {
				return nil, fmt.Errorf("batch command %d failed: %w", i, err)
			}
		}
		return nil, nil
	})

	return err
}

// Close closes the Neo4j driver connection
func (n *Neo4jBackend) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}

func recordToNode(record *neo4j.Record) GraphNode {
	node := GraphNode{Properties: map[string]interface{}{}}
	if id, ok := record.Get("id"); ok {
		node.ID = fmt.Sprintf("%v", id)
	}
	if kind, ok := record.Get("kind"); ok {
		node.Label = fmt.Sprintf("%v", kind)
	}
	if name, ok := record.Get("name"); ok {
		node.Name = fmt.Sprintf("%v", name)
	}
	if props, ok := record.Get("props"); ok {
		if propMap, ok := props.(map[string]interface{}); ok {
			node.Properties = propMap
		}
	}
	return node
}

// relationshipToEdge translates a driver relationship into a GraphEdge
// keyed by the endpoints' id properties, looked up via their element ids.
// Edges whose endpoints were not returned as nodes are dropped.
func relationshipToEdge(rel neo4j.Relationship, idByElement map[string]string) (GraphEdge, bool) {
	from, okFrom := idByElement[rel.StartElementId]
	to, okTo := idByElement[rel.EndElementId]
	if !okFrom || !okTo {
		return GraphEdge{}, false
	}
	return GraphEdge{
		Label:      rel.Type,
		From:       from,
		To:         to,
		Properties: rel.Props,
	}, true
}

func neoNodeToGraphNode(neoNode neo4j.Node) GraphNode {
	node := GraphNode{Properties: neoNode.Props}
	if id, ok := neoNode.Props["id"]; ok {
		node.ID = fmt.Sprintf("%v", id)
	}
	if kind, ok := neoNode.Props["kind"]; ok {
		node.Label = fmt.Sprintf("%v", kind)
	}
	if name, ok := neoNode.Props["name"]; ok {
		node.Name = fmt.Sprintf("%v", name)
	}
	return node
}
