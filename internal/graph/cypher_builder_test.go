package graph

import (
	"strings"
	"testing"
)

func TestBuildUpsertEntities(t *testing.T) {
	builder := NewCypherBuilder()
	rows := []map[string]any{
		{"id": "function:getUser", "props": map[string]any{"name": "getUser"}},
	}

	cypher, err := builder.BuildUpsertEntities("Entity", rows)
	if err != nil {
		t.Fatalf("BuildUpsertEntities() error = %v", err)
	}

	if !strings.Contains(cypher, "UNWIND") {
		t.Errorf("expected UNWIND batch pattern, got: %s", cypher)
	}
	if !strings.Contains(cypher, "MERGE (n:Entity {id: row.id})") {
		t.Errorf("expected idempotent MERGE on id, got: %s", cypher)
	}
	if len(builder.Params()) != 1 {
		t.Errorf("expected 1 parameter, got %d", len(builder.Params()))
	}
}

func TestBuildUpsertEntities_InvalidLabel(t *testing.T) {
	builder := NewCypherBuilder()
	_, err := builder.BuildUpsertEntities("Entity; DROP", nil)
	if err == nil {
		t.Error("expected error for label with injection attempt")
	}
}

func TestBuildMergeRelationships(t *testing.T) {
	builder := NewCypherBuilder()
	rows := []map[string]any{
		{"from": "function:a", "to": "function:b", "props": map[string]any{"confidence": 0.75}},
	}

	cypher, err := builder.BuildMergeRelationships("CALLS", rows)
	if err != nil {
		t.Fatalf("BuildMergeRelationships() error = %v", err)
	}

	if !strings.Contains(cypher, "MERGE (from)-[r:CALLS]->(to)") {
		t.Errorf("expected typed MERGE, got: %s", cypher)
	}
}

func TestBuildMergeRelationships_InvalidType(t *testing.T) {
	builder := NewCypherBuilder()
	if _, err := builder.BuildMergeRelationships("CALLS]->(x) DELETE x//", nil); err == nil {
		t.Error("expected error for relationship type with injection attempt")
	}
}

func TestBuildSubgraph(t *testing.T) {
	tests := []struct {
		name     string
		seeds    []string
		depth    int
		maxNodes int
		wantErr  bool
	}{
		{"valid", []string{"function:a"}, 2, 500, false},
		{"no seeds", nil, 2, 500, true},
		{"zero depth", []string{"function:a"}, 0, 500, true},
		{"excessive depth", []string{"function:a"}, 10, 500, true},
		{"zero cap", []string{"function:a"}, 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewCypherBuilder()
			cypher, err := builder.BuildSubgraph(tt.seeds, tt.depth, tt.maxNodes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildSubgraph() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !strings.Contains(cypher, "*1..2") {
				t.Errorf("expected depth bound in pattern, got: %s", cypher)
			}
			// Isolated seeds must still produce a row
			if !strings.Contains(cypher, "OPTIONAL MATCH") {
				t.Errorf("expected optional expansion, got: %s", cypher)
			}
			if !strings.Contains(cypher, "RETURN seed, others, rels") {
				t.Errorf("expected seed returned outside the subquery, got: %s", cypher)
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Entity", true},
		{"snake_case", true},
		{"_leading", true},
		{"with123", true},
		{"", false},
		{"has space", false},
		{"has-dash", false},
		{"1leading", false},
		{"inject;DROP", false},
	}

	for _, tt := range tests {
		if got := isValidIdentifier(tt.input); got != tt.want {
			t.Errorf("isValidIdentifier(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeRelType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"calls", "CALLS"},
		{"depends-on", "DEPENDS_ON"},
		{"type ref", "TYPE_REF"},
		{"EXTENDS", "EXTENDS"},
	}

	for _, tt := range tests {
		if got := SanitizeRelType(tt.input); got != tt.want {
			t.Errorf("SanitizeRelType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
