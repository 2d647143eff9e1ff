package models

import (
	"fmt"
	"time"
)

// EntityKind identifies the syntactic category of an extracted entity
type EntityKind string

const (
	KindImport   EntityKind = "import"
	KindExport   EntityKind = "export"
	KindCall     EntityKind = "call"
	KindClass    EntityKind = "class"
	KindFunction EntityKind = "function"
	KindVariable EntityKind = "variable"
	KindTypeRef  EntityKind = "typeRef"
)

// Scope is the lexical scope an entity was declared in
type Scope string

const (
	ScopeLocal  Scope = "local"
	ScopeModule Scope = "module"
	ScopeGlobal Scope = "global"
)

// Category classifies where an entity's definition lives relative to the workspace
type Category string

const (
	CategoryInternal Category = "internal"
	CategoryExternal Category = "external"
	CategoryBuiltin  Category = "builtin"
)

// RelationshipType identifies the semantics of a directed edge between entities
type RelationshipType string

const (
	RelImports    RelationshipType = "imports"
	RelExports    RelationshipType = "exports"
	RelCalls      RelationshipType = "calls"
	RelExtends    RelationshipType = "extends"
	RelImplements RelationshipType = "implements"
	RelUses       RelationshipType = "uses"
	RelDependsOn  RelationshipType = "depends-on"
	RelReferences RelationshipType = "references"
)

// RawEntity is a syntactic mention produced by upstream extraction.
// One is emitted per occurrence per file; it carries no scoring state.
type RawEntity struct {
	Kind       EntityKind     `json:"kind"`
	Name       string         `json:"name"`
	Source     string         `json:"source,omitempty"` // import module specifier, when known
	Specifiers []string       `json:"specifiers,omitempty"`
	FilePath   string         `json:"file_path,omitempty"`
	Line       int            `json:"line,omitempty"`
	Scope      Scope          `json:"scope"`
	IsPrivate  bool           `json:"is_private,omitempty"`
	Text       string         `json:"text,omitempty"` // declaration text, used for inference
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IdentityKey returns the dedup identity (kind, name, source?).
// Entities persist across repeated scans via merge on this key.
func (e RawEntity) IdentityKey() string {
	return fmt.Sprintf("%s\x00%s\x00%s", e.Kind, e.Name, e.Source)
}

// NormalizedEntity is a RawEntity that survived relevance filtering and dedup
type NormalizedEntity struct {
	RawEntity

	RelevanceScore float64      `json:"relevance_score"`
	Category       Category     `json:"category"`
	Occurrences    int          `json:"occurrences"`
	MergedFrom     []string     `json:"merged_from,omitempty"` // provenance tags, e.g. "src/app.ts:14"
	PackageInfo    *PackageInfo `json:"package_info,omitempty"`
}

// PackageInfo holds manifest metadata resolved for an external import
type PackageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Dev     bool   `json:"dev,omitempty"`
}

// EnrichedEntity is the pipeline's terminal form: classified, linked, scored
type EnrichedEntity struct {
	NormalizedEntity

	Confidence    float64        `json:"confidence"`
	SemanticType  string         `json:"semantic_type"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Documentation string         `json:"documentation,omitempty"`
	Embedding     []float32      `json:"-"` // optional, absent when no embedding service
}

// Relationship is a directed, typed, confidence-weighted edge.
// Target is either a known entity name or an external package/module identifier.
type Relationship struct {
	Target     string           `json:"target"`
	Type       RelationshipType `json:"type"`
	Confidence float64          `json:"confidence"`
	Evidence   []string         `json:"evidence,omitempty"`
}

// Chunk is a content fragment linked to a graph node, supplied by the
// document store or the graph's related-chunk expansion
type Chunk struct {
	ID           string    `json:"id" db:"id"`
	Symbol       string    `json:"symbol" db:"symbol"`
	Kind         string    `json:"kind" db:"kind"` // "doc-comment", "snippet", ...
	Content      string    `json:"content" db:"content"`
	FilePath     string    `json:"file_path,omitempty" db:"file_path"`
	LastModified time.Time `json:"last_modified" db:"last_modified"`
}

// IsDocComment reports whether the chunk carries documentation text
func (c Chunk) IsDocComment() bool {
	return c.Kind == "doc-comment"
}

// Clamp01 clamps a confidence or score to [0,1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
