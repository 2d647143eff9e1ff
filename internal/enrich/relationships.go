package enrich

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Relationship confidence levels. Explicit declarations are certain;
// text-scan inference is approximate and capped below certainty.
const (
	confidenceExplicit        = 1.0
	confidenceSiblingExport   = 0.85
	confidenceExternalPackage = 0.85
	confidenceInferredBase    = 0.7
	confidenceInferredStep    = 0.05
	confidenceInferredCap     = 0.95
)

var (
	extendsPattern    = regexp.MustCompile(`(?:class|interface)\s+\w+(?:<[^>]*>)?\s+extends\s+([\w.,\s]+?)(?:\s+implements|\s*\{|$)`)
	implementsPattern = regexp.MustCompile(`class\s+\w+(?:<[^>]*>)?(?:\s+extends\s+[\w.]+)?\s+implements\s+([\w.,\s]+?)(?:\s*\{|$)`)
)

// RelationshipInferrer derives typed edges from declaration text, import
// metadata and the set of co-discovered entities. Stateless.
type RelationshipInferrer struct{}

// NewRelationshipInferrer creates a relationship inferrer
func NewRelationshipInferrer() *RelationshipInferrer {
	return &RelationshipInferrer{}
}

// Infer returns the relationships for one entity given every known
// entity from the same scan.
func (r *RelationshipInferrer) Infer(e *models.NormalizedEntity, known []models.NormalizedEntity) []models.Relationship {
	var rels []models.Relationship

	rels = append(rels, r.importRelationships(e, known)...)
	rels = append(rels, r.declarationRelationships(e)...)
	rels = append(rels, r.textScanRelationships(e, known)...)

	for i := range rels {
		rels[i].Confidence = models.Clamp01(rels[i].Confidence)
	}
	return rels
}

// importRelationships handles import entities: the module edge itself,
// manifest-backed dependency edges, and sibling-export links.
func (r *RelationshipInferrer) importRelationships(e *models.NormalizedEntity, known []models.NormalizedEntity) []models.Relationship {
	if e.Kind != models.KindImport || e.Source == "" {
		return nil
	}

	rels := []models.Relationship{{
		Target:     e.Source,
		Type:       models.RelImports,
		Confidence: confidenceExplicit,
		Evidence:   []string{fmt.Sprintf("import statement at line %d", e.Line)},
	}}

	switch {
	case e.PackageInfo != nil:
		// Resolved through the package manifest: certain dependency
		rels = append(rels, models.Relationship{
			Target:     e.PackageInfo.Name,
			Type:       models.RelDependsOn,
			Confidence: confidenceExplicit,
			Evidence:   []string{fmt.Sprintf("manifest entry %s@%s", e.PackageInfo.Name, e.PackageInfo.Version)},
		})
	case isRelativeSource(e.Source):
		// Same-module sibling exports referenced through the import
		for _, other := range known {
			if other.Kind != models.KindExport {
				continue
			}
			if containsString(e.Specifiers, other.Name) {
				rels = append(rels, models.Relationship{
					Target:     other.Name,
					Type:       models.RelDependsOn,
					Confidence: confidenceSiblingExport,
					Evidence:   []string{fmt.Sprintf("sibling export imported from %s", e.Source)},
				})
			}
		}
	default:
		// External package name, scoped (@org/pkg) or bare
		rels = append(rels, models.Relationship{
			Target:     packageRoot(e.Source),
			Type:       models.RelDependsOn,
			Confidence: confidenceExternalPackage,
			Evidence:   []string{fmt.Sprintf("external module name %q", e.Source)},
		})
	}

	return rels
}

// declarationRelationships parses extends/implements clauses out of
// class and interface declaration text.
func (r *RelationshipInferrer) declarationRelationships(e *models.NormalizedEntity) []models.Relationship {
	if e.Kind != models.KindClass && e.Kind != models.KindTypeRef {
		return nil
	}

	var rels []models.Relationship
	if m := extendsPattern.FindStringSubmatch(e.Text); m != nil {
		for _, parent := range splitTypeList(m[1]) {
			rels = append(rels, models.Relationship{
				Target:     parent,
				Type:       models.RelExtends,
				Confidence: confidenceExplicit,
				Evidence:   []string{"extends clause in declaration"},
			})
		}
	}
	if m := implementsPattern.FindStringSubmatch(e.Text); m != nil {
		for _, iface := range splitTypeList(m[1]) {
			rels = append(rels, models.Relationship{
				Target:     iface,
				Type:       models.RelImplements,
				Confidence: confidenceExplicit,
				Evidence:   []string{"implements clause in declaration"},
			})
		}
	}
	return rels
}

// textScanRelationships scans the entity's declaration text for
// whole-word mentions of every other known entity name. A mention
// followed by an opening parenthesis is a call, anything else a use.
// Approximate by nature: the confidence never reaches certainty.
func (r *RelationshipInferrer) textScanRelationships(e *models.NormalizedEntity, known []models.NormalizedEntity) []models.Relationship {
	if e.Text == "" {
		return nil
	}

	var rels []models.Relationship
	for _, other := range known {
		if other.Name == e.Name || len(other.Name) < 2 {
			continue
		}
		occurrences, isCall := countWholeWord(e.Text, other.Name)
		if occurrences == 0 {
			continue
		}

		relType := models.RelUses
		if isCall {
			relType = models.RelCalls
		}
		confidence := confidenceInferredBase + float64(occurrences)*confidenceInferredStep
		if confidence > confidenceInferredCap {
			confidence = confidenceInferredCap
		}

		rels = append(rels, models.Relationship{
			Target:     other.Name,
			Type:       relType,
			Confidence: confidence,
			Evidence:   []string{fmt.Sprintf("%d reference(s) in declaration text", occurrences)},
		})
	}
	return rels
}

// countWholeWord counts whole-word occurrences of name in text and
// reports whether any occurrence is immediately followed by "(".
func countWholeWord(text, name string) (int, bool) {
	count := 0
	isCall := false
	for start := 0; ; {
		idx := strings.Index(text[start:], name)
		if idx < 0 {
			break
		}
		abs := start + idx
		end := abs + len(name)

		before := byte(0)
		if abs > 0 {
			before = text[abs-1]
		}
		after := byte(0)
		if end < len(text) {
			after = text[end]
		}

		if !isWordChar(before) && !isWordChar(after) {
			count++
			if after == '(' {
				isCall = true
			}
		}
		start = end
	}
	return count, isCall
}

func isWordChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isRelativeSource(source string) bool {
	return strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") ||
		strings.HasPrefix(source, "/")
}

// packageRoot reduces a module path to its installable package name,
// e.g. "lodash/fp" -> "lodash", "@org/pkg/sub" -> "@org/pkg".
func packageRoot(source string) string {
	parts := strings.Split(source, "/")
	if strings.HasPrefix(source, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func splitTypeList(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
