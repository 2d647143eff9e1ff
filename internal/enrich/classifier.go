package enrich

import (
	"regexp"
	"strings"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Semantic types assigned by classification
const (
	TypeComponent      = "component"
	TypeHook           = "hook"
	TypeContext        = "context"
	TypeHandler        = "handler"
	TypeRoute          = "route"
	TypeMiddleware     = "middleware"
	TypeService        = "service"
	TypeRepository     = "repository"
	TypeModel          = "model"
	TypeDTO            = "dto"
	TypeEntity         = "entity"
	TypeUtility        = "utility"
	TypeHelper         = "helper"
	TypeConfig         = "config"
	TypeConstant       = "constant"
	TypeEnum           = "enum"
	TypeTest           = "test"
	TypeMock           = "mock"
	TypeFixture        = "fixture"
	TypeBuiltinAPI     = "builtin-api"
	TypeTypeDefinition = "type-definition"
	TypeUnknown        = "unknown"
)

// classifierRule pairs a predicate with the semantic type it assigns.
// Rules are evaluated in priority order; the first match wins.
type classifierRule struct {
	name      string
	predicate func(e *models.NormalizedEntity) (string, bool)
}

// Classifier assigns a semantic type to entities via a cascading,
// priority-ordered rule table. Stateless, safe for concurrent use.
type Classifier struct {
	rules []classifierRule
}

// NewClassifier creates a classifier with the standard rule cascade
func NewClassifier() *Classifier {
	return &Classifier{
		rules: []classifierRule{
			{"doc-tag", matchDocTag},
			{"ui-framework", matchUIFramework},
			{"api-layer", matchAPILayer},
			{"architectural-suffix", matchArchitecturalSuffix},
			{"utility-pattern", matchUtilityPattern},
			{"test-pattern", matchTestPattern},
			{"builtin-api", matchBuiltinAPI},
		},
	}
}

// Classify returns the semantic type for an entity. Ties are broken by
// rule priority, never by score.
func (c *Classifier) Classify(e *models.NormalizedEntity) string {
	for _, rule := range c.rules {
		if semanticType, ok := rule.predicate(e); ok {
			return semanticType
		}
	}

	// Fallback: type-only declarations become type definitions
	if e.Kind == models.KindTypeRef || isTypeOnlyDeclaration(e) {
		return TypeTypeDefinition
	}
	return TypeUnknown
}

// docTagPattern matches explicit documentation tags like "@service" in a
// doc block
var docTagPattern = regexp.MustCompile(`@(component|hook|context|handler|route|middleware|service|repository|model|dto|entity|utility|helper|config|constant)\b`)

// matchDocTag honors explicit author declarations, the strongest signal
func matchDocTag(e *models.NormalizedEntity) (string, bool) {
	text := e.Text
	if doc, ok := e.Metadata["doc"].(string); ok {
		text = doc + "\n" + text
	}
	if m := docTagPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// markupReturnPattern catches function bodies that return markup
var markupReturnPattern = regexp.MustCompile(`(?:return\s*\(?\s*<|=>\s*\(?\s*<|createElement\s*\()`)

func matchUIFramework(e *models.NormalizedEntity) (string, bool) {
	name := e.Name

	// Hooks: useXxx naming convention
	if strings.HasPrefix(name, "use") && len(name) > 3 && isUpper(name[3]) {
		return TypeHook, true
	}

	// Context providers
	if strings.HasSuffix(name, "Context") || strings.HasSuffix(name, "Provider") {
		return TypeContext, true
	}

	// Components: PascalCase function/class whose body returns markup
	if (e.Kind == models.KindFunction || e.Kind == models.KindClass) &&
		len(name) > 0 && isUpper(name[0]) {
		if markupReturnPattern.MatchString(e.Text) {
			return TypeComponent, true
		}
		if strings.HasSuffix(name, "Component") || strings.HasSuffix(name, "View") ||
			strings.HasSuffix(name, "Page") || strings.HasSuffix(name, "Screen") {
			return TypeComponent, true
		}
	}

	return "", false
}

func matchAPILayer(e *models.NormalizedEntity) (string, bool) {
	lower := strings.ToLower(e.Name)
	switch {
	case strings.Contains(lower, "middleware"):
		return TypeMiddleware, true
	case strings.HasSuffix(lower, "handler") || strings.HasPrefix(lower, "handle"):
		return TypeHandler, true
	case strings.Contains(lower, "route") || strings.Contains(lower, "router") ||
		strings.Contains(lower, "endpoint"):
		return TypeRoute, true
	}
	return "", false
}

func matchArchitecturalSuffix(e *models.NormalizedEntity) (string, bool) {
	name := e.Name
	switch {
	case strings.HasSuffix(name, "Service"):
		return TypeService, true
	case strings.HasSuffix(name, "Repository") || strings.HasSuffix(name, "Repo"):
		return TypeRepository, true
	case strings.HasSuffix(name, "Model"):
		return TypeModel, true
	case strings.HasSuffix(name, "Dto") || strings.HasSuffix(name, "DTO"):
		return TypeDTO, true
	case strings.HasSuffix(name, "Entity"):
		return TypeEntity, true
	}
	return "", false
}

// upperSnakePattern matches conventional constant names like MAX_RETRIES
var upperSnakePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(?:_[A-Z0-9]+)+$`)

func matchUtilityPattern(e *models.NormalizedEntity) (string, bool) {
	lower := strings.ToLower(e.Name)
	switch {
	case strings.Contains(lower, "util"):
		return TypeUtility, true
	case strings.Contains(lower, "helper"):
		return TypeHelper, true
	case strings.Contains(lower, "config") || strings.Contains(lower, "settings"):
		return TypeConfig, true
	case strings.HasSuffix(e.Name, "Enum") || strings.Contains(e.Text, "enum "):
		return TypeEnum, true
	case upperSnakePattern.MatchString(e.Name):
		return TypeConstant, true
	}
	return "", false
}

func matchTestPattern(e *models.NormalizedEntity) (string, bool) {
	lower := strings.ToLower(e.Name)
	switch {
	case strings.Contains(lower, "mock") || strings.Contains(lower, "stub"):
		return TypeMock, true
	case strings.Contains(lower, "fixture"):
		return TypeFixture, true
	case strings.HasSuffix(lower, "test") || strings.HasSuffix(lower, "spec") ||
		strings.HasSuffix(lower, "suite") || strings.HasPrefix(lower, "test"):
		return TypeTest, true
	}
	return "", false
}

// builtinPrefixes lists known runtime and platform API namespaces
var builtinPrefixes = []string{
	"console.", "Math.", "JSON.", "Object.", "Array.", "Promise.",
	"window.", "document.", "process.", "Buffer.", "Reflect.",
	"Number.", "String.", "Date.",
}

func matchBuiltinAPI(e *models.NormalizedEntity) (string, bool) {
	for _, prefix := range builtinPrefixes {
		if strings.HasPrefix(e.Name, prefix) || e.Name == strings.TrimSuffix(prefix, ".") {
			return TypeBuiltinAPI, true
		}
	}
	return "", false
}

func isTypeOnlyDeclaration(e *models.NormalizedEntity) bool {
	if typeOnly, ok := e.Metadata["typeOnly"].(bool); ok && typeOnly {
		return true
	}
	trimmed := strings.TrimSpace(e.Text)
	return strings.HasPrefix(trimmed, "type ") || strings.HasPrefix(trimmed, "interface ")
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

// SemanticTypeConfidence returns the confidence weight for a semantic
// type: classification adds little certainty when nothing matched.
func SemanticTypeConfidence(semanticType string) float64 {
	if semanticType == TypeUnknown || semanticType == "" {
		return 0.5
	}
	return 0.9
}
