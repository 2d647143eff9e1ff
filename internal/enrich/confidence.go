package enrich

import (
	"regexp"
	"strings"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Confidence model weights. The base of 0.5 means an entity with no
// supporting evidence is an even bet.
const (
	confidenceBase = 0.5

	weightHasDoc     = 0.15
	weightHasTypes   = 0.10
	weightHasTests   = 0.10
	weightPerRel     = 0.05
	weightRelCap     = 0.15
	weightPerUsage   = 0.03
	weightUsageCap   = 0.10
	weightIsExported = 0.05

	// minDocLength filters out trivial doc blocks like "// x"
	minDocLength = 10

	refineResolvedTarget    = 0.1
	refinePerEvidence       = 0.05
	refineUnresolvedPenalty = 0.1
)

// typeAnnotationPattern is a loose signal for typed signatures,
// e.g. "(a: string): number" or "-> int"
var typeAnnotationPattern = regexp.MustCompile(`[\w)\]]\s*:\s*[A-Za-z_][\w.<>\[\]]*|->\s*[A-Za-z_]`)

// ConfidenceSignals are the evidence inputs to the confidence score
type ConfidenceSignals struct {
	HasDoc            bool
	HasTypes          bool
	HasTests          bool
	RelationshipCount int
	UsageCount        int
	IsExported        bool
	SemanticType      string
}

// ConfidenceCalculator scores how trustworthy an enriched entity is.
// Stateless, pure arithmetic over the collected signals.
type ConfidenceCalculator struct{}

// NewConfidenceCalculator creates a confidence calculator
func NewConfidenceCalculator() *ConfidenceCalculator {
	return &ConfidenceCalculator{}
}

// Score combines the evidence signals into a [0,1] confidence value
func (c *ConfidenceCalculator) Score(signals ConfidenceSignals) float64 {
	score := confidenceBase

	if signals.HasDoc {
		score += weightHasDoc
	}
	if signals.HasTypes {
		score += weightHasTypes
	}
	if signals.HasTests {
		score += weightHasTests
	}

	relBonus := weightPerRel * float64(signals.RelationshipCount)
	if relBonus > weightRelCap {
		relBonus = weightRelCap
	}
	score += relBonus

	usageBonus := weightPerUsage * float64(signals.UsageCount)
	if usageBonus > weightUsageCap {
		usageBonus = weightUsageCap
	}
	score += usageBonus

	if signals.IsExported {
		score += weightIsExported
	}

	score *= SemanticTypeConfidence(signals.SemanticType)
	return models.Clamp01(score)
}

// CollectSignals derives the evidence signals for one entity from its
// enrichment results and the full set of co-discovered entities.
func (c *ConfidenceCalculator) CollectSignals(e *models.EnrichedEntity, known []models.NormalizedEntity) ConfidenceSignals {
	return ConfidenceSignals{
		HasDoc:            len(strings.TrimSpace(e.Documentation)) >= minDocLength,
		HasTypes:          hasTypeAnnotations(&e.NormalizedEntity),
		HasTests:          hasSiblingTest(&e.NormalizedEntity, known),
		RelationshipCount: len(e.Relationships),
		UsageCount:        countUsages(&e.NormalizedEntity, known),
		IsExported:        isExported(&e.NormalizedEntity),
		SemanticType:      e.SemanticType,
	}
}

// RefineRelationships adjusts relationship confidences once the full
// entity set is known: resolved targets gain confidence, evidence adds
// a little each, and external imports without manifest metadata lose
// some.
func (c *ConfidenceCalculator) RefineRelationships(e *models.EnrichedEntity, known []models.NormalizedEntity) {
	knownNames := make(map[string]bool, len(known))
	for _, other := range known {
		knownNames[other.Name] = true
	}

	for i := range e.Relationships {
		rel := &e.Relationships[i]

		if knownNames[rel.Target] {
			rel.Confidence += refineResolvedTarget
		}
		rel.Confidence += refinePerEvidence * float64(len(rel.Evidence))

		if rel.Type == models.RelImports && !knownNames[rel.Target] && e.PackageInfo == nil {
			rel.Confidence -= refineUnresolvedPenalty
		}

		rel.Confidence = models.Clamp01(rel.Confidence)
	}
}

func hasTypeAnnotations(e *models.NormalizedEntity) bool {
	if typed, ok := e.Metadata["hasTypes"].(bool); ok {
		return typed
	}
	return typeAnnotationPattern.MatchString(e.Text)
}

// hasSiblingTest checks for a co-discovered test entity whose name
// embeds this entity's name, e.g. "UserServiceTest" for "UserService".
func hasSiblingTest(e *models.NormalizedEntity, known []models.NormalizedEntity) bool {
	lowerName := strings.ToLower(e.Name)
	for _, other := range known {
		if other.Name == e.Name {
			continue
		}
		lowerOther := strings.ToLower(other.Name)
		if !strings.Contains(lowerOther, lowerName) {
			continue
		}
		if strings.Contains(lowerOther, "test") || strings.Contains(lowerOther, "spec") {
			return true
		}
	}
	return false
}

// countUsages counts other entities whose declaration text mentions
// this entity by whole word.
func countUsages(e *models.NormalizedEntity, known []models.NormalizedEntity) int {
	count := 0
	for _, other := range known {
		if other.Name == e.Name || other.Text == "" {
			continue
		}
		if occurrences, _ := countWholeWord(other.Text, e.Name); occurrences > 0 {
			count++
		}
	}
	return count
}

func isExported(e *models.NormalizedEntity) bool {
	if e.Kind == models.KindExport {
		return true
	}
	if exported, ok := e.Metadata["exported"].(bool); ok {
		return exported
	}
	return false
}
