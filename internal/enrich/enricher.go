package enrich

import (
	"log/slog"
	"strings"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Enricher runs static enrichment over normalized entities: semantic
// classification, relationship inference and confidence scoring.
// Stateless apart from the injected logger; entities are processed
// independently, so callers may shard the input freely.
type Enricher struct {
	classifier *Classifier
	inferrer   *RelationshipInferrer
	calculator *ConfidenceCalculator
	logger     *slog.Logger
}

// NewEnricher creates an enricher with the standard rule sets
func NewEnricher() *Enricher {
	return &Enricher{
		classifier: NewClassifier(),
		inferrer:   NewRelationshipInferrer(),
		calculator: NewConfidenceCalculator(),
		logger:     slog.Default().With("component", "enrich"),
	}
}

// Enrich classifies, links and scores every entity. The input slice is
// not modified; output order matches input order. Inference misses on a
// single entity never fail the batch: the entity is still emitted with
// whatever evidence survived.
func (en *Enricher) Enrich(entities []models.NormalizedEntity) []models.EnrichedEntity {
	enriched := make([]models.EnrichedEntity, 0, len(entities))

	for i := range entities {
		entity := entities[i]
		entity.Category = categorize(&entity)

		e := models.EnrichedEntity{NormalizedEntity: entity}
		e.SemanticType = en.classifier.Classify(&entity)
		e.Relationships = en.inferrer.Infer(&entity, entities)
		e.Documentation = extractDoc(&entity)

		en.calculator.RefineRelationships(&e, entities)

		signals := en.calculator.CollectSignals(&e, entities)
		e.Confidence = en.calculator.Score(signals)

		enriched = append(enriched, e)
	}

	en.logger.Debug("enrichment complete", "entities", len(enriched))
	return enriched
}

// categorize decides where an entity's definition lives
func categorize(e *models.NormalizedEntity) models.Category {
	if _, ok := matchBuiltinAPI(e); ok {
		return models.CategoryBuiltin
	}
	if e.Kind == models.KindImport && e.Source != "" && !isRelativeSource(e.Source) {
		return models.CategoryExternal
	}
	return models.CategoryInternal
}

// extractDoc pulls the documentation block attached by extraction.
// A malformed block is dropped for that entity, never fatal.
func extractDoc(e *models.NormalizedEntity) string {
	doc, ok := e.Metadata["doc"].(string)
	if !ok {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "/**")
		line = strings.TrimPrefix(line, "/*")
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
