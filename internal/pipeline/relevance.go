package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/codeatlas/codeatlas/internal/models"
)

// FilterConfig controls which raw entities survive relevance filtering
type FilterConfig struct {
	SkipLocalVariables bool
	SkipPrimitiveTypes bool
	SkipAssetImports   bool
	SkipPrivateMembers bool
}

// DefaultFilterConfig returns the standard filter settings
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		SkipLocalVariables: true,
		SkipPrimitiveTypes: true,
		SkipAssetImports:   true,
		SkipPrivateMembers: false,
	}
}

// Base relevance by entity kind. Exported symbols rank highest, type
// references lowest.
const (
	relevanceExport   = 0.9
	relevanceClass    = 0.8
	relevanceFunction = 0.8
	relevanceImport   = 0.7
	relevanceCall     = 0.6
	relevanceVariable = 0.5
	relevanceTypeRef  = 0.5

	penaltyPrivate          = 0.2
	penaltyUnresolvedImport = 0.2
)

// primitiveTypes holds built-in type names that carry no graph value
var primitiveTypes = map[string]bool{
	"string":    true,
	"number":    true,
	"boolean":   true,
	"any":       true,
	"void":      true,
	"null":      true,
	"undefined": true,
	"never":     true,
	"unknown":   true,
	"object":    true,
	"symbol":    true,
	"bigint":    true,
	"int":       true,
	"float":     true,
	"bool":      true,
	"byte":      true,
}

// assetExtensions holds import-source extensions that are styling or media,
// not code
var assetExtensions = map[string]bool{
	".css":   true,
	".scss":  true,
	".sass":  true,
	".less":  true,
	".styl":  true,
	".svg":   true,
	".png":   true,
	".jpg":   true,
	".jpeg":  true,
	".gif":   true,
	".webp":  true,
	".ico":   true,
	".woff":  true,
	".woff2": true,
	".ttf":   true,
	".eot":   true,
}

// RelevanceFilter discards low-value raw entities and assigns each
// survivor an initial relevance score.
type RelevanceFilter struct {
	config FilterConfig
}

// NewRelevanceFilter creates a relevance filter
func NewRelevanceFilter(config FilterConfig) *RelevanceFilter {
	return &RelevanceFilter{config: config}
}

// Filter returns the entities worth keeping, each wrapped as a
// NormalizedEntity with its initial relevance score. Input order is
// preserved.
func (f *RelevanceFilter) Filter(raw []models.RawEntity) []models.NormalizedEntity {
	kept := make([]models.NormalizedEntity, 0, len(raw))
	for _, entity := range raw {
		if f.shouldDrop(entity) {
			continue
		}
		kept = append(kept, models.NormalizedEntity{
			RawEntity:      entity,
			RelevanceScore: f.score(entity),
			Occurrences:    1,
		})
	}
	return kept
}

func (f *RelevanceFilter) shouldDrop(entity models.RawEntity) bool {
	if f.config.SkipLocalVariables &&
		entity.Kind == models.KindVariable && entity.Scope == models.ScopeLocal {
		return true
	}

	if f.config.SkipPrimitiveTypes &&
		entity.Kind == models.KindTypeRef && primitiveTypes[strings.ToLower(entity.Name)] {
		return true
	}

	if f.config.SkipAssetImports && entity.Kind == models.KindImport {
		ext := strings.ToLower(filepath.Ext(entity.Source))
		if assetExtensions[ext] {
			return true
		}
	}

	if f.config.SkipPrivateMembers && entity.IsPrivate {
		return true
	}

	return false
}

func (f *RelevanceFilter) score(entity models.RawEntity) float64 {
	var score float64
	switch entity.Kind {
	case models.KindExport:
		score = relevanceExport
	case models.KindClass:
		score = relevanceClass
	case models.KindFunction:
		score = relevanceFunction
	case models.KindImport:
		score = relevanceImport
		if entity.Source == "" {
			score -= penaltyUnresolvedImport
		}
	case models.KindCall:
		score = relevanceCall
	case models.KindVariable:
		score = relevanceVariable
	case models.KindTypeRef:
		score = relevanceTypeRef
	default:
		score = relevanceVariable
	}

	// Private members are scored down rather than dropped
	if entity.IsPrivate {
		score -= penaltyPrivate
	}

	return models.Clamp01(score)
}
