package pipeline

import (
	"fmt"
	"sort"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Deduplicator merges entities that share an identity key, accumulating
// occurrence counts and provenance. First-seen insertion order is
// preserved across groups so repeated runs over the same input produce
// identical output.
type Deduplicator struct{}

// NewDeduplicator creates a deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Merge collapses entities by identity key (kind, name, source).
// On collision it increments Occurrences, appends a "<file>:<line>"
// provenance tag to MergedFrom, and unions import specifiers into a
// sorted, deduplicated list.
func (d *Deduplicator) Merge(entities []models.NormalizedEntity) []models.NormalizedEntity {
	merged := make([]models.NormalizedEntity, 0, len(entities))
	index := make(map[string]int)

	for _, entity := range entities {
		key := entity.IdentityKey()
		pos, seen := index[key]
		if !seen {
			index[key] = len(merged)
			entity.Specifiers = unionSpecifiers(nil, entity.Specifiers)
			merged = append(merged, entity)
			continue
		}

		existing := &merged[pos]
		existing.Occurrences++
		existing.MergedFrom = append(existing.MergedFrom, provenanceTag(entity))
		existing.Specifiers = unionSpecifiers(existing.Specifiers, entity.Specifiers)

		// Keep the highest relevance seen for the identity
		if entity.RelevanceScore > existing.RelevanceScore {
			existing.RelevanceScore = entity.RelevanceScore
		}
	}

	return merged
}

// provenanceTag describes where a merged-away duplicate was seen
func provenanceTag(entity models.NormalizedEntity) string {
	if entity.FilePath != "" {
		return fmt.Sprintf("%s:%d", entity.FilePath, entity.Line)
	}
	return fmt.Sprintf("line:%d", entity.Line)
}

// unionSpecifiers merges two specifier lists into a sorted, deduplicated set
func unionSpecifiers(a, b []string) []string {
	if len(b) == 0 {
		return a
	}

	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}

	union := make([]string, 0, len(set))
	for s := range set {
		union = append(union, s)
	}
	sort.Strings(union)
	return union
}
