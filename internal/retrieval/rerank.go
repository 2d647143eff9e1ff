package retrieval

import (
	"strings"
	"time"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Re-rank boost factors
const (
	rerankOverlapFactor = 0.5
	rerankCategoryBoost = 1.3
	rerankRecentBoost   = 1.2 // modified within 30 days
	rerankFreshBoost    = 1.1 // modified within 90 days
	rerankLengthBoost   = 1.1
	rerankLengthMin     = 200
	rerankLengthMax     = 2000
	rerankRecentWindow  = 30 * 24 * time.Hour
	rerankFreshWindow   = 90 * 24 * time.Hour
)

// rerank applies multiplicative boosts to already-weighted scores.
// Boosted scores clip to 1.0; relative order may change, which is the
// point.
func rerank(contexts []models.RetrievedContext, tokens []string, now time.Time) {
	for i := range contexts {
		c := &contexts[i]
		boost := 1.0 + rerankOverlapFactor*tokenOverlapRatio(c.Content, tokens)

		if categoryMatches(c, tokens) {
			boost *= rerankCategoryBoost
		}

		if modified, ok := lastModified(c); ok {
			age := now.Sub(modified)
			if age <= rerankRecentWindow {
				boost *= rerankRecentBoost
			} else if age <= rerankFreshWindow {
				boost *= rerankFreshBoost
			}
		}

		if n := len(c.Content); n >= rerankLengthMin && n <= rerankLengthMax {
			boost *= rerankLengthBoost
		}

		c.Score = models.Clamp01(c.Score * boost)
	}
}

// tokenOverlapRatio is the fraction of query tokens present in the content
func tokenOverlapRatio(content string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}

	lower := strings.ToLower(content)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// categoryMatches reports whether a context's category appears in the query
func categoryMatches(c *models.RetrievedContext, tokens []string) bool {
	category, _ := c.Metadata["category"].(string)
	if category == "" {
		return false
	}
	category = strings.ToLower(category)

	for _, tok := range tokens {
		if strings.Contains(category, tok) || strings.Contains(tok, category) {
			return true
		}
	}
	return false
}

// lastModified extracts the modification time a source attached, if any
func lastModified(c *models.RetrievedContext) (time.Time, bool) {
	switch v := c.Metadata["last_modified"].(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		t, err := time.Parse(time.RFC3339, v)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}
