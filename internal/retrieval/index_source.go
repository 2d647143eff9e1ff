package retrieval

import (
	"context"
	"strings"

	"github.com/codeatlas/codeatlas/internal/index"
	"github.com/codeatlas/codeatlas/internal/models"
)

// Match-ratio weights for index entries
const (
	indexTitleWeight   = 0.4
	indexKeywordWeight = 0.3
	indexContentWeight = 0.2
	indexCategoryBonus = 0.2
	indexScoreFloor    = 0.3
)

// IndexSource retrieves contexts from one prebuilt auxiliary index
// (documentation, prevention rules, or tasks)
type IndexSource struct {
	reader *index.Reader
	source models.ContextSource
}

// NewIndexSource creates a source over one auxiliary index
func NewIndexSource(reader *index.Reader, source models.ContextSource) *IndexSource {
	return &IndexSource{reader: reader, source: source}
}

func (s *IndexSource) Name() models.ContextSource {
	return s.source
}

func (s *IndexSource) Retrieve(ctx context.Context, tokens []string, _ int) ([]models.RetrievedContext, error) {
	entries, err := s.reader.Load(s.source)
	if err != nil {
		return nil, err
	}

	var contexts []models.RetrievedContext
	for _, entry := range entries {
		score := scoreEntry(entry, tokens)
		if score < indexScoreFloor {
			continue
		}
		contexts = append(contexts, entryContext(entry, s.source, score))
	}

	return contexts, nil
}

// scoreEntry scores an index entry by the fraction of query tokens its
// title, keywords, and content match, plus a category bonus
func scoreEntry(entry models.IndexEntry, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}

	title := strings.ToLower(entry.Title)
	content := strings.ToLower(entry.Content)
	category := strings.ToLower(entry.Category)

	keywords := make([]string, len(entry.Keywords))
	for i, kw := range entry.Keywords {
		keywords[i] = strings.ToLower(kw)
	}

	var titleHits, keywordHits, contentHits int
	categoryMatch := false

	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			titleHits++
		}
		for _, kw := range keywords {
			if strings.Contains(kw, tok) || strings.Contains(tok, kw) {
				keywordHits++
				break
			}
		}
		if strings.Contains(content, tok) {
			contentHits++
		}
		if category != "" && (strings.Contains(category, tok) || strings.Contains(tok, category)) {
			categoryMatch = true
		}
	}

	total := float64(len(tokens))
	score := indexTitleWeight*float64(titleHits)/total +
		indexKeywordWeight*float64(keywordHits)/total +
		indexContentWeight*float64(contentHits)/total
	if categoryMatch {
		score += indexCategoryBonus
	}

	return models.Clamp01(score)
}

// entryContext converts an index entry into a retrieved context
func entryContext(entry models.IndexEntry, source models.ContextSource, score float64) models.RetrievedContext {
	return models.RetrievedContext{
		ID:       entry.ID,
		Content:  entry.Content,
		Source:   source,
		Score:    score,
		FilePath: entry.Path,
		Snippet:  snippet(entry.Content),
		Metadata: map[string]any{
			"title":         entry.Title,
			"category":      entry.Category,
			"keywords":      entry.Keywords,
			"last_modified": entry.LastModified,
		},
	}
}

// snippet returns a short leading excerpt of content
func snippet(content string) string {
	const maxLen = 160
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}
