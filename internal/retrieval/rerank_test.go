package retrieval

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeatlas/codeatlas/internal/models"
)

func TestRerank_TokenOverlapBoost(t *testing.T) {
	now := time.Now()
	contexts := []models.RetrievedContext{
		{ID: "a", Content: "session login handling", Score: 0.5},
		{ID: "b", Content: "unrelated text", Score: 0.5},
	}

	rerank(contexts, []string{"session", "login"}, now)

	// Full overlap: 0.5 * (1 + 0.5*1.0) = 0.75
	assert.InDelta(t, 0.75, contexts[0].Score, 1e-9)
	assert.InDelta(t, 0.5, contexts[1].Score, 1e-9)
}

func TestRerank_CategoryBoost(t *testing.T) {
	contexts := []models.RetrievedContext{
		{ID: "a", Content: "x", Score: 0.5,
			Metadata: map[string]any{"category": "security"}},
	}

	rerank(contexts, []string{"security"}, time.Now())

	// 0.5 * 1.3 = 0.65, no overlap with content
	assert.InDelta(t, 0.65, contexts[0].Score, 1e-9)
}

func TestRerank_RecencyBoosts(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"recent", 10 * 24 * time.Hour, 0.6},
		{"fresh", 60 * 24 * time.Hour, 0.55},
		{"stale", 120 * 24 * time.Hour, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contexts := []models.RetrievedContext{
				{ID: "a", Content: "x", Score: 0.5,
					Metadata: map[string]any{"last_modified": now.Add(-tt.age)}},
			}
			rerank(contexts, []string{"zzz"}, now)
			assert.InDelta(t, tt.want, contexts[0].Score, 1e-9)
		})
	}
}

func TestRerank_LengthBoost(t *testing.T) {
	contexts := []models.RetrievedContext{
		{ID: "short", Content: "tiny", Score: 0.5},
		{ID: "right", Content: strings.Repeat("x", 500), Score: 0.5},
		{ID: "long", Content: strings.Repeat("x", 5000), Score: 0.5},
	}

	rerank(contexts, []string{"zzz"}, time.Now())

	assert.InDelta(t, 0.5, contexts[0].Score, 1e-9)
	assert.InDelta(t, 0.55, contexts[1].Score, 1e-9)
	assert.InDelta(t, 0.5, contexts[2].Score, 1e-9)
}

func TestRerank_ClipsToOne(t *testing.T) {
	contexts := []models.RetrievedContext{
		{ID: "a", Content: "session " + strings.Repeat("x", 300), Score: 0.95,
			Metadata: map[string]any{
				"category":      "session",
				"last_modified": time.Now().Add(-24 * time.Hour),
			}},
	}

	rerank(contexts, []string{"session"}, time.Now())

	assert.Equal(t, 1.0, contexts[0].Score)
}
