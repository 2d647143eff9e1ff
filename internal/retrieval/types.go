package retrieval

import (
	"strings"
	"unicode"

	"github.com/codeatlas/codeatlas/internal/models"
)

// Strategy selects how sources are combined
type Strategy string

const (
	StrategyHybrid Strategy = "hybrid"
)

// Default retrieval parameters
const (
	DefaultMaxResults = 10
	DefaultMinScore   = 0.5
)

// DefaultWeights returns the standard per-source score weights
func DefaultWeights() map[models.ContextSource]float64 {
	return map[models.ContextSource]float64{
		models.SourceCode:          0.4,
		models.SourceDocumentation: 0.3,
		models.SourcePrevention:    0.2,
		models.SourceTask:          0.1,
	}
}

// DefaultSources returns the sources enabled when the caller names none
func DefaultSources() []models.ContextSource {
	return []models.ContextSource{
		models.SourceCode,
		models.SourceDocumentation,
		models.SourcePrevention,
	}
}

// Options controls one retrieval request. Use DefaultOptions as the
// starting point: it carries the documented MinScore of 0.5. Zero values
// for strategy, sources, weights, and maxResults are filled on every
// request, but a zero MinScore is honored as "no threshold" so callers
// can deliberately keep low-scoring results.
type Options struct {
	Strategy   Strategy
	Sources    []models.ContextSource
	Weights    map[models.ContextSource]float64
	MaxResults int
	MinScore   float64
	Rerank     bool
}

// DefaultOptions returns the documented default request settings
func DefaultOptions() Options {
	return Options{
		Strategy:   StrategyHybrid,
		Sources:    DefaultSources(),
		Weights:    DefaultWeights(),
		MaxResults: DefaultMaxResults,
		MinScore:   DefaultMinScore,
		Rerank:     true,
	}
}

// applyDefaults fills unset option fields. MinScore is left alone:
// zero means no threshold, and DefaultOptions supplies the 0.5 default.
func (o *Options) applyDefaults() {
	if o.Strategy == "" {
		o.Strategy = StrategyHybrid
	}
	if len(o.Sources) == 0 {
		o.Sources = DefaultSources()
	}
	if o.Weights == nil {
		o.Weights = DefaultWeights()
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
}

// Response is the result of one retrieval call
type Response struct {
	Query           string                       `json:"query"`
	Strategy        Strategy                     `json:"strategy"`
	Contexts        []models.RetrievedContext    `json:"contexts"`
	TotalFound      int                          `json:"total_found"`
	Returned        int                          `json:"returned"`
	SourceBreakdown map[models.ContextSource]int `json:"source_breakdown"`
	RetrievalTimeMs int64                        `json:"retrieval_time_ms"`
	Reranked        bool                         `json:"reranked"`
}

// tokenize lowercases a query and splits it into alphanumeric tokens
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
