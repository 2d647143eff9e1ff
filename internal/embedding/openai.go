package embedding

import (
	"context"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	apperrors "github.com/codeatlas/codeatlas/internal/errors"
)

// DefaultModel is used when no embedding model is configured
const DefaultModel = "text-embedding-3-small"

// OpenAIService implements Service against the OpenAI embeddings API.
// Requests pass through a client-side rate limiter so a large scan
// cannot burn through the account quota.
type OpenAIService struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAIService creates an embedding service.
// ratePerSec bounds outgoing requests; zero or negative disables
// throttling.
func NewOpenAIService(apiKey, model string, ratePerSec float64) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, apperrors.ConfigError("embedding API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	return &OpenAIService{
		client:  openai.NewClient(apiKey),
		model:   openai.EmbeddingModel(model),
		limiter: limiter,
		logger:  slog.Default().With("component", "embedding"),
	}, nil
}

// Initialize verifies the API key with a minimal embedding request
func (s *OpenAIService) Initialize(ctx context.Context) error {
	if _, err := s.Embed(ctx, "ping"); err != nil {
		return apperrors.EmbeddingError(err, "embedding service unavailable")
	}
	s.logger.Info("embedding service ready", "model", string(s.model))
	return nil
}

// Embed returns the embedding vector for one text
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, apperrors.EmbeddingError(err, "rate limiter wait")
		}
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: s.model,
	})
	if err != nil {
		return nil, apperrors.EmbeddingError(err, "embedding request failed")
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.EmbeddingError(nil, "embedding response contained no vectors")
	}

	return resp.Data[0].Embedding, nil
}
