// Package embedding provides the optional vector embedding port. The
// pipeline calls it opportunistically: entities are kept without a
// vector when no service is configured or a call fails.
package embedding

import "context"

// Service computes embedding vectors for entity text
type Service interface {
	// Initialize verifies credentials and connectivity
	Initialize(ctx context.Context) error

	// Embed returns the embedding vector for one text
	Embed(ctx context.Context, text string) ([]float32, error)
}
