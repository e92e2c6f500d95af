// Package embed defines the embedding provider capability and its two
// concrete implementations: a local Ollama model and the remote OpenAI API.
// Vectors produced by different providers live in different vector spaces and
// must never be mixed inside one collection.
package embed

import (
	"context"

	"github.com/coursebot/coursebot/engine/domain"
)

// Provider turns text into a fixed-length embedding vector.
type Provider interface {
	// Embed returns the vector for a single text. Empty input fails with
	// domain.ErrInvalidInput; transient network failures wrap
	// domain.ErrProviderUnavailable.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in order. Providers without native batching
	// fall back to per-item calls.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the fixed vector length this provider produces.
	Dimensions() int
	// Name identifies the provider and model, e.g. "ollama:nomic-embed-text".
	Name() string
}

// checkVector verifies a returned vector against the provider's declared
// dimensionality. A model silently returning the wrong size must fail fast.
func checkVector(vec []float32, dims int) error {
	if len(vec) != dims {
		return &domain.DimensionMismatchError{Want: dims, Got: len(vec)}
	}
	return nil
}
