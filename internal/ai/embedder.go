package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProvider marks failures of the embedding provider. Callers can tell
	// them apart from missing data with errors.Is.
	ErrProvider = errors.New("embedding provider failure")
	// ErrDimensionMismatch is returned when a vector does not have the configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder turns text into vectors.
type Embedder interface {
	// EmbedDocuments returns one vector per text, in the order of texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ProviderError wraps err so that it matches ErrProvider.
func ProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProvider) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrProvider, err)
}

// CheckDimensions verifies every vector has exactly dim values. dim <= 0 disables the check.
func CheckDimensions(vectors [][]float32, dim int) error {
	if dim <= 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}
