package vectorcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/catalog"
)

// ErrCountMismatch is returned when the provider answers with a different
// number of vectors than requested.
var ErrCountMismatch = errors.New("embedding count mismatch")

// Fill computes vectors for every posting whose identity is not in existing
// and returns the merged set together with the number of new vectors.
// Existing entries are never recomputed and existing itself is not modified.
// All missing texts go to the embedder in one EmbedDocuments call; on error
// nothing is merged.
func Fill(ctx context.Context, embedder ai.Embedder, postings []catalog.Posting, existing Vectors) (Vectors, int, error) {
	var (
		ids   []string
		texts []string
	)
	queued := make(map[string]int)

	for _, posting := range postings {
		id := catalog.Identity(posting)
		if _, ok := existing[id]; ok {
			continue
		}

		text := catalog.EmbeddingText(posting)
		if text == "" {
			continue
		}

		// A later posting with the same identity replaces the earlier one.
		if i, ok := queued[id]; ok {
			texts[i] = text
			continue
		}

		queued[id] = len(ids)
		ids = append(ids, id)
		texts = append(texts, text)
	}

	merged := existing.Clone()
	if len(texts) == 0 {
		return merged, 0, nil
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("embedding %d postings: %w", len(texts), ai.ProviderError(embedder.Model(), err))
	}
	if len(vectors) != len(texts) {
		return nil, 0, ai.ProviderError(embedder.Model(),
			fmt.Errorf("%w: requested %d, got %d", ErrCountMismatch, len(texts), len(vectors)))
	}

	for i, id := range ids {
		merged[id] = vectors[i]
	}

	return merged, len(ids), nil
}
