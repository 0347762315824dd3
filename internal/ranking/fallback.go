package ranking

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/catalog"
)

const fallbackMinSimilarity = 0.4

// Fallback ranks postings on semantic similarity alone. Only postings with an
// embedding and a similarity above 0.4 are returned; an empty result is not
// an error.
func (r *Ranker) Fallback(ctx context.Context, postings []catalog.Posting, profile Profile, topK int) ([]Recommendation, error) {
	profile = profile.trimmed()
	topK = ClampTopK(topK)

	if !anyEmbedded(postings) {
		r.logger.Debug("fallback skipped, no posting has an embedding")
		return nil, nil
	}

	query, err := r.embedder.EmbedQuery(ctx, fallbackQuery(profile))
	if err != nil {
		return nil, fmt.Errorf("embedding profile: %w", ai.ProviderError(r.embedder.Model(), err))
	}

	var survivors []scored
	for _, posting := range postings {
		if len(posting.Embedding) == 0 {
			continue
		}
		sim, err := cosine(query, posting.Embedding)
		if err != nil || sim <= fallbackMinSimilarity {
			continue
		}
		survivors = append(survivors, scored{
			posting: posting,
			score:   sim,
			details: MatchDetails{
				SemanticSimilarity:     sim,
				FallbackRecommendation: true,
			},
		})
	}

	r.logger.Debug("fallback ranking", zap.Int("postings", len(postings)), zap.Int("survivors", len(survivors)))

	if len(survivors) == 0 {
		return nil, nil
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].score > survivors[j].score
	})

	return finish(survivors[:min(topK, len(survivors))]), nil
}

func fallbackQuery(p Profile) string {
	return fmt.Sprintf("Skills: %[1]s %[1]s %[1]s %[1]s, Education: %[2]s %[2]s", p.Skills, p.Education)
}

func anyEmbedded(postings []catalog.Posting) bool {
	for _, posting := range postings {
		if len(posting.Embedding) > 0 {
			return true
		}
	}
	return false
}
