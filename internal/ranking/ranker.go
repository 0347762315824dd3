// Package ranking orders catalog postings for a candidate profile.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/logger"
	"github.com/spigell/internship-recommender/internal/skills"
)

const (
	MinTopK     = 3
	MaxTopK     = 7
	DefaultTopK = 5

	gateMinPartial = 2
	gateMinScore   = 0.2
)

// Profile is what the candidate tells about themselves.
type Profile struct {
	Education string `json:"education"`
	Skills    string `json:"skills"`
	Location  string `json:"location"`
}

func (p Profile) trimmed() Profile {
	return Profile{
		Education: strings.TrimSpace(p.Education),
		Skills:    strings.TrimSpace(p.Skills),
		Location:  strings.TrimSpace(p.Location),
	}
}

// MatchDetails explains how a score was put together.
type MatchDetails struct {
	ExactSkillMatches      int     `json:"exact_skill_matches"`
	PartialSkillMatches    int     `json:"partial_skill_matches"`
	SkillRelevanceScore    float64 `json:"skill_relevance_score"`
	EducationMatch         bool    `json:"education_match"`
	LocationMatch          bool    `json:"location_match"`
	SemanticSimilarity     float64 `json:"semantic_similarity"`
	FallbackRecommendation bool    `json:"fallback_recommendation,omitempty"`
}

// Recommendation is a ranked posting. The embedding is always stripped.
type Recommendation struct {
	catalog.Posting
	Score        float64      `json:"score"`
	MatchDetails MatchDetails `json:"match_details"`
}

// ClampTopK bounds the number of results to [MinTopK, MaxTopK].
func ClampTopK(topK int) int {
	return max(MinTopK, min(MaxTopK, topK))
}

// Ranker scores postings against a profile using their embeddings.
type Ranker struct {
	embedder ai.Embedder
	logger   *zap.Logger
}

func NewRanker(embedder ai.Embedder, log *zap.Logger) *Ranker {
	return &Ranker{
		embedder: embedder,
		logger:   logger.WithFields(log),
	}
}

type admitted struct {
	posting catalog.Posting
	match   skills.Match
}

type scored struct {
	posting catalog.Posting
	score   float64
	details MatchDetails
}

// Rank returns the best postings for the profile.
//
// Only postings that share skills with the profile take part. When none does,
// the result of Fallback is returned instead. Postings without an embedding
// still compete on their boosts with a similarity of zero. A failing query
// embedding aborts the call with an error matching ai.ErrProvider.
func (r *Ranker) Rank(ctx context.Context, postings []catalog.Posting, profile Profile, topK int) ([]Recommendation, error) {
	profile = profile.trimmed()
	topK = ClampTopK(topK)

	if len(postings) == 0 {
		return nil, nil
	}

	var gated []admitted
	for _, posting := range postings {
		match := skills.Relevance(profile.Skills, posting.Skills)
		if match.Exact > 0 || match.Partial >= gateMinPartial || match.Score > gateMinScore {
			gated = append(gated, admitted{posting: posting, match: match})
		}
	}

	r.logger.Debug("skill gate",
		append(logger.ProfileFields(profile.Education, profile.Skills, profile.Location, topK),
			zap.Int("postings", len(postings)),
			zap.Int("admitted", len(gated)),
		)...,
	)

	if len(gated) == 0 {
		return r.Fallback(ctx, postings, profile, topK)
	}

	topK = min(topK, len(gated))

	query, err := r.embedder.EmbedQuery(ctx, primaryQuery(profile))
	if err != nil {
		return nil, fmt.Errorf("embedding profile: %w", ai.ProviderError(r.embedder.Model(), err))
	}

	userEducation := strings.ToLower(profile.Education)
	userLocation := strings.ToLower(profile.Location)

	results := make([]scored, 0, len(gated))
	for _, item := range gated {
		similarity := similarityOrZero(query, item.posting.Embedding)

		educationMatch := educationMatches(userEducation, strings.ToLower(item.posting.RequiredEducation))
		locationMatch := locationMatches(userLocation, strings.ToLower(item.posting.Location))

		results = append(results, scored{
			posting: item.posting,
			score:   similarity + boost(item.match, educationMatch, locationMatch),
			details: MatchDetails{
				ExactSkillMatches:   item.match.Exact,
				PartialSkillMatches: item.match.Partial,
				SkillRelevanceScore: item.match.Score,
				EducationMatch:      educationMatch,
				LocationMatch:       locationMatch,
				SemanticSimilarity:  similarity,
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	return finish(results[:topK]), nil
}

func primaryQuery(p Profile) string {
	return fmt.Sprintf("Skills: %[1]s %[1]s %[1]s, Education: %[2]s %[2]s, Position: %[3]s", p.Skills, p.Education, p.Location)
}

func finish(results []scored) []Recommendation {
	out := make([]Recommendation, len(results))
	for i, item := range results {
		out[i] = Recommendation{
			Posting:      item.posting.WithoutEmbedding(),
			Score:        item.score,
			MatchDetails: item.details,
		}
	}
	return out
}
