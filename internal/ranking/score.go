package ranking

import (
	"errors"
	"math"
	"strings"

	"github.com/spigell/internship-recommender/internal/skills"
)

const (
	educationBoost    = 0.25
	exactSkillBoost   = 0.30
	partialSkillBoost = 0.15
	maxPartialBoosted = 3
	locationBoost     = 0.08

	remote = "remote"
)

var (
	errLengthMismatch = errors.New("vectors differ in length")
	errZeroNorm       = errors.New("zero vector")
	errNotFinite      = errors.New("similarity is not finite")
)

func boost(match skills.Match, educationMatch, locationMatch bool) float64 {
	total := exactSkillBoost*float64(match.Exact) + partialSkillBoost*float64(min(match.Partial, maxPartialBoosted))
	if educationMatch {
		total += educationBoost
	}
	if locationMatch {
		total += locationBoost
	}
	return total
}

// educationMatches expects both values lowercased.
func educationMatches(user, required string) bool {
	if user == "" || required == "" {
		return false
	}
	return user == required || strings.Contains(user, required) || strings.Contains(required, user)
}

// locationMatches expects both values lowercased.
func locationMatches(user, posting string) bool {
	if user == "" || posting == "" {
		return false
	}
	if user == posting || strings.Contains(posting, remote) || user == remote {
		return true
	}
	for _, token := range strings.Fields(user) {
		if strings.Contains(posting, token) {
			return true
		}
	}
	for _, token := range strings.Fields(posting) {
		if strings.Contains(user, token) {
			return true
		}
	}
	return false
}

// similarityOrZero degrades every failure to a similarity of zero.
func similarityOrZero(query, doc []float32) float64 {
	if len(doc) == 0 {
		return 0
	}
	sim, err := cosine(query, doc)
	if err != nil {
		return 0
	}
	return sim
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errLengthMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, errZeroNorm
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, errNotFinite
	}
	return sim, nil
}
