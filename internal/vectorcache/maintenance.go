package vectorcache

import (
	"math"
	"sort"

	"github.com/spigell/internship-recommender/internal/catalog"
)

// Report summarizes how well a vector set covers a catalog.
type Report struct {
	TotalPostings int      `json:"total_postings"`
	TotalVectors  int      `json:"total_vectors"`
	Valid         int      `json:"valid"`
	Invalid       int      `json:"invalid"`
	Missing       int      `json:"missing"`
	InvalidIDs    []string `json:"invalid_ids,omitempty"`
	MissingIDs    []string `json:"missing_ids,omitempty"`
}

// OK reports whether every posting has a usable vector.
func (r Report) OK() bool {
	return r.Invalid == 0 && r.Missing == 0
}

// Validate checks the vector of every posting. A vector is invalid when it is
// empty, holds a non-finite value or, with dim > 0, has another length.
func Validate(postings []catalog.Posting, vectors Vectors, dim int) Report {
	report := Report{
		TotalPostings: len(postings),
		TotalVectors:  len(vectors),
	}

	for _, posting := range postings {
		id := catalog.Identity(posting)
		vec, ok := vectors[id]
		switch {
		case !ok:
			report.Missing++
			report.MissingIDs = append(report.MissingIDs, id)
		case !usable(vec, dim):
			report.Invalid++
			report.InvalidIDs = append(report.InvalidIDs, id)
		default:
			report.Valid++
		}
	}

	return report
}

func usable(vec []float32, dim int) bool {
	if len(vec) == 0 {
		return false
	}
	if dim > 0 && len(vec) != dim {
		return false
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// CleanOrphans returns a copy of vectors without the entries whose identity
// is not in the catalog, plus the removed identities in sorted order.
func CleanOrphans(postings []catalog.Posting, vectors Vectors) (Vectors, []string) {
	known := make(map[string]struct{}, len(postings))
	for _, posting := range postings {
		known[catalog.Identity(posting)] = struct{}{}
	}

	cleaned := make(Vectors, len(vectors))
	var removed []string
	for id, vec := range vectors {
		if _, ok := known[id]; !ok {
			removed = append(removed, id)
			continue
		}
		cleaned[id] = vec
	}

	sort.Strings(removed)
	return cleaned, removed
}

// Coverage counts the postings that have a vector.
func Coverage(postings []catalog.Posting, vectors Vectors) int {
	covered := 0
	for _, posting := range postings {
		if _, ok := vectors[catalog.Identity(posting)]; ok {
			covered++
		}
	}
	return covered
}

// Attach returns copies of postings with their vectors set. Postings without
// a vector are kept with a nil embedding.
func Attach(postings []catalog.Posting, vectors Vectors) []catalog.Posting {
	out := make([]catalog.Posting, len(postings))
	for i, posting := range postings {
		posting.Embedding = vectors[catalog.Identity(posting)]
		out[i] = posting
	}
	return out
}
