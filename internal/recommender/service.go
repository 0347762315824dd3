// Package recommender answers recommendation and catalog queries on top of
// the vector store and the ranker.
package recommender

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/logger"
	"github.com/spigell/internship-recommender/internal/ranking"
	"github.com/spigell/internship-recommender/internal/utils"
	"github.com/spigell/internship-recommender/internal/vectorcache"
)

// ErrNoInternships is returned when the catalog is empty or cannot be read.
var ErrNoInternships = errors.New("no internships data available")

// Request is a recommendation query. A zero TopK selects ranking.DefaultTopK.
type Request struct {
	Education string `json:"education" mapstructure:"education"`
	Skills    string `json:"skills" mapstructure:"skills"`
	Location  string `json:"location" mapstructure:"location"`
	TopK      int    `json:"top_k" mapstructure:"top-k"`
}

type Response struct {
	Query           ranking.Profile          `json:"query"`
	Recommendations []ranking.Recommendation `json:"recommendations"`
	Metadata        ResponseMetadata         `json:"metadata"`
}

type ResponseMetadata struct {
	TotalInternships          int `json:"total_internships"`
	InternshipsWithEmbeddings int `json:"internships_with_embeddings"`
	ReturnedRecommendations   int `json:"returned_recommendations"`
}

type Internships struct {
	Count       int               `json:"count"`
	Internships []catalog.Posting `json:"internships"`
}

type EmbeddingStatus struct {
	TotalInternships          int     `json:"total_internships"`
	TotalEmbeddings           int     `json:"total_embeddings"`
	InternshipsWithEmbeddings int     `json:"internships_with_embeddings"`
	CoveragePercentage        float64 `json:"coverage_percentage"`
	EmbeddingsFileExists      bool    `json:"embeddings_file_exists"`
	InternshipsFileExists     bool    `json:"internships_file_exists"`
}

type RecomputeResult struct {
	TotalInternships int `json:"total_internships"`
	TotalEmbeddings  int `json:"total_embeddings"`
	Computed         int `json:"computed"`
}

// Service owns the catalog state of a process. It is safe for concurrent use.
type Service struct {
	store  *vectorcache.Store
	ranker *ranking.Ranker
	logger *zap.Logger
}

func New(store *vectorcache.Store, ranker *ranking.Ranker, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		ranker: ranker,
		logger: logger.WithFields(log),
	}
}

// Recommend ranks the catalog for the request. Postings without a vector are
// ranked too, with zero semantic similarity.
func (s *Service) Recommend(ctx context.Context, req Request) (*Response, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.Postings) == 0 {
		return nil, ErrNoInternships
	}

	topK := req.TopK
	if topK == 0 {
		topK = ranking.DefaultTopK
	}

	profile := ranking.Profile{Education: req.Education, Skills: req.Skills, Location: req.Location}
	postings := vectorcache.Attach(snap.Postings, snap.Vectors)

	recs, err := s.ranker.Rank(ctx, postings, profile, topK)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []ranking.Recommendation{}
	}

	covered := vectorcache.Coverage(snap.Postings, snap.Vectors)
	s.logger.Info("recommendations ready",
		append(logger.ProfileFields(req.Education, req.Skills, req.Location, topK),
			zap.Int("returned", len(recs)),
			zap.Int("with_embeddings", covered),
		)...,
	)

	return &Response{
		Query:           profile,
		Recommendations: recs,
		Metadata: ResponseMetadata{
			TotalInternships:          len(snap.Postings),
			InternshipsWithEmbeddings: covered,
			ReturnedRecommendations:   len(recs),
		},
	}, nil
}

// Internships lists the catalog as currently loaded.
func (s *Service) Internships(ctx context.Context) (*Internships, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	postings := snap.Postings
	if postings == nil {
		postings = []catalog.Posting{}
	}
	return &Internships{Count: len(postings), Internships: postings}, nil
}

// Stats summarizes the catalog.
func (s *Service) Stats(ctx context.Context) (*catalog.Stats, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.Postings) == 0 {
		return nil, ErrNoInternships
	}
	return catalog.Summarize(snap.Postings), nil
}

// EmbeddingStatus reports how many postings have a vector.
func (s *Service) EmbeddingStatus(ctx context.Context) (*EmbeddingStatus, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	covered := vectorcache.Coverage(snap.Postings, snap.Vectors)
	return &EmbeddingStatus{
		TotalInternships:          len(snap.Postings),
		TotalEmbeddings:           len(snap.Vectors),
		InternshipsWithEmbeddings: covered,
		CoveragePercentage:        utils.Percent(covered, len(snap.Postings)),
		EmbeddingsFileExists:      vectorcache.Exists(s.store.CachePath()),
		InternshipsFileExists:     vectorcache.Exists(s.store.CatalogPath()),
	}, nil
}

// Recompute embeds the whole catalog again, ignoring cached vectors.
func (s *Service) Recompute(ctx context.Context) (*RecomputeResult, error) {
	snap, computed, err := s.store.Recompute(ctx)
	if errors.Is(err, vectorcache.ErrEmptyCatalog) {
		return nil, ErrNoInternships
	}
	if err != nil {
		return nil, err
	}

	return &RecomputeResult{
		TotalInternships: len(snap.Postings),
		TotalEmbeddings:  len(snap.Vectors),
		Computed:         computed,
	}, nil
}

// Refresh brings the store up to date and reports whether anything changed.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	_, refreshed, err := s.store.Refresh(ctx)
	return refreshed, err
}

func (s *Service) current(ctx context.Context) (vectorcache.Snapshot, error) {
	snap, _, err := s.store.Refresh(ctx)
	if err != nil {
		return vectorcache.Snapshot{}, err
	}
	return snap, nil
}
