package recommender

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/ranking"
	"github.com/spigell/internship-recommender/internal/vectorcache"
)

type stubEmbedder struct {
	mu        sync.Mutex
	documents int
	queryErr  error
}

// vectorFor puts go postings close to the query and everything else far away.
func vectorFor(text string) []float32 {
	if strings.Contains(strings.ToLower(text), "go") {
		return []float32{1, 0.1, 0}
	}
	return []float32{0, 1, 0}
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.documents += len(texts)
	s.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = vectorFor(text)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) Model() string {
	return "stub"
}

var testCatalog = []catalog.Posting{
	{ID: "1", Title: "Backend Intern", Org: "Acme", RequiredEducation: "B.Tech", Skills: "Go, SQL", Location: "Pune", Sector: catalog.SectorText("IT")},
	{ID: "2", Title: "Design Intern", Org: "Studio", RequiredEducation: "B.Des", Skills: "Figma, Sketch", Location: "Mumbai"},
	{Title: "Data Intern", Org: "Numbers Inc", RequiredEducation: "B.Sc", Skills: "Python, SQL", Location: "Remote"},
}

func writeCatalog(t *testing.T, path string, postings []catalog.Posting) {
	t.Helper()
	data, err := json.Marshal(postings)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newService(t *testing.T, embedder ai.Embedder, postings []catalog.Posting) (*Service, string, string) {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "internships.json")
	cachePath := filepath.Join(dir, "embeddings.json")
	if postings != nil {
		writeCatalog(t, catalogPath, postings)
	}

	store := vectorcache.NewStore(catalogPath, cachePath, embedder, nil)
	return New(store, ranking.NewRanker(embedder, nil), nil), catalogPath, cachePath
}

func TestRecommend(t *testing.T) {
	embedder := &stubEmbedder{}
	svc, _, cachePath := newService(t, embedder, testCatalog)

	resp, err := svc.Recommend(context.Background(), Request{Education: "B.Tech", Skills: "go, sql", Location: "Pune"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	if resp.Metadata.TotalInternships != 3 || resp.Metadata.InternshipsWithEmbeddings != 3 {
		t.Fatalf("unexpected metadata: %+v", resp.Metadata)
	}
	if resp.Metadata.ReturnedRecommendations != len(resp.Recommendations) || len(resp.Recommendations) != 2 {
		t.Fatalf("expected the two sql postings, got %+v", resp.Recommendations)
	}
	if resp.Recommendations[0].ID != "1" {
		t.Fatalf("expected the go posting first, got %q", resp.Recommendations[0].ID)
	}
	if resp.Recommendations[0].Embedding != nil {
		t.Fatalf("embedding must be stripped")
	}
	if resp.Query.Skills != "go, sql" {
		t.Fatalf("unexpected query echo: %+v", resp.Query)
	}

	if !vectorcache.Exists(cachePath) {
		t.Fatalf("vectors were not persisted")
	}

	if _, err := svc.Recommend(context.Background(), Request{Skills: "go"}); err != nil {
		t.Fatalf("second recommend: %v", err)
	}
	if embedder.documents != 3 {
		t.Fatalf("vectors must be computed once, got %d documents embedded", embedder.documents)
	}
}

func TestRecommendPicksUpCatalogChanges(t *testing.T) {
	embedder := &stubEmbedder{}
	svc, catalogPath, _ := newService(t, embedder, testCatalog[:1])

	if _, err := svc.Recommend(context.Background(), Request{Skills: "go"}); err != nil {
		t.Fatalf("recommend: %v", err)
	}

	writeCatalog(t, catalogPath, testCatalog)
	resp, err := svc.Recommend(context.Background(), Request{Skills: "go"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if resp.Metadata.TotalInternships != 3 {
		t.Fatalf("expected the new catalog, got %+v", resp.Metadata)
	}
	if embedder.documents != 3 {
		t.Fatalf("expected only the new postings to be embedded, got %d", embedder.documents)
	}
}

func TestRecommendErrors(t *testing.T) {
	svc, _, _ := newService(t, &stubEmbedder{}, nil)
	if _, err := svc.Recommend(context.Background(), Request{Skills: "go"}); !errors.Is(err, ErrNoInternships) {
		t.Fatalf("expected ErrNoInternships, got %v", err)
	}

	failing := &stubEmbedder{queryErr: errors.New("provider said no")}
	svc, _, _ = newService(t, failing, testCatalog)
	resp, err := svc.Recommend(context.Background(), Request{Skills: "go"})
	if !errors.Is(err, ai.ErrProvider) || resp != nil {
		t.Fatalf("expected provider error, got %v, %v", resp, err)
	}
}

func TestRecommendFallback(t *testing.T) {
	svc, _, _ := newService(t, &stubEmbedder{}, testCatalog)

	resp, err := svc.Recommend(context.Background(), Request{Skills: "rust", TopK: 3})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].ID != "1" {
		t.Fatalf("expected the go posting from fallback, got %+v", resp.Recommendations)
	}
	if !resp.Recommendations[0].MatchDetails.FallbackRecommendation {
		t.Fatalf("expected fallback flag")
	}
}

func TestCatalogQueries(t *testing.T) {
	svc, _, _ := newService(t, &stubEmbedder{}, testCatalog)
	ctx := context.Background()

	list, err := svc.Internships(ctx)
	if err != nil || list.Count != 3 {
		t.Fatalf("internships: %+v, %v", list, err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalInternships != 3 || stats.UniqueSkills != 5 || stats.UniqueOrganizations != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	status, err := svc.EmbeddingStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CoveragePercentage != 100 || !status.EmbeddingsFileExists || !status.InternshipsFileExists {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestCatalogQueriesWithoutCatalog(t *testing.T) {
	svc, _, _ := newService(t, &stubEmbedder{}, nil)
	ctx := context.Background()

	list, err := svc.Internships(ctx)
	if err != nil || list.Count != 0 || list.Internships == nil {
		t.Fatalf("expected an empty list, got %+v, %v", list, err)
	}
	if _, err := svc.Stats(ctx); !errors.Is(err, ErrNoInternships) {
		t.Fatalf("expected ErrNoInternships, got %v", err)
	}

	status, err := svc.EmbeddingStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CoveragePercentage != 0 || status.InternshipsFileExists || status.EmbeddingsFileExists {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestRecompute(t *testing.T) {
	embedder := &stubEmbedder{}
	svc, _, _ := newService(t, embedder, testCatalog)

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	result, err := svc.Recompute(context.Background())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if result.Computed != 3 || result.TotalEmbeddings != 3 || embedder.documents != 6 {
		t.Fatalf("unexpected recompute: %+v, %d documents", result, embedder.documents)
	}

	empty, _, _ := newService(t, embedder, []catalog.Posting{})
	if _, err := empty.Recompute(context.Background()); !errors.Is(err, ErrNoInternships) {
		t.Fatalf("expected ErrNoInternships, got %v", err)
	}
}
