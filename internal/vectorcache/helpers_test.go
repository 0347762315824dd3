package vectorcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spigell/internship-recommender/internal/catalog"
)

const testDims = 4

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	texts [][]string
	err   error
	short bool

	// entered and release let a test hold EmbedDocuments open.
	entered chan struct{}
	release chan struct{}
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	s.texts = append(s.texts, texts)
	err := s.err
	short := s.short
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, testDims)
		vec[0] = float32(len(text))
		vec[1] = 1
		vectors[i] = vec
	}
	if short {
		vectors = vectors[:len(vectors)-1]
	}
	return vectors, nil
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, testDims), nil
}

func (s *stubEmbedder) Model() string {
	return "stub-model"
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubEmbedder) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func writeCatalog(t *testing.T, path string, postings ...catalog.Posting) {
	t.Helper()

	data, err := json.Marshal(postings)
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
}

func testPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "internships.json"), filepath.Join(dir, "embeddings.json")
}

func posting(id, title, skills string) catalog.Posting {
	return catalog.Posting{
		ID:                id,
		Title:             title,
		Org:               "Acme",
		RequiredEducation: "B.Tech",
		Skills:            skills,
		Location:          "Pune",
	}
}
