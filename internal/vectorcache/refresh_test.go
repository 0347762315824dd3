package vectorcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/internship-recommender/internal/ai"
)

func TestCheckAndRefresh(t *testing.T) {
	catalogPath, cachePath := testPaths(t)
	writeCatalog(t, catalogPath, posting("1", "Backend Intern", "go"), posting("2", "Data Intern", "sql"))

	embedder := &stubEmbedder{}
	deps := Deps{Embedder: embedder}
	ctx := context.Background()

	first, refreshed, err := CheckAndRefresh(ctx, deps, catalogPath, cachePath, Snapshot{})
	if err != nil || !refreshed {
		t.Fatalf("expected refresh, got %v, %v", refreshed, err)
	}
	if len(first.Postings) != 2 || len(first.Vectors) != 2 || first.Hash == "" {
		t.Fatalf("unexpected snapshot: %+v", first)
	}

	meta, err := ReadMetadata(cachePath)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.SourceFileHash != first.Hash || meta.SourceFilePath != catalogPath || meta.EmbeddingModel != "stub-model" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	again, refreshed, err := CheckAndRefresh(ctx, deps, catalogPath, cachePath, first)
	if err != nil || refreshed {
		t.Fatalf("expected cached result, got %v, %v", refreshed, err)
	}
	if len(again.Postings) != 2 || embedder.calls != 1 {
		t.Fatalf("cached path must not call the provider, got %d calls", embedder.calls)
	}

	writeCatalog(t, catalogPath, posting("1", "Backend Intern", "go"), posting("2", "Data Intern", "sql"), posting("3", "ML Intern", "pytorch"))
	changed, refreshed, err := CheckAndRefresh(ctx, deps, catalogPath, cachePath, again)
	if err != nil || !refreshed {
		t.Fatalf("expected refresh after catalog change, got %v, %v", refreshed, err)
	}
	if len(changed.Vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(changed.Vectors))
	}
	if last := embedder.texts[len(embedder.texts)-1]; len(last) != 1 {
		t.Fatalf("only the new posting should be embedded, got %v", last)
	}
}

func TestCheckAndRefreshUsesVectorsOnDisk(t *testing.T) {
	catalogPath, cachePath := testPaths(t)
	writeCatalog(t, catalogPath, posting("1", "Backend Intern", "go"))
	if err := Save(cachePath, Vectors{"1": {1, 2, 3, 4}}, Metadata{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	embedder := &stubEmbedder{}
	snap, refreshed, err := CheckAndRefresh(context.Background(), Deps{Embedder: embedder}, catalogPath, cachePath, Snapshot{})
	if err != nil || !refreshed {
		t.Fatalf("expected refresh, got %v, %v", refreshed, err)
	}
	if embedder.calls != 0 {
		t.Fatalf("vector on disk must be reused")
	}
	if snap.Vectors["1"][2] != 3 {
		t.Fatalf("unexpected vector: %v", snap.Vectors["1"])
	}
}

func TestCheckAndRefreshUnavailableCatalog(t *testing.T) {
	catalogPath, cachePath := testPaths(t)
	embedder := &stubEmbedder{}
	deps := Deps{Embedder: embedder}

	snap, refreshed, err := CheckAndRefresh(context.Background(), deps, catalogPath, cachePath, Snapshot{})
	if err != nil || refreshed || !snap.Empty() {
		t.Fatalf("missing catalog: %+v, %v, %v", snap, refreshed, err)
	}

	writeCatalog(t, catalogPath)
	snap, refreshed, err = CheckAndRefresh(context.Background(), deps, catalogPath, cachePath, Snapshot{})
	if err != nil || refreshed || !snap.Empty() {
		t.Fatalf("empty catalog: %+v, %v, %v", snap, refreshed, err)
	}

	if err := os.WriteFile(catalogPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, refreshed, err = CheckAndRefresh(context.Background(), deps, catalogPath, cachePath, Snapshot{})
	if err != nil || refreshed || !snap.Empty() {
		t.Fatalf("broken catalog: %+v, %v, %v", snap, refreshed, err)
	}

	if embedder.calls != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestCheckAndRefreshSaveFailureKeepsVectors(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "internships.json")
	cachePath := filepath.Join(dir, "missing", "embeddings.json")
	writeCatalog(t, catalogPath, posting("1", "Backend Intern", "go"))

	core, logs := observer.New(zapcore.ErrorLevel)
	deps := Deps{Embedder: &stubEmbedder{}, Logger: zap.New(core)}

	snap, refreshed, err := CheckAndRefresh(context.Background(), deps, catalogPath, cachePath, Snapshot{})
	if err != nil || !refreshed {
		t.Fatalf("expected refresh despite save failure, got %v, %v", refreshed, err)
	}
	if len(snap.Vectors) != 1 {
		t.Fatalf("expected in-memory vectors, got %v", snap.Vectors)
	}
	if logs.FilterMessage("failed to persist vectors").Len() != 1 {
		t.Fatalf("expected the save failure to be logged")
	}
}

func TestCheckAndRefreshProviderFailure(t *testing.T) {
	catalogPath, cachePath := testPaths(t)
	writeCatalog(t, catalogPath, posting("1", "Backend Intern", "go"))

	deps := Deps{Embedder: &stubEmbedder{err: errors.New("boom")}}
	snap, refreshed, err := CheckAndRefresh(context.Background(), deps, catalogPath, cachePath, Snapshot{})
	if !errors.Is(err, ai.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if refreshed || !snap.Empty() {
		t.Fatalf("expected no result, got %+v", snap)
	}
	if Exists(cachePath) {
		t.Fatalf("nothing must be persisted on failure")
	}
}
