package recommender

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spigell/internship-recommender/internal/vectorcache"
)

func TestCompute(t *testing.T) {
	embedder := &stubEmbedder{}
	svc, catalogPath, cachePath := newService(t, embedder, testCatalog)
	backupPath := filepath.Join(filepath.Dir(cachePath), "embeddings_backup.json")

	if err := vectorcache.Save(cachePath, vectorcache.Vectors{"1": {1, 0, 0}}, vectorcache.Metadata{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	report, err := svc.Compute(context.Background(), backupPath, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if report.ExistingEmbeddings != 1 || report.CoveredBefore != 1 || report.Computed != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.TotalEmbeddings != 3 || report.CoveredAfter != 3 || report.CoveragePercentage != 100 {
		t.Fatalf("unexpected final counts: %+v", report)
	}
	if report.BackupPath != backupPath || report.BackupFileSize == 0 || report.EmbeddingsFileSize == 0 {
		t.Fatalf("unexpected files: %+v", report)
	}

	backup, err := vectorcache.Load(backupPath)
	if err != nil || len(backup) != 1 {
		t.Fatalf("backup must hold the previous vectors: %v, %v", backup, err)
	}

	meta, err := vectorcache.ReadMetadata(cachePath)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	hash, _ := vectorcache.HashFile(catalogPath)
	if meta.SourceFileHash != hash || meta.EmbeddingModel != "stub" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestComputeBackupFailure(t *testing.T) {
	svc, _, cachePath := newService(t, &stubEmbedder{}, testCatalog)
	if err := vectorcache.Save(cachePath, vectorcache.Vectors{"1": {1, 0, 0}}, vectorcache.Metadata{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	unwritable := filepath.Join(filepath.Dir(cachePath), "missing", "backup.json")

	asked := 0
	decline := func(error) bool { asked++; return false }
	if _, err := svc.Compute(context.Background(), unwritable, decline); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if asked != 1 {
		t.Fatalf("expected one confirmation, got %d", asked)
	}

	report, err := svc.Compute(context.Background(), unwritable, func(error) bool { return true })
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if report.BackupPath != "" || report.TotalEmbeddings != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestComputeWithoutCatalog(t *testing.T) {
	svc, _, _ := newService(t, &stubEmbedder{}, nil)
	if _, err := svc.Compute(context.Background(), "", nil); !errors.Is(err, ErrNoInternships) {
		t.Fatalf("expected ErrNoInternships, got %v", err)
	}
}

func TestValidateAndClean(t *testing.T) {
	svc, _, cachePath := newService(t, &stubEmbedder{}, testCatalog)

	if _, err := svc.Validate(3); !errors.Is(err, ErrNoVectors) {
		t.Fatalf("expected ErrNoVectors, got %v", err)
	}

	vectors := vectorcache.Vectors{
		"1":        {1, 0, 0},
		"2":        {1, 0},
		"old":      {0, 0, 1},
		"obsolete": {0, 1, 1},
	}
	if err := vectorcache.Save(cachePath, vectors, vectorcache.Metadata{SourceFileHash: "h"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	report, err := svc.Validate(3)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Valid != 1 || report.Invalid != 1 || report.Missing != 1 || report.OK() {
		t.Fatalf("unexpected report: %+v", report)
	}

	cleaned, err := svc.Clean()
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !reflect.DeepEqual(cleaned.Removed, []string{"obsolete", "old"}) || cleaned.Remaining != 2 {
		t.Fatalf("unexpected clean report: %+v", cleaned)
	}
	if cleaned.BackupPath != cachePath+".pre_clean_backup" {
		t.Fatalf("unexpected backup path %q", cleaned.BackupPath)
	}

	backup, err := vectorcache.Load(cleaned.BackupPath)
	if err != nil || len(backup) != 4 {
		t.Fatalf("backup must hold the original vectors: %v, %v", backup, err)
	}
	meta, err := vectorcache.ReadMetadata(cachePath)
	if err != nil || meta.SourceFileHash != "h" || meta.TotalEmbeddings != 2 {
		t.Fatalf("unexpected metadata after clean: %+v, %v", meta, err)
	}

	again, err := svc.Clean()
	if err != nil || len(again.Removed) != 0 || again.BackupPath != "" {
		t.Fatalf("second clean must be a no-op: %+v, %v", again, err)
	}
}
