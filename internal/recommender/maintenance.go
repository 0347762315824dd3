package recommender

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/utils"
	"github.com/spigell/internship-recommender/internal/vectorcache"
)

const cleanBackupSuffix = ".pre_clean_backup"

var (
	// ErrCancelled is returned when the caller declines to continue after a failed backup.
	ErrCancelled = errors.New("operation cancelled")
	// ErrNoVectors is returned when the vector cache file has no entries.
	ErrNoVectors = errors.New("no vectors available")
)

// ComputeReport describes a Compute run.
type ComputeReport struct {
	TotalInternships   int     `json:"total_internships"`
	ExistingEmbeddings int     `json:"existing_embeddings"`
	CoveredBefore      int     `json:"internships_with_embeddings_before"`
	Computed           int     `json:"computed"`
	TotalEmbeddings    int     `json:"total_embeddings"`
	CoveredAfter       int     `json:"internships_with_embeddings"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	BackupPath         string  `json:"backup_path,omitempty"`
	EmbeddingsFileSize int64   `json:"embeddings_file_size"`
	BackupFileSize     int64   `json:"backup_file_size,omitempty"`
}

// CleanReport describes a Clean run.
type CleanReport struct {
	Removed    []string `json:"removed"`
	Remaining  int      `json:"remaining"`
	BackupPath string   `json:"backup_path,omitempty"`
}

// Compute fills the vector cache file for the whole catalog. Existing vectors
// are copied to backupPath first. When that copy fails, confirm decides
// whether to go on without a backup. The written file is read back to verify it.
func (s *Service) Compute(ctx context.Context, backupPath string, confirm func(error) bool) (*ComputeReport, error) {
	catalogPath, cachePath := s.store.CatalogPath(), s.store.CachePath()

	postings, err := catalog.Load(catalogPath, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoInternships, err)
	}
	if len(postings) == 0 {
		return nil, ErrNoInternships
	}

	existing, err := vectorcache.Load(cachePath)
	if err != nil {
		s.logger.Info("starting with an empty vector cache", zap.Error(err))
		existing = vectorcache.Vectors{}
	}

	report := &ComputeReport{
		TotalInternships:   len(postings),
		ExistingEmbeddings: len(existing),
		CoveredBefore:      vectorcache.Coverage(postings, existing),
	}
	s.logger.Info("catalog statistics",
		zap.Int("internships", report.TotalInternships),
		zap.Int("existing_embeddings", report.ExistingEmbeddings),
		zap.Int("with_embeddings", report.CoveredBefore),
		zap.Int("need_embeddings", report.TotalInternships-report.CoveredBefore),
	)

	if len(existing) > 0 && backupPath != "" {
		if _, err := vectorcache.Backup(cachePath, backupPath); err != nil {
			s.logger.Warn("backup failed", zap.String("path", backupPath), zap.Error(err))
			if confirm == nil || !confirm(err) {
				return nil, ErrCancelled
			}
		} else {
			report.BackupPath = backupPath
			s.logger.Info("backup created", zap.String("path", backupPath))
		}
	}

	embedder := s.store.Embedder()
	vectors, computed, err := vectorcache.Fill(ctx, embedder, postings, existing)
	if err != nil {
		return nil, err
	}
	report.Computed = computed

	hash, err := vectorcache.HashFile(catalogPath)
	if err != nil {
		return nil, err
	}
	meta := vectorcache.Metadata{EmbeddingModel: embedder.Model(), SourceFileHash: hash, SourceFilePath: catalogPath}
	if err := vectorcache.Save(cachePath, vectors, meta); err != nil {
		return nil, err
	}

	verified, err := vectorcache.Load(cachePath)
	if err != nil {
		return nil, fmt.Errorf("verifying vectors: %w", err)
	}
	if len(verified) != len(vectors) {
		s.logger.Warn("verification mismatch", zap.Int("expected", len(vectors)), zap.Int("got", len(verified)))
	}

	report.TotalEmbeddings = len(verified)
	report.CoveredAfter = vectorcache.Coverage(postings, verified)
	report.CoveragePercentage = utils.Percent(report.CoveredAfter, report.TotalInternships)
	report.EmbeddingsFileSize = fileSize(cachePath)
	if report.BackupPath != "" {
		report.BackupFileSize = fileSize(report.BackupPath)
	}

	return report, nil
}

// Validate checks the vector cache file against the catalog.
func (s *Service) Validate(dim int) (*vectorcache.Report, error) {
	postings, vectors, err := s.loadFiles()
	if err != nil {
		return nil, err
	}

	report := vectorcache.Validate(postings, vectors, dim)
	return &report, nil
}

// Clean removes vectors of postings that are no longer in the catalog. The
// previous file is kept next to the cache with a .pre_clean_backup suffix.
func (s *Service) Clean() (*CleanReport, error) {
	postings, vectors, err := s.loadFiles()
	if err != nil {
		return nil, err
	}

	cleaned, removed := vectorcache.CleanOrphans(postings, vectors)
	report := &CleanReport{Removed: removed, Remaining: len(cleaned)}
	if len(removed) == 0 {
		report.Removed = []string{}
		return report, nil
	}

	cachePath := s.store.CachePath()
	backupPath := cachePath + cleanBackupSuffix
	if _, err := vectorcache.Backup(cachePath, backupPath); err != nil {
		return nil, err
	}
	report.BackupPath = backupPath

	meta, err := vectorcache.ReadMetadata(cachePath)
	if err != nil {
		return nil, err
	}
	if err := vectorcache.Save(cachePath, cleaned, meta); err != nil {
		return nil, err
	}

	s.logger.Info("orphaned vectors removed", zap.Int("removed", len(removed)), zap.Int("remaining", len(cleaned)))
	return report, nil
}

func (s *Service) loadFiles() ([]catalog.Posting, vectorcache.Vectors, error) {
	postings, err := catalog.Load(s.store.CatalogPath(), s.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNoInternships, err)
	}
	if len(postings) == 0 {
		return nil, nil, ErrNoInternships
	}

	vectors, err := vectorcache.Load(s.store.CachePath())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNoVectors, err)
	}
	if len(vectors) == 0 {
		return nil, nil, ErrNoVectors
	}

	return postings, vectors, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
