package vectorcache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/catalog"
)

// Deps are the collaborators of a refresh.
type Deps struct {
	Embedder ai.Embedder
	Logger   *zap.Logger
}

// Snapshot is a consistent pair of catalog postings and their vectors.
// Callers must treat both as read-only.
type Snapshot struct {
	Postings []catalog.Posting
	Vectors  Vectors
	// Hash is the catalog digest the snapshot was built from.
	Hash string
}

// Empty reports whether the snapshot lacks postings or vectors.
func (s Snapshot) Empty() bool {
	return len(s.Postings) == 0 || len(s.Vectors) == 0
}

// CheckAndRefresh returns cached unchanged when the catalog hash matches the
// one recorded in the cache file and cached holds data. Otherwise it reloads
// the catalog, computes the missing vectors and persists the result.
//
// An empty or unreadable catalog yields an empty snapshot and no error.
// A failure to persist is logged and the computed vectors are still returned.
func CheckAndRefresh(ctx context.Context, deps Deps, catalogPath, cachePath string, cached Snapshot) (Snapshot, bool, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	hash, err := HashFile(catalogPath)
	if err != nil {
		log.Warn("catalog is unreadable", zap.String("path", catalogPath), zap.Error(err))
		return Snapshot{}, false, nil
	}

	meta, err := ReadMetadata(cachePath)
	if err != nil {
		log.Debug("no vector metadata", zap.String("path", cachePath), zap.Error(err))
	}

	if hash == meta.SourceFileHash && !cached.Empty() {
		cached.Hash = hash
		return cached, false, nil
	}

	log.Info("catalog changed, refreshing vectors", zap.String("hash", hash))

	postings, err := catalog.Load(catalogPath, log)
	if err != nil {
		log.Warn("catalog is unreadable", zap.String("path", catalogPath), zap.Error(err))
		return Snapshot{}, false, nil
	}
	if len(postings) == 0 {
		log.Warn("catalog is empty", zap.String("path", catalogPath))
		return Snapshot{}, false, nil
	}

	existing, err := Load(cachePath)
	if err != nil {
		log.Info("starting with an empty vector cache", zap.String("path", cachePath), zap.Error(err))
		existing = Vectors{}
	}

	vectors, computed, err := Fill(ctx, deps.Embedder, postings, existing)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("refreshing vectors: %w", err)
	}

	meta = Metadata{
		EmbeddingModel: deps.Embedder.Model(),
		SourceFileHash: hash,
		SourceFilePath: catalogPath,
	}
	if err := Save(cachePath, vectors, meta); err != nil {
		log.Error("failed to persist vectors", zap.String("path", cachePath), zap.Error(err))
	}

	log.Info("vectors refreshed",
		zap.Int("postings", len(postings)),
		zap.Int("computed", computed),
		zap.Int("total", len(vectors)),
	)

	return Snapshot{Postings: postings, Vectors: vectors, Hash: hash}, true, nil
}
