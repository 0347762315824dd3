package vectorcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/logger"
)

// ErrEmptyCatalog is returned by Recompute when the catalog has no postings.
var ErrEmptyCatalog = errors.New("catalog is empty")

// Store owns the in-memory postings and vectors of one catalog.
type Store struct {
	catalogPath string
	cachePath   string
	deps        Deps

	mu      sync.RWMutex
	current Snapshot

	// writeMu serializes refreshes and recomputes against each other.
	writeMu sync.Mutex
	group   singleflight.Group
}

// NewStore creates an empty store. Nothing is read until the first Refresh.
func NewStore(catalogPath, cachePath string, embedder ai.Embedder, log *zap.Logger) *Store {
	return &Store{
		catalogPath: catalogPath,
		cachePath:   cachePath,
		deps: Deps{
			Embedder: embedder,
			Logger:   logger.WithFields(log, logger.FileFields(catalogPath, cachePath)...),
		},
	}
}

// CatalogPath returns the catalog file the store tracks.
func (s *Store) CatalogPath() string {
	return s.catalogPath
}

// CachePath returns the vector cache file the store persists to.
func (s *Store) CachePath() string {
	return s.cachePath
}

// Embedder returns the embedder used to fill the cache.
func (s *Store) Embedder() ai.Embedder {
	return s.deps.Embedder
}

// Snapshot returns the current postings and vectors.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

type refreshResult struct {
	snapshot  Snapshot
	refreshed bool
}

// Refresh brings the store in line with the catalog on disk. Concurrent
// callers share a single refresh. When the refresh fails the previous
// snapshot is kept and returned together with the error. The shared refresh
// outlives the cancellation of any one caller; a cancelled caller stops
// waiting and gets its own ctx error.
func (s *Store) Refresh(ctx context.Context) (Snapshot, bool, error) {
	if current := s.Snapshot(); !current.Empty() {
		if hash, err := HashFile(s.catalogPath); err == nil && hash == current.Hash {
			return current, false, nil
		}
	}

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.catalogPath, func() (any, error) {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		next, refreshed, err := CheckAndRefresh(shared, s.deps, s.catalogPath, s.cachePath, s.Snapshot())
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if refreshed || s.current.Empty() {
			s.current = next
		} else if next.Hash != "" {
			s.current.Hash = next.Hash
		}
		return refreshResult{snapshot: s.current, refreshed: refreshed}, nil
	})

	select {
	case <-ctx.Done():
		return s.Snapshot(), false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.deps.Logger.Error("vector refresh failed, keeping previous snapshot", zap.Error(res.Err))
			return s.Snapshot(), false, res.Err
		}
		result := res.Val.(refreshResult)
		return result.snapshot, result.refreshed, nil
	}
}

// Recompute drops every cached vector, embeds the whole catalog again and
// persists the result. It returns the new snapshot and the number of vectors
// computed.
func (s *Store) Recompute(ctx context.Context) (Snapshot, int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	hash, err := HashFile(s.catalogPath)
	if err != nil {
		return Snapshot{}, 0, err
	}

	postings, err := catalog.Load(s.catalogPath, s.deps.Logger)
	if err != nil {
		return Snapshot{}, 0, err
	}
	if len(postings) == 0 {
		return Snapshot{}, 0, ErrEmptyCatalog
	}

	vectors, computed, err := Fill(ctx, s.deps.Embedder, postings, Vectors{})
	if err != nil {
		return Snapshot{}, 0, fmt.Errorf("recomputing vectors: %w", err)
	}

	meta := Metadata{
		EmbeddingModel: s.deps.Embedder.Model(),
		SourceFileHash: hash,
		SourceFilePath: s.catalogPath,
	}
	if err := Save(s.cachePath, vectors, meta); err != nil {
		return Snapshot{}, 0, err
	}

	next := Snapshot{Postings: postings, Vectors: vectors, Hash: hash}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.deps.Logger.Info("vectors recomputed", zap.Int("computed", computed))
	return next, computed, nil
}
