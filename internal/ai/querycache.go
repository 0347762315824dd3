package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// QueryCache memoizes query embeddings so repeated identical profiles are
// not sent to the provider again. Document embeddings pass through.
type QueryCache struct {
	next   Embedder
	cache  *expirable.LRU[string, []float32]
	logger *zap.Logger
}

// NewQueryCache wraps e with an expiring LRU of the given size. A non-positive
// size or ttl returns e unchanged.
func NewQueryCache(e Embedder, size int, ttl time.Duration, logger *zap.Logger) Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueryCache{
		next:   e,
		cache:  expirable.NewLRU[string, []float32](size, nil, ttl),
		logger: logger,
	}
}

func (c *QueryCache) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedDocuments(ctx, texts)
}

func (c *QueryCache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.next.Model(), text)
	if cached, ok := c.cache.Get(key); ok {
		c.logger.Debug("query embedding cache hit", zap.String("key", key))
		return clone(cached), nil
	}

	vector, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, clone(vector))
	return vector, nil
}

func (c *QueryCache) Model() string {
	return c.next.Model()
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "query:" + model + ":" + hex.EncodeToString(sum[:])
}

func clone(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float32, len(values))
	copy(out, values)
	return out
}
