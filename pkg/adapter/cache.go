package adapter

import (
	"context"

	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
)

// CachedEmbedder memoizes embeddings per exact text. Stored vectors are shared,
// so callers must not modify the returned slice.
type CachedEmbedder struct {
	embedder interfaces.Embedder
	cache    *ristretto.Cache
}

// NewCachedEmbedder wraps embedder with a cache holding up to maxVectors vectors
func NewCachedEmbedder(embedder interfaces.Embedder, maxVectors int64) (*CachedEmbedder, error) {
	if maxVectors <= 0 {
		maxVectors = 10000
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxVectors * 10,
		MaxCost:            maxVectors,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding cache")
	}

	return &CachedEmbedder{embedder: embedder, cache: cache}, nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Set(text, vec, 1)
	return vec, nil
}

// Wait blocks until pending cache writes are applied
func (c *CachedEmbedder) Wait() {
	c.cache.Wait()
}

func (c *CachedEmbedder) Close() {
	c.cache.Close()
}
