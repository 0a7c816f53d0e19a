package embedding

import (
	"context"
	"fmt"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
)

// Cached memoizes another embedder's vectors in an EmbeddingCache.
// Cache read and write failures are logged and never fail the call.
type Cached struct {
	inner domain.Embedder
	cache domain.EmbeddingCache
	log   *logger.Logger
}

func NewCached(inner domain.Embedder, cache domain.EmbeddingCache, log *logger.Logger) *Cached {
	return &Cached{inner: inner, cache: cache, log: log}
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	model := c.inner.Name()
	hits, err := c.cache.Get(ctx, model, texts)
	if err != nil {
		c.log.Error("embedding cache read failed: %v", err)
		hits = nil
	}

	var missing []string
	queued := make(map[string]struct{})
	for _, t := range texts {
		if _, ok := hits[t]; ok {
			continue
		}
		if _, ok := queued[t]; ok {
			continue
		}
		queued[t] = struct{}{}
		missing = append(missing, t)
	}
	c.log.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missing), len(missing))

	fresh := make(map[string][]float64, len(missing))
	if len(missing) > 0 {
		vectors, err := Embed(ctx, c.inner, missing)
		if err != nil {
			return nil, err
		}
		for i, t := range missing {
			fresh[t] = vectors[i]
		}
		if err := c.cache.Put(ctx, model, fresh); err != nil {
			c.log.Error("embedding cache write failed: %v", err)
		}
	}

	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := fresh[t]; ok {
			out[i] = v
			continue
		}
		v, ok := hits[t]
		if !ok {
			return nil, fmt.Errorf("embedding for %q missing after cache fill", t)
		}
		out[i] = v
	}
	return out, nil
}
