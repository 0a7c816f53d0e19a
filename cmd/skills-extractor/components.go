package main

import (
	"context"
	"fmt"
	"time"

	"github.com/TheoremOne-Talent/skills-extractor/internal/cache/memory"
	"github.com/TheoremOne-Talent/skills-extractor/internal/cache/qdrant"
	"github.com/TheoremOne-Talent/skills-extractor/internal/cache/redis"
	"github.com/TheoremOne-Talent/skills-extractor/internal/cluster"
	"github.com/TheoremOne-Talent/skills-extractor/internal/config"
	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/embedding"
	"github.com/TheoremOne-Talent/skills-extractor/internal/embedding/ngram"
	embedopenai "github.com/TheoremOne-Talent/skills-extractor/internal/embedding/openai"
	extractopenai "github.com/TheoremOne-Talent/skills-extractor/internal/extractor/openai"
	"github.com/TheoremOne-Talent/skills-extractor/internal/extractor/split"
	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
)

// buildEmbedder assembles the configured embedder behind the configured
// cache, emptying the cache first when clearFirst is set. The returned func
// releases cache connections.
func buildEmbedder(ctx context.Context, cfg *config.AppConfig, clearFirst bool, log *logger.Logger) (domain.Embedder, func(), error) {
	noop := func() {}

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "ngram":
		n := cfg.Embedder.Ngram
		emb = ngram.NewEmbedder(n.Dimension, n.MinN, n.MaxN)
	case "openai":
		o := cfg.Embedder.OpenAI
		client, err := embedopenai.NewClient(embedopenai.Config{
			BaseURL:   o.BaseURL,
			APIKeyEnv: o.APIKeyEnv,
			Model:     o.Model,
			BatchSize: o.BatchSize,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, noop, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	cache, release, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, noop, err
	}
	if cache == nil {
		return emb, release, nil
	}
	if clearFirst {
		if err := cache.Clear(ctx); err != nil {
			release()
			return nil, noop, fmt.Errorf("clear %s cache: %w", cfg.Cache.Type, err)
		}
		log.Info("%s embedding cache cleared", cfg.Cache.Type)
	}
	return embedding.NewCached(emb, cache, log), release, nil
}

// buildCache returns a nil cache for type none.
func buildCache(ctx context.Context, cfg *config.AppConfig) (domain.EmbeddingCache, func(), error) {
	noop := func() {}
	switch cfg.Cache.Type {
	case "none":
		return nil, noop, nil
	case "memory":
		return memory.NewStorage(), noop, nil
	case "redis":
		r := cfg.Cache.Redis
		st, err := redis.NewStorage(ctx, redis.Config{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      time.Duration(r.TTLSecs) * time.Second,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("redis cache init failed: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	case "qdrant":
		q := cfg.Cache.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache: %s", cfg.Cache.Type)
	}
}

func buildExtractor(cfg *config.AppConfig, log *logger.Logger) (domain.Extractor, error) {
	switch cfg.Extractor.Type {
	case "openai":
		o := cfg.Extractor.OpenAI
		ext, err := extractopenai.NewExtractor(extractopenai.Config{
			BaseURL:   o.BaseURL,
			APIKeyEnv: o.APIKeyEnv,
			Model:     o.Model,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("openai extractor init failed: %w", err)
		}
		return ext, nil
	case "split":
		return split.New(), nil
	default:
		return nil, fmt.Errorf("unknown extractor: %s", cfg.Extractor.Type)
	}
}

func clusterOptions(cfg *config.AppConfig, maxK int) cluster.Options {
	c := cfg.Cluster
	return cluster.Options{
		MaxK:     maxK,
		NInit:    c.NInit,
		MaxIter:  c.MaxIter,
		Workers:  c.Workers,
		Seed:     c.Seed,
		Reduce:   c.UsePCA,
		Variance: c.Variance,
	}
}
