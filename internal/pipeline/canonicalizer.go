// Package pipeline runs canonicalization passes over skill populations,
// either once over a whole table or incrementally row by row.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TheoremOne-Talent/skills-extractor/internal/cluster"
	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/embedding"
	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
	"github.com/TheoremOne-Talent/skills-extractor/internal/taxonomy"
)

// Pass is the result of canonicalizing one skill population.
type Pass struct {
	Map taxonomy.Map
	// Taxonomy lists the distinct canonical skills in group order, or the
	// population itself when it was too small to cluster.
	Taxonomy  []string
	Groups    []cluster.Group
	Selection cluster.Selection
	// Clustered is false when the identity map stood in for clustering.
	Clustered  bool
	Components int
}

// Canonicalizer embeds a population and clusters it into canonical skills.
type Canonicalizer struct {
	embedder domain.Embedder
	opts     cluster.Options
	log      *logger.Logger
}

func NewCanonicalizer(embedder domain.Embedder, opts cluster.Options, log *logger.Logger) *Canonicalizer {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Canonicalizer{embedder: embedder, opts: opts, log: log}
}

// Canonicalize drops blank and repeated skills, then clusters what is left.
// A population too small to cluster maps every skill to itself.
func (c *Canonicalizer) Canonicalize(ctx context.Context, skills []string) (Pass, error) {
	pool := Distinct(nil, skills)
	if _, err := cluster.CandidateRange(len(pool), c.opts.MaxK); err != nil {
		if errors.Is(err, cluster.ErrInsufficientPopulation) {
			c.log.Info("%d skills, clustering skipped: %v", len(pool), err)
			return identityPass(pool), nil
		}
		return Pass{}, err
	}

	vectors, err := embedding.Embed(ctx, c.embedder, pool)
	if err != nil {
		return Pass{}, fmt.Errorf("embed %d skills: %w", len(pool), err)
	}
	out, err := cluster.Canonicalize(ctx, pool, vectors, c.opts)
	if errors.Is(err, cluster.ErrInsufficientPopulation) {
		return identityPass(pool), nil
	}
	if err != nil {
		return Pass{}, fmt.Errorf("cluster %d skills: %w", len(pool), err)
	}
	if out.ReductionSkipped != nil {
		c.log.Info("clustering raw embeddings: %v", out.ReductionSkipped)
	}
	c.log.Debug("%d skills -> %d clusters (silhouette %.4f, %d components)",
		len(pool), out.Selection.K, out.Selection.Score, out.Components)

	return Pass{
		Map:        taxonomy.BuildMap(out.Groups),
		Taxonomy:   taxonomy.Representatives(out.Groups),
		Groups:     out.Groups,
		Selection:  out.Selection,
		Clustered:  true,
		Components: out.Components,
	}, nil
}

func identityPass(pool []string) Pass {
	return Pass{Map: taxonomy.Identity(pool), Taxonomy: pool}
}

// Distinct appends to dst the non-blank skills not already present in dst,
// keeping first-seen order. dst is not modified.
func Distinct(dst, skills []string) []string {
	out := make([]string, len(dst), len(dst)+len(skills))
	copy(out, dst)
	seen := make(map[string]struct{}, cap(out))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range skills {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// clean drops blank skills.
func clean(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
