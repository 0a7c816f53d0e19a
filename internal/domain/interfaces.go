package domain

import "context"

// Entity is a person (or any named record) together with its skills.
// Entities are provided by the caller; the pipeline only rewrites Skills.
type Entity struct {
	Name   string
	Skills []string
}

// SkillSetRow is one row of extraction input: a name and the free text
// describing that person's skills.
type SkillSetRow struct {
	Name     string
	SkillSet string
}

// Embedder converts skill strings into fixed-length numeric vectors.
// Implementations must be deterministic for the same input and model and
// must return exactly one vector per input, in input order.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Extractor pulls skill strings out of free text. It never fails: any
// backend error is reported as an empty result.
type Extractor interface {
	Extract(ctx context.Context, text string) []string
}

// EmbeddingCache memoizes embeddings per model and text.
type EmbeddingCache interface {
	Get(ctx context.Context, model string, texts []string) (map[string][]float64, error)
	Put(ctx context.Context, model string, vectors map[string][]float64) error
	Clear(ctx context.Context) error
}
