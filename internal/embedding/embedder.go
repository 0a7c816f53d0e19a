package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrCountMismatch     = errors.New("embedding count mismatch")
)

// Embed calls e and verifies it returned one vector per text, all of the
// same non-zero length.
func Embed(ctx context.Context, e domain.Embedder, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", e.Name(), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts", ErrCountMismatch, e.Name(), len(vectors), len(texts))
	}
	dim := e.Dimension()
	if dim <= 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: %q has %d values, want %d", ErrDimensionMismatch, texts[i], len(v), dim)
		}
	}
	return vectors, nil
}
