package cluster

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is one canonicalization pass over a skill population.
type Outcome struct {
	Groups    []Group
	Selection Selection
	// Components is the reduced dimension, zero when the pass clustered
	// raw embeddings.
	Components int
	// ReductionSkipped is non-nil when reduction was requested but could
	// not be applied. It wraps ErrReductionSkipped.
	ReductionSkipped error
}

// Canonicalize reduces points when asked, selects the cluster count and
// names the final clusters. skills must be distinct and line up with points.
// Too small a population yields ErrInsufficientPopulation before any work
// is done.
func Canonicalize(ctx context.Context, skills []string, points [][]float64, opts Options) (Outcome, error) {
	opts = opts.withDefaults()
	if len(points) != len(skills) {
		return Outcome{}, fmt.Errorf("%w: %d vectors for %d skills", ErrDimensionMismatch, len(points), len(skills))
	}
	if _, err := CandidateRange(len(skills), opts.MaxK); err != nil {
		return Outcome{}, err
	}

	var out Outcome
	space := points
	if opts.Reduce {
		r, err := FitReducer(points, opts.Variance)
		switch {
		case err == nil:
			if space, err = r.TransformAll(points); err != nil {
				return Outcome{}, err
			}
			out.Components = r.Components()
		case errors.Is(err, ErrReductionSkipped):
			out.ReductionSkipped = err
		default:
			return Outcome{}, err
		}
	}

	sel, err := SelectK(ctx, space, opts)
	if err != nil {
		return Outcome{}, err
	}
	groups, err := Cluster(skills, space, sel.K, opts)
	if err != nil {
		return Outcome{}, err
	}
	out.Groups = groups
	out.Selection = sel
	return out, nil
}
