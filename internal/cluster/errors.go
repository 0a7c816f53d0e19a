package cluster

import "errors"

var (
	// ErrInsufficientPopulation means there are too few distinct skills to
	// score any candidate cluster count. Callers usually pass skills through
	// unchanged when they see it.
	ErrInsufficientPopulation = errors.New("insufficient population to cluster")

	// ErrReductionSkipped means PCA was not applied and the raw embeddings
	// must be used as the clustering space.
	ErrReductionSkipped = errors.New("dimensionality reduction skipped")

	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidK          = errors.New("invalid cluster count")
	ErrDuplicateSkill    = errors.New("duplicate skill in population")
)
