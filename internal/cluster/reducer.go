package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reducer is a fitted PCA projection onto the leading principal components.
type Reducer struct {
	mean       []float64
	components *mat.Dense // d x retained
	explained  float64
}

// FitReducer keeps the smallest number of principal components whose
// cumulative explained variance reaches the requested ratio. It returns an
// error wrapping ErrReductionSkipped when PCA cannot be applied; the caller
// must then cluster on the raw vectors.
func FitReducer(vectors [][]float64, variance float64) (*Reducer, error) {
	n := len(vectors)
	if n <= 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrReductionSkipped, n)
	}
	m, err := toDense(vectors)
	if err != nil {
		return nil, err
	}
	_, d := m.Dims()

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, fmt.Errorf("%w: principal components analysis failed", ErrReductionSkipped)
	}
	vars := pc.VarsTo(nil)
	total := floats.Sum(vars)
	if total <= 0 {
		return nil, fmt.Errorf("%w: zero variance", ErrReductionSkipped)
	}

	keep := len(vars)
	cum := 0.0
	for i, v := range vars {
		cum += v
		if cum/total >= variance {
			keep = i + 1
			break
		}
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	mean := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, m)
		mean[j] = stat.Mean(col, nil)
	}

	return &Reducer{
		mean:       mean,
		components: mat.DenseCopyOf(vecs.Slice(0, d, 0, keep)),
		explained:  floats.Sum(vars[:keep]) / total,
	}, nil
}

// Components is the number of retained principal components.
func (r *Reducer) Components() int {
	_, c := r.components.Dims()
	return c
}

// InputDimension is the dimension of vectors accepted by Transform.
func (r *Reducer) InputDimension() int { return len(r.mean) }

// Explained is the fraction of variance kept by the retained components.
func (r *Reducer) Explained() float64 { return r.explained }

// Transform projects a single vector into the reduced space.
func (r *Reducer) Transform(v []float64) ([]float64, error) {
	if len(v) != len(r.mean) {
		return nil, fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(v), len(r.mean))
	}
	centered := make([]float64, len(v))
	floats.SubTo(centered, v, r.mean)

	var out mat.VecDense
	out.MulVec(r.components.T(), mat.NewVecDense(len(centered), centered))

	res := make([]float64, out.Len())
	for i := range res {
		res[i] = out.AtVec(i)
	}
	return res, nil
}

// TransformAll projects every row through Transform.
func (r *Reducer) TransformAll(vectors [][]float64) ([][]float64, error) {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		p, err := r.Transform(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

func toDense(vectors [][]float64) (*mat.Dense, error) {
	n := len(vectors)
	d := len(vectors[0])
	if d == 0 {
		return nil, fmt.Errorf("%w: empty vectors", ErrDimensionMismatch)
	}
	data := make([]float64, 0, n*d)
	for i, v := range vectors {
		if len(v) != d {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(v), d)
		}
		data = append(data, v...)
	}
	return mat.NewDense(n, d, data), nil
}
