package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Silhouette returns the mean silhouette coefficient of labels over points
// using Euclidean distance. Labels must use values in [0, k) with
// 2 <= k <= len(points)-1.
func Silhouette(points [][]float64, labels []int, k int) (float64, error) {
	return silhouette(pairwiseDistances(points), labels, k)
}

// pairwiseDistances is shared read-only by every candidate evaluation.
func pairwiseDistances(points [][]float64) *mat.SymDense {
	n := len(points)
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, floats.Distance(points[i], points[j], 2))
		}
	}
	return dist
}

func silhouette(dist *mat.SymDense, labels []int, k int) (float64, error) {
	n := dist.SymmetricDim()
	if len(labels) != n {
		return 0, fmt.Errorf("%w: %d labels for %d points", ErrDimensionMismatch, len(labels), n)
	}
	if k < 2 || k > n-1 {
		return 0, fmt.Errorf("%w: silhouette needs 2 <= k <= %d, got %d", ErrInvalidK, n-1, k)
	}
	sizes := make([]int, k)
	for _, l := range labels {
		if l < 0 || l >= k {
			return 0, fmt.Errorf("%w: label %d outside [0, %d)", ErrInvalidK, l, k)
		}
		sizes[l]++
	}

	sums := make([]float64, k)
	total := 0.0
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] == 1 {
			// Singleton clusters score zero.
			continue
		}
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if j != i {
				sums[labels[j]] += dist.At(i, j)
			}
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, s := range sums {
			if c == own || sizes[c] == 0 {
				continue
			}
			if m := s / float64(sizes[c]); m < b {
				b = m
			}
		}
		if den := math.Max(a, b); den > 0 && !math.IsInf(b, 1) {
			total += (b - a) / den
		}
	}
	return total / float64(n), nil
}
