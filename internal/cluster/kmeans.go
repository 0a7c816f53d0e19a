package cluster

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// fit is one converged k-means partition.
type fit struct {
	labels    []int
	centroids [][]float64
	inertia   float64
}

// kmeans runs k-means++ seeded Lloyd iterations nInit times and keeps the
// attempt with the lowest inertia (first attempt wins ties). Every one of
// the k clusters is non-empty when k <= len(points).
func kmeans(points [][]float64, k, nInit, maxIter int, rng *rand.Rand) fit {
	if nInit < 1 {
		nInit = 1
	}
	var best fit
	for attempt := 0; attempt < nInit; attempt++ {
		f := lloyd(points, seedPlusPlus(points, k, rng), maxIter)
		if attempt == 0 || f.inertia < best.inertia {
			best = f
		}
	}
	return best
}

// seedPlusPlus picks k initial centroids with probability proportional to
// the squared distance from the nearest centroid already chosen.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	chosen := make([]bool, n)
	centroids := make([][]float64, 0, k)

	first := rng.IntN(n)
	chosen[first] = true
	centroids = append(centroids, clone(points[first]))

	d2 := make([]float64, n)
	for i, p := range points {
		d2[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(d2)
		next := -1
		if total > 0 {
			r := rng.Float64() * total
			for i, w := range d2 {
				if w <= 0 {
					continue
				}
				next = i
				if r -= w; r < 0 {
					break
				}
			}
		}
		if next < 0 {
			// Remaining points coincide with chosen centroids; pick any unused index.
			next = unusedIndex(chosen, rng)
		}
		chosen[next] = true
		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int) fit {
	n, k := len(points), len(centroids)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	if maxIter < 1 {
		maxIter = 1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := assign(points, centroids, labels)
		if reseedEmpty(points, centroids, labels, k) {
			changed = true
		}
		updateCentroids(points, centroids, labels)
		if !changed {
			break
		}
	}
	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return fit{labels: labels, centroids: centroids, inertia: inertia}
}

// assign moves each point to its nearest centroid, lowest index on ties.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(p, centroid); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// reseedEmpty gives every empty cluster the point farthest from its own
// centroid, taken from a cluster that has more than one member.
func reseedEmpty(points, centroids [][]float64, labels []int, k int) bool {
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	moved := false
	for c := 0; c < k; c++ {
		if sizes[c] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, p := range points {
			if sizes[labels[i]] < 2 {
				continue
			}
			if d := sqDist(p, centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			break
		}
		sizes[labels[far]]--
		labels[far] = c
		sizes[c] = 1
		centroids[c] = clone(points[far])
		moved = true
	}
	return moved
}

func updateCentroids(points, centroids [][]float64, labels []int) {
	counts := make([]int, len(centroids))
	for c := range centroids {
		for j := range centroids[c] {
			centroids[c][j] = 0
		}
	}
	for i, p := range points {
		floats.Add(centroids[labels[i]], p)
		counts[labels[i]]++
	}
	for c, cnt := range counts {
		if cnt > 0 {
			floats.Scale(1/float64(cnt), centroids[c])
		}
	}
}

func unusedIndex(chosen []bool, rng *rand.Rand) int {
	free := make([]int, 0, len(chosen))
	for i, used := range chosen {
		if !used {
			free = append(free, i)
		}
	}
	return free[rng.IntN(len(free))]
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
