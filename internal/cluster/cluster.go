// Package cluster groups skill embeddings into k-means clusters, picks the
// cluster count by silhouette score and names every cluster after the member
// nearest its centroid.
package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Group is one cluster: its representative skill and every member, in
// input order. The representative is always a member.
type Group struct {
	Representative string
	Members        []string
}

// Cluster partitions skills into exactly k non-empty groups using k-means
// over points, which must be the vectors of the clustering space, one per
// skill. Groups are ordered by the input position of their first member.
func Cluster(skills []string, points [][]float64, k int, opts Options) ([]Group, error) {
	n := len(skills)
	if len(points) != n {
		return nil, fmt.Errorf("%w: %d vectors for %d skills", ErrDimensionMismatch, len(points), n)
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k=%d for %d skills", ErrInvalidK, k, n)
	}
	seen := make(map[string]struct{}, n)
	for _, s := range skills {
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSkill, s)
		}
		seen[s] = struct{}{}
	}

	opts = opts.withDefaults()
	f := kmeans(points, k, opts.NInit, opts.MaxIter, opts.rng(k))
	return name(skills, points, f), nil
}

// name builds groups from a fit and picks, per group, the member closest to
// the centroid. The first member in input order wins ties.
func name(skills []string, points [][]float64, f fit) []Group {
	k := len(f.centroids)
	order := make([]int, 0, k)
	slot := make([]int, k)
	for c := range slot {
		slot[c] = -1
	}
	members := make([][]int, k)
	for i, l := range f.labels {
		if slot[l] < 0 {
			slot[l] = len(order)
			order = append(order, l)
		}
		members[l] = append(members[l], i)
	}

	groups := make([]Group, 0, len(order))
	for _, l := range order {
		best, bestD := -1, math.Inf(1)
		names := make([]string, len(members[l]))
		for j, i := range members[l] {
			names[j] = skills[i]
			if d := floats.Distance(points[i], f.centroids[l], 2); d < bestD {
				best, bestD = i, d
			}
		}
		groups = append(groups, Group{Representative: skills[best], Members: names})
	}
	return groups
}
