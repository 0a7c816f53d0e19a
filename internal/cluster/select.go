package cluster

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options tunes cluster-count selection and k-means fitting.
type Options struct {
	// MaxK is the exclusive upper bound on candidate cluster counts.
	// Zero means the population size.
	MaxK    int
	NInit   int
	MaxIter int
	Workers int
	Seed    int64
	// Reduce projects embeddings with PCA before clustering, keeping
	// enough components to explain Variance of the total variance.
	Reduce   bool
	Variance float64
}

func (o Options) withDefaults() Options {
	if o.NInit <= 0 {
		o.NInit = 10
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 300
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Variance <= 0 || o.Variance > 1 {
		o.Variance = 0.95
	}
	return o
}

// rng derives the generator for candidate k so a candidate's fit does not
// depend on which worker ran it.
func (o Options) rng(k int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(o.Seed), uint64(k)))
}

// Candidate is the silhouette score of the best k-means fit for K clusters.
type Candidate struct {
	K     int
	Score float64
}

// Selection is the outcome of SelectK.
type Selection struct {
	K          int
	Score      float64
	Candidates []Candidate
}

// CandidateRange returns the exclusive upper bound k_max for n points, or
// ErrInsufficientPopulation when no candidate k exists.
func CandidateRange(n, maxK int) (int, error) {
	kMax := n
	if maxK > 0 && maxK < n {
		kMax = maxK
	}
	if kMax-2 < 1 {
		return 0, fmt.Errorf("%w: %d distinct skills, k_max %d", ErrInsufficientPopulation, n, kMax)
	}
	return kMax, nil
}

// SelectK scores every k in [2, k_max) and returns the one with the highest
// silhouette. Ties go to the smaller k. Candidates are evaluated
// concurrently; each writes only its own result slot.
func SelectK(ctx context.Context, points [][]float64, opts Options) (Selection, error) {
	opts = opts.withDefaults()
	kMax, err := CandidateRange(len(points), opts.MaxK)
	if err != nil {
		return Selection{}, err
	}
	dist := pairwiseDistances(points)

	candidates := make([]Candidate, kMax-2)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for k := 2; k < kMax; k++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := kmeans(points, k, opts.NInit, opts.MaxIter, opts.rng(k))
			score, err := silhouette(dist, f.labels, k)
			if err != nil {
				return fmt.Errorf("score k=%d: %w", k, err)
			}
			candidates[k-2] = Candidate{K: k, Score: score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Selection{}, err
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return Selection{K: best.K, Score: best.Score, Candidates: candidates}, nil
}
