package ngram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var ErrEmptyText = errors.New("cannot embed empty text")

// Embedder hashes character n-grams of each word into a fixed number of
// buckets. It needs no corpus, so vectors stay comparable as the skill pool
// grows, and it is deterministic for a given configuration.
type Embedder struct {
	dimension    int
	minN, maxN   int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates an n-gram embedder. Zero values pick 512 buckets and
// n-grams of length 2 to 4.
func NewEmbedder(dimension, minN, maxN int) *Embedder {
	if dimension <= 0 {
		dimension = 512
	}
	if minN <= 0 {
		minN = 2
	}
	if maxN < minN {
		maxN = minN + 2
	}
	return &Embedder{
		dimension:    dimension,
		minN:         minN,
		maxN:         maxN,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:[+#]+|(?:['’.][\p{L}\p{N}]+)*)`),
		stopwords:    defaultStopwords(),
	}
}

// Name identifies the embedder and its configuration.
func (e *Embedder) Name() string {
	return fmt.Sprintf("ngram:%d:%d-%d", e.dimension, e.minN, e.maxN)
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns one L2-normalized vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.embedOne(t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *Embedder) embedOne(text string) ([]float64, error) {
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		trimmed := strings.ToLower(strings.TrimSpace(text))
		if trimmed == "" {
			return nil, ErrEmptyText
		}
		// Symbols only, or nothing but stopwords: hash the raw text.
		tokens = []string{trimmed}
	}
	vec := make([]float64, e.dimension)
	for _, tok := range tokens {
		// Whole-word feature first, weighted like one n-gram of each length.
		e.add(vec, "w:"+tok, float64(e.maxN-e.minN+1))
		padded := []rune("<" + tok + ">")
		for n := e.minN; n <= e.maxN; n++ {
			for s := 0; s+n <= len(padded); s++ {
				e.add(vec, string(padded[s:s+n]), 1)
			}
		}
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// add uses the hash's top bit as a sign so bucket collisions cancel out on
// average instead of accumulating.
func (e *Embedder) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(e.dimension))
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (e *Embedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "be", "it", "this", "that", "from", "into", "about", "very", "using", "skills", "skill",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
