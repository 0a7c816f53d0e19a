package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheoremOne-Talent/skills-extractor/internal/cluster"
	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
)

type mapEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (m *mapEmbedder) Name() string   { return "map" }
func (m *mapEmbedder) Dimension() int { return 2 }

func (m *mapEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	m.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, ok := m.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

type mapExtractor map[string][]string

func (m mapExtractor) Extract(_ context.Context, text string) []string { return m[text] }

func languages() *mapEmbedder {
	return &mapEmbedder{vectors: map[string][]float64{
		"Python":           {1, 0},
		"Python Developer": {0.9, 0.1},
		"Java":             {0, 1},
		"Go":               {0.05, 0.95},
	}}
}

func newCanon(e domain.Embedder) *Canonicalizer {
	return NewCanonicalizer(e, cluster.Options{Seed: 42, Reduce: true}, nil)
}

func TestCanonicalize_PythonJava(t *testing.T) {
	pass, err := newCanon(languages()).Canonicalize(context.Background(),
		[]string{"Python", "Python Developer", "Java", "Python", " "})
	require.NoError(t, err)
	assert.True(t, pass.Clustered)
	assert.Equal(t, 2, pass.Selection.K)
	assert.Len(t, pass.Taxonomy, 2)
	assert.Equal(t, "Java", pass.Map.Canonical("Java"))
	assert.Equal(t, pass.Map.Canonical("Python"), pass.Map.Canonical("Python Developer"))
}

func TestCanonicalize_TwoSkillsPassThrough(t *testing.T) {
	e := languages()
	pass, err := newCanon(e).Canonicalize(context.Background(), []string{"Python", "Java"})
	require.NoError(t, err)
	assert.False(t, pass.Clustered)
	assert.Equal(t, []string{"Python", "Java"}, pass.Taxonomy)
	assert.Equal(t, "Python", pass.Map.Canonical("Python"))
	assert.Zero(t, e.calls, "too small a population must not be embedded")
}

func TestCanonicalize_EmbedderFailureIsFatal(t *testing.T) {
	_, err := newCanon(languages()).Canonicalize(context.Background(), []string{"Python", "Java", "Cobol"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cobol")
}

func TestCanonicalize_PartitionProperty(t *testing.T) {
	e := &mapEmbedder{vectors: map[string][]float64{}}
	var skills []string
	for i := 0; i < 12; i++ {
		s := fmt.Sprintf("skill %d", i)
		e.vectors[s] = []float64{float64(i % 3 * 10), float64(i)}
		skills = append(skills, s)
	}
	pass, err := newCanon(e).Canonicalize(context.Background(), skills)
	require.NoError(t, err)

	var union []string
	for _, g := range pass.Groups {
		assert.Contains(t, g.Members, g.Representative)
		union = append(union, g.Members...)
	}
	sort.Strings(union)
	want := append([]string(nil), skills...)
	sort.Strings(want)
	assert.Equal(t, want, union)
	assert.Equal(t, len(pass.Map.Values()), len(pass.Taxonomy))
	assert.LessOrEqual(t, len(pass.Taxonomy), len(skills))
}

func TestRefine_AliceScenario(t *testing.T) {
	entities := []domain.Entity{
		{Name: "Alice", Skills: []string{"Python", "Python Developer"}},
		{Name: "Bob", Skills: []string{}},
		{Name: "Carol", Skills: []string{"Java", "Rust"}},
	}
	got, err := newCanon(languages()).Refine(context.Background(),
		[]string{"Python", "Python Developer", "Java"}, entities)
	require.NoError(t, err)

	require.Len(t, got.Entities, 3)
	assert.Len(t, got.Entities[0].Skills, 1)
	assert.Empty(t, got.Entities[1].Skills)
	assert.Equal(t, []string{"Java", "Rust"}, got.Entities[2].Skills)
	assert.Equal(t, 1, got.Unmapped)
	assert.Len(t, got.Taxonomy, 2)
	assert.Contains(t, got.Taxonomy, "Java")
}

func TestRefine_IsIdempotent(t *testing.T) {
	canon := newCanon(languages())
	skills := []string{"Python", "Python Developer", "Java", "Go"}
	entities := []domain.Entity{{Name: "Alice", Skills: skills}}

	first, err := canon.Refine(context.Background(), skills, entities)
	require.NoError(t, err)
	again := first.Pass.Map.Apply(first.Pass.Map.Apply(skills).Skills)
	assert.Equal(t, first.Pass.Map.Apply(skills).Skills, again.Skills)
}

func TestDistinct(t *testing.T) {
	base := []string{"Go"}
	got := Distinct(base, []string{"Rust", "Go", "", "Rust", "Zig"})
	assert.Equal(t, []string{"Go", "Rust", "Zig"}, got)
	assert.Equal(t, []string{"Go"}, base)
}

func TestDriver_StepByStep(t *testing.T) {
	ext := mapExtractor{
		"alice": {"Python", "Python Developer"},
		"bob":   {"Java", ""},
		"carol": nil,
	}
	d := NewDriver(ext, newCanon(languages()), nil)
	ctx := context.Background()

	st, pub, err := d.Step(ctx, State{}, domain.SkillSetRow{Name: "Alice", SkillSet: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 0, pub.Index)
	assert.False(t, pub.Clustered)
	assert.Equal(t, "Python, Python Developer", pub.Skills)

	st, pub, err = d.Step(ctx, st, domain.SkillSetRow{Name: "Bob", SkillSet: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, pub.Index)
	assert.True(t, pub.Clustered)
	assert.Equal(t, "Java", pub.Skills)
	require.Len(t, pub.Table, 2)
	assert.Len(t, pub.Table[0].Skills, 1, "Alice collapses onto one canonical skill")
	assert.Equal(t, []string{"Python", "Python Developer", "Java"}, st.Skills)

	st, pub, err = d.Step(ctx, st, domain.SkillSetRow{Name: "Carol", SkillSet: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "", pub.Skills)
	assert.Len(t, st.Entities, 3)
}

func TestDriver_StepFailureKeepsState(t *testing.T) {
	ext := mapExtractor{"a": {"Python", "Java"}, "b": {"Cobol"}}
	d := NewDriver(ext, newCanon(languages()), nil)

	st, _, err := d.Step(context.Background(), State{}, domain.SkillSetRow{Name: "A", SkillSet: "a"})
	require.NoError(t, err)
	after, _, err := d.Step(context.Background(), st, domain.SkillSetRow{Name: "B", SkillSet: "b"})
	require.Error(t, err)
	assert.Equal(t, st, after)
}

func TestDriver_Run(t *testing.T) {
	ext := mapExtractor{
		"alice": {"Python", "Python Developer"},
		"bob":   {"Java"},
		"dan":   {"Go", "Python"},
	}
	rows := []domain.SkillSetRow{
		{Name: "Alice", SkillSet: "alice"},
		{Name: "Bob", SkillSet: "bob"},
		{Name: "Dan", SkillSet: "dan"},
	}
	var seen []int
	res, err := NewDriver(ext, newCanon(languages()), nil).Run(context.Background(), rows, func(p Published) {
		seen = append(seen, p.Index)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Entities, 3)
	assert.Equal(t, res.Pass.Taxonomy, res.Taxonomy)

	// The final table is consistent with the final taxonomy.
	for _, e := range res.Entities {
		for _, s := range e.Skills {
			assert.Contains(t, res.Taxonomy, s)
		}
	}
}

func TestDriver_RunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDriver(mapExtractor{}, newCanon(languages()), nil).Run(ctx,
		[]domain.SkillSetRow{{Name: "A", SkillSet: "a"}}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
