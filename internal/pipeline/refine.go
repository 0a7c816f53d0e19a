package pipeline

import (
	"context"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/taxonomy"
)

// Refined is a taxonomy and entity table ready to be written out: skills
// capitalized, deduplicated and sorted.
type Refined struct {
	Taxonomy []string
	Entities []domain.Entity
	// Unmapped counts entity skills missing from the clustered population.
	Unmapped int
	Pass     Pass
}

// Refine clusters a persisted taxonomy and maps the entity table onto it.
func (c *Canonicalizer) Refine(ctx context.Context, skills []string, entities []domain.Entity) (Refined, error) {
	pass, err := c.Canonicalize(ctx, skills)
	if err != nil {
		return Refined{}, err
	}
	cleaned := make([]domain.Entity, len(entities))
	for i, e := range entities {
		cleaned[i] = domain.Entity{Name: e.Name, Skills: clean(e.Skills)}
	}
	mapped, unmapped := pass.Map.ApplyAll(cleaned)
	if unmapped > 0 {
		c.log.Info("%d entity skills are not in the taxonomy and were kept as is", unmapped)
	}
	return Refined{
		Taxonomy: taxonomy.Format(pass.Map.Values()),
		Entities: FormatEntities(mapped),
		Unmapped: unmapped,
		Pass:     pass,
	}, nil
}

// FormatEntities applies taxonomy.Format to every entity's skills.
func FormatEntities(entities []domain.Entity) []domain.Entity {
	out := make([]domain.Entity, len(entities))
	for i, e := range entities {
		out[i] = domain.Entity{Name: e.Name, Skills: taxonomy.Format(e.Skills)}
	}
	return out
}
