// Package taxonomy maps raw skills onto cluster representatives and formats
// the resulting vocabulary for display.
package taxonomy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/TheoremOne-Talent/skills-extractor/internal/cluster"
	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
)

// Map sends every skill of one clustering pass to its representative.
// A Map is built once per pass and never modified afterwards.
type Map struct {
	canonical map[string]string
}

// BuildMap returns the total skill to representative mapping for groups.
func BuildMap(groups []cluster.Group) Map {
	m := make(map[string]string)
	for _, g := range groups {
		for _, s := range g.Members {
			m[s] = g.Representative
		}
	}
	return Map{canonical: m}
}

// Identity maps every skill to itself. It stands in for a clustering pass
// when the population is too small to cluster.
func Identity(skills []string) Map {
	m := make(map[string]string, len(skills))
	for _, s := range skills {
		m[s] = s
	}
	return Map{canonical: m}
}

// Len is the number of skills known to the map.
func (m Map) Len() int { return len(m.canonical) }

// Lookup returns the representative of skill and whether the skill was
// part of the clustered population.
func (m Map) Lookup(skill string) (string, bool) {
	c, ok := m.canonical[skill]
	return c, ok
}

// Canonical returns the representative of skill, or skill itself when it
// was not part of the clustered population.
func (m Map) Canonical(skill string) string {
	if c, ok := m.Lookup(skill); ok {
		return c
	}
	return skill
}

// Applied is the outcome of mapping one raw skill list.
type Applied struct {
	Skills []string
	// Unmapped counts raw skills that fell back to themselves.
	Unmapped int
}

// Apply maps raw skills to canonical ones and removes duplicates, keeping
// the first occurrence of each canonical skill.
func (m Map) Apply(raw []string) Applied {
	out := Applied{Skills: make([]string, 0, len(raw))}
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		if _, ok := m.canonical[s]; !ok {
			out.Unmapped++
		}
		c := m.Canonical(s)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out.Skills = append(out.Skills, c)
	}
	return out
}

// ApplyAll rewrites the skills of every entity. The input is not modified.
func (m Map) ApplyAll(entities []domain.Entity) ([]domain.Entity, int) {
	out := make([]domain.Entity, len(entities))
	unmapped := 0
	for i, e := range entities {
		a := m.Apply(e.Skills)
		out[i] = domain.Entity{Name: e.Name, Skills: a.Skills}
		unmapped += a.Unmapped
	}
	return out, unmapped
}

// Representatives returns the distinct representatives of groups in group order.
func Representatives(groups []cluster.Group) []string {
	out := make([]string, 0, len(groups))
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if _, dup := seen[g.Representative]; dup {
			continue
		}
		seen[g.Representative] = struct{}{}
		out = append(out, g.Representative)
	}
	return out
}

// Values returns the distinct canonical skills of m in ascending order.
func (m Map) Values() []string {
	seen := make(map[string]struct{}, len(m.canonical))
	for _, c := range m.canonical {
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Capitalize title-cases the first character and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.Und).String(s[:size]) + cases.Lower(language.Und).String(s[size:])
}

// Format capitalizes every skill and sorts the result ascending.
// Skills that collapse to the same capitalized form appear once.
func Format(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		c := Capitalize(s)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Join renders canonical skills the way the entity table stores them.
func Join(skills []string) string {
	return strings.Join(skills, Separator)
}

// Separator joins skills inside one entity table cell.
const Separator = ", "

// Split parses an entity table cell. Blank input yields no skills.
func Split(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return []string{}
	}
	return strings.Split(cell, Separator)
}
