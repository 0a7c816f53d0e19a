package main

import (
	"io"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/files"
)

const (
	taxonomyFile        = "skills_taxonomy.txt"
	entitiesFile        = "individual_skills.csv"
	refinedTaxonomyFile = "skills_taxonomy_refined.txt"
	refinedEntitiesFile = "individual_skills_refined.csv"
)

func taxonomyOutput(name string, skills []string) files.Output {
	return files.Output{Name: name, Encode: func(w io.Writer) error { return files.EncodeTaxonomy(w, skills) }}
}

func entitiesOutput(name string, entities []domain.Entity) files.Output {
	return files.Output{Name: name, Encode: func(w io.Writer) error { return files.EncodeEntities(w, entities) }}
}
