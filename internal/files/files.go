// Package files reads and writes the taxonomy list, the entity table and
// the skill-set input table.
package files

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/taxonomy"
)

var ErrMissingColumn = errors.New("missing required column")

// ReadTaxonomy reads a newline-delimited skill list. A missing file yields
// an error matching os.ErrNotExist.
func ReadTaxonomy(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()
	return DecodeTaxonomy(f)
}

// DecodeTaxonomy drops empty lines and repeated skills, keeping the first
// occurrence of each.
func DecodeTaxonomy(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return out, nil
}

// EncodeTaxonomy writes one skill per line.
func EncodeTaxonomy(w io.Writer, skills []string) error {
	bw := bufio.NewWriter(w)
	for _, s := range skills {
		if _, err := bw.WriteString(s + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadEntities reads an entity table with Name and Skills columns.
func ReadEntities(path string) ([]domain.Entity, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open entities: %w", err)
	}
	defer f.Close()
	return DecodeEntities(f)
}

// DecodeEntities returns the entities and the number of malformed records
// that were skipped. An empty Skills cell yields an entity with no skills.
func DecodeEntities(r io.Reader) ([]domain.Entity, int, error) {
	var out []domain.Entity
	skipped, err := eachRecord(r, []string{"Name", "Skills"}, func(cols []string) bool {
		if strings.TrimSpace(cols[0]) == "" {
			return false
		}
		out = append(out, domain.Entity{Name: cols[0], Skills: taxonomy.Split(cols[1])})
		return true
	})
	return out, skipped, err
}

// EncodeEntities writes the Name,Skills table.
func EncodeEntities(w io.Writer, entities []domain.Entity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Skills"}); err != nil {
		return err
	}
	for _, e := range entities {
		if err := cw.Write([]string{e.Name, taxonomy.Join(e.Skills)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSkillSets reads the extraction input table, which needs Name and
// Skill Sets columns. Other columns are ignored.
func ReadSkillSets(path string) ([]domain.SkillSetRow, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open skill sets: %w", err)
	}
	defer f.Close()
	return DecodeSkillSets(f)
}

func DecodeSkillSets(r io.Reader) ([]domain.SkillSetRow, int, error) {
	var out []domain.SkillSetRow
	skipped, err := eachRecord(r, []string{"Name", "Skill Sets"}, func(cols []string) bool {
		if strings.TrimSpace(cols[0]) == "" {
			return false
		}
		out = append(out, domain.SkillSetRow{Name: cols[0], SkillSet: cols[1]})
		return true
	})
	return out, skipped, err
}

// eachRecord calls fn with the wanted columns of every record. Records with
// the wrong field count, or for which fn reports false, are counted as
// skipped.
func eachRecord(r io.Reader, want []string, fn func(cols []string) bool) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: empty table", ErrMissingColumn)
		}
		return 0, fmt.Errorf("read header: %w", err)
	}
	idx := make([]int, len(want))
	for i, name := range want {
		idx[i] = -1
		for j, h := range header {
			// Spreadsheet exports often start with a byte order mark.
			if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == name {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	skipped := 0
	cols := make([]string, len(want))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return skipped, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			continue
		}
		if err != nil {
			return skipped, fmt.Errorf("read record: %w", err)
		}
		if len(rec) != len(header) {
			skipped++
			continue
		}
		for i, j := range idx {
			cols[i] = rec[j]
		}
		if !fn(cols) {
			skipped++
		}
	}
}
