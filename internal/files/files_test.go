package files

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
)

func TestDecodeTaxonomy_TrimsDropsAndDedupes(t *testing.T) {
	got, err := DecodeTaxonomy(strings.NewReader("Python\r\n\nJava\nPython\nGo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "Java", "Go"}, got)
}

func TestTaxonomy_RoundTripsThroughDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills_taxonomy.txt")
	var buf bytes.Buffer
	require.NoError(t, EncodeTaxonomy(&buf, []string{"Go", "Rust"}))
	assert.Equal(t, "Go\nRust\n", buf.String())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := ReadTaxonomy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Rust"}, got)
}

func TestReadTaxonomy_Missing(t *testing.T) {
	_, err := ReadTaxonomy(filepath.Join(t.TempDir(), "nope.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDecodeEntities(t *testing.T) {
	in := "Name,Skills\n" +
		"Alice,\"Python, Python Developer, Java\"\n" +
		"Bob,\n" +
		",Go\n" +
		"Carol,Go,extra\n" +
		"Dan,Rust\n"
	got, skipped, err := DecodeEntities(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []domain.Entity{
		{Name: "Alice", Skills: []string{"Python", "Python Developer", "Java"}},
		{Name: "Bob", Skills: []string{}},
		{Name: "Dan", Skills: []string{"Rust"}},
	}, got)
}

func TestDecodeEntities_MissingColumn(t *testing.T) {
	_, _, err := DecodeEntities(strings.NewReader("Name,Other\nAlice,x\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
	_, _, err = DecodeEntities(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestEncodeEntities(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeEntities(&buf, []domain.Entity{
		{Name: "Alice", Skills: []string{"Java", "Python"}},
		{Name: "Bob"},
	}))
	assert.Equal(t, "Name,Skills\nAlice,\"Java, Python\"\nBob,\n", buf.String())

	back, skipped, err := DecodeEntities(&buf)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []string{"Java", "Python"}, back[0].Skills)
	assert.Empty(t, back[1].Skills)
}

func TestDecodeSkillSets(t *testing.T) {
	in := "\ufeffName,Email,Skill Sets\n" +
		"Alice,a@x.io,\"I write Python and Java\"\n" +
		"Bob,b@x.io,\n"
	got, skipped, err := DecodeSkillSets(strings.NewReader(in))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []domain.SkillSetRow{
		{Name: "Alice", SkillSet: "I write Python and Java"},
		{Name: "Bob", SkillSet: ""},
	}, got)
}

func text(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestWriter_AvoidsOverwriting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	w, err := NewWriter(dir)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	paths, err := w.Write(Output{Name: "skills_taxonomy_refined.txt", Encode: text("first\n")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "skills_taxonomy_refined.txt")}, paths)

	paths, err = w.Write(Output{Name: "skills_taxonomy_refined.txt", Encode: text("second\n")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "skills_taxonomy_refined_20240309140507.txt")}, paths)

	first, err := os.ReadFile(filepath.Join(dir, "skills_taxonomy_refined.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))
	second, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestWriter_FailedEncodeLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	_, err = w.Write(Output{Name: "out.csv", Encode: func(io.Writer) error { return errors.New("boom") }})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, LockName, e.Name())
	}
}

func TestWriter_RepeatedCollisionsInOneSecond(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var got []string
	for _, body := range []string{"run1\n", "run2\n", "run3\n"} {
		paths, err := w.Write(Output{Name: "skills_taxonomy_refined.txt", Encode: text(body)})
		require.NoError(t, err)
		require.Len(t, paths, 1)
		got = append(got, paths[0])
	}
	assert.Equal(t, []string{
		filepath.Join(dir, "skills_taxonomy_refined.txt"),
		filepath.Join(dir, "skills_taxonomy_refined_20260102030405.txt"),
		filepath.Join(dir, "skills_taxonomy_refined_20260102030405_1.txt"),
	}, got)
	for i, p := range got {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, []string{"run1\n", "run2\n", "run3\n"}[i], string(data))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4) // three outputs and the lock file
}

func TestWriter_FailedBatchPlacesNothing(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	paths, err := w.Write(
		Output{Name: "skills_taxonomy.txt", Encode: text("Python\n")},
		Output{Name: "individual_skills.csv", Encode: func(io.Writer) error { return errors.New("boom") }},
		Output{Name: "skills_taxonomy_refined.txt", Encode: text("Python\n")},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "individual_skills.csv")
	assert.Empty(t, paths)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, LockName, e.Name())
	}
}
