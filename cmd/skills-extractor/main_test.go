package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `embedder:
  type: ngram
extractor:
  type: split
cache:
  type: none
cluster:
  seed: 7
  workers: 2
log:
  level: error
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func lines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRefineCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	writeFile(t, cfg, testConfig)
	writeFile(t, filepath.Join(dir, taxonomyFile), "python\nPython Developer\njava\nJavaScript\nKubernetes\npython\n")
	writeFile(t, filepath.Join(dir, entitiesFile), "Name,Skills\nAlice,\"python, Python Developer\"\nBob,\n")
	out := filepath.Join(dir, "outputs")

	_, err := run(t, "refine", "--config", cfg, "--input-dir", dir, "--output-dir", out, "--n-clusters", "4")
	require.NoError(t, err)

	tax := lines(t, filepath.Join(out, refinedTaxonomyFile))
	assert.NotEmpty(t, tax)
	assert.Less(t, len(tax), 5)
	assert.IsIncreasing(t, tax)

	ents := lines(t, filepath.Join(out, refinedEntitiesFile))
	require.Len(t, ents, 3)
	assert.Equal(t, "Name,Skills", ents[0])
	assert.Equal(t, "Bob,", ents[2])

	// A second run keeps the first outputs and adds timestamped ones.
	_, err = run(t, "refine", "--config", cfg, "--input-dir", dir, "--output-dir", out, "--n-clusters", "4")
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(out, "skills_taxonomy_refined_*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRefineCommand_MissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	writeFile(t, cfg, testConfig)
	out := filepath.Join(dir, "outputs")

	_, err := run(t, "refine", "--config", cfg, "--input-dir", dir, "--output-dir", out)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractCommand_Plain(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	writeFile(t, cfg, testConfig)
	input := filepath.Join(dir, "skills.csv")
	writeFile(t, input, "Name,Skill Sets\nAlice,\"Python; Python Developer\"\nBob,Java\nCarol,\"Go, Rust\"\n")
	out := filepath.Join(dir, "outputs")

	stdout, err := run(t, "extract", input, "--plain", "--config", cfg, "--output-dir", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1\tAlice\t")
	assert.Contains(t, stdout, "Skills Taxonomy:")

	for _, name := range []string{taxonomyFile, entitiesFile, refinedTaxonomyFile, refinedEntitiesFile} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, []string{"Python", "Python Developer", "Java", "Go", "Rust"}, lines(t, filepath.Join(out, taxonomyFile)))
	raw := lines(t, filepath.Join(out, entitiesFile))
	assert.Equal(t, `Alice,"Python, Python Developer"`, raw[1])
}

func TestVersionCommand(t *testing.T) {
	stdout, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Version:    dev")
}
