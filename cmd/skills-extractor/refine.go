package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TheoremOne-Talent/skills-extractor/internal/files"
	"github.com/TheoremOne-Talent/skills-extractor/internal/pipeline"
)

var refineFlags struct {
	nClusters int
	inputDir  string
	outputDir string
}

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Cluster a saved taxonomy and remap the saved entity table onto it",
	Long: `refine reads skills_taxonomy.txt and individual_skills.csv from the input
directory, clusters the taxonomy and writes skills_taxonomy_refined.txt and
individual_skills_refined.csv to the output directory. Existing outputs are
never overwritten; a timestamp is added to the new file name instead.`,
	Args: cobra.NoArgs,
	RunE: runRefine,
}

func init() {
	refineCmd.Flags().IntVar(&refineFlags.nClusters, "n-clusters", 200, "upper bound on the number of clusters")
	refineCmd.Flags().StringVar(&refineFlags.inputDir, "input-dir", ".", "directory holding the files to refine")
	refineCmd.Flags().StringVar(&refineFlags.outputDir, "output-dir", "", "output directory (default from config)")
	rootCmd.AddCommand(refineCmd)
}

func runRefine(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	skills, err := files.ReadTaxonomy(filepath.Join(refineFlags.inputDir, taxonomyFile))
	if err != nil {
		return err
	}
	log.Info("Unique skills count: %d", len(skills))
	entities, skipped, err := files.ReadEntities(filepath.Join(refineFlags.inputDir, entitiesFile))
	if err != nil {
		return err
	}
	if skipped > 0 {
		log.Error("skipped %d malformed rows in %s", skipped, entitiesFile)
	}

	emb, release, err := buildEmbedder(ctx, cfg, clearCache, log)
	if err != nil {
		return err
	}
	defer release()

	canon := pipeline.NewCanonicalizer(emb, clusterOptions(cfg, refineFlags.nClusters), log)
	refined, err := canon.Refine(ctx, skills, entities)
	if err != nil {
		return err
	}
	log.Info("%d skills refined into %d", len(skills), len(refined.Taxonomy))

	dir := refineFlags.outputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	w, err := files.NewWriter(dir)
	if err != nil {
		return err
	}
	paths, err := w.Write(
		taxonomyOutput(refinedTaxonomyFile, refined.Taxonomy),
		entitiesOutput(refinedEntitiesFile, refined.Entities),
	)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Info("wrote %s", p)
	}
	return nil
}
