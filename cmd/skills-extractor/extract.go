package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/files"
	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
	"github.com/TheoremOne-Talent/skills-extractor/internal/pipeline"
	"github.com/TheoremOne-Talent/skills-extractor/internal/taxonomy"
	"github.com/TheoremOne-Talent/skills-extractor/internal/tui"
)

var extractFlags struct {
	plain     bool
	outputDir string
}

var extractCmd = &cobra.Command{
	Use:   "extract <skills.csv>",
	Short: "Extract skills from a CSV of free-text skill sets and build a taxonomy",
	Long: `extract reads the Name and Skill Sets columns of the input CSV, extracts
skills from every row and re-clusters the growing skill pool after each row.
Progress is shown in an interactive table unless --plain is given. The raw
and refined taxonomy and entity tables are written to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractFlags.plain, "plain", false, "print one line per row instead of the interactive table")
	extractCmd.Flags().StringVar(&extractFlags.outputDir, "output-dir", "", "output directory (default from config)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	rows, skipped, err := files.ReadSkillSets(args[0])
	if err != nil {
		return err
	}
	if skipped > 0 {
		log.Error("skipped %d malformed rows in %s", skipped, args[0])
	}

	emb, release, err := buildEmbedder(ctx, cfg, clearCache, log)
	if err != nil {
		return err
	}
	defer release()
	ext, err := buildExtractor(cfg, log)
	if err != nil {
		return err
	}
	driver := pipeline.NewDriver(ext, pipeline.NewCanonicalizer(emb, clusterOptions(cfg, cfg.Cluster.MaxK), log), log)

	var res pipeline.Result
	if extractFlags.plain {
		out := cmd.OutOrStdout()
		res, err = driver.Run(ctx, rows, func(p pipeline.Published) {
			fmt.Fprintf(out, "%d\t%s\t%s\n", p.Index+1, p.Name, p.Skills)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nSkills Taxonomy:")
		for _, s := range taxonomy.Format(res.Taxonomy) {
			fmt.Fprintln(out, s)
		}
	} else {
		res, err = runInteractive(ctx, driver, rows, log)
		if err != nil {
			return err
		}
	}

	dir := extractFlags.outputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	w, err := files.NewWriter(dir)
	if err != nil {
		return err
	}
	paths, err := w.Write(
		taxonomyOutput(taxonomyFile, res.State.Skills),
		entitiesOutput(entitiesFile, res.State.Entities),
		taxonomyOutput(refinedTaxonomyFile, taxonomy.Format(res.Pass.Map.Values())),
		entitiesOutput(refinedEntitiesFile, pipeline.FormatEntities(res.Entities)),
	)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Info("wrote %s", p)
	}
	return nil
}

// runInteractive drives the pipeline from the TUI. Log lines are held back
// while the TUI owns the terminal and flushed afterwards.
func runInteractive(ctx context.Context, driver *pipeline.Driver, rows []domain.SkillSetRow, log *logger.Logger) (pipeline.Result, error) {
	var held bytes.Buffer
	log.SetOutput(&held)
	defer func() {
		log.SetOutput(os.Stderr)
		_, _ = io.Copy(os.Stderr, &held)
	}()

	final, err := tea.NewProgram(tui.New(ctx, driver, rows), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return pipeline.Result{}, err
	}
	m, ok := final.(tui.Model)
	if !ok {
		return pipeline.Result{}, fmt.Errorf("unexpected final model %T", final)
	}
	if err := m.Err(); err != nil {
		return pipeline.Result{}, err
	}
	st, last := m.Outcome()
	return pipeline.Collect(uuid.NewString(), st, last), nil
}
