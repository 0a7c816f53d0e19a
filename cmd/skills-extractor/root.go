package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheoremOne-Talent/skills-extractor/internal/config"
	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
)

var (
	cfgPath    string
	logLevel   string
	clearCache bool
)

var rootCmd = &cobra.Command{
	Use:           "skills-extractor",
	Short:         "Extract skills from free text and group them into a taxonomy",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `skills-extractor turns free-text skill descriptions into a deduplicated
skills taxonomy. Similar phrasings are clustered and every cluster is named
after its most central member.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/skills-extractor/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info or error (overrides the config)")
	rootCmd.PersistentFlags().BoolVar(&clearCache, "clear-cache", false, "empty the embedding cache before running")
}

// loadConfig reads and validates the configuration and builds the logger.
func loadConfig() (*config.AppConfig, *logger.Logger, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level), nil
}
