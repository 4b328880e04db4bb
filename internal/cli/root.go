package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/config"
	"github.com/lazypower/forgeone/internal/logging"
)

var (
	configPath string
	dbPath     string
	jsonOut    bool

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "forgeone",
	Short: "Work log with inferred habits, goals, health and relationships",
	Long: titleStyle.Render("forgeone") + " records what you worked on and why, then infers habits,\n" +
		"goals, a wellness score, people and meetings from the log. Everything stays local.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.forgeone/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config and FORGEONE_DB)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(habitsCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(peopleCmd)
	rootCmd.AddCommand(meetingsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(resetAnchorsCmd)
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.Database.Path = dbPath
	}
	cfg = c

	l, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	logger = l
	return nil
}
