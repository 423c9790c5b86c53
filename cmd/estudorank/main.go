package main

import (
	"fmt"
	"os"

	"github.com/estudorank/estudorank/internal/config"
	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "estudorank",
		Short:         "EstudoRank study tracker and leaderboard service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default $ESTUDORANK_CONFIG)")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	serve := newServeCmd(load)
	root.AddCommand(serve, newMigrateCmd(load), newLeaderboardCmd(load), newTokenCmd(load))
	root.RunE = serve.RunE
	return root
}

// loadConfig reads configuration and initializes logging from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Logging.Dir != "" {
		if err := logger.EnableFileLogging(cfg.Logging.Dir); err != nil {
			return nil, fmt.Errorf("failed to enable file logging: %w", err)
		}
	}
	return cfg, nil
}

func tablesFromConfig(c config.LeaderboardConfig) leaderboard.Tables {
	return leaderboard.Tables{
		View:     c.View,
		Progress: c.ProgressTable,
		Points:   c.PointsTable,
		Profiles: c.ProfilesTable,
	}
}
