package main

import (
	"encoding/json"
	"strconv"

	"github.com/estudorank/estudorank/internal/config"
	"github.com/estudorank/estudorank/internal/db"
	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/spf13/cobra"
)

type leaderboardOutput struct {
	OK          bool                `json:"ok"`
	Leaderboard []leaderboard.Entry `json:"leaderboard"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"pageSize"`
	Total       int                 `json:"total"`
	Pages       int                 `json:"pages"`
	Source      string              `json:"source"`
}

func newLeaderboardCmd(load func() (*config.Config, error)) *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print one leaderboard page as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			cfg.Database.AutoMigrate = false

			dbService, err := db.NewDBService(db.PostgresOperations{}, cfg.Database)
			if err != nil {
				return err
			}
			defer dbService.Close()

			resolver := leaderboard.NewResolver(dbService.Store(), tablesFromConfig(cfg.Leaderboard))
			params := leaderboard.ParseParams(strconv.Itoa(page), strconv.Itoa(pageSize))
			result, err := resolver.Resolve(cmd.Context(), params)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(leaderboardOutput{
				OK:          true,
				Leaderboard: result.Entries,
				Page:        result.Page,
				PageSize:    result.PageSize,
				Total:       result.Total,
				Pages:       result.Pages,
				Source:      result.Source,
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", leaderboard.DefaultPage, "page number (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", leaderboard.DefaultPageSize, "entries per page (max 100)")
	return cmd
}
