package main

import (
	"github.com/estudorank/estudorank/internal/config"
	"github.com/estudorank/estudorank/internal/db"
	"github.com/estudorank/estudorank/internal/errors"
	"github.com/spf13/cobra"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, err := db.ParseDirection(args[0])
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}

			conn, err := db.PostgresOperations{}.Open("postgres", cfg.Database.DSN())
			if err != nil {
				return &errors.DatabaseError{Operation: "open connection", Err: err}
			}
			defer conn.Close()

			return db.Migrate(conn, cfg.Database.Migrations, direction)
		},
	}
}
