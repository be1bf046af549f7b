package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orgsync/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}

			pool, err := store.OpenPool(ctx, cfg.Database)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer pool.Close()

			if err := store.Migrate(ctx, pool); err != nil {
				return withCode(exitDB, err)
			}

			version, err := store.MigrationVersion(ctx, pool)
			if err != nil {
				return withCode(exitDB, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at migration version %d\n", version)
			return nil
		},
	}
}
