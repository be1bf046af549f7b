package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orgsync/internal/config"
	"github.com/JonMunkholm/orgsync/internal/core"
	"github.com/JonMunkholm/orgsync/internal/logging"
	"github.com/JonMunkholm/orgsync/internal/store"
)

// openFunc opens the directory a command works against. close releases it.
type openFunc func(ctx context.Context, cfg *config.Config) (dir core.Directory, close func(), err error)

func openPostgres(ctx context.Context, cfg *config.Config) (core.Directory, func(), error) {
	pool, err := store.OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, withCode(exitDB, err)
	}
	return store.NewPostgres(pool), pool.Close, nil
}

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openPostgres)
}

func newRootCmdWith(open openFunc) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "orgsync",
		Short:         "Employee directory batch reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is normal outside development.
			_ = godotenv.Load()
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(newImportCmd(open))
	cmd.AddCommand(newChainCmd(open))
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(code)
	}
}

// loadConfig loads configuration, requiring a database only when the
// command needs one.
func loadConfig(needDatabase bool) (*config.Config, error) {
	load := config.LoadLocal
	if needDatabase {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("load config: %w", err))
	}
	return cfg, nil
}
