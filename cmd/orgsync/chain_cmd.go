package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orgsync/internal/core"
)

type chainOptions struct {
	email  string
	output string
}

func newChainCmd(open openFunc) *cobra.Command {
	var opts chainOptions

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Print an employee's chain of command, nearest manager first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(cmd.Context(), cmd.OutOrStdout(), open, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Employee email (required)")
	cmd.Flags().StringVar(&opts.output, "output", "json", "Output format: json or yaml")
	_ = cmd.MarkFlagRequired("email")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(opts.email) == "" {
			return withCode(exitUsage, errors.New("--email must not be blank"))
		}
		if opts.output != "json" && opts.output != "yaml" {
			return writeOutput(io.Discard, opts.output, nil)
		}
		return nil
	}

	return cmd
}

func runChain(ctx context.Context, out io.Writer, open openFunc, opts chainOptions) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	dir, closeDir, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDir()

	svc, err := core.NewService(dir, cfg)
	if err != nil {
		return err
	}

	view, err := svc.Chain(ctx, opts.email)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		return withCode(exitValidation, err)
	}
	if err != nil {
		return withCode(exitDB, err)
	}
	return writeOutput(out, opts.output, view)
}
