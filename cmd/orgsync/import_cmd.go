package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/orgsync/internal/core"
	"github.com/JonMunkholm/orgsync/internal/store"
)

type importOptions struct {
	file   string
	dryRun bool
	output string
}

func newImportCmd(open openFunc) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Reconcile an employee CSV batch",
		Long: `Reconcile an employee CSV batch into the directory and print the result.

With --dry-run the batch runs against an empty in-memory directory and
nothing is written. The header and every salary and hire date are checked,
but the counts do not preview a real run: every row reports as created, and
managers that exist only in the real directory are not resolved.

Exit status is 2 when the batch is rejected for a header mismatch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), open, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "CSV batch to reconcile, - for stdin (required)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Check the batch against an empty in-memory directory; counts are not a preview of a real run")
	cmd.Flags().StringVar(&opts.output, "output", "json", "Output format: json or yaml")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, open openFunc, opts importOptions) error {
	in, err := openBatch(opts.file)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer in.Close()

	cfg, err := loadConfig(!opts.dryRun)
	if err != nil {
		return err
	}

	var dir core.Directory
	if opts.dryRun {
		dir = store.NewMemory()
	} else {
		d, closeDir, err := open(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDir()
		dir = d
	}

	svc, err := core.NewService(dir, cfg)
	if err != nil {
		return err
	}

	ctx = core.ContextWithBatchSource(ctx, core.BatchSource{Origin: "cli", Name: opts.file})
	res, err := svc.ReconcileBatch(ctx, in)
	if res != nil {
		if werr := writeOutput(out, opts.output, res); werr != nil {
			return werr
		}
	}
	if err != nil {
		if errors.Is(err, core.ErrBatchTooLarge) {
			return withCode(exitValidation, err)
		}
		return withCode(exitDB, fmt.Errorf("reconcile %s: %w", opts.file, err))
	}
	if res.Rejected() {
		return withCode(exitValidation, errors.New("batch rejected: "+core.HeaderMismatchMessage()))
	}
	return nil
}

func openBatch(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	return f, nil
}
