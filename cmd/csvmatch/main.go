// Command csvmatch aligns the rows of one CSV file to the header of another.
//
// Usage:
//
//	csvmatch header.csv data.csv            # result on stdout
//	csvmatch header.csv data.csv -o out.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JonMunkholm/csvmatch/internal/core"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitBadInput  = 2
	exitWorkerErr = 3
)

type options struct {
	output  string
	maxSize int64
	timeout time.Duration
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the root command, reports its error on stderr and maps it to
// an exit code. Known errors get a friendly line with a support code before
// the technical detail.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	if core.IsUserFacing(err) {
		fmt.Fprintf(stderr, "csvmatch: %s\n", core.FormatUserError(err))
	}
	fmt.Fprintf(stderr, "csvmatch: %v\n", err)

	switch {
	case core.IsWorkerFailure(err):
		return exitWorkerErr
	case core.IsBadInput(err), errors.Is(err, core.ErrFileTooLarge):
		return exitBadInput
	default:
		return exitError
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "csvmatch HEADER_FILE DATA_FILE",
		Short: "Align CSV rows to another file's header",
		Long: `Reads the header row of HEADER_FILE and the data rows of DATA_FILE and
writes one output row per data row, with HEADER_FILE's columns in order.
Columns are matched by name, ignoring case and surrounding spaces. Columns
missing from DATA_FILE are left empty.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to this file instead of stdout")
	cmd.Flags().Int64Var(&opts.maxSize, "max-size", 50<<20, "maximum size of each input file in bytes (0 disables the limit)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "maximum time to wait for the match")

	return cmd
}

func runMatch(cmd *cobra.Command, opts *options, headerPath, dataPath string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	rs, err := core.NewWorker(opts.maxSize).Run(ctx, headerPath, dataPath)
	if err != nil {
		return err
	}

	if opts.output == "" {
		return core.WriteCSV(cmd.OutOrStdout(), rs)
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := core.WriteCSV(f, rs); err != nil {
		f.Close()
		os.Remove(opts.output)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(rs), opts.output)
	return nil
}
