package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"svitlo/internal/config"
	"svitlo/internal/coordinator"
	"svitlo/internal/outage"
)

type extractOptions struct {
	timezone string
	merge    bool
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract [snapshot.json]",
		Short: "Print the outage intervals of a schedule snapshot",
		Long: `Read a schedule snapshot (from a file or stdin) and print one outage
interval per line as local start, local end and duration.

A snapshot whose date cannot be parsed still prints the intervals of the
other day, but the command exits with an error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runExtract(in, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.timezone, "timezone", config.DefaultTimezone, "IANA timezone the slots are anchored to")
	cmd.Flags().BoolVar(&opts.merge, "merge-across-midnight", false, "Join outages that continue into the next day")
	return cmd
}

func runExtract(in io.Reader, out io.Writer, opts *extractOptions) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap, err := coordinator.DecodeSnapshot(data)
	if err != nil {
		return err
	}

	intervals, extractErr := snap.Intervals(loc)
	intervals = outage.Merge(intervals, outage.FromPairs(snap.Pairs()))
	if opts.merge {
		intervals = outage.Coalesce(intervals)
	}

	for _, iv := range intervals {
		fmt.Fprintf(out, "%s\t%s\t%s\n",
			iv.Start.In(loc).Format("2006-01-02 15:04 MST"),
			iv.End.In(loc).Format("2006-01-02 15:04 MST"),
			iv.Duration())
	}
	return extractErr
}
