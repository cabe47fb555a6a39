package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/SetlistDNA/internal/tracklist"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna"
)

func newReplayCommand(cc *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "replay <results.json>",
		Short: "Re-smooth a saved results file without touching audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := tracklist.LoadRecord(args[0])
			if err != nil {
				return err
			}
			opts, err := setlistdna.SmoothingOptions(cc.config.Smoothing)
			if err != nil {
				return &usageError{err}
			}
			report, err := setlistdna.Replay(rec, opts, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(report.Corrections) > 0 && !jsonOut {
				fmt.Fprintln(out, correctionsTable(report.Corrections))
			}
			if err := printReport(out, report, jsonOut); err != nil {
				return err
			}
			if !jsonOut {
				fmt.Fprintf(out, "\n🔁 Unique tracks: %d before smoothing, %d after\n",
					report.Stats.UniqueBeforeSmooth, report.Stats.UniqueTracks)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}
