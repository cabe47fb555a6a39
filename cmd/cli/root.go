package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &overrideFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:   "setlistdna <audio_file|url> [chunk_length_seconds]",
		Short: "Generate a timestamped tracklist for a DJ set recording",
		Long: `Detects track boundaries in a DJ set, identifies the audio right after each
boundary, smooths isolated misidentifications and writes the tracklist next to
the recording (<name>_boundaries_tracklist.txt and <name>_boundaries_results.json).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
				return &usageError{fmt.Errorf("%w\n\n%s", err, cmd.UsageString())}
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				chunk, err := parseChunkLength(args[1])
				if err != nil {
					return &usageError{err}
				}
				ctx.config.Schedule.ChunkLength = chunk
			}
			return runAnalyze(cmd, ctx, args[0])
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.dbPath, "db", "", "Path to the SQLite library and recognition cache")
	pf.StringVar(&flags.tempDir, "temp", "", "Directory for transcoded audio and segments")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.strategy, "strategy", "", "Smoothing strategy (majority, surround, none)")
	pf.IntVar(&flags.window, "window", 0, "Smoothing window size")
	pf.Float64Var(&flags.minTrack, "min-track", 0, "Tracks shorter than this many seconds may be corrected")

	f := rootCmd.Flags()
	f.Float64Var(&flags.leadTime, "lead-time", 0, "Seconds to skip after each boundary before sampling")
	f.Float64Var(&flags.minSeparation, "min-separation", 0, "Minimum seconds between reconciled boundaries")
	f.Float64Var(&flags.delay, "delay", 0, "Seconds to wait after each recognizer call")
	f.IntVar(&flags.concurrency, "concurrency", 0, "Recognizer calls in flight")
	f.StringVar(&flags.provider, "provider", "", "Recognizer provider (command, local)")
	f.StringVar(&flags.command, "recognizer-cmd", "", "Recognizer command template containing {file}")
	f.StringVarP(&flags.outputDir, "output-dir", "o", "", "Write results here instead of next to the input")
	f.BoolVar(&flags.noCache, "no-cache", false, "Ignore and do not fill the recognition cache")
	f.BoolVar(&flags.jsonOut, "json", false, "Print the report as JSON instead of text")

	rootCmd.AddCommand(newLibraryCommand(ctx))
	rootCmd.AddCommand(newReplayCommand(ctx))
	rootCmd.AddCommand(newSpectrogramCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func parseChunkLength(arg string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, fmt.Errorf("chunk length %q is not a number", arg)
	}
	if v <= 0 {
		return 0, errors.New("chunk length must be positive")
	}
	return v, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
