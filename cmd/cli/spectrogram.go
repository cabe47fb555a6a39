package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/SetlistDNA/internal/boundary"
	"github.com/himanishpuri/SetlistDNA/internal/onset"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/visual"
)

func newSpectrogramCommand(cc *commandContext) *cobra.Command {
	var output string
	var width, height int
	var logScale bool

	cmd := &cobra.Command{
		Use:   "spectrogram <audio_file>",
		Short: "Render a spectrogram PNG with the detected boundaries marked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			cfg := cc.config
			if output == "" {
				output = strings.TrimSuffix(source, filepath.Ext(source)) + "_spectrogram.png"
			}

			oc := onset.DefaultConfig()
			oc.WindowSize, oc.HopSize = cfg.Analysis.WindowSize, cfg.Analysis.HopSize
			oc.FluxPercentile, oc.OnsetDelta = cfg.Analysis.FluxPercentile, cfg.Analysis.OnsetDelta
			det := &setlistdna.AudioDetector{
				TempDir:    cfg.Paths.TempDir,
				SampleRate: cfg.Analysis.SampleRate,
				Onset:      oc,
				Log:        cc.log,
			}
			analysis, err := det.Analyze(cmd.Context(), source)
			if err != nil {
				return err
			}
			boundaries := boundary.Reconcile(analysis.Candidates, cfg.Analysis.MinSeparation)

			wavPath, err := audio.ConvertToMonoWAV(cmd.Context(), source, cfg.Paths.TempDir, audio.ConvertWAVConfig{
				SampleRate: cfg.Analysis.SampleRate,
			})
			if err != nil {
				return err
			}
			defer os.Remove(wavPath)
			samples, rate, err := audio.ReadWavAsFloat64(wavPath)
			if err != nil {
				return err
			}

			if err := visual.WritePNG(output, samples, rate, visual.Options{
				Width:      width,
				Height:     height,
				Boundaries: boundaries,
				Log10:      logScale,
			}); err != nil {
				return fmt.Errorf("failed to render spectrogram: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🖼️  Saved spectrogram with %d boundaries to %s\n", len(boundaries), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG path (default <audio>_spectrogram.png)")
	cmd.Flags().IntVar(&width, "width", visual.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", visual.DefaultHeight, "Image height in pixels")
	cmd.Flags().BoolVar(&logScale, "log", false, "Log-scale magnitudes")
	return cmd
}
