package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/SetlistDNA/internal/schedule"
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/internal/tracklist"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
	"github.com/himanishpuri/SetlistDNA/pkg/utils"
)

const previewBoundaries = 20

func runAnalyze(cmd *cobra.Command, cc *commandContext, source string) error {
	out := cmd.OutOrStdout()
	cfg := cc.config
	printBanner()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if utils.IsRemote(source) {
		fmt.Fprintln(os.Stderr, "📥 Downloading audio...")
		path, meta, err := audio.DownloadAudio(ctx, source, cfg.Paths.DownloadDir)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", source, err)
		}
		fmt.Fprintf(os.Stderr, "✅ Downloaded: %s (%s)\n", meta.Title, filepath.Base(path))
		source = path
	}

	if info, err := os.Stat(source); err == nil {
		fmt.Fprintf(os.Stderr, "🎧 %s (%s)\n", filepath.Base(source), humanize.Bytes(uint64(info.Size())))
	}

	progress := newProgressPrinter(os.Stderr)
	pipeline, lib, err := cc.newPipeline(
		setlistdna.WithProgress(progress.event),
		setlistdna.WithLogger(cc.log.With("source", filepath.Base(source))),
	)
	if err != nil {
		return err
	}
	defer closeLibrary(lib)

	started := time.Now()
	report, err := pipeline.Process(ctx, source)
	switch {
	case err == nil:
	case schedule.IsInterrupted(err) && report != nil:
		fmt.Fprintln(os.Stderr, "\n⚠️  Interrupted, writing what was identified so far")
	case errors.Is(err, models.ErrInputValidation) && report != nil:
		if werr := printReport(out, report, cc.flags.jsonOut); werr != nil {
			return werr
		}
		return err
	default:
		return err
	}

	printBoundaryPreview(os.Stderr, report.Boundaries)
	if len(report.Corrections) > 0 {
		fmt.Fprintln(os.Stderr, "\n🧹 Smoothing corrections:")
		fmt.Fprintln(os.Stderr, correctionsTable(report.Corrections))
	}

	resultsPath, tracklistPath := outputPaths(source, cfg.Paths.OutputDir)
	if werr := writeOutputs(report, resultsPath, tracklistPath); werr != nil {
		return werr
	}

	if perr := printReport(out, report, cc.flags.jsonOut); perr != nil {
		return perr
	}
	fmt.Fprintf(os.Stderr, "\n💾 Results saved to %s\n💾 Tracklist saved to %s\n", resultsPath, tracklistPath)
	fmt.Fprintf(os.Stderr, "⏱️  Finished in %s\n", time.Since(started).Round(time.Second))
	return err
}

func printReport(w io.Writer, report *tracklist.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(report)
	}
	fmt.Fprintln(w)
	return report.WriteText(w)
}

func outputPaths(source, outputDir string) (string, string) {
	resultsPath, tracklistPath := tracklist.OutputPaths(source)
	if outputDir == "" {
		return resultsPath, tracklistPath
	}
	return filepath.Join(outputDir, filepath.Base(resultsPath)), filepath.Join(outputDir, filepath.Base(tracklistPath))
}

func writeOutputs(report *tracklist.Report, resultsPath, tracklistPath string) error {
	var buf bytes.Buffer
	if err := report.Record().WriteJSON(&buf); err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(resultsPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if err := utils.WriteFileAtomic(tracklistPath, []byte(report.Text())); err != nil {
		return fmt.Errorf("failed to save tracklist: %w", err)
	}
	return nil
}

func printBoundaryPreview(w io.Writer, boundaries []float64) {
	fmt.Fprintf(w, "\n📍 %d boundaries:\n", len(boundaries))
	for i, b := range boundaries {
		if i == previewBoundaries {
			fmt.Fprintf(w, "   ... and %d more\n", len(boundaries)-previewBoundaries)
			break
		}
		fmt.Fprintf(w, "   %s\n", tracklist.FormatTimestamp(b))
	}
}

func correctionsTable(corrections []smoothing.Correction) string {
	rows := make([][]string, len(corrections))
	for i, c := range corrections {
		rows[i] = []string{
			tracklist.FormatTimestamp(c.Timestamp),
			c.Original.String(),
			c.CorrectedTo.String(),
			fmt.Sprintf("%.0fs", c.Duration),
		}
	}
	return renderTable([]string{"Time", "Identified", "Corrected to", "Span"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}

// progressPrinter reports each boundary as the scheduler finishes it.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
	n  int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) event(ev schedule.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++

	at := tracklist.FormatTimestamp(ev.Start)
	switch {
	case ev.Skipped:
		fmt.Fprintf(p.w, "⏭️  [%d] %s: too close to the end, skipped\n", p.n, at)
	case ev.Err != nil:
		fmt.Fprintf(p.w, "⚠️  [%d] %s: %v\n", p.n, at, ev.Err)
	case ev.Identity != nil:
		fmt.Fprintf(p.w, "🎵 [%d] %s: %s\n", p.n, at, ev.Identity)
	default:
		fmt.Fprintf(p.w, "❓ [%d] %s: no match\n", p.n, at)
	}
}
