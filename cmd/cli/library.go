package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
	"github.com/himanishpuri/SetlistDNA/pkg/utils"
)

func newLibraryCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the reference songs used by the local recognizer",
	}
	cmd.AddCommand(newLibraryAddCommand(cc))
	cmd.AddCommand(newLibraryListCommand(cc))
	cmd.AddCommand(newLibraryMatchCommand(cc))
	cmd.AddCommand(newLibraryDeleteCommand(cc))
	cmd.AddCommand(newLibraryClearCacheCommand(cc))
	return cmd
}

func newLibraryAddCommand(cc *commandContext) *cobra.Command {
	var title, artist, youtubeID string

	cmd := &cobra.Command{
		Use:   "add <audio_file|youtube_url>",
		Short: "Fingerprint a song and add it to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			audioPath := args[0]

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			if utils.IsRemote(audioPath) {
				fmt.Fprintln(out, "📥 Downloading audio from YouTube...")
				path, meta, err := audio.DownloadAudio(ctx, audioPath, cc.config.Paths.DownloadDir)
				if err != nil {
					return fmt.Errorf("failed to download: %w", err)
				}
				if title == "" {
					title = meta.Title
				}
				if artist == "" {
					artist = meta.Artist
				}
				if youtubeID == "" {
					youtubeID = meta.ID
				}
				audioPath = path
			}
			if title == "" || artist == "" {
				return &usageError{errors.New("--title and --artist are required")}
			}
			if youtubeID != "" {
				id, ok := utils.VideoID(youtubeID)
				if !ok {
					return &usageError{fmt.Errorf("--youtube: not a YouTube id or URL: %q", youtubeID)}
				}
				youtubeID = id
			}

			lib, err := cc.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			fmt.Fprintln(out, "🎵 Processing audio file...")
			songID, err := lib.AddSong(ctx, audioPath, title, artist, youtubeID)
			if err != nil {
				return fmt.Errorf("failed to add song: %w", err)
			}

			fmt.Fprintln(out, "\n✅ Successfully added song to library!")
			fmt.Fprintf(out, "   ID:      %s\n", songID)
			fmt.Fprintf(out, "   Title:   %s\n", title)
			fmt.Fprintf(out, "   Artist:  %s\n", artist)
			if youtubeID != "" {
				fmt.Fprintf(out, "   YouTube: %s\n", youtubeID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Song title (taken from YouTube metadata when omitted)")
	cmd.Flags().StringVar(&artist, "artist", "", "Artist name (taken from YouTube metadata when omitted)")
	cmd.Flags().StringVar(&youtubeID, "youtube", "", "YouTube video id or URL")
	return cmd
}

func newLibraryListCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List library songs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := cc.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			songs, err := lib.ListSongs()
			if err != nil {
				return fmt.Errorf("failed to list songs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(songs) == 0 {
				fmt.Fprintln(out, "📭 No songs in library")
				return nil
			}
			fmt.Fprintf(out, "📚 %s song(s)\n", humanize.Comma(int64(len(songs))))
			fmt.Fprintln(out, songsTable(songs))
			return nil
		},
	}
}

func songsTable(songs []models.Song) string {
	rows := make([][]string, len(songs))
	for i, s := range songs {
		rows[i] = []string{s.ID, s.Artist, s.Title, formatDurationMs(s.DurationMs), s.YouTubeID}
	}
	return renderTable([]string{"ID", "Artist", "Title", "Length", "YouTube"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
}

func formatDurationMs(ms int) string {
	if ms <= 0 {
		return "-"
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func newLibraryMatchCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <audio_file>",
		Short: "Match an audio clip against the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := cc.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			results, err := lib.MatchFile(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to match: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "❌ No matches found in library")
				return nil
			}

			rows := make([][]string, 0, min(len(results), 10))
			for i, r := range results {
				if i == 10 {
					break
				}
				rows = append(rows, []string{
					r.Artist, r.Title,
					humanize.Comma(int64(r.Score)),
					fmt.Sprintf("%.1f%%", r.Confidence),
					fmt.Sprintf("%dms", r.OffsetMs),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Artist", "Title", "Score", "Confidence", "Offset"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight}))
			return nil
		},
	}
}

func newLibraryDeleteCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <song_id>",
		Short: "Remove a song and its fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := cc.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			song, err := lib.GetSong(args[0])
			if err != nil {
				return fmt.Errorf("song %s not found: %w", args[0], err)
			}
			if err := lib.DeleteSong(cmd.Context(), song.ID); err != nil {
				return fmt.Errorf("failed to delete song: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Deleted %q by %s (%s)\n", song.Title, song.Artist, song.ID)
			return nil
		},
	}
}

func newLibraryClearCacheCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache [audio_file]",
		Short: "Forget cached recognitions for one recording, or for all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
				if !utils.FileExists(source) {
					return fmt.Errorf("audio file not found: %s", source)
				}
			}

			lib, err := cc.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			n, err := lib.ClearCache(cmd.Context(), source)
			if err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %s cached recognitions\n", humanize.Comma(n))
			return nil
		},
	}
}
