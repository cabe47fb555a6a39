package main

import (
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/internal/tracklist"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

// AnalyzeRequest is the JSON body of POST /api/tracklists. Uploads use a
// multipart "audio" field instead.
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// ReplayRequest is the body of POST /api/tracklists/replay. Zero values fall
// back to the server configuration.
type ReplayRequest struct {
	Record           *tracklist.Record `json:"record" binding:"required"`
	Strategy         string            `json:"strategy,omitempty"`
	WindowSize       int               `json:"window_size,omitempty"`
	MinTrackDuration *float64          `json:"min_track_duration,omitempty"`
}

// Options merges the request over base.
func (r *ReplayRequest) Options(base smoothing.Options) (smoothing.Options, error) {
	opts := base
	if r.Strategy != "" {
		s, err := smoothing.ParseStrategy(r.Strategy)
		if err != nil {
			return opts, err
		}
		opts.Strategy = s
	}
	if r.WindowSize != 0 {
		opts.WindowSize = r.WindowSize
	}
	if r.MinTrackDuration != nil {
		opts.MinTrackDuration = *r.MinTrackDuration
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// TracklistResponse carries the report, its text rendering and the record
// that can later be replayed.
type TracklistResponse struct {
	Report *tracklist.Report `json:"report"`
	Text   string            `json:"text"`
	Record *tracklist.Record `json:"record"`
}

func newTracklistResponse(r *tracklist.Report) TracklistResponse {
	return TracklistResponse{Report: r, Text: r.Text(), Record: r.Record()}
}

// AddSongYouTubeRequest is the request body for POST /api/library/songs/youtube
type AddSongYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url" binding:"required"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
}

type AddSongResponse struct {
	Message   string `json:"message"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	YouTubeID string `json:"youtube_id,omitempty"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	YouTubeID  string `json:"youtube_id,omitempty"`
	DurationMs int    `json:"duration_ms"`
}

func songDTO(s models.Song) SongDTO {
	return SongDTO{ID: s.ID, Title: s.Title, Artist: s.Artist, YouTubeID: s.YouTubeID, DurationMs: s.DurationMs}
}

type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

type MatchResultDTO struct {
	SongID     string  `json:"song_id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	YouTubeID  string  `json:"youtube_id,omitempty"`
	Score      int     `json:"score"`
	OffsetMs   int32   `json:"offset_ms"`
	Confidence float64 `json:"confidence"`
}

type MatchResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
}

type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	SongCount    int    `json:"song_count"`
	Provider     string `json:"provider"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message,omitempty"`
	Code    int           `json:"code,omitempty"`
	Reason  models.Reason `json:"reason,omitempty"`
}

// MatchHashesRequest carries fingerprints computed client-side.
type MatchHashesRequest struct {
	Hashes []HashDTO `json:"hashes" binding:"required"`
}

type HashDTO struct {
	Address  uint32 `json:"address"`
	AnchorMs uint32 `json:"anchor_ms"`
}
