package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/himanishpuri/SetlistDNA/internal/fingerprint"
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/internal/storage"
	"github.com/himanishpuri/SetlistDNA/internal/tracklist"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
	"github.com/himanishpuri/SetlistDNA/pkg/utils"
)

// Library is the part of the fingerprint library the API exposes.
type Library interface {
	AddSong(ctx context.Context, audioPath, title, artist, youtubeID string) (string, error)
	MatchFile(ctx context.Context, path string) ([]models.MatchResult, error)
	MatchHashes(query []fingerprint.Hash) ([]models.MatchResult, error)
	GetSong(songID string) (*models.Song, error)
	ListSongs() ([]models.Song, error)
	DeleteSong(ctx context.Context, songID string) error
}

// Analyzer runs the tracklist pipeline on a local file.
type Analyzer interface {
	Process(ctx context.Context, source string) (*tracklist.Report, error)
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	library  Library
	analyzer Analyzer
	config   *ServerConfig
	log      setlistdna.Logger
	download downloadFunc
}

// downloadFunc fetches a remote recording into dir and returns the local path.
type downloadFunc func(ctx context.Context, url, dir string) (string, *audio.YTMetadata, error)

// ServerConfig holds server configuration
type ServerConfig struct {
	Bind           string
	DBPath         string
	TempDir        string
	DownloadDir    string
	Provider       string
	Smoothing      smoothing.Options
	AllowedOrigins []string
}

func NewServer(library Library, analyzer Analyzer, config *ServerConfig, log setlistdna.Logger) *Server {
	return &Server{library: library, analyzer: analyzer, config: config, log: log, download: audio.DownloadAudio}
}

func (s *Server) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// saveUpload copies the multipart file to a unique path under the temp dir.
func (s *Server) saveUpload(header *multipart.FileHeader) (string, error) {
	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return "", err
	}
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := fmt.Sprintf("upload-%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(header.Filename)))
	path := filepath.Join(s.config.TempDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	return path, out.Close()
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "SetlistDNA API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"health":         "GET /health",
			"metrics":        "GET /api/health/metrics",
			"analyze":        "POST /api/tracklists",
			"replay":         "POST /api/tracklists/replay",
			"songs":          "GET /api/library/songs",
			"addSongFile":    "POST /api/library/songs",
			"addSongYouTube": "POST /api/library/songs/youtube",
			"getSong":        "GET /api/library/songs/:id",
			"deleteSong":     "DELETE /api/library/songs/:id",
			"matchFile":      "POST /api/library/match",
			"matchHashes":    "POST /api/library/match/hashes",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	songs, err := s.library.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to get song count: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}
	c.JSON(http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		SongCount:    len(songs),
		Provider:     s.config.Provider,
	})
}

// handleAnalyze handles POST /api/tracklists with either an uploaded
// recording or a JSON {"url": ...} body.
func (s *Server) handleAnalyze(c *gin.Context) {
	ctx := c.Request.Context()

	var source string
	if header, err := c.FormFile("audio"); err == nil {
		path, err := s.saveUpload(header)
		if err != nil {
			s.log.Errorf("Failed to save upload: %v", err)
			s.respondError(c, http.StatusInternalServerError, "Failed to save uploaded file")
			return
		}
		defer os.Remove(path)
		source = path
	} else {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondError(c, http.StatusBadRequest, "audio file or url is required")
			return
		}
		if !utils.IsRemote(req.URL) {
			s.respondError(c, http.StatusBadRequest, "url must be http(s)")
			return
		}
		path, _, err := s.download(ctx, req.URL, s.config.DownloadDir)
		if err != nil {
			s.log.Errorf("Failed to download %s: %v", req.URL, err)
			s.respondError(c, http.StatusBadGateway, fmt.Sprintf("Failed to download: %v", err))
			return
		}
		defer os.Remove(path)
		source = path
	}

	report, err := s.analyzer.Process(ctx, source)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, newTracklistResponse(report))
	case errors.Is(err, models.ErrInputValidation):
		reason, _ := models.ReasonOf(err)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   http.StatusText(http.StatusUnprocessableEntity),
			Message: err.Error(),
			Code:    http.StatusUnprocessableEntity,
			Reason:  reason,
		})
	case report != nil:
		// Interrupted: the client went away or the server is shutting down.
		s.log.Warnf("Analysis interrupted: %v", err)
		c.JSON(http.StatusOK, newTracklistResponse(report))
	default:
		s.log.Errorf("Analysis failed: %v", err)
		s.respondError(c, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
	}
}

func (s *Server) handleReplay(c *gin.Context) {
	var req ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	opts, err := req.Options(s.config.Smoothing)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	report, err := setlistdna.Replay(req.Record, opts, "")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, newTracklistResponse(report))
}

func (s *Server) handleListSongs(c *gin.Context) {
	songs, err := s.library.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}
	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = songDTO(song)
	}
	c.JSON(http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

func (s *Server) handleGetSong(c *gin.Context) {
	id := c.Param("id")
	song, err := s.library.GetSong(id)
	if err != nil {
		s.respondError(c, http.StatusNotFound, fmt.Sprintf("Song with ID %s not found", id))
		return
	}
	c.JSON(http.StatusOK, songDTO(*song))
}

func (s *Server) handleDeleteSong(c *gin.Context) {
	id := c.Param("id")
	err := s.library.DeleteSong(c.Request.Context(), id)
	switch {
	case errors.Is(err, storage.ErrSongNotFound):
		s.respondError(c, http.StatusNotFound, fmt.Sprintf("Song with ID %s not found", id))
	case err != nil:
		s.log.Errorf("Failed to delete song %s: %v", id, err)
		s.respondError(c, http.StatusInternalServerError, "Failed to delete song")
	default:
		s.log.Infof("Deleted song %s", id)
		c.JSON(http.StatusOK, gin.H{"message": "Song deleted successfully", "id": id})
	}
}

// handleAddSongFile handles POST /api/library/songs (multipart upload)
func (s *Server) handleAddSongFile(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	title, artist, youtubeID := c.PostForm("title"), c.PostForm("artist"), c.PostForm("youtube_id")
	if title == "" || artist == "" {
		s.respondError(c, http.StatusBadRequest, "title and artist are required")
		return
	}
	if youtubeID != "" {
		id, ok := utils.VideoID(youtubeID)
		if !ok {
			s.respondError(c, http.StatusBadRequest, "youtube_id is not a YouTube id or URL")
			return
		}
		youtubeID = id
	}
	header, err := c.FormFile("audio")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, "audio file is required")
		return
	}
	path, err := s.saveUpload(header)
	if err != nil {
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	defer os.Remove(path)

	songID, err := s.library.AddSong(ctx, path, title, artist, youtubeID)
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}
	c.JSON(http.StatusCreated, AddSongResponse{
		Message: "Song added successfully", ID: songID, Title: title, Artist: artist, YouTubeID: youtubeID,
	})
}

func (s *Server) handleAddSongYouTube(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	var req AddSongYouTubeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "youtube_url is required")
		return
	}
	if _, ok := utils.VideoID(req.YouTubeURL); !ok || !utils.IsRemote(req.YouTubeURL) {
		s.respondError(c, http.StatusBadRequest, "youtube_url must be a YouTube URL")
		return
	}

	path, meta, err := s.download(ctx, req.YouTubeURL, s.config.TempDir)
	if err != nil {
		s.log.Errorf("Failed to download YouTube video: %v", err)
		s.respondError(c, http.StatusBadGateway, fmt.Sprintf("Failed to download YouTube video: %v", err))
		return
	}
	defer os.Remove(path)

	title, artist := req.Title, req.Artist
	if title == "" {
		title = meta.Title
	}
	if artist == "" {
		artist = meta.Artist
	}
	if title == "" || artist == "" {
		s.respondError(c, http.StatusBadRequest, "Could not determine title or artist from YouTube metadata. Please provide them explicitly.")
		return
	}

	songID, err := s.library.AddSong(ctx, path, title, artist, meta.ID)
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}
	c.JSON(http.StatusCreated, AddSongResponse{
		Message: "Song added successfully from YouTube", ID: songID, Title: title, Artist: artist, YouTubeID: meta.ID,
	})
}

func (s *Server) handleMatchFile(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	header, err := c.FormFile("audio")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, "audio file is required")
		return
	}
	path, err := s.saveUpload(header)
	if err != nil {
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	defer os.Remove(path)

	matches, err := s.library.MatchFile(ctx, path)
	if err != nil {
		s.log.Errorf("Failed to match: %v", err)
		s.respondError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to match song: %v", err))
		return
	}
	c.JSON(http.StatusOK, matchResponse(matches))
}

func (s *Server) handleMatchHashes(c *gin.Context) {
	var req MatchHashesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Hashes) == 0 {
		s.respondError(c, http.StatusBadRequest, "hashes are required")
		return
	}
	query := make([]fingerprint.Hash, len(req.Hashes))
	for i, h := range req.Hashes {
		query[i] = fingerprint.Hash{Address: h.Address, AnchorMs: h.AnchorMs}
	}
	matches, err := s.library.MatchHashes(query)
	if err != nil {
		s.log.Errorf("Failed to match hashes: %v", err)
		s.respondError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to match hashes: %v", err))
		return
	}
	c.JSON(http.StatusOK, matchResponse(matches))
}

func matchResponse(matches []models.MatchResult) MatchResponse {
	dtos := make([]MatchResultDTO, len(matches))
	for i, m := range matches {
		dtos[i] = MatchResultDTO{
			SongID: m.SongID, Title: m.Title, Artist: m.Artist, YouTubeID: m.YouTubeID,
			Score: m.Score, OffsetMs: m.OffsetMs, Confidence: m.Confidence,
		}
	}
	return MatchResponse{Matches: dtos, Count: len(dtos)}
}
