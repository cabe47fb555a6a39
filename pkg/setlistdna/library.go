package setlistdna

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/himanishpuri/SetlistDNA/internal/fingerprint"
	"github.com/himanishpuri/SetlistDNA/internal/storage"
	"github.com/himanishpuri/SetlistDNA/pkg/logger"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

const lockTimeout = 30 * time.Second

// Library manages the reference songs the local recognizer matches against.
type Library struct {
	storage Storage
	log     Logger
	config  *Config
	lock    *flock.Flock
}

func OpenLibrary(opts ...Option) (*Library, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	var stor Storage
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		db, err := storage.NewDBClient(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		stor = db
	}

	return &Library{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		lock:    flock.New(cfg.DBPath + ".lock"),
	}, nil
}

// Storage exposes the underlying store, e.g. for the recognition cache.
func (l *Library) Storage() Storage {
	return l.storage
}

// withWriteLock serializes library writes across processes.
func (l *Library) withWriteLock(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := l.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking library: %w", err)
	}
	if !locked {
		return fmt.Errorf("library %s is locked by another process", l.config.DBPath)
	}
	defer l.lock.Unlock()
	return fn()
}

// hashFile transcodes path and returns its landmark hashes and duration.
func (l *Library) hashFile(ctx context.Context, path string) ([]fingerprint.Hash, float64, error) {
	wavPath, err := audio.ConvertToMonoWAV(ctx, path, l.config.TempDir, audio.ConvertWAVConfig{
		SampleRate: l.config.SampleRate,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	samples, sampleRate, err := audio.ReadWavAsFloat64(wavPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV file: %w", err)
	}

	params := fingerprint.DefaultParams()
	spec, err := fingerprint.Spectrogram(samples, params)
	if err != nil {
		return nil, 0, fmt.Errorf("spectrogram generation failed: %w", err)
	}
	peaks := fingerprint.ExtractPeaks(spec, sampleRate, params)
	l.log.Debugf("Extracted %d peaks from %s", len(peaks), path)

	return fingerprint.Hashes(peaks), float64(len(samples)) / float64(sampleRate), nil
}

// AddSong fingerprints an audio file and stores it as a reference song.
func (l *Library) AddSong(ctx context.Context, audioPath, title, artist, youtubeID string) (string, error) {
	l.log.Infof("Processing song: %s by %s", title, artist)

	hashes, duration, err := l.hashFile(ctx, audioPath)
	if err != nil {
		return "", err
	}
	if len(hashes) == 0 {
		return "", fmt.Errorf("no fingerprints extracted from %s", audioPath)
	}

	var songID string
	err = l.withWriteLock(ctx, func() error {
		id, err := l.storage.RegisterSong(title, artist, youtubeID, int(duration*1000))
		if err != nil {
			return fmt.Errorf("failed to register song: %w", err)
		}
		if err := l.storage.StoreFingerprints(fingerprint.Fingerprint(hashes, id)); err != nil {
			if rbErr := l.storage.DeleteSongByID(id); rbErr != nil {
				l.log.Errorf("rollback of song %s failed: %v", id, rbErr)
			}
			return fmt.Errorf("failed to store fingerprints: %w", err)
		}
		songID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	l.log.Infof("Added song %s with %d hashes", songID, len(hashes))
	return songID, nil
}

// MatchFile ranks library songs against an audio file, best first.
func (l *Library) MatchFile(ctx context.Context, path string) ([]models.MatchResult, error) {
	hashes, _, err := l.hashFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return l.MatchHashes(hashes)
}

// MatchHashes ranks library songs against precomputed query hashes.
func (l *Library) MatchHashes(query []fingerprint.Hash) ([]models.MatchResult, error) {
	if len(query) == 0 {
		return nil, nil
	}
	addresses := fingerprint.Addresses(query)
	db, err := l.storage.GetCouplesByHashes(addresses)
	if err != nil {
		return nil, fmt.Errorf("fetching fingerprints: %w", err)
	}

	matches := fingerprint.Match(query, db)
	results := make([]models.MatchResult, 0, len(matches))
	for _, m := range matches {
		song, err := l.storage.GetSongByID(m.SongID)
		if err != nil {
			l.log.Warnf("Failed to get song %s: %v", m.SongID, err)
			continue
		}
		refCount, err := l.storage.FingerprintCount(m.SongID)
		if err != nil {
			l.log.Warnf("Failed to get fingerprint count for song %s: %v", m.SongID, err)
			refCount = len(addresses)
		}
		results = append(results, models.MatchResult{
			SongID:     m.SongID,
			Title:      song.Title,
			Artist:     song.Artist,
			YouTubeID:  song.YouTubeID,
			Score:      m.Count,
			OffsetMs:   m.OffsetMs,
			Confidence: fingerprint.Confidence(m.Count, len(addresses), refCount),
		})
	}
	return results, nil
}

func (l *Library) GetSong(songID string) (*models.Song, error) {
	s, err := l.storage.GetSongByID(songID)
	if err != nil {
		return nil, err
	}
	song := toModel(*s)
	return &song, nil
}

func (l *Library) ListSongs() ([]models.Song, error) {
	songs, err := l.storage.ListSongs()
	if err != nil {
		return nil, err
	}
	out := make([]models.Song, len(songs))
	for i, s := range songs {
		out[i] = toModel(s)
	}
	return out, nil
}

func (l *Library) DeleteSong(ctx context.Context, songID string) error {
	return l.withWriteLock(ctx, func() error {
		return l.storage.DeleteSongByID(songID)
	})
}

// ClearCache forgets cached recognitions for the recording at source, or
// for every recording when source is empty.
func (l *Library) ClearCache(ctx context.Context, source string) (int64, error) {
	sourceID := ""
	if source != "" {
		sourceID = audio.SourceID(source)
	}
	var n int64
	err := l.withWriteLock(ctx, func() error {
		var err error
		n, err = l.storage.ClearRecognitions(sourceID)
		return err
	})
	return n, err
}

func (l *Library) Close() error {
	return l.storage.Close()
}

func toModel(s storage.Song) models.Song {
	return models.Song{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		YouTubeID:  s.YouTubeID,
		DurationMs: s.DurationMs,
	}
}
