package setlistdna

import (
	"context"

	"github.com/himanishpuri/SetlistDNA/internal/storage"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/recognizer"
)

// Detector returns candidate boundary lists (seconds) and the recording
// duration for a source file.
type Detector interface {
	Detect(ctx context.Context, source string) (candidates [][]float64, duration float64, err error)
}

// SegmentExtractor cuts a fixed-length window out of a source file.
type SegmentExtractor interface {
	Extract(ctx context.Context, source string, start, length float64) (*audio.Segment, error)
}

type Recognizer = recognizer.Recognizer

// cacheLookup is implemented by recognizers that can answer a window
// without audio.
type cacheLookup interface {
	Lookup(sourceID string, start, length float64) (*models.Identity, bool)
}

type Storage interface {
	RegisterSong(title, artist, youtubeID string, durationMs int) (string, error)
	StoreFingerprints(fingerprints map[uint32][]models.Couple) error
	GetCouplesByHashes(hashes []uint32) (map[uint32][]models.Couple, error)
	DeleteSongByID(songID string) error
	GetSongByID(songID string) (*storage.Song, error)
	FingerprintCount(songID string) (int, error)
	ListSongs() ([]storage.Song, error)
	GetRecognition(key string) (*storage.Recognition, bool, error)
	PutRecognition(rec *storage.Recognition) error
	ClearRecognitions(sourceID string) (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
