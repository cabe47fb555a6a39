//go:build !js && !wasm

// Package storage persists the reference fingerprint library and the
// recognition cache in a single sqlite file.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

const DefaultDBFile = "setlistdna.sqlite3"

var (
	ErrNilClient    = errors.New("db client is nil")
	ErrSongNotFound = errors.New("song not found")
)

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Song struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Title      string `gorm:"uniqueIndex:idx_song_unique,priority:1;index:idx_song_meta,priority:1" json:"title"`
	Artist     string `gorm:"uniqueIndex:idx_song_unique,priority:2;index:idx_song_meta,priority:2" json:"artist"`
	YouTubeID  string `gorm:"index:idx_youtube_id" json:"youtube_id"`
	DurationMs int    `json:"duration_ms"`
	CreatedAt  time.Time
}

type Fingerprint struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Hash         uint32 `gorm:"index:idx_hash" json:"hash"`
	SongID       string `gorm:"type:varchar(36);index:idx_song" json:"song_id"`
	AnchorTimeMs uint32 `json:"anchor_time_ms"`
}

// Recognition is a cached recognizer outcome for one window of a source.
// Matched is false for a cached no-match.
type Recognition struct {
	Key       string `gorm:"column:cache_key;primaryKey;type:varchar(160)"`
	SourceID  string `gorm:"index:idx_recognition_source"`
	Provider  string
	Start     float64
	Length    float64
	Matched   bool
	Artist    string
	Title     string
	CreatedAt time.Time
}

// RecognitionKey builds the cache key of a window.
func RecognitionKey(sourceID, provider string, start, length float64) string {
	return fmt.Sprintf("%s|%s|%.3f|%.3f", sourceID, provider, start, length)
}

func NewDBClient(dbPath string) (*DBClient, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Fingerprint{}, &Recognition{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return ErrNilClient
	}
	return nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterSong returns the id of the (title, artist) song, creating it when
// missing. An existing song without a YouTube id adopts the given one.
func (c *DBClient) RegisterSong(title, artist, youtubeID string, durationMs int) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	var song Song
	err := c.DB.Where("title = ? AND artist = ?", title, artist).First(&song).Error
	if err == nil {
		if song.YouTubeID == "" && youtubeID != "" {
			if err := c.DB.Model(&song).Update("YouTubeID", youtubeID).Error; err != nil {
				return "", fmt.Errorf("updating youtube_id: %w", err)
			}
		}
		return song.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing song: %w", err)
	}

	song = Song{ID: uuid.NewString(), Title: title, Artist: artist, YouTubeID: youtubeID, DurationMs: durationMs}
	if err := c.DB.Create(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "constraint failed") {
			if fetchErr := c.DB.Where("title = ? AND artist = ?", title, artist).First(&song).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching song after constraint violation: %w", fetchErr)
			}
			return song.ID, nil
		}
		return "", fmt.Errorf("creating song: %w", err)
	}
	return song.ID, nil
}

// DeleteSongByID removes a song and its fingerprints.
func (c *DBClient) DeleteSongByID(songID string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", songID).Delete(&Song{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrSongNotFound, songID)
		}
		return nil
	})
}

func (c *DBClient) StoreFingerprints(fp map[uint32][]models.Couple) error {
	if err := c.ready(); err != nil {
		return err
	}

	entries := make([]Fingerprint, 0, 1024)
	flush := func() error {
		if len(entries) == 0 {
			return nil
		}
		if err := c.DB.CreateInBatches(entries, 500).Error; err != nil {
			return fmt.Errorf("batch insert fingerprints: %w", err)
		}
		entries = entries[:0]
		return nil
	}
	for hash, couples := range fp {
		for _, cou := range couples {
			entries = append(entries, Fingerprint{Hash: hash, SongID: cou.SongID, AnchorTimeMs: cou.AnchorTimeMs})
			if len(entries) >= 1000 {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

// GetCouplesByHashes fetches every stored couple for the given hashes.
func (c *DBClient) GetCouplesByHashes(hashes []uint32) (map[uint32][]models.Couple, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	result := make(map[uint32][]models.Couple)
	const chunk = 500 // stay below sqlite's bound-parameter limit
	for lo := 0; lo < len(hashes); lo += chunk {
		var rows []Fingerprint
		if err := c.DB.Where("hash IN ?", hashes[lo:min(lo+chunk, len(hashes))]).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("batch querying fingerprints: %w", err)
		}
		for _, r := range rows {
			result[r.Hash] = append(result[r.Hash], models.Couple{SongID: r.SongID, AnchorTimeMs: r.AnchorTimeMs})
		}
	}
	return result, nil
}

func (c *DBClient) GetSongByID(songID string) (*Song, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var song Song
	if err := c.DB.Where("id = ?", songID).First(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
		}
		return nil, err
	}
	return &song, nil
}

func (c *DBClient) ListSongs() ([]Song, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var songs []Song
	if err := c.DB.Order("artist, title").Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

func (c *DBClient) FingerprintCount(songID string) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	var count int64
	if err := c.DB.Model(&Fingerprint{}).Where("song_id = ?", songID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// GetRecognition looks up a cached outcome. found is false on a miss.
func (c *DBClient) GetRecognition(key string) (rec *Recognition, found bool, err error) {
	if err := c.ready(); err != nil {
		return nil, false, err
	}
	var row Recognition
	err = c.DB.Where("cache_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying recognition cache: %w", err)
	}
	return &row, true, nil
}

// PutRecognition inserts or replaces a cached outcome.
func (c *DBClient) PutRecognition(rec *Recognition) error {
	if err := c.ready(); err != nil {
		return err
	}
	if rec.Key == "" {
		rec.Key = RecognitionKey(rec.SourceID, rec.Provider, rec.Start, rec.Length)
	}
	return c.DB.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

// ClearRecognitions drops the cache of one source, or all of it when
// sourceID is empty.
func (c *DBClient) ClearRecognitions(sourceID string) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	q := c.DB.Session(&gorm.Session{AllowGlobalUpdate: true})
	if sourceID != "" {
		q = q.Where("source_id = ?", sourceID)
	}
	res := q.Delete(&Recognition{})
	return res.RowsAffected, res.Error
}
