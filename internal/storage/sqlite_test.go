package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_setlist.sqlite3")

	client, err := NewDBClient(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, dbPath
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)
	require.NotNil(t, client.DB)
	require.NotNil(t, client.db)

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestNewDBClientCreatesParentDir(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")
	client, err := NewDBClient(customPath)
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(customPath)
	assert.NoError(t, err)
}

func TestRegisterSong(t *testing.T) {
	client, _ := setupTestDB(t)

	songID, err := client.RegisterSong("Test Song", "Test Artist", "youtube123", 180000)
	require.NoError(t, err)
	assert.Len(t, songID, 36)

	song, err := client.GetSongByID(songID)
	require.NoError(t, err)
	assert.Equal(t, "Test Song", song.Title)
	assert.Equal(t, "Test Artist", song.Artist)
	assert.Equal(t, "youtube123", song.YouTubeID)
	assert.Equal(t, 180000, song.DurationMs)
}

func TestRegisterSongIdempotent(t *testing.T) {
	client, _ := setupTestDB(t)

	first, err := client.RegisterSong("Song", "Artist", "", 1000)
	require.NoError(t, err)
	second, err := client.RegisterSong("Song", "Artist", "", 1000)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	songs, err := client.ListSongs()
	require.NoError(t, err)
	assert.Len(t, songs, 1)
}

func TestRegisterSongUpdatesYouTubeID(t *testing.T) {
	client, _ := setupTestDB(t)

	id, err := client.RegisterSong("Song", "Artist", "", 1000)
	require.NoError(t, err)
	_, err = client.RegisterSong("Song", "Artist", "yt-42", 1000)
	require.NoError(t, err)

	song, err := client.GetSongByID(id)
	require.NoError(t, err)
	assert.Equal(t, "yt-42", song.YouTubeID)
}

func TestDeleteSongWithFingerprints(t *testing.T) {
	client, _ := setupTestDB(t)

	id, err := client.RegisterSong("Song", "Artist", "", 1000)
	require.NoError(t, err)
	require.NoError(t, client.StoreFingerprints(map[uint32][]models.Couple{
		1: {{SongID: id, AnchorTimeMs: 10}},
		2: {{SongID: id, AnchorTimeMs: 20}, {SongID: id, AnchorTimeMs: 30}},
	}))
	count, err := client.FingerprintCount(id)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, client.DeleteSongByID(id))

	count, err = client.FingerprintCount(id)
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = client.GetSongByID(id)
	assert.ErrorIs(t, err, ErrSongNotFound)

	assert.ErrorIs(t, client.DeleteSongByID(id), ErrSongNotFound)
}

func TestStoreFingerprintsLargeBatch(t *testing.T) {
	client, _ := setupTestDB(t)
	id, err := client.RegisterSong("Big", "Artist", "", 1000)
	require.NoError(t, err)

	fp := make(map[uint32][]models.Couple)
	for i := range 2500 {
		fp[uint32(i)] = []models.Couple{{SongID: id, AnchorTimeMs: uint32(i * 10)}}
	}
	require.NoError(t, client.StoreFingerprints(fp))

	count, err := client.FingerprintCount(id)
	require.NoError(t, err)
	assert.Equal(t, 2500, count)

	hashes := make([]uint32, 0, 1200)
	for i := range 1200 {
		hashes = append(hashes, uint32(i))
	}
	got, err := client.GetCouplesByHashes(hashes)
	require.NoError(t, err)
	assert.Len(t, got, 1200)
	assert.Equal(t, uint32(70), got[7][0].AnchorTimeMs)
}

func TestGetCouplesByHashesNotFound(t *testing.T) {
	client, _ := setupTestDB(t)
	got, err := client.GetCouplesByHashes([]uint32{999})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = client.GetCouplesByHashes(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecognitionCache(t *testing.T) {
	client, _ := setupTestDB(t)

	key := RecognitionKey("src1", "songrec", 5, 60)
	_, found, err := client.GetRecognition(key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.PutRecognition(&Recognition{
		SourceID: "src1", Provider: "songrec", Start: 5, Length: 60,
		Matched: true, Artist: "Artist", Title: "Title",
	}))
	require.NoError(t, client.PutRecognition(&Recognition{
		SourceID: "src1", Provider: "songrec", Start: 45, Length: 60,
	}))

	rec, found, err := client.GetRecognition(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.Matched)
	assert.Equal(t, "Artist", rec.Artist)

	miss, found, err := client.GetRecognition(RecognitionKey("src1", "songrec", 45, 60))
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, miss.Matched)

	// replacing an entry keeps one row
	require.NoError(t, client.PutRecognition(&Recognition{
		SourceID: "src1", Provider: "songrec", Start: 5, Length: 60,
		Matched: true, Artist: "Other", Title: "Title",
	}))
	rec, _, err = client.GetRecognition(key)
	require.NoError(t, err)
	assert.Equal(t, "Other", rec.Artist)

	n, err := client.ClearRecognitions("src1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestClose(t *testing.T) {
	client, err := NewDBClient(filepath.Join(t.TempDir(), "close.db"))
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	var nilClient *DBClient
	assert.NoError(t, nilClient.Close())
}

func TestNilClientMethods(t *testing.T) {
	var c *DBClient
	_, err := c.RegisterSong("a", "b", "", 0)
	assert.ErrorIs(t, err, ErrNilClient)
	assert.ErrorIs(t, c.DeleteSongByID("x"), ErrNilClient)
	assert.ErrorIs(t, c.StoreFingerprints(nil), ErrNilClient)
	_, err = c.GetCouplesByHashes([]uint32{1})
	assert.ErrorIs(t, err, ErrNilClient)
	_, _, err = c.GetRecognition("k")
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestConcurrentOperations(t *testing.T) {
	client, _ := setupTestDB(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := client.PutRecognition(&Recognition{
				SourceID: "src", Provider: "p", Start: float64(i * 60), Length: 60, Matched: true,
				Artist: fmt.Sprintf("Artist %d", i), Title: "T",
			}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	n, err := client.ClearRecognitions("")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}
