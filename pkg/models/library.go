package models

// Couple is one landmark of a reference song as stored under its hash
// address in the fingerprint library.
type Couple struct {
	SongID       string
	AnchorTimeMs uint32
}

// Match is the best offset-aligned vote for one song. OffsetMs is the
// reference anchor time minus the query anchor time, so a clip cut 2s into
// the song matches at +2000.
type Match struct {
	SongID   string
	OffsetMs int32
	Count    int
}
