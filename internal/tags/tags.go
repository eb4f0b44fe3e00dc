// Package tags reads and writes music file metadata. Reading covers every
// format dhowden/tag understands; writing supports MP3 (ID3v2.4) and FLAC
// (Vorbis comments).
package tags

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fistopy/fistopy/internal/library"
)

// File extensions recognised as music.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtOPUS = ".opus"
	ExtOGG  = ".ogg"
	ExtM4A  = ".m4a"
)

const id3Magic = "ID3"

// ErrUnsupported is returned when writing a format other than MP3 or FLAC.
var ErrUnsupported = errors.New("unsupported file format")

// Tag holds the metadata of one music file.
type Tag struct {
	Path        string
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string

	TrackNumber int
	TotalTracks int
	DiscNumber  int
	TotalDiscs  int

	Date         string // YYYY, YYYY-MM or YYYY-MM-DD
	OriginalDate string

	Duration time.Duration // zero when the format does not expose it cheaply

	ISRC             string
	MBArtistID       string
	MBReleaseID      string
	MBReleaseGroupID string
	MBRecordingID    string

	// CoverArt is written when set; Read leaves it empty.
	CoverArt []byte
}

// Year returns the year of the best known release date.
func (t *Tag) Year() int {
	return library.YearOf(library.BestDate(t.OriginalDate, t.Date))
}

// IsMusicFile reports whether path has a music file extension.
func IsMusicFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtFLAC, ExtOPUS, ExtOGG, ExtM4A:
		return true
	}
	return false
}

// CanWrite reports whether Write supports path.
func CanWrite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtFLAC:
		return true
	}
	return false
}

// parseNumberPair parses "N" or "N/M".
func parseNumberPair(s string) (num, total int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	n, t, found := strings.Cut(s, "/")
	num, _ = strconv.Atoi(strings.TrimSpace(n))
	if found {
		total, _ = strconv.Atoi(strings.TrimSpace(t))
	}
	return num, total
}

func formatNumberPair(num, total int) string {
	if total > 0 {
		return strconv.Itoa(num) + "/" + strconv.Itoa(total)
	}
	return strconv.Itoa(num)
}
