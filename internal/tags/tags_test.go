package tags

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTestMP3 writes a single MPEG1 Layer3 frame and optional tags.
func createTestMP3(t *testing.T, dir string, tags *Tag) string {
	t.Helper()
	path := filepath.Join(dir, "test.mp3")

	frame := make([]byte, 417)
	frame[0] = 0xff
	frame[1] = 0xfb
	frame[2] = 0x90
	if err := os.WriteFile(path, frame, 0o600); err != nil {
		t.Fatalf("create test MP3: %v", err)
	}
	if tags != nil {
		if err := Write(path, tags); err != nil {
			t.Fatalf("write MP3 tags: %v", err)
		}
	}
	return path
}

// createTestFLAC writes a FLAC header with a 10 s STREAMINFO block
// (44.1 kHz, 441000 samples) followed by a frame sync code.
func createTestFLAC(t *testing.T, dir string, tags *Tag) string {
	t.Helper()
	path := filepath.Join(dir, "test.flac")

	streamInfo := make([]byte, 34)
	streamInfo[1], streamInfo[3] = 0x10, 0x10 // block sizes 4096
	streamInfo[10] = 0x0A                     // 44100 Hz = 0x0AC44
	streamInfo[11] = 0xC4
	streamInfo[12] = 0x42 // rate low nibble, 2 channels
	streamInfo[13] = 0xF0 // 16 bits per sample
	copy(streamInfo[14:18], []byte{0x00, 0x06, 0xBA, 0xA8})

	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, 34})
	buf.Write(streamInfo)
	buf.Write([]byte{0xFF, 0xF8, 0x69, 0x08, 0x00, 0x00})
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("create test FLAC: %v", err)
	}
	if tags != nil {
		if err := Write(path, tags); err != nil {
			t.Fatalf("write FLAC tags: %v", err)
		}
	}
	return path
}

func fullTestTags() *Tag {
	return &Tag{
		Title:            "Airbag",
		Artist:           "Radiohead",
		AlbumArtist:      "Radiohead",
		Album:            "OK Computer",
		Genre:            "Rock",
		TrackNumber:      1,
		TotalTracks:      12,
		DiscNumber:       1,
		TotalDiscs:       1,
		Date:             "2017-06-23",
		OriginalDate:     "1997-05-21",
		ISRC:             "GBAYE9700377",
		MBArtistID:       "a74b1b7f-71a5-4011-9441-d0b5e4122711",
		MBReleaseID:      "release-id",
		MBReleaseGroupID: "group-id",
		MBRecordingID:    "recording-id",
	}
}

func verifyTags(t *testing.T, got, want *Tag) {
	t.Helper()
	check := func(field, g, w string) {
		if g != w {
			t.Errorf("%s = %q, want %q", field, g, w)
		}
	}
	check("Title", got.Title, want.Title)
	check("Artist", got.Artist, want.Artist)
	check("AlbumArtist", got.AlbumArtist, want.AlbumArtist)
	check("Album", got.Album, want.Album)
	check("Genre", got.Genre, want.Genre)
	check("Date", got.Date, want.Date)
	check("OriginalDate", got.OriginalDate, want.OriginalDate)
	check("ISRC", got.ISRC, want.ISRC)
	check("MBArtistID", got.MBArtistID, want.MBArtistID)
	check("MBReleaseID", got.MBReleaseID, want.MBReleaseID)
	check("MBReleaseGroupID", got.MBReleaseGroupID, want.MBReleaseGroupID)
	check("MBRecordingID", got.MBRecordingID, want.MBRecordingID)
	if got.TrackNumber != want.TrackNumber || got.TotalTracks != want.TotalTracks {
		t.Errorf("track = %d/%d, want %d/%d", got.TrackNumber, got.TotalTracks, want.TrackNumber, want.TotalTracks)
	}
	if got.DiscNumber != want.DiscNumber {
		t.Errorf("disc = %d, want %d", got.DiscNumber, want.DiscNumber)
	}
}

func TestWriteRead_MP3(t *testing.T) {
	want := fullTestTags()
	want.Duration = 4*time.Minute + 44*time.Second
	path := createTestMP3(t, t.TempDir(), want)

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	verifyTags(t, got, want)
	if got.Duration != want.Duration {
		t.Errorf("Duration = %v, want %v", got.Duration, want.Duration)
	}
	if got.Year() != 1997 {
		t.Errorf("Year() = %d, want 1997", got.Year())
	}
}

func TestWriteRead_FLAC(t *testing.T) {
	want := fullTestTags()
	path := createTestFLAC(t, t.TempDir(), want)

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	verifyTags(t, got, want)
	if got.Duration != 10*time.Second {
		t.Errorf("Duration = %v, want 10s", got.Duration)
	}
}

func TestWrite_FLAC_ReplacesComments(t *testing.T) {
	path := createTestFLAC(t, t.TempDir(), &Tag{
		Title:      "Old Title",
		Artist:     "Old Artist",
		MBArtistID: "old-uuid",
	})
	if err := Write(path, &Tag{Title: "New Title", Artist: "New Artist"}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got.Title != "New Title" {
		t.Errorf("Title = %q, want %q", got.Title, "New Title")
	}
	if got.MBArtistID != "" {
		t.Errorf("MBArtistID = %q, want empty", got.MBArtistID)
	}
}

func TestWrite_MP3_ClearsExisting(t *testing.T) {
	path := createTestMP3(t, t.TempDir(), &Tag{Title: "Old", Artist: "A", ISRC: "X"})
	if err := Write(path, &Tag{Title: "New", Artist: "A"}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got.Title != "New" || got.ISRC != "" {
		t.Errorf("got title %q isrc %q, want New and empty", got.Title, got.ISRC)
	}
}

func TestRead_Fallbacks(t *testing.T) {
	dir := t.TempDir()
	path := createTestMP3(t, dir, &Tag{Artist: "Portishead", Album: "Dummy"})

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got.Title != "test" {
		t.Errorf("Title = %q, want file name", got.Title)
	}
	if got.AlbumArtist != "Portishead" {
		t.Errorf("AlbumArtist = %q, want artist fallback", got.AlbumArtist)
	}
}

func TestWrite_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.opus")
	if err := os.WriteFile(path, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, &Tag{Title: "x"}); err == nil {
		t.Error("Write() on opus should fail")
	}
	if err := Write(filepath.Join(t.TempDir(), "missing.mp3"), &Tag{}); err == nil {
		t.Error("Write() on a missing file should fail")
	}
}

func TestIsMusicFile(t *testing.T) {
	tests := map[string]bool{
		"a.mp3": true, "b.FLAC": true, "c.opus": true, "d.m4a": true,
		"cover.jpg": false, "notes": false,
	}
	for path, want := range tests {
		if got := IsMusicFile(path); got != want {
			t.Errorf("IsMusicFile(%q) = %v, want %v", path, got, want)
		}
	}
	if CanWrite("x.opus") || !CanWrite("x.Mp3") {
		t.Error("CanWrite mismatch")
	}
}

func TestParseNumberPair(t *testing.T) {
	tests := []struct {
		in         string
		num, total int
	}{
		{"", 0, 0},
		{"5", 5, 0},
		{"5/12", 5, 12},
		{" 3 / 9 ", 3, 9},
	}
	for _, tt := range tests {
		n, tot := parseNumberPair(tt.in)
		if n != tt.num || tot != tt.total {
			t.Errorf("parseNumberPair(%q) = %d, %d; want %d, %d", tt.in, n, tot, tt.num, tt.total)
		}
	}
}
