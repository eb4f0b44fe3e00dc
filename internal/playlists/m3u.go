package playlists

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fistopy/fistopy/internal/library"
)

// M3UEntry is one line pair of an extended M3U file.
type M3UEntry struct {
	Location string
	Title    string // "Artist - Title"
	Duration time.Duration
}

// EntryFor builds the M3U entry of a library track. Local files win over
// streaming links; ok is false when the track has no location at all.
func EntryFor(t library.TrackCombo) (M3UEntry, bool) {
	e := M3UEntry{Title: t.Title, Duration: t.Duration}
	if artist := t.ArtistString(); artist != "" {
		e.Title = artist + " - " + t.Title
	}
	switch {
	case t.LocalPath != "":
		e.Location = t.LocalPath
	case t.YoutubeVideoID != "":
		e.Location = "https://music.youtube.com/watch?v=" + t.YoutubeVideoID
	case t.SpotifyID != "":
		e.Location = "spotify:track:" + t.SpotifyID
	default:
		return M3UEntry{}, false
	}
	return e, true
}

// WriteM3U writes an extended M3U playlist.
func WriteM3U(w io.Writer, entries []M3UEntry) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("#EXTM3U\n"); err != nil {
		return err
	}
	for _, e := range entries {
		if e.Location == "" {
			continue
		}
		secs := -1
		if e.Duration > 0 {
			secs = int(e.Duration.Round(time.Second) / time.Second)
		}
		if _, err := fmt.Fprintf(bw, "#EXTINF:%d,%s\n%s\n", secs, e.Title, e.Location); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportM3U writes a playlist as M3U. It returns how many tracks were
// skipped for lack of a location.
func (p *Playlists) ExportM3U(ctx context.Context, playlistID int64, w io.Writer) (int, error) {
	tracks, err := p.Tracks(ctx, playlistID)
	if err != nil {
		return 0, err
	}
	entries := make([]M3UEntry, 0, len(tracks))
	skipped := 0
	for _, t := range tracks {
		e, ok := EntryFor(t)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	return skipped, WriteM3U(w, entries)
}
