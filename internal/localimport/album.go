package localimport

import (
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
	"github.com/fistopy/fistopy/internal/tags"
)

// Year returns the most common known year among the files.
func (a *Album) Year() int {
	counts := make(map[int]int)
	best := 0
	for _, f := range a.Files {
		y := f.Year()
		if y == 0 {
			continue
		}
		counts[y]++
		if counts[y] > counts[best] || (counts[y] == counts[best] && y < best) {
			best = y
		}
	}
	return best
}

// Genres lists the distinct genres of the files.
func (a *Album) Genres() []string {
	seen := make(map[string]bool)
	var genres []string
	for _, f := range a.Files {
		if f.Genre != "" && !seen[f.Genre] {
			seen[f.Genre] = true
			genres = append(genres, f.Genre)
		}
	}
	return genres
}

// Candidate describes the album for the matcher. Track identifiers are the
// file paths.
func (a *Album) Candidate() match.Candidate {
	c := match.Candidate{
		Source: library.SourceLocal,
		Title:  a.Title,
		Artist: a.Artist,
		Year:   a.Year(),
		Tags:   a.Genres(),
	}
	for i, f := range a.Files {
		artist := ""
		if f.Artist != a.Artist {
			artist = f.Artist
		}
		pos := f.TrackNumber
		if pos == 0 {
			pos = i + 1
		}
		c.Tracks = append(c.Tracks, match.CandidateTrack{
			ExternalID: f.Path,
			Title:      f.Title,
			Artist:     artist,
			Duration:   f.Duration,
			Disc:       discOf(f),
			Position:   pos,
		})
	}
	return c
}

// AlbumWithTracks builds the unsaved library album, carrying over the
// MusicBrainz identifiers found in the tags.
func (a *Album) AlbumWithTracks() library.AlbumWithTracks {
	album := match.NewAlbum(a.Candidate())
	for i := range album.Tracks {
		f := a.Files[i]
		album.Tracks[i].MusicBrainzRecordingID = f.MBRecordingID
		if album.MusicBrainzReleaseID == "" {
			album.MusicBrainzReleaseID = f.MBReleaseID
			album.MusicBrainzReleaseGroupID = f.MBReleaseGroupID
		}
		if f.MBArtistID != "" && len(album.Artists) > 0 && album.Artists[0].MusicBrainzID == "" &&
			f.AlbumArtist == a.Artist {
			album.Artists[0].MusicBrainzID = firstID(f.MBArtistID)
		}
	}
	return album
}

// CoverArt returns the embedded or folder cover of the first file that
// has one.
func (a *Album) CoverArt() []byte {
	for _, f := range a.Files {
		data, _, err := tags.ExtractCoverArt(f.Path)
		if err == nil && len(data) > 0 {
			return data
		}
	}
	return nil
}

// firstID keeps the first of several ";"-joined MusicBrainz identifiers.
func firstID(ids string) string {
	for i := range len(ids) {
		if ids[i] == ';' || ids[i] == '/' {
			return ids[:i]
		}
	}
	return ids
}
