// Package match scores externally fetched albums against local ones and
// merges the best candidate into the local album.
package match

import (
	"time"

	"github.com/fistopy/fistopy/internal/library"
)

// Candidate is an album as described by an external backend.
type Candidate struct {
	Source         library.Source
	ExternalID     string
	ReleaseGroupID string // MusicBrainz only
	Title          string
	Artist         string
	Year           int
	ImageURL       string
	Tags           []string
	Tracks         []CandidateTrack
}

// CandidateTrack is a track of a Candidate.
type CandidateTrack struct {
	ExternalID string
	Title      string
	Artist     string
	Duration   time.Duration
	Disc       int
	Position   int
}

// CandidateFromAlbum describes a stored album as a candidate of src.
func CandidateFromAlbum(a library.AlbumWithTracks, src library.Source) Candidate {
	c := Candidate{
		Source:     src,
		ExternalID: a.ExternalID(src),
		Title:      a.Title,
		Artist:     a.ArtistString(),
		Year:       a.Year,
		ImageURL:   a.ImageURL,
		Tags:       append([]string(nil), a.Tags...),
	}
	if src == library.SourceMusicBrainz {
		c.ReleaseGroupID = a.MusicBrainzReleaseGroupID
	}
	for _, t := range a.Tracks {
		c.Tracks = append(c.Tracks, CandidateTrack{
			ExternalID: t.ExternalID(src),
			Title:      t.Title,
			Artist:     t.ArtistString(),
			Duration:   t.Duration,
			Disc:       t.Disc,
			Position:   t.Position,
		})
	}
	return c
}

// NewAlbum builds an unsaved album from a candidate.
func NewAlbum(c Candidate) library.AlbumWithTracks {
	a := library.AlbumWithTracks{
		AlbumCombo: library.AlbumCombo{
			Album: library.Album{
				Title:    c.Title,
				Year:     c.Year,
				ImageURL: c.ImageURL,
			},
			Artists: library.ArtistsFromNames(c.Artist),
			Tags:    append([]string(nil), c.Tags...),
		},
	}
	a.SetExternalID(c.Source, c.ExternalID)
	if c.Source == library.SourceMusicBrainz {
		a.MusicBrainzReleaseGroupID = c.ReleaseGroupID
	}
	if c.Source == library.SourceLocal {
		a.IsLocal = true
	}
	for _, ct := range c.Tracks {
		a.Tracks = append(a.Tracks, newTrack(c.Source, ct))
	}
	return a
}

func newTrack(src library.Source, ct CandidateTrack) library.TrackCombo {
	t := library.TrackCombo{
		Track: library.Track{
			Title:    ct.Title,
			Duration: ct.Duration,
			Disc:     ct.Disc,
			Position: ct.Position,
		},
		Artists: library.ArtistsFromNames(ct.Artist),
	}
	t.SetExternalID(src, ct.ExternalID)
	return t
}
