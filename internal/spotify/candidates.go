package spotify

import (
	"context"
	"strings"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
)

// maxCandidates bounds the album lookups per AlbumCandidates call.
const maxCandidates = 3

// Candidate describes the album for the matcher. Track artists equal to
// the album artist are left blank so they default to the album credit.
func (a *Album) Candidate() match.Candidate {
	c := match.Candidate{
		Source:     library.SourceSpotify,
		ExternalID: a.ID,
		Title:      a.Title,
		Artist:     a.Artist,
		Year:       a.Year(),
		ImageURL:   a.ImageURL,
	}
	for _, g := range a.Genres {
		c.Tags = append(c.Tags, strings.ToLower(g))
	}
	for _, t := range a.Tracks {
		artist := t.Artist
		if artist == a.Artist {
			artist = ""
		}
		c.Tracks = append(c.Tracks, match.CandidateTrack{
			ExternalID: t.ID,
			Title:      t.Title,
			Artist:     artist,
			Duration:   t.Duration,
			Disc:       t.Disc,
			Position:   t.Position,
		})
	}
	return c
}

// AlbumWithTracks converts the album into an unsaved library album.
func (a *Album) AlbumWithTracks() library.AlbumWithTracks {
	out := match.NewAlbum(a.Candidate())
	if len(out.Artists) == 1 && len(a.ArtistIDs) == 1 {
		out.Artists[0].SpotifyID = a.ArtistIDs[0]
	}
	return out
}

// AlbumCandidates searches albums by artist and title and loads the
// best few with their tracks.
func (c *Client) AlbumCandidates(ctx context.Context, artist, title string) ([]match.Candidate, error) {
	var q []string
	if title != "" {
		q = append(q, "album:"+title)
	}
	if artist != "" {
		q = append(q, "artist:"+artist)
	}
	if len(q) == 0 {
		return nil, nil
	}

	page, err := c.SearchAlbums(ctx, strings.Join(q, " "), "")
	if err != nil {
		return nil, err
	}

	var cands []match.Candidate
	for _, hit := range page.Items {
		if len(cands) >= maxCandidates {
			break
		}
		a, err := c.Album(ctx, hit.ID)
		if err != nil {
			return cands, err
		}
		cands = append(cands, a.Candidate())
	}
	return cands, nil
}
