package musicbrainz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
)

// maxCandidateDetails bounds the release lookups per AlbumCandidates call;
// each one costs a rate-limited second.
const maxCandidateDetails = 3

// Candidate describes the release for the matcher. Genres become tags.
func (c *Client) Candidate(d *ReleaseDetails) match.Candidate {
	cand := match.Candidate{
		Source:         library.SourceMusicBrainz,
		ExternalID:     d.ID,
		ReleaseGroupID: d.ReleaseGroupID,
		Title:          d.Title,
		Artist:         d.Artist,
		Year:           library.YearOf(library.BestDate(d.FirstReleaseDate, d.Date)),
		Tags:           normalizeGenres(d.Genres),
	}
	if d.ID != "" {
		cand.ImageURL = c.CoverArtURL(d.ID, CoverSize)
	}
	for _, t := range d.Tracks {
		cand.Tracks = append(cand.Tracks, match.CandidateTrack{
			ExternalID: t.RecordingID,
			Title:      t.Title,
			Artist:     t.Artist,
			Duration:   time.Duration(t.Length) * time.Millisecond,
			Disc:       t.DiscNumber,
			Position:   t.Position,
		})
	}
	return cand
}

// AlbumWithTracks converts the release into an unsaved album.
func (c *Client) AlbumWithTracks(d *ReleaseDetails) library.AlbumWithTracks {
	a := match.NewAlbum(c.Candidate(d))
	if len(a.Artists) == 1 && d.ArtistID != "" {
		a.Artists[0].MusicBrainzID = d.ArtistID
	}
	return a
}

// AlbumCandidates searches releases by artist and title and returns the
// best few with their tracks.
func (c *Client) AlbumCandidates(ctx context.Context, artist, title string) ([]match.Candidate, error) {
	page, err := c.SearchReleasesByArtistAlbum(ctx, artist, title)
	if err != nil {
		return nil, err
	}

	var cands []match.Candidate
	seenGroups := make(map[string]bool)
	for _, r := range page.Releases {
		if len(cands) >= maxCandidateDetails {
			break
		}
		// one release per group is enough to compare
		if r.ReleaseGroupID != "" {
			if seenGroups[r.ReleaseGroupID] {
				continue
			}
			seenGroups[r.ReleaseGroupID] = true
		}
		d, err := c.GetRelease(ctx, r.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return cands, err
		}
		cands = append(cands, c.Candidate(d))
	}
	return cands, nil
}

func normalizeGenres(genres []string) []string {
	var tags []string
	for _, g := range genres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			tags = append(tags, g)
		}
	}
	return tags
}
