package lastfm

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
)

var yearRe = regexp.MustCompile(`\b(1[89]\d\d|20\d\d)\b`)

// releaseYear extracts the year of dates like "6 Apr 1999, 00:00".
func releaseYear(date string) int {
	m := yearRe.FindString(date)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// Candidate describes the album for the matcher. Last.fm has no track
// identifiers, so only the album carries one: its URL.
func (a *AlbumInfo) Candidate() match.Candidate {
	c := match.Candidate{
		Source:     library.SourceLastfm,
		ExternalID: a.URL,
		Title:      a.Name,
		Artist:     a.Artist,
		Year:       releaseYear(a.ReleaseDate),
		ImageURL:   a.ImageURL,
	}
	for _, tag := range a.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			c.Tags = append(c.Tags, tag)
		}
	}
	for i, t := range a.Tracks {
		artist := t.Artist
		if strings.EqualFold(artist, a.Artist) {
			artist = ""
		}
		c.Tracks = append(c.Tracks, match.CandidateTrack{
			Title:    t.Name,
			Artist:   artist,
			Duration: time.Duration(t.Duration) * time.Second,
			Disc:     1,
			Position: i + 1,
		})
	}
	return c
}

// AlbumCandidates looks the album up by artist and title.
func (c *Client) AlbumCandidates(ctx context.Context, artist, title string) ([]match.Candidate, error) {
	info, err := c.GetAlbumInfo(ctx, artist, title)
	if err != nil {
		return nil, err
	}
	if info.Name == "" {
		return nil, nil
	}
	return []match.Candidate{info.Candidate()}, nil
}
