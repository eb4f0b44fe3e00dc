package youtube

import (
	"context"
	"strings"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
)

// maxCandidates bounds the playlists loaded per AlbumCandidates call.
const maxCandidates = 2

// Candidate reads the playlist as an album: artist and album come from
// the playlist title and channel, track titles are cleaned of numbering
// and artist prefixes.
func (p *PlaylistCombo) Candidate() match.Candidate {
	artist, album := SplitAlbumTitle(p.Title, p.Channel)
	c := match.Candidate{
		Source:     library.SourceYouTube,
		ExternalID: p.ID,
		Title:      album,
		Artist:     artist,
		ImageURL:   p.ThumbnailURL,
	}
	for i, v := range p.Videos {
		trackArtist := ""
		if ch := ChannelArtist(v.Channel); ch != "" && !strings.EqualFold(ch, artist) &&
			strings.HasSuffix(v.Channel, " - Topic") {
			trackArtist = ch
		}
		c.Tracks = append(c.Tracks, match.CandidateTrack{
			ExternalID: v.ID,
			Title:      CleanTrackTitle(v.Title, artist),
			Artist:     trackArtist,
			Duration:   v.Duration,
			Disc:       1,
			Position:   i + 1,
		})
	}
	return c
}

// AlbumWithTracks converts the playlist into an unsaved library album.
func (p *PlaylistCombo) AlbumWithTracks() library.AlbumWithTracks {
	return match.NewAlbum(p.Candidate())
}

// AlbumCandidates searches playlists for "artist title" and loads the
// first few.
func (c *Client) AlbumCandidates(ctx context.Context, artist, title string) ([]match.Candidate, error) {
	q := strings.TrimSpace(artist + " " + title)
	if q == "" {
		return nil, nil
	}
	page, err := c.SearchPlaylists(ctx, q, "")
	if err != nil {
		return nil, err
	}

	var cands []match.Candidate
	for _, p := range page.Items {
		if len(cands) >= maxCandidates {
			break
		}
		combo, err := c.PlaylistCombo(ctx, p.ID)
		if err != nil {
			return cands, err
		}
		cands = append(cands, combo.Candidate())
	}
	return cands, nil
}
