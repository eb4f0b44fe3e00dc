// Package spotify reads album metadata from the Spotify Web API using the
// client-credentials flow. No user account is involved.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/holder"
	"github.com/fistopy/fistopy/internal/library"
)

// PageSize is the number of albums per search page.
const PageSize = 20

// ErrNotConfigured is returned when no client credentials are set.
var ErrNotConfigured = errors.New("spotify client id and secret not configured")

// Album is a Spotify album with its tracks when fully loaded.
type Album struct {
	ID          string
	Title       string
	Artist      string
	ArtistIDs   []string
	ReleaseDate string
	ImageURL    string
	Genres      []string
	Tracks      []Track
}

// Track is a track of an Album.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Duration time.Duration
	Disc     int
	Position int
}

// Client queries the Spotify catalogue.
type Client struct {
	api    *spotify.Client
	market string
}

// New creates a client authenticated with client credentials. The token
// is fetched lazily and refreshed by the transport.
func New(ctx context.Context, cfg config.SpotifyConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return NewWithHTTP(cc.Client(ctx), cfg.Market), nil
}

// NewWithHTTP creates a client over an already authenticated HTTP client.
func NewWithHTTP(hc *http.Client, market string, opts ...spotify.ClientOption) *Client {
	return &Client{
		api:    spotify.New(hc, opts...),
		market: market,
	}
}

func (c *Client) options(extra ...spotify.RequestOption) []spotify.RequestOption {
	if c.market != "" {
		extra = append(extra, spotify.Market(c.market))
	}
	return extra
}

// SearchAlbums searches albums. The cursor is the result offset.
func (c *Client) SearchAlbums(ctx context.Context, query, cursor string) (holder.Page[Album], error) {
	offset, _ := strconv.Atoi(cursor)
	res, err := c.api.Search(ctx, query, spotify.SearchTypeAlbum,
		c.options(spotify.Limit(PageSize), spotify.Offset(offset))...)
	if err != nil {
		return holder.Page[Album]{}, fmt.Errorf("search albums: %w", err)
	}
	if res.Albums == nil {
		return holder.Page[Album]{}, nil
	}
	return albumPage(res.Albums), nil
}

// ArtistAlbums lists an artist's albums. The cursor is the result offset.
func (c *Client) ArtistAlbums(ctx context.Context, artistID, cursor string) (holder.Page[Album], error) {
	offset, _ := strconv.Atoi(cursor)
	page, err := c.api.GetArtistAlbums(ctx, spotify.ID(artistID),
		[]spotify.AlbumType{spotify.AlbumTypeAlbum},
		c.options(spotify.Limit(PageSize), spotify.Offset(offset))...)
	if err != nil {
		return holder.Page[Album]{}, fmt.Errorf("artist albums: %w", err)
	}
	return albumPage(page), nil
}

func albumPage(p *spotify.SimpleAlbumPage) holder.Page[Album] {
	out := holder.Page[Album]{Total: int(p.Total)}
	for i := range p.Albums {
		out.Items = append(out.Items, convertSimpleAlbum(&p.Albums[i]))
	}
	if next := int(p.Offset) + len(p.Albums); p.Next != "" && len(p.Albums) > 0 && next < int(p.Total) {
		out.Next = strconv.Itoa(next)
	}
	return out
}

// Album fetches an album with all of its track pages.
func (c *Client) Album(ctx context.Context, id string) (*Album, error) {
	full, err := c.api.GetAlbum(ctx, spotify.ID(id), c.options()...)
	if err != nil {
		return nil, fmt.Errorf("get album %s: %w", id, err)
	}

	a := convertSimpleAlbum(&full.SimpleAlbum)
	a.Genres = full.Genres

	tracks := &full.Tracks
	for {
		for i := range tracks.Tracks {
			a.Tracks = append(a.Tracks, convertTrack(&tracks.Tracks[i]))
		}
		err := c.api.NextPage(ctx, tracks)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("album %s tracks: %w", id, err)
		}
	}
	return &a, nil
}

func convertSimpleAlbum(s *spotify.SimpleAlbum) Album {
	a := Album{
		ID:          s.ID.String(),
		Title:       s.Name,
		Artist:      artistNames(s.Artists),
		ReleaseDate: s.ReleaseDate,
	}
	for _, ar := range s.Artists {
		a.ArtistIDs = append(a.ArtistIDs, ar.ID.String())
	}
	// images come largest first
	if len(s.Images) > 0 {
		a.ImageURL = s.Images[0].URL
	}
	return a
}

func convertTrack(t *spotify.SimpleTrack) Track {
	return Track{
		ID:       t.ID.String(),
		Title:    t.Name,
		Artist:   artistNames(t.Artists),
		Duration: time.Duration(t.Duration) * time.Millisecond,
		Disc:     int(t.DiscNumber),
		Position: int(t.TrackNumber),
	}
}

func artistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Year returns the release year, 0 if unknown.
func (a Album) Year() int {
	return library.YearOf(a.ReleaseDate)
}
