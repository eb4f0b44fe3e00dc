// Package lastfm wraps the Last.fm API: scrobbling, similar artists and
// top tracks for radio, and user top albums and album info for import.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shkh/lastfm-go/lastfm"

	"github.com/fistopy/fistopy/internal/config"
)

// ErrNotAuthenticated is returned when an operation requires authentication.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNoUser is returned when an operation needs a username and none is set.
var ErrNoUser = errors.New("no last.fm username configured")

// Client wraps the Last.fm API.
type Client struct {
	api        *lastfm.Api
	apiKey     string
	sessionKey string
	username   string
}

// New creates a client from the config section. A session key enables
// scrobbling.
func New(cfg config.LastfmConfig) *Client {
	c := &Client{
		api:      lastfm.New(cfg.APIKey, cfg.APISecret),
		apiKey:   cfg.APIKey,
		username: cfg.Username,
	}
	if cfg.SessionKey != "" {
		c.SetSessionKey(cfg.SessionKey)
	}
	return c
}

// SetSessionKey sets the authenticated session key.
func (c *Client) SetSessionKey(key string) {
	c.sessionKey = key
	c.api.SetSession(key)
}

// IsAuthenticated returns true if a session key is set.
func (c *Client) IsAuthenticated() bool {
	return c.sessionKey != ""
}

// Username returns the configured user.
func (c *Client) Username() string {
	return c.username
}

// call runs fn, returning early when ctx ends. The library has no
// context support, so an abandoned call finishes in the background.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

func trackParams(track ScrobbleTrack) lastfm.P {
	params := lastfm.P{
		"artist": track.Artist,
		"track":  track.Track,
	}
	if track.Album != "" {
		params["album"] = track.Album
	}
	if track.AlbumArtist != "" && track.AlbumArtist != track.Artist {
		params["albumArtist"] = track.AlbumArtist
	}
	if track.Duration > 0 {
		params["duration"] = int(track.Duration.Seconds())
	}
	if track.MBRecordingID != "" {
		params["mbid"] = track.MBRecordingID
	}
	return params
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (c *Client) UpdateNowPlaying(ctx context.Context, track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	_, err := call(ctx, func() (lastfm.TrackUpdateNowPlaying, error) {
		return c.api.Track.UpdateNowPlaying(trackParams(track))
	})
	if err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble submits a track play to Last.fm.
func (c *Client) Scrobble(ctx context.Context, track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	params := trackParams(track)
	params["timestamp"] = track.Timestamp.Unix()

	_, err := call(ctx, func() (lastfm.TrackScrobble, error) {
		return c.api.Track.Scrobble(params)
	})
	if err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}

// GetSimilarArtists fetches similar artists from Last.fm.
func (c *Client) GetSimilarArtists(ctx context.Context, artist string, limit int) ([]SimilarArtist, error) {
	result, err := call(ctx, func() (lastfm.ArtistGetSimilar, error) {
		return c.api.Artist.GetSimilar(lastfm.P{"artist": artist, "limit": limit})
	})
	if err != nil {
		return nil, fmt.Errorf("get similar artists: %w", err)
	}

	artists := make([]SimilarArtist, 0, len(result.Similars))
	for _, a := range result.Similars {
		artists = append(artists, SimilarArtist{
			Name:       a.Name,
			MatchScore: parseFloat(a.Match),
		})
	}
	return artists, nil
}

// GetArtistTopTracks fetches top tracks for an artist from Last.fm.
func (c *Client) GetArtistTopTracks(ctx context.Context, artist string, limit int) ([]TopTrack, error) {
	result, err := call(ctx, func() (lastfm.ArtistGetTopTracks, error) {
		return c.api.Artist.GetTopTracks(lastfm.P{"artist": artist, "limit": limit})
	})
	if err != nil {
		return nil, fmt.Errorf("get artist top tracks: %w", err)
	}

	tracks := make([]TopTrack, 0, len(result.Tracks))
	for i, t := range result.Tracks {
		tracks = append(tracks, TopTrack{
			Name:      t.Name,
			Playcount: parseInt(t.PlayCount),
			Rank:      i + 1,
		})
	}
	return tracks, nil
}

// GetUserArtistTracks fetches tracks the configured user has scrobbled for
// an artist, aggregated per track name.
func (c *Client) GetUserArtistTracks(ctx context.Context, artist string, limit int) ([]UserTrack, error) {
	if c.username == "" {
		return nil, ErrNoUser
	}

	result, err := call(ctx, func() (lastfm.UserGetArtistTracks, error) {
		return c.api.User.GetArtistTracks(lastfm.P{
			"user":   c.username,
			"artist": artist,
			"limit":  limit,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get user artist tracks: %w", err)
	}

	names := make([]string, 0, len(result.Tracks))
	for i := range result.Tracks {
		names = append(names, result.Tracks[i].Name)
	}
	return aggregatePlays(names), nil
}

// GetUserTopAlbums fetches one page of a user's most played albums. An
// empty user means the configured one.
func (c *Client) GetUserTopAlbums(ctx context.Context, user string, page, limit int) (TopAlbumsPage, error) {
	if user == "" {
		user = c.username
	}
	if user == "" {
		return TopAlbumsPage{}, ErrNoUser
	}
	page = max(page, 1)

	result, err := call(ctx, func() (lastfm.UserGetTopAlbums, error) {
		return c.api.User.GetTopAlbums(lastfm.P{
			"user":   user,
			"page":   page,
			"limit":  limit,
			"period": "overall",
		})
	})
	if err != nil {
		return TopAlbumsPage{}, fmt.Errorf("get user top albums: %w", err)
	}

	out := TopAlbumsPage{Page: page, TotalPages: result.TotalPages}
	for _, a := range result.Albums {
		img := make([]image, 0, len(a.Images))
		for _, i := range a.Images {
			img = append(img, image{Size: i.Size, URL: i.Url})
		}
		out.Albums = append(out.Albums, TopAlbum{
			Name:      a.Name,
			Artist:    a.Artist.Name,
			MBID:      a.Mbid,
			URL:       a.Url,
			Playcount: parseInt(a.PlayCount),
			ImageURL:  largestImage(img),
		})
	}
	return out, nil
}

// GetAlbumInfo fetches an album with its tracks and top tags.
func (c *Client) GetAlbumInfo(ctx context.Context, artist, album string) (*AlbumInfo, error) {
	result, err := call(ctx, func() (lastfm.AlbumGetInfo, error) {
		return c.api.Album.GetInfo(lastfm.P{
			"artist":      artist,
			"album":       album,
			"autocorrect": 1,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get album info: %w", err)
	}

	info := &AlbumInfo{
		Name:        result.Name,
		Artist:      result.Artist,
		MBID:        result.Mbid,
		URL:         result.Url,
		ReleaseDate: result.ReleaseDate,
	}
	img := make([]image, 0, len(result.Images))
	for _, i := range result.Images {
		img = append(img, image{Size: i.Size, URL: i.Url})
	}
	info.ImageURL = largestImage(img)
	for _, t := range result.Tracks {
		info.Tracks = append(info.Tracks, AlbumTrack{
			Name:     t.Name,
			Artist:   t.Artist.Name,
			Duration: parseInt(t.Duration),
		})
	}
	for _, tag := range result.TopTags {
		info.Tags = append(info.Tags, tag.Name)
	}
	return info, nil
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// aggregatePlays counts plays per track name, keeping first-seen order.
func aggregatePlays(names []string) []UserTrack {
	index := make(map[string]int)
	var tracks []UserTrack
	for _, n := range names {
		if i, ok := index[n]; ok {
			tracks[i].Playcount++
			continue
		}
		index[n] = len(tracks)
		tracks = append(tracks, UserTrack{Name: n, Playcount: 1})
	}
	return tracks
}

type image struct {
	Size string
	URL  string
}

var imageSizes = map[string]int{"small": 1, "medium": 2, "large": 3, "extralarge": 4, "mega": 5}

// largestImage picks the biggest non-empty image URL.
func largestImage(images []image) string {
	best, bestRank := "", 0
	for _, i := range images {
		if i.URL == "" {
			continue
		}
		if r := imageSizes[i.Size]; best == "" || r > bestRank {
			best, bestRank = i.URL, r
		}
	}
	return best
}
