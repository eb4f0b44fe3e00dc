package library

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Source identifies where a piece of metadata came from.
type Source string

const (
	SourceLocal       Source = "local"
	SourceYouTube     Source = "youtube"
	SourceSpotify     Source = "spotify"
	SourceMusicBrainz Source = "musicbrainz"
	SourceLastfm      Source = "lastfm"
)

// Sources lists every backend in priority order.
var Sources = []Source{SourceLocal, SourceYouTube, SourceSpotify, SourceMusicBrainz, SourceLastfm}

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if string(src) == strings.ToLower(s) {
			return src, nil
		}
	}
	return "", errors.New("unknown source " + s)
}

type Artist struct {
	ID            string
	Name          string
	MusicBrainzID string
	SpotifyID     string
	ImageURL      string
	CreatedAt     time.Time
}

type Album struct {
	ID          string
	Title       string
	Year        int
	IsInLibrary bool
	IsLocal     bool
	IsHidden    bool

	YoutubePlaylistID         string
	SpotifyID                 string
	MusicBrainzReleaseID      string
	MusicBrainzReleaseGroupID string
	LastfmURL                 string

	ImageURL      string // remote cover art
	CoverPath     string // stored full-size cover
	ThumbnailPath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalID returns the album's identifier at src, if any.
func (a Album) ExternalID(src Source) string {
	switch src {
	case SourceYouTube:
		return a.YoutubePlaylistID
	case SourceSpotify:
		return a.SpotifyID
	case SourceMusicBrainz:
		return a.MusicBrainzReleaseID
	case SourceLastfm:
		return a.LastfmURL
	}
	return ""
}

// SetExternalID stamps the album's identifier at src.
func (a *Album) SetExternalID(src Source, id string) {
	switch src {
	case SourceYouTube:
		a.YoutubePlaylistID = id
	case SourceSpotify:
		a.SpotifyID = id
	case SourceMusicBrainz:
		a.MusicBrainzReleaseID = id
	case SourceLastfm:
		a.LastfmURL = id
	case SourceLocal:
	}
}

type Track struct {
	ID          string
	AlbumID     string
	Title       string
	Disc        int
	Position    int
	Duration    time.Duration
	Year        int
	IsInLibrary bool

	YoutubeVideoID         string
	SpotifyID              string
	MusicBrainzRecordingID string
	LocalPath              string

	PlayCount    int
	LastPlayedAt time.Time
	CreatedAt    time.Time
}

// ExternalID returns the track's identifier at src, if any.
func (t Track) ExternalID(src Source) string {
	switch src {
	case SourceYouTube:
		return t.YoutubeVideoID
	case SourceSpotify:
		return t.SpotifyID
	case SourceMusicBrainz:
		return t.MusicBrainzRecordingID
	case SourceLocal:
		return t.LocalPath
	}
	return ""
}

// SetExternalID stamps the track's identifier at src.
func (t *Track) SetExternalID(src Source, id string) {
	switch src {
	case SourceYouTube:
		t.YoutubeVideoID = id
	case SourceSpotify:
		t.SpotifyID = id
	case SourceMusicBrainz:
		t.MusicBrainzRecordingID = id
	case SourceLocal:
		t.LocalPath = id
	case SourceLastfm:
	}
}

// IsPlayable reports whether some backend can produce audio for the track.
func (t Track) IsPlayable() bool {
	return t.LocalPath != "" || t.YoutubeVideoID != "" || t.SpotifyID != ""
}

type Tag struct {
	ID   int64
	Name string
}

// AlbumArtist credits an artist on an album.
type AlbumArtist struct {
	AlbumID  string
	ArtistID string
	Position int
}

// TrackArtist credits an artist on a track.
type TrackArtist struct {
	TrackID  string
	ArtistID string
	Position int
}

// AlbumTag links a tag to an album.
type AlbumTag struct {
	AlbumID string
	TagID   int64
}

// AlbumCombo is an album joined with its credits, tags and track totals.
type AlbumCombo struct {
	Album
	Artists    []Artist
	Tags       []string
	TrackCount int
	Duration   time.Duration
}

// ArtistString joins the credited artist names.
func (c AlbumCombo) ArtistString() string {
	return joinArtists(c.Artists)
}

// TrackCombo is a track joined with its album and credited artists.
type TrackCombo struct {
	Track
	Album   *Album
	Artists []Artist
}

// ArtistString joins the credited artist names.
func (c TrackCombo) ArtistString() string {
	return joinArtists(c.Artists)
}

// AlbumTitle returns the album title or an empty string for loose tracks.
func (c TrackCombo) AlbumTitle() string {
	if c.Album == nil {
		return ""
	}
	return c.Album.Title
}

// AlbumWithTracks is an album combo with all of its tracks, ordered by
// disc and position.
type AlbumWithTracks struct {
	AlbumCombo
	Tracks []TrackCombo
}

// TotalDuration sums the known track durations.
func (a AlbumWithTracks) TotalDuration() time.Duration {
	var d time.Duration
	for _, t := range a.Tracks {
		d += t.Duration
	}
	return d
}

// ArtistCombo is an artist with album and track counts.
type ArtistCombo struct {
	Artist
	AlbumCount int
	TrackCount int
}

// TagCount is a tag with the number of albums carrying it.
type TagCount struct {
	Name       string
	AlbumCount int
}

// Counts summarises the library.
type Counts struct {
	Artists int
	Albums  int
	Tracks  int
}

// ArtistsFromNames builds unsaved artists from names, skipping blanks and
// duplicates.
func ArtistsFromNames(names ...string) []Artist {
	seen := make(map[string]bool, len(names))
	var artists []Artist
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		artists = append(artists, Artist{Name: n})
	}
	return artists
}

func joinArtists(artists []Artist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
