// Package importer lists importable albums from every backend and saves
// the selected ones into the library.
package importer

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/fistopy/fistopy/internal/fuzzy"
	"github.com/fistopy/fistopy/internal/holder"
	"github.com/fistopy/fistopy/internal/lastfm"
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/localimport"
	"github.com/fistopy/fistopy/internal/match"
	"github.com/fistopy/fistopy/internal/musicbrainz"
	"github.com/fistopy/fistopy/internal/spotify"
	"github.com/fistopy/fistopy/internal/youtube"
)

// ErrQueryRequired is returned by sources that can only search.
var ErrQueryRequired = errors.New("a search query is required")

// Item is an importable album as listed by a Source.
type Item struct {
	Source   library.Source
	ID       string // external identifier; the first file path for local albums
	Title    string
	Artist   string
	Year     int
	Detail   string // short source-specific description
	ImageURL string

	local *localimport.Album
}

// Key identifies the item across pages.
func (it Item) Key() string {
	return string(it.Source) + ":" + it.ID
}

// Resolved is an album fetched in full, with cover data when the source
// provides it directly.
type Resolved struct {
	Album library.AlbumWithTracks
	Cover []byte
}

// Source lists and resolves the albums of one backend.
type Source interface {
	Name() library.Source
	// List returns the page at cursor of the albums matching query.
	List(ctx context.Context, query, cursor string) (holder.Page[Item], error)
	Resolve(ctx context.Context, item Item) (Resolved, error)
}

// SearchOnly reports whether src lists nothing without a query.
func SearchOnly(src Source) bool {
	switch s := src.(type) {
	case *YouTubeSource, *MusicBrainzSource:
		return true
	case *SpotifySource:
		return s.artistID == ""
	}
	return false
}

// LocalSource serves albums from a local scan.
type LocalSource struct {
	albums   []localimport.Album
	pageSize int
}

// NewLocalSource serves the scanned albums in pages of pageSize.
func NewLocalSource(albums []localimport.Album, pageSize int) *LocalSource {
	return &LocalSource{albums: albums, pageSize: pageSize}
}

func (s *LocalSource) Name() library.Source { return library.SourceLocal }

// List filters albums whose artist and title contain every word of query.
func (s *LocalSource) List(ctx context.Context, query, cursor string) (holder.Page[Item], error) {
	albums := s.albums
	if words := strings.Fields(fuzzy.Normalize(query)); len(words) > 0 {
		albums = nil
		for _, a := range s.albums {
			text := fuzzy.Normalize(a.Artist + " " + a.Title)
			if containsAll(text, words) {
				albums = append(albums, a)
			}
		}
	}

	page, err := localimport.Paginate(albums, s.pageSize)(ctx, cursor)
	if err != nil {
		return holder.Page[Item]{}, err
	}
	out := holder.Page[Item]{Next: page.Next, Total: page.Total}
	for i := range page.Items {
		a := &page.Items[i]
		if len(a.Files) == 0 {
			continue
		}
		out.Items = append(out.Items, Item{
			Source: library.SourceLocal,
			ID:     a.Files[0].Path,
			Title:  a.Title,
			Artist: a.Artist,
			Year:   a.Year(),
			Detail: strconv.Itoa(len(a.Files)) + " files in " + a.Dir,
			local:  a,
		})
	}
	return out, nil
}

func (s *LocalSource) Resolve(_ context.Context, item Item) (Resolved, error) {
	if item.local == nil {
		return Resolved{}, errors.New("local item without scan data")
	}
	return Resolved{
		Album: item.local.AlbumWithTracks(),
		Cover: item.local.CoverArt(),
	}, nil
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// YouTubeAPI is the part of the YouTube client used for imports.
type YouTubeAPI interface {
	SearchPlaylists(ctx context.Context, query, cursor string) (holder.Page[youtube.Playlist], error)
	PlaylistCombo(ctx context.Context, id string) (*youtube.PlaylistCombo, error)
}

// YouTubeSource imports playlists as albums.
type YouTubeSource struct {
	api YouTubeAPI
}

func NewYouTubeSource(api YouTubeAPI) *YouTubeSource {
	return &YouTubeSource{api: api}
}

func (s *YouTubeSource) Name() library.Source { return library.SourceYouTube }

func (s *YouTubeSource) List(ctx context.Context, query, cursor string) (holder.Page[Item], error) {
	if strings.TrimSpace(query) == "" {
		return holder.Page[Item]{}, ErrQueryRequired
	}
	page, err := s.api.SearchPlaylists(ctx, query, cursor)
	if err != nil {
		return holder.Page[Item]{}, err
	}
	return convertPage(page, func(p youtube.Playlist) Item {
		artist, album := youtube.SplitAlbumTitle(p.Title, p.Channel)
		return Item{
			Source:   library.SourceYouTube,
			ID:       p.ID,
			Title:    album,
			Artist:   artist,
			Detail:   p.Channel,
			ImageURL: p.ThumbnailURL,
		}
	}), nil
}

func (s *YouTubeSource) Resolve(ctx context.Context, item Item) (Resolved, error) {
	combo, err := s.api.PlaylistCombo(ctx, item.ID)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Album: combo.AlbumWithTracks()}, nil
}

// SpotifyAPI is the part of the Spotify client used for imports.
type SpotifyAPI interface {
	SearchAlbums(ctx context.Context, query, cursor string) (holder.Page[spotify.Album], error)
	ArtistAlbums(ctx context.Context, artistID, cursor string) (holder.Page[spotify.Album], error)
	Album(ctx context.Context, id string) (*spotify.Album, error)
}

// SpotifySource imports Spotify albums found by search, or the albums of
// one artist.
type SpotifySource struct {
	api      SpotifyAPI
	artistID string
}

func NewSpotifySource(api SpotifyAPI) *SpotifySource {
	return &SpotifySource{api: api}
}

// NewSpotifyArtistSource lists the albums of an artist. The query, when
// set, filters each page.
func NewSpotifyArtistSource(api SpotifyAPI, artistID string) *SpotifySource {
	return &SpotifySource{api: api, artistID: artistID}
}

func (s *SpotifySource) Name() library.Source { return library.SourceSpotify }

func (s *SpotifySource) List(ctx context.Context, query, cursor string) (holder.Page[Item], error) {
	var (
		page holder.Page[spotify.Album]
		err  error
	)
	switch {
	case s.artistID != "":
		page, err = s.api.ArtistAlbums(ctx, s.artistID, cursor)
		if words := strings.Fields(fuzzy.Normalize(query)); err == nil && len(words) > 0 {
			page.Items = slices.DeleteFunc(page.Items, func(a spotify.Album) bool {
				return !containsAll(fuzzy.Normalize(a.Artist+" "+a.Title), words)
			})
		}
	case strings.TrimSpace(query) == "":
		return holder.Page[Item]{}, ErrQueryRequired
	default:
		page, err = s.api.SearchAlbums(ctx, query, cursor)
	}
	if err != nil {
		return holder.Page[Item]{}, err
	}
	return convertPage(page, func(a spotify.Album) Item {
		return Item{
			Source:   library.SourceSpotify,
			ID:       a.ID,
			Title:    a.Title,
			Artist:   a.Artist,
			Year:     a.Year(),
			ImageURL: a.ImageURL,
		}
	}), nil
}

func (s *SpotifySource) Resolve(ctx context.Context, item Item) (Resolved, error) {
	a, err := s.api.Album(ctx, item.ID)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Album: a.AlbumWithTracks()}, nil
}

// MusicBrainzAPI is the part of the MusicBrainz client used for imports.
type MusicBrainzAPI interface {
	SearchReleases(ctx context.Context, query string, offset int) (musicbrainz.ReleasePage, error)
	GetRelease(ctx context.Context, mbid string) (*musicbrainz.ReleaseDetails, error)
	AlbumWithTracks(d *musicbrainz.ReleaseDetails) library.AlbumWithTracks
}

// MusicBrainzSource imports MusicBrainz releases. Cursors are offsets.
type MusicBrainzSource struct {
	api MusicBrainzAPI
}

func NewMusicBrainzSource(api MusicBrainzAPI) *MusicBrainzSource {
	return &MusicBrainzSource{api: api}
}

func (s *MusicBrainzSource) Name() library.Source { return library.SourceMusicBrainz }

func (s *MusicBrainzSource) List(ctx context.Context, query, cursor string) (holder.Page[Item], error) {
	if strings.TrimSpace(query) == "" {
		return holder.Page[Item]{}, ErrQueryRequired
	}
	offset, err := parseOffset(cursor)
	if err != nil {
		return holder.Page[Item]{}, err
	}
	page, err := s.api.SearchReleases(ctx, query, offset)
	if err != nil {
		return holder.Page[Item]{}, err
	}

	out := holder.Page[Item]{Total: page.Count}
	if next := page.Next(); next >= 0 {
		out.Next = strconv.Itoa(next)
	}
	for _, r := range page.Releases {
		detail := strings.TrimSpace(r.Formats + " " + r.Country)
		if r.TrackCount > 0 {
			detail = strings.TrimSpace(detail + " " + strconv.Itoa(r.TrackCount) + " tracks")
		}
		out.Items = append(out.Items, Item{
			Source: library.SourceMusicBrainz,
			ID:     r.ID,
			Title:  r.Title,
			Artist: r.Artist,
			Year:   library.YearOf(r.Date),
			Detail: detail,
		})
	}
	return out, nil
}

func (s *MusicBrainzSource) Resolve(ctx context.Context, item Item) (Resolved, error) {
	d, err := s.api.GetRelease(ctx, item.ID)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Album: s.api.AlbumWithTracks(d)}, nil
}

// LastfmAPI is the part of the Last.fm client used for imports.
type LastfmAPI interface {
	Username() string
	GetUserTopAlbums(ctx context.Context, user string, page, limit int) (lastfm.TopAlbumsPage, error)
	GetAlbumInfo(ctx context.Context, artist, album string) (*lastfm.AlbumInfo, error)
}

// LastfmSource imports the configured user's top albums. The query, when
// set, filters each page. Cursors are 1-based page numbers.
type LastfmSource struct {
	api      LastfmAPI
	pageSize int
}

func NewLastfmSource(api LastfmAPI, pageSize int) *LastfmSource {
	return &LastfmSource{api: api, pageSize: pageSize}
}

func (s *LastfmSource) Name() library.Source { return library.SourceLastfm }

func (s *LastfmSource) List(ctx context.Context, query, cursor string) (holder.Page[Item], error) {
	user := s.api.Username()
	if user == "" {
		return holder.Page[Item]{}, lastfm.ErrNoUser
	}
	pageNum := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return holder.Page[Item]{}, errors.New("invalid page cursor " + strconv.Quote(cursor))
		}
		pageNum = n
	}

	page, err := s.api.GetUserTopAlbums(ctx, user, pageNum, s.pageSize)
	if err != nil {
		return holder.Page[Item]{}, err
	}

	words := strings.Fields(fuzzy.Normalize(query))
	var out holder.Page[Item]
	if page.Page < page.TotalPages {
		out.Next = strconv.Itoa(page.Page + 1)
	}
	for _, a := range page.Albums {
		if len(words) > 0 && !containsAll(fuzzy.Normalize(a.Artist+" "+a.Name), words) {
			continue
		}
		out.Items = append(out.Items, Item{
			Source:   library.SourceLastfm,
			ID:       a.URL,
			Title:    a.Name,
			Artist:   a.Artist,
			Detail:   strconv.Itoa(a.Playcount) + " plays",
			ImageURL: a.ImageURL,
		})
	}
	return out, nil
}

func (s *LastfmSource) Resolve(ctx context.Context, item Item) (Resolved, error) {
	info, err := s.api.GetAlbumInfo(ctx, item.Artist, item.Title)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Album: match.NewAlbum(info.Candidate())}, nil
}

func convertPage[T any](p holder.Page[T], fn func(T) Item) holder.Page[Item] {
	out := holder.Page[Item]{Next: p.Next, Total: p.Total}
	for _, it := range p.Items {
		out.Items = append(out.Items, fn(it))
	}
	return out
}

func parseOffset(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, errors.New("invalid offset cursor " + strconv.Quote(cursor))
	}
	return n, nil
}
