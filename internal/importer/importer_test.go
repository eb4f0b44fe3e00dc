package importer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fistopy/fistopy/internal/coverart"
	"github.com/fistopy/fistopy/internal/holder"
	"github.com/fistopy/fistopy/internal/lastfm"
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/localimport"
	"github.com/fistopy/fistopy/internal/match"
	"github.com/fistopy/fistopy/internal/musicbrainz"
	"github.com/fistopy/fistopy/internal/store"
	"github.com/fistopy/fistopy/internal/tags"
)

func setup(t *testing.T) (*Importer, *library.Library) {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	lib := library.New(s.DB())
	return New(lib, coverart.New(t.TempDir()), zerolog.Nop()), lib
}

// fakeSource serves fixed items and resolves them from candidates.
type fakeSource struct {
	items    []Item
	albums   map[string]match.Candidate
	cover    []byte
	resolved int
}

func (f *fakeSource) Name() library.Source { return library.SourceSpotify }

func (f *fakeSource) List(_ context.Context, _, _ string) (holder.Page[Item], error) {
	return holder.Page[Item]{Items: f.items, Total: len(f.items)}, nil
}

func (f *fakeSource) Resolve(_ context.Context, item Item) (Resolved, error) {
	f.resolved++
	c, ok := f.albums[item.ID]
	if !ok {
		return Resolved{}, errors.New("unknown album")
	}
	return Resolved{Album: match.NewAlbum(c), Cover: f.cover}, nil
}

func spotifyCandidate(id, title string, tracks ...string) match.Candidate {
	c := match.Candidate{Source: library.SourceSpotify, ExternalID: id, Title: title, Artist: "Radiohead", Year: 1997}
	for i, tr := range tracks {
		c.Tracks = append(c.Tracks, match.CandidateTrack{
			ExternalID: id + "-" + tr, Title: tr, Disc: 1, Position: i + 1, Duration: 200 * time.Second,
		})
	}
	return c
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 300, 300))))
	return buf.Bytes()
}

func TestImport(t *testing.T) {
	im, lib := setup(t)
	ctx := context.Background()
	src := &fakeSource{
		albums: map[string]match.Candidate{"ok": spotifyCandidate("ok", "OK Computer", "Airbag", "Paranoid Android")},
		cover:  testPNG(t),
	}
	item := Item{Source: library.SourceSpotify, ID: "ok", Title: "OK Computer"}

	res, err := im.Import(ctx, src, item)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.NotEmpty(t, res.Album.ID)
	assert.FileExists(t, res.Album.ThumbnailPath)

	stored, err := lib.AlbumByExternalID(ctx, library.SourceSpotify, "ok")
	require.NoError(t, err)
	assert.True(t, stored.IsInLibrary)
	assert.Len(t, stored.Tracks, 2)
	assert.Equal(t, res.Album.CoverPath, stored.CoverPath)
	assert.True(t, im.IsImported(item))

	res, err = im.Import(ctx, src, item)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, src.resolved, "duplicates are not fetched again")
}

func TestImportFlagsStoredAlbum(t *testing.T) {
	im, lib := setup(t)
	ctx := context.Background()

	a := match.NewAlbum(spotifyCandidate("kid", "Kid A", "Everything in Its Right Place"))
	require.NoError(t, lib.SaveAlbumWithTracks(ctx, &a))
	item := Item{Source: library.SourceSpotify, ID: "kid"}
	assert.False(t, im.IsImported(item))

	res, err := im.Import(ctx, &fakeSource{}, item)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.True(t, im.IsImported(item))
}

func TestImportErrors(t *testing.T) {
	im, _ := setup(t)
	ctx := context.Background()
	src := &fakeSource{albums: map[string]match.Candidate{"empty": spotifyCandidate("empty", "Nothing")}}

	_, err := im.Import(ctx, src, Item{Source: library.SourceSpotify, ID: "missing"})
	assert.Error(t, err)

	_, err = im.Import(ctx, src, Item{Source: library.SourceSpotify, ID: "empty"})
	assert.ErrorContains(t, err, "no tracks")
}

func TestImportSelected(t *testing.T) {
	im, _ := setup(t)
	ctx := context.Background()
	src := &fakeSource{
		items: []Item{
			{Source: library.SourceSpotify, ID: "a", Title: "A"},
			{Source: library.SourceSpotify, ID: "b", Title: "B"},
			{Source: library.SourceSpotify, ID: "bad", Title: "Bad"},
		},
		albums: map[string]match.Candidate{
			"a": spotifyCandidate("a", "A", "One"),
			"b": spotifyCandidate("b", "B", "Two"),
		},
	}

	h := im.NewHolder(ctx, src, "")
	assert.Nil(t, h.Search(), "fake source lists without a query")
	require.NoError(t, h.LoadMore(ctx))
	h.SelectAll()
	require.Len(t, h.Selected(), 3)

	failed, err := im.ImportSelected(ctx, h, src, 2)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].Item.ID)
	assert.True(t, h.IsImported(src.items[0]))
	assert.Equal(t, []Item{src.items[2]}, h.Selected())
	assert.False(t, h.Select(src.items[1]), "imported items cannot be selected")
}

func TestLocalSource(t *testing.T) {
	im, lib := setup(t)
	ctx := context.Background()

	dir := t.TempDir()
	var files []*tags.Tag
	for i, title := range []string{"Airbag", "Paranoid Android"} {
		files = append(files, &tags.Tag{
			Path: dir + "/" + title + ".mp3", Title: title, Artist: "Radiohead",
			AlbumArtist: "Radiohead", Album: "OK Computer", TrackNumber: i + 1,
		})
	}
	files = append(files, &tags.Tag{Path: dir + "/x.mp3", Title: "Roads", Artist: "Portishead", AlbumArtist: "Portishead", Album: "Dummy"})
	src := NewLocalSource(localimport.GroupAlbums(files), 1)

	page, err := src.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.Next)
	assert.Equal(t, 2, page.Total)

	page, err = src.List(ctx, "radiohead ok", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	item := page.Items[0]
	assert.Equal(t, "OK Computer", item.Title)
	assert.Equal(t, files[0].Path, item.ID)

	res, err := im.Import(ctx, src, item)
	require.NoError(t, err)
	assert.True(t, res.Album.IsLocal)

	stored, err := lib.AlbumByExternalID(ctx, library.SourceLocal, files[1].Path)
	require.NoError(t, err)
	assert.Equal(t, res.Album.ID, stored.ID)
	assert.True(t, im.IsImported(item))

	_, err = src.Resolve(ctx, Item{Source: library.SourceLocal, ID: "nope"})
	assert.Error(t, err)
}

type fakeMB struct {
	page musicbrainz.ReleasePage
}

func (f *fakeMB) SearchReleases(_ context.Context, _ string, offset int) (musicbrainz.ReleasePage, error) {
	p := f.page
	p.Offset = offset
	return p, nil
}

func (f *fakeMB) GetRelease(_ context.Context, mbid string) (*musicbrainz.ReleaseDetails, error) {
	return &musicbrainz.ReleaseDetails{Release: musicbrainz.Release{ID: mbid, Title: "OK Computer"}}, nil
}

func (f *fakeMB) AlbumWithTracks(d *musicbrainz.ReleaseDetails) library.AlbumWithTracks {
	return match.NewAlbum(match.Candidate{Source: library.SourceMusicBrainz, ExternalID: d.ID, Title: d.Title})
}

func TestMusicBrainzSource(t *testing.T) {
	api := &fakeMB{page: musicbrainz.ReleasePage{
		Releases: []musicbrainz.Release{{ID: "r1", Title: "OK Computer", Artist: "Radiohead", Date: "1997-05-21", Formats: "CD", TrackCount: 12}},
		Count:    3,
	}}
	src := NewMusicBrainzSource(api)
	ctx := context.Background()

	_, err := src.List(ctx, " ", "")
	require.ErrorIs(t, err, ErrQueryRequired)

	page, err := src.List(ctx, "ok computer", "")
	require.NoError(t, err)
	assert.Equal(t, "1", page.Next)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1997, page.Items[0].Year)
	assert.Equal(t, "CD 12 tracks", page.Items[0].Detail)

	page, err = src.List(ctx, "ok computer", "2")
	require.NoError(t, err)
	assert.Empty(t, page.Next, "last page")

	_, err = src.List(ctx, "ok computer", "x")
	assert.Error(t, err)

	res, err := src.Resolve(ctx, page.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "r1", res.Album.MusicBrainzReleaseID)
}

func TestNewHolder_SearchOnlySource(t *testing.T) {
	im, _ := setup(t)
	ctx := context.Background()
	src := NewMusicBrainzSource(&fakeMB{page: musicbrainz.ReleasePage{
		Releases: []musicbrainz.Release{{ID: "r1", Title: "OK Computer", Artist: "Radiohead"}},
		Count:    1,
	}})

	h := im.NewHolder(ctx, src, "ok computer")
	defer h.Close()
	require.NotNil(t, h.Search())
	assert.Equal(t, "ok computer", h.Search().Query())

	require.NoError(t, h.LoadMore(ctx))
	require.Len(t, h.Items(), 1)
	h.SelectAll()

	require.NoError(t, h.Search().SearchNow(ctx, "kid a"))
	assert.Len(t, h.Selected(), 1, "selection kept across queries")

	empty := im.NewHolder(ctx, src, "")
	defer empty.Close()
	require.NoError(t, empty.LoadMore(ctx))
	assert.Empty(t, empty.Items())
}

type fakeLastfm struct {
	user string
}

func (f *fakeLastfm) Username() string { return f.user }

func (f *fakeLastfm) GetUserTopAlbums(_ context.Context, _ string, page, _ int) (lastfm.TopAlbumsPage, error) {
	return lastfm.TopAlbumsPage{
		Page:       page,
		TotalPages: 2,
		Albums: []lastfm.TopAlbum{
			{Name: "OK Computer", Artist: "Radiohead", URL: "https://last.fm/ok", Playcount: 42},
			{Name: "Dummy", Artist: "Portishead", URL: "https://last.fm/dummy", Playcount: 7},
		},
	}, nil
}

func (f *fakeLastfm) GetAlbumInfo(_ context.Context, artist, album string) (*lastfm.AlbumInfo, error) {
	return &lastfm.AlbumInfo{
		Name: album, Artist: artist, URL: "https://last.fm/ok",
		Tracks: []lastfm.AlbumTrack{{Name: "Airbag", Duration: 284}},
	}, nil
}

func TestLastfmSource(t *testing.T) {
	ctx := context.Background()

	_, err := NewLastfmSource(&fakeLastfm{}, 10).List(ctx, "", "")
	require.ErrorIs(t, err, lastfm.ErrNoUser)

	src := NewLastfmSource(&fakeLastfm{user: "me"}, 10)
	page, err := src.List(ctx, "portishead", "")
	require.NoError(t, err)
	assert.Equal(t, "2", page.Next)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dummy", page.Items[0].Title)
	assert.Equal(t, "7 plays", page.Items[0].Detail)

	page, err = src.List(ctx, "", "2")
	require.NoError(t, err)
	assert.Empty(t, page.Next)
	assert.Len(t, page.Items, 2)

	res, err := src.Resolve(ctx, page.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "https://last.fm/ok", res.Album.LastfmURL)
	assert.Len(t, res.Album.Tracks, 1)
}
