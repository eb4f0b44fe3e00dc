package radio

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/lastfm"
	"github.com/fistopy/fistopy/internal/library"
)

type fakeLastfm struct {
	similar      map[string][]lastfm.SimilarArtist
	top          map[string][]lastfm.TopTrack
	err          error
	similarCalls atomic.Int32
}

func (f *fakeLastfm) Username() string { return "me" }

func (f *fakeLastfm) GetSimilarArtists(_ context.Context, artist string, _ int) ([]lastfm.SimilarArtist, error) {
	f.similarCalls.Add(1)
	return f.similar[artist], f.err
}

func (f *fakeLastfm) GetArtistTopTracks(_ context.Context, artist string, _ int) ([]lastfm.TopTrack, error) {
	return f.top[artist], f.err
}

func (f *fakeLastfm) GetUserArtistTracks(context.Context, string, int) ([]lastfm.UserTrack, error) {
	return nil, f.err
}

type fixture struct {
	lib    *library.Library
	albums map[string]library.AlbumWithTracks // by title
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		lib:    library.New(setupTestDB(t)),
		albums: make(map[string]library.AlbumWithTracks),
	}
	f.add(t, "Radiohead", "OK Computer", "Airbag", "Paranoid Android", "Karma Police")
	f.add(t, "Muse", "Origin of Symmetry", "Plug In Baby", "Bliss")
	f.add(t, "Portishead", "Dummy", "Roads", "Glory Box")
	return f
}

func (f *fixture) add(t *testing.T, artist, title string, tracks ...string) {
	t.Helper()
	a := library.AlbumWithTracks{AlbumCombo: library.AlbumCombo{
		Album:   library.Album{Title: title, IsInLibrary: true},
		Artists: library.ArtistsFromNames(artist),
	}}
	for i, tr := range tracks {
		a.Tracks = append(a.Tracks, library.TrackCombo{Track: library.Track{Title: tr, Disc: 1, Position: i + 1}})
	}
	require.NoError(t, f.lib.SaveAlbumWithTracks(context.Background(), &a))
	f.albums[title] = a
}

func (f *fixture) service(client LastfmAPI, buffer int) *Service {
	cfg := (&config.Config{Radio: config.RadioConfig{BufferSize: buffer}}).GetRadioConfig()
	return New(f.lib.DB(), f.lib, client, cfg, zerolog.Nop())
}

func ids(tracks []library.TrackCombo) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Album")
	require.NoError(t, err)
	assert.Equal(t, TypeAlbum, typ)

	_, err = ParseType("genre")
	assert.Error(t, err)
}

func TestStartTrackRadio(t *testing.T) {
	f := newFixture(t)
	s := f.service(nil, 4)
	ctx := context.Background()
	seed := f.albums["OK Computer"].Tracks[0]

	r, tracks, err := s.Start(ctx, TypeTrack, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Radiohead - Airbag", r.Title)
	require.Len(t, tracks, 4)
	assert.Equal(t, seed.ID, tracks[0].ID, "seed track plays first")

	seen := map[string]bool{}
	for _, id := range ids(tracks) {
		assert.False(t, seen[id], "track %s repeated", id)
		seen[id] = true
	}

	stored, err := s.Tracks(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ids(tracks), ids(stored))
}

func TestStartArtistRadioUsesSimilarArtists(t *testing.T) {
	f := newFixture(t)
	fm := &fakeLastfm{
		similar: map[string][]lastfm.SimilarArtist{
			"Radiohead": {{Name: "Muse", MatchScore: 0.8}, {Name: "Not In Library", MatchScore: 0.7}},
		},
		top: map[string][]lastfm.TopTrack{
			"Muse": {{Name: "Plug In Baby", Playcount: 2000000, Rank: 1}},
		},
	}
	s := f.service(fm, 3)
	ctx := context.Background()

	r, tracks, err := s.Start(ctx, TypeArtist, "Radiohead")
	require.NoError(t, err)
	assert.Equal(t, "Radiohead", r.Title)
	require.Len(t, tracks, 3)

	counts := map[string]int{}
	for _, tr := range tracks {
		require.NotEmpty(t, tr.Artists)
		counts[tr.Artists[0].Name]++
	}
	assert.Zero(t, counts["Portishead"], "unrelated artist picked: %v", counts)
	assert.LessOrEqual(t, counts["Radiohead"], 2)
	assert.GreaterOrEqual(t, counts["Muse"], 1)

	cached, err := s.Cache().GetSimilarArtists(ctx, "Radiohead")
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	calls := fm.similarCalls.Load()
	_, _, err = s.Start(ctx, TypeArtist, "Radiohead")
	require.NoError(t, err)
	assert.Equal(t, calls, fm.similarCalls.Load(), "similar artists served from cache")
}

func TestLastfmFailureFallsBackToRandom(t *testing.T) {
	f := newFixture(t)
	s := f.service(&fakeLastfm{err: errors.New("boom")}, 5)

	_, tracks, err := s.Start(context.Background(), TypeAlbum, f.albums["Dummy"].ID)
	require.NoError(t, err)
	assert.Len(t, tracks, 5)
}

func TestExtendRepeatsOnlyWhenExhausted(t *testing.T) {
	f := newFixture(t)
	s := f.service(nil, 3)
	ctx := context.Background()

	r, first, err := s.Start(ctx, TypeLibrary, "")
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := s.Extend(ctx, r.ID, 3)
	require.NoError(t, err)
	require.Len(t, second, 3)

	third, err := s.Extend(ctx, r.ID, 3)
	require.NoError(t, err)
	require.Len(t, third, 3)

	history := append(ids(first), ids(second)...)
	distinct := map[string]bool{}
	for _, id := range history {
		distinct[id] = true
	}
	assert.Len(t, distinct, 6)

	// the only unused track comes first, then repeats outside the last batch
	assert.NotContains(t, history, third[0].ID)
	for _, tr := range third[1:] {
		assert.NotContains(t, ids(second), tr.ID)
	}

	all, err := s.TrackIDs(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, all, 9)
}

func TestStartErrors(t *testing.T) {
	f := newFixture(t)
	s := f.service(nil, 3)
	ctx := context.Background()

	_, _, err := s.Start(ctx, TypeTrack, "missing")
	require.ErrorIs(t, err, library.ErrNotFound)
	_, _, err = s.Start(ctx, TypeArtist, "Nobody")
	require.ErrorIs(t, err, library.ErrNotFound)
	_, _, err = s.Start(ctx, Type("genre"), "")
	require.Error(t, err)

	empty := (&fixture{lib: library.New(setupTestDB(t))}).service(nil, 3)
	_, _, err = empty.Start(ctx, TypeLibrary, "")
	require.ErrorIs(t, err, ErrEmptyLibrary)
	radios, err := empty.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, radios, "failed radios are not kept")
}

func TestListGetDelete(t *testing.T) {
	f := newFixture(t)
	s := f.service(nil, 2)
	ctx := context.Background()

	r, _, err := s.Start(ctx, TypeAlbum, f.albums["OK Computer"].ID)
	require.NoError(t, err)

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, TypeAlbum, got.Type)
	assert.Equal(t, "OK Computer", got.Title)
	assert.Equal(t, f.albums["OK Computer"].ID, got.SeedID)

	radios, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, radios, 1)

	require.NoError(t, s.Delete(ctx, r.ID))
	_, err = s.Get(ctx, r.ID)
	require.ErrorIs(t, err, library.ErrNotFound)
	left, err := s.TrackIDs(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.ErrorIs(t, s.Delete(ctx, r.ID), library.ErrNotFound)
}

func TestBuildCandidatePoolMarksFavorites(t *testing.T) {
	f := newFixture(t)
	s := f.service(&fakeLastfm{}, 3)
	plug := f.albums["Origin of Symmetry"].Tracks[0]
	bliss := f.albums["Origin of Symmetry"].Tracks[1]

	pool := s.buildCandidatePool(context.Background(), Radio{},
		[]MatchedArtist{{LastfmArtist: lastfm.SimilarArtist{Name: "Muse", MatchScore: 0.5}, LocalArtist: "Muse"}},
		map[string]bool{bliss.ID: true},
		map[string]bool{plug.ID: true},
	)
	require.Len(t, pool, 1, "used tracks are left out")
	assert.Equal(t, plug.ID, pool[0].Track.ID)
	assert.True(t, pool[0].IsFavorite)
	assert.Equal(t, "Muse", pool[0].Artist)
}
