package enrich

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
	"github.com/fistopy/fistopy/internal/store"
)

type fakeBackend struct {
	cands []match.Candidate
	err   error
	calls atomic.Int32
}

func (f *fakeBackend) AlbumCandidates(context.Context, string, string) ([]match.Candidate, error) {
	f.calls.Add(1)
	return f.cands, f.err
}

func candidate(src library.Source, id, title string, tracks ...string) match.Candidate {
	c := match.Candidate{Source: src, ExternalID: id, Title: title, Artist: "Radiohead", Year: 1997}
	for i, t := range tracks {
		c.Tracks = append(c.Tracks, match.CandidateTrack{
			ExternalID: id + "-" + t, Title: t, Disc: 1, Position: i + 1, Duration: 4 * time.Minute,
		})
	}
	return c
}

func setup(t *testing.T) (*Enricher, *library.Library, string) {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	lib := library.New(s.DB())

	album := match.NewAlbum(candidate(library.SourceYouTube, "PLok", "OK Computer", "Airbag", "Paranoid Android"))
	album.IsInLibrary = true
	require.NoError(t, lib.SaveAlbumWithTracks(context.Background(), &album))

	return New(lib, match.DefaultOptions(), zerolog.Nop()), lib, album.ID
}

func TestEnrichAlbum(t *testing.T) {
	e, lib, id := setup(t)
	ctx := context.Background()

	spotify := &fakeBackend{cands: []match.Candidate{
		candidate(library.SourceSpotify, "wrong", "Pablo Honey", "You", "Creep", "How Do You", "Stop Whispering"),
		candidate(library.SourceSpotify, "sp1", "OK Computer", "Airbag", "Paranoid Android"),
	}}
	mb := &fakeBackend{err: errors.New("service unavailable")}
	lastfm := &fakeBackend{cands: []match.Candidate{
		candidate(library.SourceLastfm, "https://last.fm/x", "Completely Different Record", "Foo"),
	}}
	e.Register(library.SourceSpotify, spotify)
	e.Register(library.SourceMusicBrainz, mb)
	e.Register(library.SourceLastfm, lastfm)

	res, err := e.EnrichAlbum(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, []library.Source{library.SourceSpotify}, res.Applied())
	require.Len(t, res.Sources, 3)
	assert.Equal(t, library.SourceSpotify, res.Sources[0].Source)
	assert.EqualError(t, res.Sources[1].Err, "service unavailable")
	assert.ErrorIs(t, res.Sources[2].Err, match.ErrNoMatch)

	stored, err := lib.AlbumWithTracks(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "sp1", stored.SpotifyID)
	assert.Equal(t, "PLok", stored.YoutubePlaylistID)
	assert.Empty(t, stored.LastfmURL)
	require.Len(t, stored.Tracks, 2)
	assert.Equal(t, "sp1-Airbag", stored.Tracks[0].SpotifyID)
	assert.Equal(t, "sp1-Paranoid Android", stored.Tracks[1].SpotifyID)
	assert.True(t, stored.IsInLibrary)

	// Already linked sources are not asked again.
	res, err = e.EnrichAlbum(ctx, id, false, library.SourceSpotify)
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.True(t, res.Sources[0].Linked)
	assert.Equal(t, int32(1), spotify.calls.Load())

	_, err = e.EnrichAlbum(ctx, id, true, library.SourceSpotify)
	require.NoError(t, err)
	assert.Equal(t, int32(2), spotify.calls.Load())
}

func TestMatchUnregisteredSource(t *testing.T) {
	e, lib, id := setup(t)
	album, err := lib.AlbumWithTracks(context.Background(), id)
	require.NoError(t, err)

	res, err := e.Match(context.Background(), album, false, library.SourceMusicBrainz, library.SourceSpotify)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, library.SourceSpotify, res[0].Source, "priority order")
	assert.Error(t, res[0].Err)
	assert.Error(t, res[1].Err)
}

func TestSources(t *testing.T) {
	e, _, _ := setup(t)
	e.Register(library.SourceLastfm, &fakeBackend{})
	e.Register(library.SourceLocal, &fakeBackend{})
	e.Register(library.SourceYouTube, &fakeBackend{})
	assert.Equal(t, []library.Source{library.SourceYouTube, library.SourceLastfm}, e.Sources())
}

func TestEnrichAlbumNotFound(t *testing.T) {
	e, _, _ := setup(t)
	_, err := e.EnrichAlbum(context.Background(), "missing", false)
	assert.ErrorIs(t, err, library.ErrNotFound)
}
