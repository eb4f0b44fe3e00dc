package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/store"
)

type fakeExtender struct {
	next  []library.TrackCombo
	err   error
	calls []int
}

func (f *fakeExtender) Extend(_ context.Context, _ string, n int) ([]library.TrackCombo, error) {
	f.calls = append(f.calls, n)
	if f.err != nil {
		return nil, f.err
	}
	if n > len(f.next) {
		n = len(f.next)
	}
	out := f.next[:n]
	f.next = f.next[n:]
	return out, nil
}

func setup(t *testing.T) (*store.Store, *library.Library, []library.TrackCombo) {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	lib := library.New(st.DB())
	a := library.AlbumWithTracks{AlbumCombo: library.AlbumCombo{
		Album:   library.Album{Title: "OK Computer", IsInLibrary: true},
		Artists: library.ArtistsFromNames("Radiohead"),
	}}
	for i := range 8 {
		a.Tracks = append(a.Tracks, library.TrackCombo{Track: library.Track{
			Title: fmt.Sprintf("Track %d", i+1), Disc: 1, Position: i + 1,
		}})
	}
	require.NoError(t, lib.SaveAlbumWithTracks(context.Background(), &a))
	return st, lib, a.Tracks
}

func load(t *testing.T, st *store.Store, lib *library.Library) *Manager {
	t.Helper()
	m, err := Load(context.Background(), st, lib, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func managerIDs(m *Manager) []string {
	tracks, _ := m.Tracks()
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestLoadEmpty(t *testing.T) {
	st, lib, _ := setup(t)
	m := load(t, st, lib)

	tracks, idx := m.Tracks()
	assert.Empty(t, tracks)
	assert.Equal(t, -1, idx)
	assert.Empty(t, m.RadioID())
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestSaveAndReload(t *testing.T) {
	st, lib, tracks := setup(t)
	ctx := context.Background()
	m := load(t, st, lib)

	m.PlayRadio("radio-1", tracks[:3])
	m.InsertNext(tracks[5])
	_, ok, err := m.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	m.Flush()

	reloaded := load(t, st, lib)
	assert.Equal(t, managerIDs(m), managerIDs(reloaded))
	_, idx := reloaded.Tracks()
	assert.Equal(t, 1, idx)
	assert.Equal(t, "radio-1", reloaded.RadioID())
	cur, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, tracks[5].ID, cur.ID)
	assert.Equal(t, "OK Computer", cur.AlbumTitle())
}

func TestLoadDropsDeletedTracks(t *testing.T) {
	st, lib, tracks := setup(t)
	ctx := context.Background()
	m := load(t, st, lib)
	m.Replace(tracks[0], tracks[1])
	m.Flush()

	require.NoError(t, lib.DeleteAlbum(ctx, tracks[0].AlbumID))

	reloaded := load(t, st, lib)
	tr, idx := reloaded.Tracks()
	assert.Empty(t, tr)
	assert.Equal(t, -1, idx)
}

func saveOther(t *testing.T, lib *library.Library, title string) library.TrackCombo {
	t.Helper()
	a := library.AlbumWithTracks{AlbumCombo: library.AlbumCombo{
		Album:   library.Album{Title: title, IsInLibrary: true},
		Artists: library.ArtistsFromNames("Portishead"),
	}}
	a.Tracks = []library.TrackCombo{{Track: library.Track{Title: title + " 1", Disc: 1, Position: 1}}}
	require.NoError(t, lib.SaveAlbumWithTracks(context.Background(), &a))
	return a.Tracks[0]
}

func TestLoadKeepsCurrentTrackAfterDeletes(t *testing.T) {
	st, lib, tracks := setup(t)
	ctx := context.Background()
	other := saveOther(t, lib, "Dummy")
	m := load(t, st, lib)
	m.Replace(other, tracks[0], tracks[1])
	_, ok, err := m.JumpTo(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	m.Flush()

	require.NoError(t, lib.DeleteAlbum(ctx, other.AlbumID))

	reloaded := load(t, st, lib)
	cur, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, "Track 1", cur.Title)
	_, idx := reloaded.Tracks()
	assert.Equal(t, 0, idx)
}

func TestLoadMovesToNextSurvivingTrack(t *testing.T) {
	st, lib, tracks := setup(t)
	ctx := context.Background()
	first := saveOther(t, lib, "Dummy")
	current := saveOther(t, lib, "Third")
	m := load(t, st, lib)
	m.Replace(first, tracks[0], current, tracks[1])
	_, ok, err := m.JumpTo(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	m.Flush()

	require.NoError(t, lib.DeleteAlbum(ctx, first.AlbumID))
	require.NoError(t, lib.DeleteAlbum(ctx, current.AlbumID))

	reloaded := load(t, st, lib)
	cur, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, "Track 2", cur.Title)
}

func TestSurvivingIndex(t *testing.T) {
	combos := func(ids ...string) []library.TrackCombo {
		out := make([]library.TrackCombo, len(ids))
		for i, id := range ids {
			out[i].ID = id
		}
		return out
	}
	tests := []struct {
		name   string
		state  savedState
		tracks []library.TrackCombo
		want   int
	}{
		{
			"nothing deleted",
			savedState{CurrentIndex: 2, TrackIDs: []string{"a", "b", "c", "d"}, Positions: []int{0, 1, 2, 3}},
			combos("a", "b", "c", "d"), 2,
		},
		{
			"earlier row cascaded away",
			savedState{CurrentIndex: 2, TrackIDs: []string{"b", "c", "d"}, Positions: []int{1, 2, 3}},
			combos("b", "c", "d"), 1,
		},
		{
			"current row cascaded away",
			savedState{CurrentIndex: 2, TrackIDs: []string{"a", "b", "d"}, Positions: []int{0, 1, 3}},
			combos("a", "b", "d"), 2,
		},
		{
			"track missing from library",
			savedState{CurrentIndex: 2, TrackIDs: []string{"a", "b", "c", "d"}, Positions: []int{0, 1, 2, 3}},
			combos("b", "c", "d"), 1,
		},
		{
			"all after deleted",
			savedState{CurrentIndex: 2, TrackIDs: []string{"a", "b"}, Positions: []int{0, 1}},
			combos("a", "b"), 1,
		},
		{
			"none current",
			savedState{CurrentIndex: -1, TrackIDs: []string{"a"}, Positions: []int{0}},
			combos("a"), -1,
		},
		{"all deleted", savedState{CurrentIndex: 1}, nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, survivingIndex(tt.state, tt.tracks))
		})
	}
}

func TestNextRecordsPlay(t *testing.T) {
	st, lib, tracks := setup(t)
	ctx := context.Background()
	m := load(t, st, lib)
	at := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return at }

	var played []string
	m.OnPlay(func(_ context.Context, track library.TrackCombo, when time.Time) {
		played = append(played, track.ID)
		assert.Equal(t, at, when)
	})

	m.Add(tracks[0], tracks[1])
	track, ok, err := m.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, track.PlayCount)

	stored, err := lib.TrackCombo(ctx, tracks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.PlayCount)
	assert.Equal(t, at.Unix(), stored.LastPlayedAt.Unix())

	_, ok, err = m.JumpTo(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = m.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no track after the last one")

	assert.Equal(t, []string{tracks[0].ID, tracks[1].ID}, played)
}

func TestFillFromRadio(t *testing.T) {
	st, lib, tracks := setup(t)
	ctx := context.Background()
	m := load(t, st, lib)
	ext := &fakeExtender{next: tracks[2:]}
	m.SetRadio(ext, 4)

	// no radio attached yet
	n, err := m.FillFromRadio(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	m.PlayRadio("r", tracks[:2])

	// one track left after the current one, below half of 4
	n, err = m.FillFromRadio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{3}, ext.calls)
	assert.Len(t, managerIDs(m), 5)

	// four left: enough
	n, err = m.FillFromRadio(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Next tops up before advancing once the buffer runs low
	for range 4 {
		_, _, err := m.Next(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{3, 3}, ext.calls)
	assert.Len(t, managerIDs(m), 8)

	m.Replace(tracks[0])
	n, err = m.FillFromRadio(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "replacing the queue detaches the radio")
}

func TestFillFromRadioError(t *testing.T) {
	st, lib, tracks := setup(t)
	ctx := context.Background()
	m := load(t, st, lib)
	m.SetRadio(&fakeExtender{err: errors.New("library has no tracks")}, 4)
	m.PlayRadio("r", tracks[:1])

	_, err := m.FillFromRadio(ctx)
	require.Error(t, err)

	// playback still works when the top-up fails
	_, ok, err := m.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerUndoRedo(t *testing.T) {
	st, lib, tracks := setup(t)
	m := load(t, st, lib)

	m.Add(tracks[0])
	m.Add(tracks[1])
	require.True(t, m.RemoveAt(0))
	assert.Equal(t, []string{tracks[1].ID}, managerIDs(m))

	require.True(t, m.Undo())
	assert.Equal(t, []string{tracks[0].ID, tracks[1].ID}, managerIDs(m))
	require.True(t, m.Move(0, 1))
	assert.Equal(t, []string{tracks[1].ID, tracks[0].ID}, managerIDs(m))
	assert.False(t, m.Redo(), "a new change drops redo states")

	m.Clear()
	assert.Empty(t, managerIDs(m))
	require.True(t, m.Undo())
	assert.Len(t, managerIDs(m), 2)
}
