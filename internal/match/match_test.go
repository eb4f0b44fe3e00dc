package match

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fistopy/fistopy/internal/library"
)

func localAlbum(title, artist string, tracks ...string) library.AlbumWithTracks {
	a := library.AlbumWithTracks{
		AlbumCombo: library.AlbumCombo{
			Album:   library.Album{ID: "a1", Title: title},
			Artists: library.ArtistsFromNames(artist),
		},
	}
	for i, t := range tracks {
		a.Tracks = append(a.Tracks, library.TrackCombo{
			Track: library.Track{ID: t, Title: t, Position: i + 1},
		})
	}
	return a
}

func candidate(src library.Source, id, title, artist string, tracks ...string) Candidate {
	c := Candidate{Source: src, ExternalID: id, Title: title, Artist: artist}
	for i, t := range tracks {
		c.Tracks = append(c.Tracks, CandidateTrack{
			ExternalID: id + "-" + t,
			Title:      t,
			Position:   i + 1,
		})
	}
	return c
}

func TestMatchAlbum_SelfIsZero(t *testing.T) {
	local := localAlbum("OK Computer", "Radiohead", "Airbag", "Paranoid Android", "Subterranean Homesick Alien")
	local.Tracks[0].Duration = 4 * time.Minute
	c := CandidateFromAlbum(local, library.SourceSpotify)

	m := MatchAlbum(local, c, DefaultOptions())

	assert.Zero(t, m.Distance)
	assert.Len(t, m.Tracks, 3)
	assert.Empty(t, m.UnmatchedCandidate)
}

func TestMatchAlbum_Terms(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		name        string
		local       library.AlbumWithTracks
		cand        Candidate
		wantMatched int
		wantPenalty float64
		check       func(t *testing.T, m AlbumMatch)
	}{
		{
			name:        "edition suffix ignored",
			local:       localAlbum("Kid A", "Radiohead", "Everything In Its Right Place", "Kid A"),
			cand:        candidate(library.SourceSpotify, "sp", "Kid A (Remastered)", "Radiohead", "Everything In Its Right Place - Remastered", "Kid A"),
			wantMatched: 2,
			check: func(t *testing.T, m AlbumMatch) {
				assert.Zero(t, m.TitleDistance)
				assert.Zero(t, m.Distance)
			},
		},
		{
			name:        "missing candidate track",
			local:       localAlbum("Album", "Artist", "One", "Two", "Three", "Four"),
			cand:        candidate(library.SourceYouTube, "yt", "Album", "Artist", "One", "Two", "Three"),
			wantMatched: 3,
			wantPenalty: 0.25,
			check: func(t *testing.T, m AlbumMatch) {
				assert.InDelta(t, 0.25, m.TrackDistance, 1e-9)
				assert.InDelta(t, 0.5, m.Distance, 1e-9)
			},
		},
		{
			name:        "candidate without tracks",
			local:       localAlbum("Album", "Artist", "One", "Two"),
			cand:        candidate(library.SourceMusicBrainz, "mb", "Album", "Artist"),
			wantMatched: 0,
			wantPenalty: 1,
			check: func(t *testing.T, m AlbumMatch) {
				assert.InDelta(t, 1.0, m.TrackDistance, 1e-9)
			},
		},
		{
			name:        "local without tracks",
			local:       localAlbum("Album", "Artist"),
			cand:        candidate(library.SourceSpotify, "sp", "Album", "Someone Else", "One", "Two"),
			wantMatched: 0,
			check: func(t *testing.T, m AlbumMatch) {
				assert.Zero(t, m.TrackDistance)
				assert.Equal(t, []int{0, 1}, m.UnmatchedCandidate)
				assert.InDelta(t, 0.5*m.ArtistDistance, m.Distance, 1e-9)
				assert.Greater(t, m.Distance, 0.0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatchAlbum(tt.local, tt.cand, opts)
			assert.Len(t, m.Tracks, tt.wantMatched)
			assert.InDelta(t, tt.wantPenalty, m.CountPenalty, 1e-9)
			assert.GreaterOrEqual(t, m.Distance, 0.0)
			if tt.check != nil {
				tt.check(t, m)
			}
		})
	}
}

func TestMatchAlbum_CandidateTrackUsedOnce(t *testing.T) {
	local := localAlbum("Album", "Artist", "Intro", "Intro")
	c := candidate(library.SourceSpotify, "sp", "Album", "Artist", "Intro")

	m := MatchAlbum(local, c, DefaultOptions())

	require.Len(t, m.Tracks, 1)
	assert.Equal(t, 0, m.Tracks[0].LocalIndex)
	assert.Equal(t, 0, m.Tracks[0].CandidateIndex)
}

func TestMatchAlbum_GreedyPrefersClosestPair(t *testing.T) {
	// Matched in local order, "Hello Worly" would take "Hello World"
	// and leave the exact local track with a worse pair.
	local := localAlbum("Album", "Artist", "Hello Worly", "Hello World")
	c := candidate(library.SourceSpotify, "sp", "Album", "Artist", "Hello World", "Hello Worlz")

	m := MatchAlbum(local, c, DefaultOptions())

	require.Len(t, m.Tracks, 2)
	assert.Equal(t, TrackMatch{LocalIndex: 1, CandidateIndex: 0, Distance: 0}, m.Tracks[1])
	assert.Equal(t, 1, m.Tracks[0].CandidateIndex)
	assert.InDelta(t, 1.0/11, m.Tracks[0].Distance, 1e-9)
}

func TestTrackDistance_Duration(t *testing.T) {
	lt := library.TrackCombo{Track: library.Track{Title: "Song", Duration: 200 * time.Second}}

	assert.Zero(t, TrackDistance(lt, CandidateTrack{Title: "Song", Duration: 210 * time.Second}))
	assert.InDelta(t, 0.25, TrackDistance(lt, CandidateTrack{Title: "Song", Duration: 230 * time.Second}), 1e-9)
	assert.Zero(t, TrackDistance(lt, CandidateTrack{Title: "Song"}))
}

func TestMatchAlbum_TrackMaxDistance(t *testing.T) {
	local := localAlbum("Album", "Artist", "Completely Different")
	c := candidate(library.SourceSpotify, "sp", "Album", "Artist", "Nothing Alike Here")

	m := MatchAlbum(local, c, DefaultOptions())

	assert.Empty(t, m.Tracks)
	assert.Equal(t, []int{0}, m.UnmatchedCandidate)
	assert.InDelta(t, 1.0, m.TrackDistance, 1e-9)
}

func TestBest(t *testing.T) {
	local := localAlbum("In Rainbows", "Radiohead", "15 Step", "Bodysnatchers", "Nude")
	opts := DefaultOptions()

	t.Run("no candidates", func(t *testing.T) {
		_, err := Best(local, nil, opts)
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("closest wins", func(t *testing.T) {
		cands := []Candidate{
			candidate(library.SourceSpotify, "far", "Hail to the Thief", "Radiohead", "2 + 2 = 5"),
			candidate(library.SourceSpotify, "near", "In Rainbows", "Radiohead", "15 Step", "Bodysnatchers", "Nude"),
		}
		m, err := Best(local, cands, opts)
		require.NoError(t, err)
		assert.Equal(t, "near", m.Candidate.ExternalID)
	})

	t.Run("tie goes to more matched tracks", func(t *testing.T) {
		// Both sit at 0.25: one leaves a local track unmatched, the other
		// matches every track with a duration penalty.
		local := localAlbum("In Rainbows", "Radiohead", "15 Step", "Bodysnatchers", "Nude", "Reckoner")
		for i := range local.Tracks {
			local.Tracks[i].Duration = 200 * time.Second
		}
		fewer := candidate(library.SourceSpotify, "fewer", "In Rainbows", "Radiohead", "15 Step", "Bodysnatchers", "Nude", "Qqqqqqqq")
		more := candidate(library.SourceSpotify, "more", "In Rainbows", "Radiohead", "15 Step", "Bodysnatchers", "Nude", "Reckoner")
		for i := range more.Tracks {
			more.Tracks[i].Duration = 300 * time.Second
		}
		mf := MatchAlbum(local, fewer, opts)
		mm := MatchAlbum(local, more, opts)
		require.Len(t, mf.Tracks, 3)
		require.Len(t, mm.Tracks, 4)
		require.Equal(t, mf.Distance, mm.Distance)

		m, err := Best(local, []Candidate{fewer, more}, opts)
		require.NoError(t, err)
		assert.Equal(t, "more", m.Candidate.ExternalID)
	})

	t.Run("tie keeps candidate order", func(t *testing.T) {
		a := candidate(library.SourceSpotify, "first", "In Rainbows", "Radiohead", "15 Step", "Bodysnatchers", "Nude")
		b := a
		b.ExternalID = "second"
		m, err := Best(local, []Candidate{a, b}, opts)
		require.NoError(t, err)
		assert.Equal(t, "first", m.Candidate.ExternalID)
	})

	t.Run("too far", func(t *testing.T) {
		cands := []Candidate{candidate(library.SourceSpotify, "x", "Zzzz", "Nobody", "Qqqq")}
		m, err := Best(local, cands, opts)
		assert.True(t, errors.Is(err, ErrNoMatch))
		assert.Equal(t, "x", m.Candidate.ExternalID)
		assert.Greater(t, m.Distance, opts.MaxDistance)
	})
}

func TestApply(t *testing.T) {
	local := localAlbum("Album", "Artist", "One", "Two")
	local.Year = 1999
	local.Tracks[1].Duration = time.Minute

	c := candidate(library.SourceSpotify, "sp-album", "Album", "Artist", "One", "Two", "Bonus")
	c.Year = 2001
	c.ImageURL = "https://img/cover.jpg"
	c.Tags = []string{"rock"}
	c.Tracks[0].Duration = 3 * time.Minute
	c.Tracks[1].Duration = 65 * time.Second
	c.Tracks[2].Artist = "Guest"

	opts := DefaultOptions()
	m := MatchAlbum(local, c, opts)
	got := Apply(local, m, opts)

	assert.Equal(t, "sp-album", got.SpotifyID)
	assert.Equal(t, 1999, got.Year, "existing year kept")
	assert.Equal(t, "https://img/cover.jpg", got.ImageURL)
	assert.Equal(t, []string{"rock"}, got.Tags)
	require.Len(t, got.Tracks, 2)
	assert.Equal(t, "sp-album-One", got.Tracks[0].SpotifyID)
	assert.Equal(t, 3*time.Minute, got.Tracks[0].Duration)
	assert.Equal(t, time.Minute, got.Tracks[1].Duration, "existing duration kept")

	// local untouched
	assert.Empty(t, local.SpotifyID)
	assert.Empty(t, local.Tracks[0].SpotifyID)

	opts.IncludeUnmatched = true
	got = Apply(local, m, opts)
	require.Len(t, got.Tracks, 3)
	bonus := got.Tracks[2]
	assert.Equal(t, "Bonus", bonus.Title)
	assert.Equal(t, "sp-album-Bonus", bonus.SpotifyID)
	assert.Equal(t, "Guest", bonus.ArtistString())
}

func TestApply_MusicBrainzReleaseGroup(t *testing.T) {
	local := localAlbum("Album", "Artist")
	c := candidate(library.SourceMusicBrainz, "rel", "Album", "Artist")
	c.ReleaseGroupID = "rg"

	got := Apply(local, MatchAlbum(local, c, DefaultOptions()), DefaultOptions())

	assert.Equal(t, "rel", got.MusicBrainzReleaseID)
	assert.Equal(t, "rg", got.MusicBrainzReleaseGroupID)
}

func TestNewAlbum(t *testing.T) {
	c := candidate(library.SourceYouTube, "PL1", "Album", "Artist", "One")
	c.Year = 2010

	a := NewAlbum(c)

	assert.Equal(t, "PL1", a.YoutubePlaylistID)
	assert.Equal(t, 2010, a.Year)
	assert.Equal(t, "Artist", a.ArtistString())
	require.Len(t, a.Tracks, 1)
	assert.Equal(t, "PL1-One", a.Tracks[0].YoutubeVideoID)
	assert.False(t, a.IsLocal)

	local := NewAlbum(Candidate{Source: library.SourceLocal, Title: "X",
		Tracks: []CandidateTrack{{ExternalID: "/music/x.mp3", Title: "x"}}})
	assert.True(t, local.IsLocal)
	assert.Equal(t, "/music/x.mp3", local.Tracks[0].LocalPath)
}
