package match

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/fuzzy"
	"github.com/fistopy/fistopy/internal/library"
)

// ErrNoMatch is returned when no candidate is close enough.
var ErrNoMatch = errors.New("no matching album")

const (
	artistWeight      = 0.5
	durationTolerance = 15 * time.Second
	durationPenalty   = 0.25
)

// Options tune the matcher.
type Options struct {
	MaxDistance      float64 // Best rejects matches above this
	TrackMaxDistance float64 // tracks further apart than this stay unmatched
	IncludeUnmatched bool    // Apply appends unmatched candidate tracks
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return OptionsFromConfig((&config.Config{}).GetMatchConfig())
}

// OptionsFromConfig converts the config section.
func OptionsFromConfig(cfg config.MatchConfig) Options {
	return Options{
		MaxDistance:      cfg.MaxDistance,
		TrackMaxDistance: cfg.TrackMaxDistance,
		IncludeUnmatched: cfg.IncludeUnmatched,
	}
}

// TrackMatch pairs a local track with a candidate track.
type TrackMatch struct {
	LocalIndex     int
	CandidateIndex int
	Distance       float64
}

// AlbumMatch is the scored comparison of a local album and a candidate.
type AlbumMatch struct {
	Candidate      Candidate
	Distance       float64
	TitleDistance  float64
	ArtistDistance float64
	TrackDistance  float64
	CountPenalty   float64
	Tracks         []TrackMatch
	// UnmatchedCandidate holds candidate track indexes no local track took.
	UnmatchedCandidate []int
}

// MatchAlbum scores candidate c against local. The distance is the title
// distance, plus half the artist distance, plus the mean per-track
// distance, plus a penalty for differing track counts. Albums without
// tracks are compared on title and artist only.
func MatchAlbum(local library.AlbumWithTracks, c Candidate, opts Options) AlbumMatch {
	m := AlbumMatch{
		Candidate:      c,
		TitleDistance:  fuzzy.TitleDistance(local.Title, c.Title),
		ArtistDistance: fuzzy.TitleDistance(local.ArtistString(), c.Artist),
	}

	nl, nc := len(local.Tracks), len(c.Tracks)
	if nl == 0 {
		m.UnmatchedCandidate = indexes(nc)
		m.Distance = m.TitleDistance + artistWeight*m.ArtistDistance
		return m
	}

	m.Tracks, m.UnmatchedCandidate = matchTracks(local.Tracks, c.Tracks, opts.TrackMaxDistance)

	sum := float64(nl - len(m.Tracks)) // unmatched locals count 1 each
	for _, tm := range m.Tracks {
		sum += tm.Distance
	}
	m.TrackDistance = sum / float64(nl)
	m.CountPenalty = math.Abs(float64(nl-nc)) / float64(max(nl, nc))
	m.Distance = m.TitleDistance + artistWeight*m.ArtistDistance + m.TrackDistance + m.CountPenalty
	return m
}

// TrackDistance compares a local track with a candidate track: title
// distance plus a fixed penalty when both durations are known and differ
// by more than 15 seconds.
func TrackDistance(local library.TrackCombo, ct CandidateTrack) float64 {
	d := fuzzy.TitleDistance(local.Title, ct.Title)
	if local.Duration > 0 && ct.Duration > 0 {
		gap := local.Duration - ct.Duration
		if gap < 0 {
			gap = -gap
		}
		if gap > durationTolerance {
			d += durationPenalty
		}
	}
	return d
}

// matchTracks pairs tracks greedily: the closest remaining pair is taken
// first, so each candidate track goes to at most one local track. Ties
// resolve in local then candidate order.
func matchTracks(locals []library.TrackCombo, cands []CandidateTrack, maxDist float64) ([]TrackMatch, []int) {
	pairs := make([]TrackMatch, 0, len(locals)*len(cands))
	for i, lt := range locals {
		for j, ct := range cands {
			d := TrackDistance(lt, ct)
			if d <= maxDist {
				pairs = append(pairs, TrackMatch{LocalIndex: i, CandidateIndex: j, Distance: d})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Distance < pairs[b].Distance
	})

	usedLocal := make([]bool, len(locals))
	usedCand := make([]bool, len(cands))
	var matched []TrackMatch
	for _, p := range pairs {
		if usedLocal[p.LocalIndex] || usedCand[p.CandidateIndex] {
			continue
		}
		usedLocal[p.LocalIndex] = true
		usedCand[p.CandidateIndex] = true
		matched = append(matched, p)
	}
	sort.Slice(matched, func(a, b int) bool {
		return matched[a].LocalIndex < matched[b].LocalIndex
	})

	var unmatched []int
	for j, used := range usedCand {
		if !used {
			unmatched = append(unmatched, j)
		}
	}
	return matched, unmatched
}

// Best scores every candidate and returns the closest. Ties go to the
// candidate with more matched tracks, then to the earlier one. When the
// closest is further than opts.MaxDistance it is still returned, together
// with ErrNoMatch.
func Best(local library.AlbumWithTracks, candidates []Candidate, opts Options) (AlbumMatch, error) {
	if len(candidates) == 0 {
		return AlbumMatch{}, ErrNoMatch
	}

	best := MatchAlbum(local, candidates[0], opts)
	for _, c := range candidates[1:] {
		m := MatchAlbum(local, c, opts)
		if m.Distance < best.Distance ||
			(m.Distance == best.Distance && len(m.Tracks) > len(best.Tracks)) {
			best = m
		}
	}

	if best.Distance > opts.MaxDistance {
		return best, ErrNoMatch
	}
	return best, nil
}

// Apply merges a match into a copy of local. The candidate's external IDs
// are stamped on the album and matched tracks; other fields are only
// filled where local has none. With IncludeUnmatched, candidate tracks no
// local track took are appended.
func Apply(local library.AlbumWithTracks, m AlbumMatch, opts Options) library.AlbumWithTracks {
	c := m.Candidate
	out := local
	out.Tags = append([]string(nil), local.Tags...)
	out.Artists = append([]library.Artist(nil), local.Artists...)
	out.Tracks = append([]library.TrackCombo(nil), local.Tracks...)

	if c.ExternalID != "" {
		out.SetExternalID(c.Source, c.ExternalID)
	}
	if c.Source == library.SourceMusicBrainz && c.ReleaseGroupID != "" {
		out.MusicBrainzReleaseGroupID = c.ReleaseGroupID
	}
	if out.Title == "" {
		out.Title = c.Title
	}
	if len(out.Artists) == 0 {
		out.Artists = library.ArtistsFromNames(c.Artist)
	}
	if out.Year == 0 {
		out.Year = c.Year
	}
	if out.ImageURL == "" {
		out.ImageURL = c.ImageURL
	}
	if len(out.Tags) == 0 {
		out.Tags = append(out.Tags, c.Tags...)
	}

	for _, tm := range m.Tracks {
		if tm.LocalIndex >= len(out.Tracks) || tm.CandidateIndex >= len(c.Tracks) {
			continue
		}
		t := &out.Tracks[tm.LocalIndex]
		ct := c.Tracks[tm.CandidateIndex]
		if ct.ExternalID != "" {
			t.SetExternalID(c.Source, ct.ExternalID)
		}
		if t.Duration == 0 {
			t.Duration = ct.Duration
		}
		if t.Disc == 0 {
			t.Disc = ct.Disc
		}
		if t.Position == 0 {
			t.Position = ct.Position
		}
	}

	if opts.IncludeUnmatched {
		for _, j := range m.UnmatchedCandidate {
			if j < len(c.Tracks) {
				out.Tracks = append(out.Tracks, newTrack(c.Source, c.Tracks[j]))
			}
		}
	}

	return out
}

func indexes(n int) []int {
	if n == 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
