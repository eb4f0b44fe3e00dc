package radio

import (
	"github.com/fistopy/fistopy/internal/fuzzy"
	"github.com/fistopy/fistopy/internal/lastfm"
)

// MatchedArtist pairs a Last.fm similar artist with a local library artist.
type MatchedArtist struct {
	LastfmArtist lastfm.SimilarArtist
	LocalArtist  string
}

// matchArtists resolves Last.fm similar artists to local artists. When
// several resolve to the same local artist the most similar one is kept.
func matchArtists(similar []lastfm.SimilarArtist, localArtists []string, threshold float64) []MatchedArtist {
	names := make([]string, len(similar))
	byName := make(map[string]lastfm.SimilarArtist, len(similar))
	for i, s := range similar {
		names[i] = s.Name
		if prev, ok := byName[s.Name]; !ok || s.MatchScore > prev.MatchScore {
			byName[s.Name] = s
		}
	}

	var matched []MatchedArtist
	index := make(map[string]int)
	for _, m := range fuzzy.MatchNames(names, localArtists, threshold) {
		sa := byName[m.Candidate]
		if i, ok := index[m.Local]; ok {
			if sa.MatchScore > matched[i].LastfmArtist.MatchScore {
				matched[i].LastfmArtist = sa
			}
			continue
		}
		index[m.Local] = len(matched)
		matched = append(matched, MatchedArtist{LastfmArtist: sa, LocalArtist: m.Local})
	}
	return matched
}

// countArtists counts occurrences of each artist name.
func countArtists(artists []string) map[string]int {
	counts := make(map[string]int, len(artists))
	for _, a := range artists {
		counts[a]++
	}
	return counts
}

// buildTopTrackMap creates a normalized name -> TopTrack lookup map.
func buildTopTrackMap(tracks []lastfm.TopTrack) map[string]lastfm.TopTrack {
	m := make(map[string]lastfm.TopTrack, len(tracks))
	for _, t := range tracks {
		m[fuzzy.Normalize(t.Name)] = t
	}
	return m
}

// buildUserTrackMap creates a normalized name -> UserTrack lookup map.
func buildUserTrackMap(tracks []lastfm.UserTrack) map[string]lastfm.UserTrack {
	m := make(map[string]lastfm.UserTrack, len(tracks))
	for _, t := range tracks {
		m[fuzzy.Normalize(t.Name)] = t
	}
	return m
}
