package radio

import (
	"math/rand/v2"
	"sort"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/library"
)

// topTrackWindow is the number of Last.fm top tracks that get a boost.
const topTrackWindow = 50

// Candidate represents a potential track to add to the radio.
type Candidate struct {
	Track           library.TrackCombo
	Artist          string  // local artist the track was found under
	SimilarityScore float64 // 0-1 from Last.fm
	GlobalPlaycount int     // From Last.fm artist.getTopTracks
	Rank            int     // Rank in top tracks
	UserScrobbled   bool    // Whether user has scrobbled this track
	UserPlaycount   int     // User's scrobble count for this track
	IsFavorite      bool    // Whether track is in the Favorites playlist
	RecentlyPlayed  bool    // Whether track was played since the radio started
	Score           float64 // Final calculated score
}

// calculateScore computes the final score for a candidate track:
// global popularity, boosted by top-track rank and by the user's
// preference (favorite over scrobbled), decayed when recently played and
// weighted by artist similarity.
func calculateScore(cfg config.RadioConfig, c Candidate) float64 {
	// normalized against ~10M plays
	baseScore := float64(c.GlobalPlaycount) / 10000000.0
	baseScore = min(max(baseScore, 0.01), 1.0)

	topBoost := 1.0
	if c.Rank > 0 && c.Rank <= topTrackWindow {
		topBoost = 1 + (cfg.TopTrackBoost-1)*float64(topTrackWindow-c.Rank+1)/topTrackWindow
	}

	preference := 1.0
	switch {
	case c.IsFavorite:
		preference = cfg.FavoriteBoost
	case c.UserScrobbled:
		preference = cfg.UserBoost
	}

	decay := 1.0
	if c.RecentlyPlayed {
		decay = cfg.DecayFactor
	}

	similarity := max(c.SimilarityScore, cfg.MinSimilarityWeight)

	return baseScore * topBoost * preference * decay * similarity
}

// selectTracks selects tracks from candidates using weighted random selection.
// Returns up to count tracks, avoiding duplicates and enforcing artist variety.
// artistCounts holds how many times each artist appeared recently;
// maxArtistRepeat bounds recent plus selected appearances per artist.
func selectTracks(candidates []Candidate, count int, artistCounts map[string]int, maxArtistRepeat int) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	totalScore := 0.0
	for i := range candidates {
		totalScore += candidates[i].Score
	}
	if totalScore == 0 {
		totalScore = float64(len(candidates))
		for i := range candidates {
			candidates[i].Score = 1.0
		}
	}

	selected := make([]Candidate, 0, count)
	used := make(map[string]bool)
	sessionArtists := make(map[string]int)

	maxAttempts := count * 10

	for len(selected) < count && len(used) < len(candidates) && maxAttempts > 0 {
		maxAttempts--

		// Weighted pick among eligible candidates only, so the draw
		// always lands when something is eligible.
		eligibleScore := 0.0
		for i := range candidates {
			if eligible(&candidates[i], used, artistCounts, sessionArtists, maxArtistRepeat) {
				eligibleScore += candidates[i].Score
			}
		}
		if eligibleScore == 0 {
			break
		}

		r := rand.Float64() * eligibleScore //nolint:gosec // crypto not needed for music selection
		cumulative := 0.0
		for i := range candidates {
			c := &candidates[i]
			if !eligible(c, used, artistCounts, sessionArtists, maxArtistRepeat) {
				continue
			}
			cumulative += c.Score
			if r <= cumulative {
				selected = append(selected, *c)
				used[c.Track.ID] = true
				sessionArtists[c.Artist]++
				break
			}
		}
	}

	return selected
}

func eligible(c *Candidate, used map[string]bool, recent, session map[string]int, maxRepeat int) bool {
	if used[c.Track.ID] {
		return false
	}
	return recent[c.Artist]+session[c.Artist] < maxRepeat
}

// selectArtistsWeighted picks up to count artists at random, weighted by
// similarity with a floor of minWeight. Lower-similarity artists still get
// a chance, so consecutive batches do not always walk the same artists.
func selectArtistsWeighted(artists []MatchedArtist, count int, minWeight float64) []MatchedArtist {
	if len(artists) == 0 {
		return nil
	}
	if count >= len(artists) {
		result := make([]MatchedArtist, len(artists))
		copy(result, artists)
		return result
	}

	totalWeight := 0.0
	weights := make([]float64, len(artists))
	for i, a := range artists {
		weights[i] = max(a.LastfmArtist.MatchScore, minWeight)
		totalWeight += weights[i]
	}

	selected := make([]MatchedArtist, 0, count)
	used := make([]bool, len(artists))

	for len(selected) < count && totalWeight > 0 {
		r := rand.Float64() * totalWeight //nolint:gosec // crypto not needed for music selection
		cumulative := 0.0
		pick := -1
		for i := range artists {
			if used[i] {
				continue
			}
			pick = i
			cumulative += weights[i]
			if r <= cumulative {
				break
			}
		}
		if pick < 0 {
			break
		}
		used[pick] = true
		selected = append(selected, artists[pick])
		totalWeight -= weights[pick]
	}

	return selected
}
