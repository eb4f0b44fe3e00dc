// Package radio builds auto-generated, continuously extended track lists
// seeded from a track, an album, an artist or the whole library. Tracks
// are picked among Last.fm similar artists present in the library, with
// random library tracks as fallback.
package radio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/fuzzy"
	"github.com/fistopy/fistopy/internal/lastfm"
	"github.com/fistopy/fistopy/internal/library"
)

const (
	maxSeedAttempts = 5
	topTracksLimit  = 50
	userTracksLimit = 200
)

// Type is what a radio was seeded from.
type Type string

const (
	TypeTrack   Type = "track"
	TypeAlbum   Type = "album"
	TypeArtist  Type = "artist"
	TypeLibrary Type = "library"
)

// ParseType validates a radio type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case TypeTrack, TypeAlbum, TypeArtist, TypeLibrary:
		return t, nil
	}
	return "", fmt.Errorf("unknown radio type %q", s)
}

// ErrEmptyLibrary is returned when there is nothing to play.
var ErrEmptyLibrary = errors.New("library has no tracks")

// Radio is a persisted radio. SeedID is a track ID, an album ID or an
// artist name depending on Type; it is empty for library radios.
type Radio struct {
	ID        string
	Type      Type
	SeedID    string
	Title     string
	CreatedAt time.Time
}

// LastfmAPI is the part of the Last.fm client used by radios.
type LastfmAPI interface {
	Username() string
	GetSimilarArtists(ctx context.Context, artist string, limit int) ([]lastfm.SimilarArtist, error)
	GetArtistTopTracks(ctx context.Context, artist string, limit int) ([]lastfm.TopTrack, error)
	GetUserArtistTracks(ctx context.Context, artist string, limit int) ([]lastfm.UserTrack, error)
}

// FavoritesFunc returns the IDs of the user's favorite tracks.
type FavoritesFunc func(ctx context.Context) (map[string]bool, error)

// Service creates and extends radios.
type Service struct {
	db        *sql.DB
	lib       *library.Library
	client    LastfmAPI // nil disables Last.fm
	cache     *Cache
	config    config.RadioConfig
	favorites FavoritesFunc
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a radio service. client may be nil.
func New(db *sql.DB, lib *library.Library, client LastfmAPI, cfg config.RadioConfig, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		lib:    lib,
		client: client,
		cache:  NewCache(db, cfg.CacheTTLDays),
		config: cfg,
		log:    log.With().Str("component", "radio").Logger(),
		now:    time.Now,
	}
}

// SetFavorites sets where favorite tracks come from.
func (s *Service) SetFavorites(fn FavoritesFunc) {
	s.favorites = fn
}

// Cache exposes the Last.fm response cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Start creates a radio from a seed and its first batch of tracks. A
// track radio starts with the seed track itself.
func (s *Service) Start(ctx context.Context, typ Type, seedID string) (Radio, []library.TrackCombo, error) {
	r := Radio{
		ID:        uuid.NewString(),
		Type:      typ,
		SeedID:    seedID,
		CreatedAt: s.now(),
	}

	var first []library.TrackCombo
	switch typ {
	case TypeTrack:
		t, err := s.lib.TrackCombo(ctx, seedID)
		if err != nil {
			return Radio{}, nil, fmt.Errorf("seed track: %w", err)
		}
		r.Title = t.Title
		if artist := t.ArtistString(); artist != "" {
			r.Title = artist + " - " + t.Title
		}
		first = []library.TrackCombo{t}
	case TypeAlbum:
		a, err := s.lib.AlbumWithTracks(ctx, seedID)
		if err != nil {
			return Radio{}, nil, fmt.Errorf("seed album: %w", err)
		}
		r.Title = a.Title
	case TypeArtist:
		tracks, err := s.lib.TracksByArtist(ctx, seedID)
		if err != nil {
			return Radio{}, nil, err
		}
		if len(tracks) == 0 {
			return Radio{}, nil, fmt.Errorf("seed artist %q: %w", seedID, library.ErrNotFound)
		}
		r.Title = seedID
	case TypeLibrary:
		r.SeedID = ""
		r.Title = "Library"
	default:
		return Radio{}, nil, fmt.Errorf("unknown radio type %q", typ)
	}

	if err := s.insertRadio(ctx, r); err != nil {
		return Radio{}, nil, err
	}
	if err := s.appendTracks(ctx, r.ID, first); err != nil {
		return Radio{}, nil, err
	}

	more, err := s.Extend(ctx, r.ID, s.config.BufferSize-len(first))
	if err != nil && !(errors.Is(err, ErrEmptyLibrary) && len(first) > 0) {
		_ = s.Delete(ctx, r.ID)
		return Radio{}, nil, err
	}
	s.log.Info().Str("radio", r.ID).Str("type", string(typ)).Str("title", r.Title).Msg("radio started")
	return r, append(first, more...), nil
}

// Extend appends up to n tracks to the radio and returns them. A track
// already in the radio comes back only once every library track has
// been used.
func (s *Service) Extend(ctx context.Context, radioID string, n int) ([]library.TrackCombo, error) {
	if n <= 0 {
		return nil, nil
	}
	r, err := s.Get(ctx, radioID)
	if err != nil {
		return nil, err
	}
	historyIDs, err := s.TrackIDs(ctx, radioID)
	if err != nil {
		return nil, err
	}

	picked, err := s.fill(ctx, r, historyIDs, n)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, ErrEmptyLibrary
	}
	if err := s.appendTracks(ctx, radioID, picked); err != nil {
		return nil, err
	}
	s.log.Debug().Str("radio", radioID).Int("tracks", len(picked)).Msg("radio extended")
	return picked, nil
}

// fill picks n tracks: Last.fm similar artists first, random library
// tracks for the rest.
func (s *Service) fill(ctx context.Context, r Radio, historyIDs []string, n int) ([]library.TrackCombo, error) {
	used := make(map[string]bool, len(historyIDs))
	for _, id := range historyIDs {
		used[id] = true
	}

	window := historyIDs[max(0, len(historyIDs)-s.config.BufferSize):]
	recent, err := s.lib.TrackCombos(ctx, window)
	if err != nil {
		return nil, err
	}

	var picked []library.TrackCombo
	if s.client != nil && (r.Type != TypeLibrary || len(recent) > 0) {
		seeds, err := s.seedArtists(ctx, r, recent)
		if err != nil {
			return nil, err
		}
		picked = s.fromLastfm(ctx, r, seeds, recent, used, n)
	}

	if len(picked) < n {
		random, err := s.random(ctx, n-len(picked), historyIDs, picked)
		if err != nil {
			return nil, err
		}
		picked = append(picked, random...)
	}
	return picked, nil
}

// seedArtists orders the artists to try: the artist of the latest track,
// then the radio's own seed artists, then earlier recent artists.
func (s *Service) seedArtists(ctx context.Context, r Radio, recent []library.TrackCombo) ([]string, error) {
	var names []string
	if len(recent) > 0 {
		names = append(names, artistNames(recent[len(recent)-1].Artists)...)
	}

	switch r.Type {
	case TypeTrack:
		t, err := s.lib.TrackCombo(ctx, r.SeedID)
		if err != nil && !errors.Is(err, library.ErrNotFound) {
			return nil, err
		}
		names = append(names, artistNames(t.Artists)...)
	case TypeAlbum:
		a, err := s.lib.AlbumWithTracks(ctx, r.SeedID)
		if err != nil && !errors.Is(err, library.ErrNotFound) {
			return nil, err
		}
		names = append(names, artistNames(a.Artists)...)
	case TypeArtist:
		names = append(names, r.SeedID)
	case TypeLibrary:
	}

	for i := len(recent) - 2; i >= 0; i-- {
		names = append(names, artistNames(recent[i].Artists)...)
	}

	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if len(out) == maxSeedAttempts {
			break
		}
	}
	return out, nil
}

// fromLastfm tries each seed until one yields tracks. A Last.fm failure
// ends the attempt; the caller falls back to random tracks.
func (s *Service) fromLastfm(
	ctx context.Context,
	r Radio,
	seeds []string,
	recent []library.TrackCombo,
	used map[string]bool,
	n int,
) []library.TrackCombo {
	localArtists, err := s.lib.ArtistNames(ctx)
	if err != nil || len(localArtists) == 0 {
		return nil
	}

	var recentArtists []string
	for _, t := range recent {
		if len(t.Artists) > 0 {
			recentArtists = append(recentArtists, t.Artists[0].Name)
		}
	}
	artistCounts := countArtists(recentArtists)

	favorites := map[string]bool{}
	if s.favorites != nil {
		if fav, err := s.favorites(ctx); err == nil {
			favorites = fav
		} else {
			s.log.Warn().Err(err).Msg("favorites unavailable")
		}
	}

	for _, seed := range seeds {
		similar, err := s.similarArtists(ctx, seed)
		if err != nil {
			s.log.Warn().Err(err).Str("seed", seed).Msg("similar artists unavailable, using random tracks")
			return nil
		}

		// the seed artist itself belongs to its own radio
		pool := append([]lastfm.SimilarArtist{{Name: seed, MatchScore: 1}}, similar...)
		matched := matchArtists(pool, localArtists, s.config.ArtistMatchThreshold)
		if len(matched) == 0 {
			continue
		}

		artists := selectArtistsWeighted(matched, s.config.ArtistsPerFill, s.config.MinSimilarityWeight)
		candidates := s.buildCandidatePool(ctx, r, artists, used, favorites)
		selected := selectTracks(candidates, n, artistCounts, s.config.MaxArtistRepeat)
		if len(selected) == 0 {
			continue
		}

		tracks := make([]library.TrackCombo, len(selected))
		for i := range selected {
			tracks[i] = selected[i].Track
		}
		s.log.Debug().Str("seed", seed).Int("artists", len(artists)).Int("candidates", len(candidates)).Msg("radio candidates")
		return tracks
	}
	return nil
}

// artistData holds fetched Last.fm data for an artist.
type artistData struct {
	artist     MatchedArtist
	topTracks  []lastfm.TopTrack
	userTracks []lastfm.UserTrack
}

// buildCandidatePool scores every unused library track of artists.
func (s *Service) buildCandidatePool(
	ctx context.Context,
	r Radio,
	artists []MatchedArtist,
	used map[string]bool,
	favorites map[string]bool,
) []Candidate {
	var candidates []Candidate
	for _, ad := range s.fetchArtistData(ctx, artists) {
		libraryTracks, err := s.lib.TracksByArtist(ctx, ad.artist.LocalArtist)
		if err != nil {
			continue
		}

		topTrackMap := buildTopTrackMap(ad.topTracks)
		userTrackMap := buildUserTrackMap(ad.userTracks)

		for i := range libraryTracks {
			lt := libraryTracks[i]
			if used[lt.ID] {
				continue
			}
			c := Candidate{
				Track:           lt,
				Artist:          ad.artist.LocalArtist,
				SimilarityScore: ad.artist.LastfmArtist.MatchScore,
				IsFavorite:      favorites[lt.ID],
				RecentlyPlayed:  !lt.LastPlayedAt.IsZero() && lt.LastPlayedAt.After(r.CreatedAt),
			}
			title := fuzzy.Normalize(lt.Title)
			if tt, ok := topTrackMap[title]; ok {
				c.GlobalPlaycount = tt.Playcount
				c.Rank = tt.Rank
			}
			if ut, ok := userTrackMap[title]; ok {
				c.UserScrobbled = true
				c.UserPlaycount = ut.Playcount
			}
			c.Score = calculateScore(s.config, c)
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// fetchArtistData fetches top tracks and user scrobbles for all artists
// concurrently. Failures leave the data empty.
func (s *Service) fetchArtistData(ctx context.Context, artists []MatchedArtist) []artistData {
	results := make([]artistData, len(artists))
	var g errgroup.Group
	for i, ma := range artists {
		g.Go(func() error {
			ad := artistData{artist: ma}
			if top, err := s.artistTopTracks(ctx, ma.LocalArtist); err == nil {
				ad.topTracks = top
			}
			if user, err := s.userArtistTracks(ctx, ma.LocalArtist); err == nil {
				ad.userTracks = user
			}
			results[i] = ad
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// random picks n random library tracks outside the radio. Once the
// library is exhausted tracks may repeat, the most recent ones last.
func (s *Service) random(ctx context.Context, n int, historyIDs []string, picked []library.TrackCombo) ([]library.TrackCombo, error) {
	pickedIDs := make([]string, len(picked))
	for i, t := range picked {
		pickedIDs[i] = t.ID
	}

	recentStart := max(0, len(historyIDs)-s.config.BufferSize)
	excludes := [][]string{
		append(append([]string(nil), historyIDs...), pickedIDs...),
		append(append([]string(nil), historyIDs[recentStart:]...), pickedIDs...),
		pickedIDs,
	}

	var out []library.TrackCombo
	for _, exclude := range excludes {
		for _, t := range out {
			exclude = append(exclude, t.ID)
		}
		tracks, err := s.lib.RandomTracks(ctx, n-len(out), exclude)
		if err != nil {
			return nil, err
		}
		out = append(out, tracks...)
		if len(out) >= n {
			break
		}
	}
	return out, nil
}

// similarArtists returns similar artists from cache or fetches from API.
func (s *Service) similarArtists(ctx context.Context, artist string) ([]lastfm.SimilarArtist, error) {
	if cached, err := s.cache.GetSimilarArtists(ctx, artist); err == nil && len(cached) > 0 {
		return cached, nil
	}
	similar, err := s.client.GetSimilarArtists(ctx, artist, s.config.SimilarArtistsLimit)
	if err != nil {
		return nil, err
	}
	if len(similar) > 0 {
		if err := s.cache.SetSimilarArtists(ctx, artist, similar); err != nil {
			s.log.Warn().Err(err).Msg("cache similar artists")
		}
	}
	return similar, nil
}

// artistTopTracks returns top tracks from cache or fetches from API.
func (s *Service) artistTopTracks(ctx context.Context, artist string) ([]lastfm.TopTrack, error) {
	if cached, err := s.cache.GetArtistTopTracks(ctx, artist); err == nil && len(cached) > 0 {
		return cached, nil
	}
	tracks, err := s.client.GetArtistTopTracks(ctx, artist, topTracksLimit)
	if err != nil {
		return nil, err
	}
	if len(tracks) > 0 {
		_ = s.cache.SetArtistTopTracks(ctx, artist, tracks)
	}
	return tracks, nil
}

// userArtistTracks returns user scrobbles from cache or fetches from API.
func (s *Service) userArtistTracks(ctx context.Context, artist string) ([]lastfm.UserTrack, error) {
	if cached, err := s.cache.GetUserArtistTracks(ctx, artist); err == nil && len(cached) > 0 {
		return cached, nil
	}
	if s.client.Username() == "" {
		return nil, nil
	}
	tracks, err := s.client.GetUserArtistTracks(ctx, artist, userTracksLimit)
	if err != nil {
		return nil, err
	}
	if len(tracks) > 0 {
		_ = s.cache.SetUserArtistTracks(ctx, artist, tracks)
	}
	return tracks, nil
}

func artistNames(artists []library.Artist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}
