package radio

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fistopy/fistopy/internal/lastfm"
	"github.com/fistopy/fistopy/internal/store"
)

// setupTestDB opens an in-memory database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.DB()
}

// newTestCache returns a cache whose clock the test controls.
func newTestCache(t *testing.T, ttlDays int) (*Cache, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(setupTestDB(t), ttlDays)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_SimilarArtists_Empty(t *testing.T) {
	cache, _ := newTestCache(t, 7)

	result, err := cache.GetSimilarArtists(context.Background(), "Unknown Artist")
	if err != nil {
		t.Fatalf("GetSimilarArtists failed: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for unknown artist, got %v", result)
	}
}

func TestCache_SimilarArtists_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t, 7)
	ctx := context.Background()

	similar := []lastfm.SimilarArtist{
		{Name: "Similar Artist 2", MatchScore: 0.85},
		{Name: "Similar Artist 1", MatchScore: 0.95},
		{Name: "Similar Artist 3", MatchScore: 0.75},
	}
	if err := cache.SetSimilarArtists(ctx, "Test Artist", similar); err != nil {
		t.Fatalf("SetSimilarArtists failed: %v", err)
	}

	result, err := cache.GetSimilarArtists(ctx, "Test Artist")
	if err != nil {
		t.Fatalf("GetSimilarArtists failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 similar artists, got %d", len(result))
	}
	if result[0].Name != "Similar Artist 1" || result[0].MatchScore != 0.95 {
		t.Errorf("first similar = %+v, want Similar Artist 1 at 0.95", result[0])
	}
}

func TestCache_SimilarArtists_Replace(t *testing.T) {
	cache, _ := newTestCache(t, 7)
	ctx := context.Background()

	_ = cache.SetSimilarArtists(ctx, "Test Artist", []lastfm.SimilarArtist{{Name: "Old Similar", MatchScore: 0.9}})
	_ = cache.SetSimilarArtists(ctx, "Test Artist", []lastfm.SimilarArtist{{Name: "New Similar", MatchScore: 0.8}})

	result, _ := cache.GetSimilarArtists(ctx, "Test Artist")
	if len(result) != 1 || result[0].Name != "New Similar" {
		t.Errorf("result = %+v, want only New Similar", result)
	}
}

func TestCache_Expiry(t *testing.T) {
	cache, now := newTestCache(t, 7)
	ctx := context.Background()

	_ = cache.SetSimilarArtists(ctx, "A", []lastfm.SimilarArtist{{Name: "B", MatchScore: 0.9}})
	_ = cache.SetArtistTopTracks(ctx, "A", []lastfm.TopTrack{{Name: "Song", Playcount: 1000, Rank: 1}})
	_ = cache.SetUserArtistTracks(ctx, "A", []lastfm.UserTrack{{Name: "Song", Playcount: 3}})

	*now = now.AddDate(0, 0, 7)
	if r, _ := cache.GetSimilarArtists(ctx, "A"); len(r) != 1 {
		t.Errorf("entry at the TTL boundary should be kept, got %v", r)
	}

	*now = now.AddDate(0, 0, 1)
	if r, _ := cache.GetSimilarArtists(ctx, "A"); r != nil {
		t.Errorf("expected nil for expired similar artists, got %v", r)
	}
	if r, _ := cache.GetArtistTopTracks(ctx, "A"); r != nil {
		t.Errorf("expected nil for expired top tracks, got %v", r)
	}
	if r, _ := cache.GetUserArtistTracks(ctx, "A"); r != nil {
		t.Errorf("expected nil for expired user tracks, got %v", r)
	}
}

func TestCache_ArtistTopTracks_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t, 7)
	ctx := context.Background()

	tracks := []lastfm.TopTrack{
		{Name: "Karma Police", Playcount: 800000, Rank: 2},
		{Name: "Creep", Playcount: 1000000, Rank: 1},
	}
	if err := cache.SetArtistTopTracks(ctx, "Radiohead", tracks); err != nil {
		t.Fatalf("SetArtistTopTracks failed: %v", err)
	}

	result, err := cache.GetArtistTopTracks(ctx, "Radiohead")
	if err != nil {
		t.Fatalf("GetArtistTopTracks failed: %v", err)
	}
	if len(result) != 2 || result[0].Name != "Creep" || result[0].Playcount != 1000000 {
		t.Errorf("result = %+v, want Creep first", result)
	}
}

func TestCache_UserArtistTracks_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t, 7)
	ctx := context.Background()

	tracks := []lastfm.UserTrack{
		{Name: "Karma Police", Playcount: 30},
		{Name: "Creep", Playcount: 50},
	}
	if err := cache.SetUserArtistTracks(ctx, "Radiohead", tracks); err != nil {
		t.Fatalf("SetUserArtistTracks failed: %v", err)
	}

	result, _ := cache.GetUserArtistTracks(ctx, "Radiohead")
	if len(result) != 2 || result[0].Name != "Creep" {
		t.Errorf("result = %+v, want Creep first", result)
	}
}

func TestCache_CleanExpired(t *testing.T) {
	cache, now := newTestCache(t, 7)
	ctx := context.Background()

	_ = cache.SetSimilarArtists(ctx, "Old Artist", []lastfm.SimilarArtist{{Name: "Similar", MatchScore: 0.8}})
	_ = cache.SetArtistTopTracks(ctx, "Old Artist", []lastfm.TopTrack{{Name: "Track", Playcount: 1000, Rank: 1}})
	_ = cache.SetUserArtistTracks(ctx, "Old Artist", []lastfm.UserTrack{{Name: "Track", Playcount: 10}})

	*now = now.AddDate(0, 0, 10)
	_ = cache.SetSimilarArtists(ctx, "Recent Artist", []lastfm.SimilarArtist{{Name: "Similar", MatchScore: 0.9}})

	if err := cache.CleanExpired(ctx); err != nil {
		t.Fatalf("CleanExpired failed: %v", err)
	}

	for _, table := range []string{"lastfm_similar_artists", "lastfm_artist_top_tracks", "lastfm_user_artist_tracks"} {
		var count int
		_ = cache.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE artist = 'Old Artist'`).Scan(&count)
		if count != 0 {
			t.Errorf("%s: expected old rows cleaned, got %d", table, count)
		}
	}
	if r, _ := cache.GetSimilarArtists(ctx, "Recent Artist"); r == nil {
		t.Error("recent data should be kept")
	}
}

func TestCache_MultipleArtists(t *testing.T) {
	cache, _ := newTestCache(t, 7)
	ctx := context.Background()

	_ = cache.SetSimilarArtists(ctx, "Artist 1", []lastfm.SimilarArtist{{Name: "Similar 1", MatchScore: 0.9}})
	_ = cache.SetSimilarArtists(ctx, "Artist 2", []lastfm.SimilarArtist{{Name: "Similar 2", MatchScore: 0.8}})

	result1, _ := cache.GetSimilarArtists(ctx, "Artist 1")
	result2, _ := cache.GetSimilarArtists(ctx, "Artist 2")
	if len(result1) != 1 || result1[0].Name != "Similar 1" {
		t.Errorf("Artist 1 similar = %+v", result1)
	}
	if len(result2) != 1 || result2[0].Name != "Similar 2" {
		t.Errorf("Artist 2 similar = %+v", result2)
	}
}
