package radio

import (
	"context"
	"database/sql"
	"time"

	dbutil "github.com/fistopy/fistopy/internal/db"
	"github.com/fistopy/fistopy/internal/lastfm"
)

// Cache keeps Last.fm responses in SQLite for ttlDays.
type Cache struct {
	db      *sql.DB
	ttlDays int
	now     func() time.Time
}

// NewCache creates a new Cache instance.
func NewCache(db *sql.DB, ttlDays int) *Cache {
	return &Cache{
		db:      db,
		ttlDays: ttlDays,
		now:     time.Now,
	}
}

func (c *Cache) expiry() int64 {
	return c.now().AddDate(0, 0, -c.ttlDays).Unix()
}

// isExpired checks if a cached entry is expired.
func (c *Cache) isExpired(fetchedAt int64) bool {
	return fetchedAt < c.expiry()
}

// GetSimilarArtists returns cached similar artists. Nothing is returned
// when the entry is missing or expired.
func (c *Cache) GetSimilarArtists(ctx context.Context, artist string) ([]lastfm.SimilarArtist, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT similar_artist, match_score, fetched_at
		FROM lastfm_similar_artists
		WHERE artist = ?
		ORDER BY match_score DESC
	`, artist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lastfm.SimilarArtist
	for rows.Next() {
		var (
			similar   lastfm.SimilarArtist
			fetchedAt int64
		)
		if err := rows.Scan(&similar.Name, &similar.MatchScore, &fetchedAt); err != nil {
			return nil, err
		}
		// rows of one artist share a timestamp
		if c.isExpired(fetchedAt) {
			return nil, nil
		}
		result = append(result, similar)
	}
	return result, rows.Err()
}

// SetSimilarArtists replaces the cached similar artists of artist.
func (c *Cache) SetSimilarArtists(ctx context.Context, artist string, similar []lastfm.SimilarArtist) error {
	now := c.now().Unix()
	return dbutil.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lastfm_similar_artists WHERE artist = ?`, artist); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO lastfm_similar_artists (artist, similar_artist, match_score, fetched_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range similar {
			if _, err := stmt.ExecContext(ctx, artist, s.Name, s.MatchScore, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetArtistTopTracks returns cached top tracks if not expired.
func (c *Cache) GetArtistTopTracks(ctx context.Context, artist string) ([]lastfm.TopTrack, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT track_name, playcount, rank, fetched_at
		FROM lastfm_artist_top_tracks
		WHERE artist = ?
		ORDER BY rank ASC
	`, artist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lastfm.TopTrack
	for rows.Next() {
		var (
			track     lastfm.TopTrack
			fetchedAt int64
		)
		if err := rows.Scan(&track.Name, &track.Playcount, &track.Rank, &fetchedAt); err != nil {
			return nil, err
		}
		if c.isExpired(fetchedAt) {
			return nil, nil
		}
		result = append(result, track)
	}
	return result, rows.Err()
}

// SetArtistTopTracks replaces the cached top tracks of artist.
func (c *Cache) SetArtistTopTracks(ctx context.Context, artist string, tracks []lastfm.TopTrack) error {
	now := c.now().Unix()
	return dbutil.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lastfm_artist_top_tracks WHERE artist = ?`, artist); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO lastfm_artist_top_tracks (artist, track_name, playcount, rank, fetched_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range tracks {
			if _, err := stmt.ExecContext(ctx, artist, t.Name, t.Playcount, t.Rank, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUserArtistTracks returns cached user scrobbles for an artist if not expired.
func (c *Cache) GetUserArtistTracks(ctx context.Context, artist string) ([]lastfm.UserTrack, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT track_name, user_playcount, fetched_at
		FROM lastfm_user_artist_tracks
		WHERE artist = ?
		ORDER BY user_playcount DESC
	`, artist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lastfm.UserTrack
	for rows.Next() {
		var (
			track     lastfm.UserTrack
			fetchedAt int64
		)
		if err := rows.Scan(&track.Name, &track.Playcount, &fetchedAt); err != nil {
			return nil, err
		}
		if c.isExpired(fetchedAt) {
			return nil, nil
		}
		result = append(result, track)
	}
	return result, rows.Err()
}

// SetUserArtistTracks replaces the cached user scrobbles of artist.
func (c *Cache) SetUserArtistTracks(ctx context.Context, artist string, tracks []lastfm.UserTrack) error {
	now := c.now().Unix()
	return dbutil.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lastfm_user_artist_tracks WHERE artist = ?`, artist); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO lastfm_user_artist_tracks (artist, track_name, user_playcount, fetched_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range tracks {
			if _, err := stmt.ExecContext(ctx, artist, t.Name, t.Playcount, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// CleanExpired removes all expired cache entries.
func (c *Cache) CleanExpired(ctx context.Context) error {
	expiry := c.expiry()
	for _, table := range []string{
		"lastfm_similar_artists",
		"lastfm_artist_top_tracks",
		"lastfm_user_artist_tracks",
	} {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE fetched_at < ?`, expiry); err != nil {
			return err
		}
	}
	return nil
}
