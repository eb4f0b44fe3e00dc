// Package library stores artists, albums, tracks and tags and exposes the
// combo read models used by the rest of the application.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	dbutil "github.com/fistopy/fistopy/internal/db"
	"github.com/fistopy/fistopy/internal/search"
)

type Library struct {
	db *sql.DB

	searchMu         sync.RWMutex
	searchCache      []SearchResult
	searchMatcher    *search.TrigramMatcher
	searchCacheValid bool
	searchGen        uint64 // bumped by every invalidation
}

func New(db *sql.DB) *Library {
	return &Library{db: db}
}

// DB returns the underlying handle.
func (l *Library) DB() *sql.DB {
	return l.db
}

// SaveAlbumWithTracks upserts the album, its credits, tracks and tags in a
// single transaction. Missing IDs are generated and written back into a
// once the transaction commits; a is left untouched when it fails.
// Tracks previously stored for the album but absent from a are removed.
func (l *Library) SaveAlbumWithTracks(ctx context.Context, a *AlbumWithTracks) error {
	now := time.Now()
	w := *a
	w.Tracks = slices.Clone(a.Tracks)
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	err := dbutil.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if err := upsertAlbum(ctx, tx, &w.Album); err != nil {
			return fmt.Errorf("save album: %w", err)
		}

		artists, err := resolveArtists(ctx, tx, w.Artists)
		if err != nil {
			return err
		}
		w.Artists = artists
		if err := replaceAlbumArtists(ctx, tx, w.ID, artists); err != nil {
			return err
		}

		keep := make([]string, 0, len(w.Tracks))
		albumCopy := w.Album
		for i := range w.Tracks {
			tr := &w.Tracks[i]
			if tr.ID == "" {
				tr.ID = uuid.NewString()
			}
			if tr.CreatedAt.IsZero() {
				tr.CreatedAt = now
			}
			tr.AlbumID = w.ID
			tr.IsInLibrary = w.IsInLibrary
			if tr.Year == 0 {
				tr.Year = w.Year
			}
			if err := upsertTrack(ctx, tx, &tr.Track); err != nil {
				return fmt.Errorf("save track %q: %w", tr.Title, err)
			}

			wanted := tr.Artists
			if len(wanted) == 0 {
				wanted = artists
			}
			credits, err := resolveArtists(ctx, tx, wanted)
			if err != nil {
				return err
			}
			tr.Artists = credits
			if err := replaceTrackArtists(ctx, tx, tr.ID, credits); err != nil {
				return err
			}

			tr.Album = &albumCopy
			keep = append(keep, tr.ID)
		}

		if err := deleteOtherTracks(ctx, tx, w.ID, keep); err != nil {
			return err
		}

		return replaceAlbumTags(ctx, tx, w.ID, w.Tags)
	})
	if err != nil {
		return err
	}

	w.TrackCount = len(w.Tracks)
	w.Duration = w.TotalDuration()
	*a = w
	l.InvalidateSearchCache()
	return nil
}

func upsertAlbum(ctx context.Context, tx *sql.Tx, a *Album) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO albums (
			id, title, year, is_in_library, is_local, is_hidden,
			youtube_playlist_id, spotify_id, musicbrainz_release_id, musicbrainz_release_group_id, lastfm_url,
			image_url, cover_path, thumbnail_path, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			is_in_library = excluded.is_in_library,
			is_local = excluded.is_local,
			is_hidden = excluded.is_hidden,
			youtube_playlist_id = excluded.youtube_playlist_id,
			spotify_id = excluded.spotify_id,
			musicbrainz_release_id = excluded.musicbrainz_release_id,
			musicbrainz_release_group_id = excluded.musicbrainz_release_group_id,
			lastfm_url = excluded.lastfm_url,
			image_url = excluded.image_url,
			cover_path = excluded.cover_path,
			thumbnail_path = excluded.thumbnail_path,
			updated_at = excluded.updated_at
	`,
		a.ID, a.Title, dbutil.NullInt(int64(a.Year)), a.IsInLibrary, a.IsLocal, a.IsHidden,
		dbutil.NullString(a.YoutubePlaylistID), dbutil.NullString(a.SpotifyID),
		dbutil.NullString(a.MusicBrainzReleaseID), dbutil.NullString(a.MusicBrainzReleaseGroupID),
		dbutil.NullString(a.LastfmURL), dbutil.NullString(a.ImageURL),
		dbutil.NullString(a.CoverPath), dbutil.NullString(a.ThumbnailPath),
		a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	return err
}

func upsertTrack(ctx context.Context, tx *sql.Tx, t *Track) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tracks (
			id, album_id, title, disc_number, track_number, duration_ms, year, is_in_library,
			youtube_video_id, spotify_id, musicbrainz_recording_id, local_path,
			play_count, last_played_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			album_id = excluded.album_id,
			title = excluded.title,
			disc_number = excluded.disc_number,
			track_number = excluded.track_number,
			duration_ms = excluded.duration_ms,
			year = excluded.year,
			is_in_library = excluded.is_in_library,
			youtube_video_id = excluded.youtube_video_id,
			spotify_id = excluded.spotify_id,
			musicbrainz_recording_id = excluded.musicbrainz_recording_id,
			local_path = excluded.local_path
	`,
		t.ID, dbutil.NullString(t.AlbumID), t.Title,
		dbutil.NullInt(int64(t.Disc)), dbutil.NullInt(int64(t.Position)),
		dbutil.NullInt(t.Duration.Milliseconds()), dbutil.NullInt(int64(t.Year)), t.IsInLibrary,
		dbutil.NullString(t.YoutubeVideoID), dbutil.NullString(t.SpotifyID),
		dbutil.NullString(t.MusicBrainzRecordingID), dbutil.NullString(t.LocalPath),
		t.PlayCount, dbutil.NullTime(t.LastPlayedAt), t.CreatedAt.Unix(),
	)
	return err
}

// resolveArtists returns artists with IDs, creating unknown names and
// filling external IDs missing on existing rows.
func resolveArtists(ctx context.Context, tx *sql.Tx, artists []Artist) ([]Artist, error) {
	resolved := make([]Artist, 0, len(artists))
	seen := make(map[string]bool, len(artists))
	for _, a := range artists {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			continue
		}
		got, err := resolveArtist(ctx, tx, a)
		if err != nil {
			return nil, fmt.Errorf("resolve artist %q: %w", a.Name, err)
		}
		if seen[got.ID] {
			continue
		}
		seen[got.ID] = true
		resolved = append(resolved, got)
	}
	return resolved, nil
}

func resolveArtist(ctx context.Context, tx *sql.Tx, a Artist) (Artist, error) {
	existing, err := scanArtist(tx.QueryRowContext(ctx, `
		SELECT `+artistColumns+` FROM artists ar WHERE ar.name = ?
	`, a.Name))
	if errors.Is(err, sql.ErrNoRows) {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO artists (id, name, musicbrainz_id, spotify_id, image_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.ID, a.Name, dbutil.NullString(a.MusicBrainzID), dbutil.NullString(a.SpotifyID),
			dbutil.NullString(a.ImageURL), a.CreatedAt.Unix())
		return a, err
	}
	if err != nil {
		return Artist{}, err
	}

	changed := false
	if existing.MusicBrainzID == "" && a.MusicBrainzID != "" {
		existing.MusicBrainzID = a.MusicBrainzID
		changed = true
	}
	if existing.SpotifyID == "" && a.SpotifyID != "" {
		existing.SpotifyID = a.SpotifyID
		changed = true
	}
	if existing.ImageURL == "" && a.ImageURL != "" {
		existing.ImageURL = a.ImageURL
		changed = true
	}
	if changed {
		_, err = tx.ExecContext(ctx, `
			UPDATE artists SET musicbrainz_id = ?, spotify_id = ?, image_url = ? WHERE id = ?
		`, dbutil.NullString(existing.MusicBrainzID), dbutil.NullString(existing.SpotifyID),
			dbutil.NullString(existing.ImageURL), existing.ID)
	}
	return existing, err
}

func replaceAlbumArtists(ctx context.Context, tx *sql.Tx, albumID string, artists []Artist) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM album_artists WHERE album_id = ?`, albumID); err != nil {
		return err
	}
	for i, a := range artists {
		credit := AlbumArtist{AlbumID: albumID, ArtistID: a.ID, Position: i}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO album_artists (album_id, artist_id, position) VALUES (?, ?, ?)
		`, credit.AlbumID, credit.ArtistID, credit.Position)
		if err != nil {
			return err
		}
	}
	return nil
}

func replaceTrackArtists(ctx context.Context, tx *sql.Tx, trackID string, artists []Artist) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM track_artists WHERE track_id = ?`, trackID); err != nil {
		return err
	}
	for i, a := range artists {
		credit := TrackArtist{TrackID: trackID, ArtistID: a.ID, Position: i}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO track_artists (track_id, artist_id, position) VALUES (?, ?, ?)
		`, credit.TrackID, credit.ArtistID, credit.Position)
		if err != nil {
			return err
		}
	}
	return nil
}

func deleteOtherTracks(ctx context.Context, tx *sql.Tx, albumID string, keep []string) error {
	if len(keep) == 0 {
		_, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE album_id = ?`, albumID)
		return err
	}
	args := append([]any{albumID}, stringArgs(keep)...)
	_, err := tx.ExecContext(ctx, `
		DELETE FROM tracks WHERE album_id = ? AND id NOT IN (`+placeholders(len(keep))+`)
	`, args...)
	return err
}

func tagID(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	return id, err
}

func replaceAlbumTags(ctx context.Context, tx *sql.Tx, albumID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM album_tags WHERE album_id = ?`, albumID); err != nil {
		return err
	}
	return addAlbumTags(ctx, tx, albumID, tags)
}

func addAlbumTags(ctx context.Context, tx *sql.Tx, albumID string, tags []string) error {
	for _, name := range normalizeTags(tags) {
		id, err := tagID(ctx, tx, name)
		if err != nil {
			return err
		}
		link := AlbumTag{AlbumID: albumID, TagID: id}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO album_tags (album_id, tag_id) VALUES (?, ?)
		`, link.AlbumID, link.TagID)
		if err != nil {
			return err
		}
	}
	return nil
}

// normalizeTags trims, lowercases and de-duplicates tag names.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// SetAlbumTags replaces the album's tags.
func (l *Library) SetAlbumTags(ctx context.Context, albumID string, tags []string) error {
	return dbutil.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if err := albumExists(ctx, tx, albumID); err != nil {
			return err
		}
		return replaceAlbumTags(ctx, tx, albumID, tags)
	})
}

// AddAlbumTags adds tags to the album, keeping existing ones.
func (l *Library) AddAlbumTags(ctx context.Context, albumID string, tags []string) error {
	return dbutil.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if err := albumExists(ctx, tx, albumID); err != nil {
			return err
		}
		return addAlbumTags(ctx, tx, albumID, tags)
	})
}

// RemoveAlbumTags unlinks tags from the album. Tags left without albums
// are deleted.
func (l *Library) RemoveAlbumTags(ctx context.Context, albumID string, tags []string) error {
	return dbutil.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if err := albumExists(ctx, tx, albumID); err != nil {
			return err
		}
		for _, name := range normalizeTags(tags) {
			_, err := tx.ExecContext(ctx, `
				DELETE FROM album_tags
				WHERE album_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)
			`, albumID, name)
			if err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM tags WHERE id NOT IN (SELECT tag_id FROM album_tags)
		`)
		return err
	})
}

func albumExists(ctx context.Context, tx *sql.Tx, albumID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM albums WHERE id = ?`, albumID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// SetInLibrary flags the album and its tracks as part of the library.
func (l *Library) SetInLibrary(ctx context.Context, albumID string, inLibrary bool) error {
	err := dbutil.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE albums SET is_in_library = ?, updated_at = ? WHERE id = ?
		`, inLibrary, time.Now().Unix(), albumID)
		if err := checkAffected(res, err); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE tracks SET is_in_library = ? WHERE album_id = ?`, inLibrary, albumID)
		return err
	})
	if err == nil {
		l.InvalidateSearchCache()
	}
	return err
}

// HideAlbum hides or unhides an album from listings.
func (l *Library) HideAlbum(ctx context.Context, albumID string, hidden bool) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE albums SET is_hidden = ?, updated_at = ? WHERE id = ?
	`, hidden, time.Now().Unix(), albumID)
	if err := checkAffected(res, err); err != nil {
		return err
	}
	l.InvalidateSearchCache()
	return nil
}

// SetAlbumCover records stored cover art paths.
func (l *Library) SetAlbumCover(ctx context.Context, albumID, coverPath, thumbnailPath string) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE albums SET cover_path = ?, thumbnail_path = ?, updated_at = ? WHERE id = ?
	`, dbutil.NullString(coverPath), dbutil.NullString(thumbnailPath), time.Now().Unix(), albumID)
	return checkAffected(res, err)
}

// DeleteAlbum removes the album with its tracks and credits. Artists left
// without any credit are removed too.
func (l *Library) DeleteAlbum(ctx context.Context, albumID string) error {
	err := dbutil.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, albumID)
		if err := checkAffected(res, err); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM artists
			WHERE id NOT IN (SELECT artist_id FROM album_artists)
			  AND id NOT IN (SELECT artist_id FROM track_artists)
		`)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM tags WHERE id NOT IN (SELECT tag_id FROM album_tags)`)
		return err
	})
	if err == nil {
		l.InvalidateSearchCache()
	}
	return err
}

// RecordPlay bumps the play count of a track.
func (l *Library) RecordPlay(ctx context.Context, trackID string, at time.Time) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE tracks SET play_count = play_count + 1, last_played_at = ? WHERE id = ?
	`, at.Unix(), trackID)
	return checkAffected(res, err)
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
