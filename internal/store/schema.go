package store

import (
	"database/sql"
)

const currentSchemaVersion = 3

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS artists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL COLLATE NOCASE UNIQUE,
			musicbrainz_id TEXT,
			spotify_id TEXT,
			image_url TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS albums (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			year INTEGER,
			is_in_library INTEGER NOT NULL DEFAULT 0,
			is_local INTEGER NOT NULL DEFAULT 0,
			is_hidden INTEGER NOT NULL DEFAULT 0,
			youtube_playlist_id TEXT,
			spotify_id TEXT,
			musicbrainz_release_id TEXT,
			musicbrainz_release_group_id TEXT,
			lastfm_url TEXT,
			image_url TEXT,
			cover_path TEXT,
			thumbnail_path TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_albums_youtube ON albums(youtube_playlist_id);
		CREATE INDEX IF NOT EXISTS idx_albums_spotify ON albums(spotify_id);
		CREATE INDEX IF NOT EXISTS idx_albums_mb_release ON albums(musicbrainz_release_id);
		CREATE INDEX IF NOT EXISTS idx_albums_created_at ON albums(created_at);

		CREATE TABLE IF NOT EXISTS album_artists (
			album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			artist_id TEXT NOT NULL REFERENCES artists(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			PRIMARY KEY (album_id, artist_id)
		);

		CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			album_id TEXT REFERENCES albums(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			disc_number INTEGER,
			track_number INTEGER,
			duration_ms INTEGER,
			year INTEGER,
			is_in_library INTEGER NOT NULL DEFAULT 0,
			youtube_video_id TEXT,
			spotify_id TEXT,
			musicbrainz_recording_id TEXT,
			local_path TEXT,
			play_count INTEGER NOT NULL DEFAULT 0,
			last_played_at INTEGER,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id, disc_number, track_number);

		CREATE TABLE IF NOT EXISTS track_artists (
			track_id TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
			artist_id TEXT NOT NULL REFERENCES artists(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			PRIMARY KEY (track_id, artist_id)
		);

		CREATE INDEX IF NOT EXISTS idx_track_artists_artist ON track_artists(artist_id);

		CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL COLLATE NOCASE UNIQUE
		);

		CREATE TABLE IF NOT EXISTS album_tags (
			album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (album_id, tag_id)
		);

		CREATE TABLE IF NOT EXISTS queue_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_index INTEGER NOT NULL DEFAULT -1,
			radio_id TEXT
		);

		CREATE TABLE IF NOT EXISTS queue_tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position INTEGER NOT NULL,
			track_id TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
			UNIQUE(position)
		);

		CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS playlist_tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			track_id TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
			UNIQUE(playlist_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_playlist_tracks_playlist ON playlist_tracks(playlist_id, position);

		CREATE TABLE IF NOT EXISTS radios (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			seed_id TEXT,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS radio_tracks (
			radio_id TEXT NOT NULL REFERENCES radios(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			track_id TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
			added_at INTEGER NOT NULL,
			PRIMARY KEY (radio_id, position)
		);

		CREATE TABLE IF NOT EXISTS lastfm_similar_artists (
			artist TEXT NOT NULL,
			similar_artist TEXT NOT NULL,
			match_score REAL NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (artist, similar_artist)
		);

		CREATE TABLE IF NOT EXISTS lastfm_artist_top_tracks (
			artist TEXT NOT NULL,
			track_name TEXT NOT NULL,
			playcount INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (artist, track_name)
		);

		CREATE TABLE IF NOT EXISTS lastfm_user_artist_tracks (
			artist TEXT NOT NULL,
			track_name TEXT NOT NULL,
			user_playcount INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (artist, track_name)
		);

		CREATE TABLE IF NOT EXISTS lastfm_pending_scrobbles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			album TEXT,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			timestamp INTEGER NOT NULL,
			mb_recording_id TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: columns added after the first release
	_, _ = db.Exec(`ALTER TABLE albums ADD COLUMN thumbnail_path TEXT`)
	_, _ = db.Exec(`ALTER TABLE queue_state ADD COLUMN radio_id TEXT`)

	return nil
}
