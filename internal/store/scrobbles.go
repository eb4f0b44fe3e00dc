package store

import (
	"database/sql"
	"time"
)

// PendingScrobble represents a scrobble queued for retry.
type PendingScrobble struct {
	ID            int64
	Artist        string
	Track         string
	Album         string
	DurationSecs  int
	Timestamp     time.Time
	MBRecordingID string
	Attempts      int
	LastError     string
	CreatedAt     time.Time
}

// AddPendingScrobble queues a scrobble for later submission.
func (s *Store) AddPendingScrobble(p PendingScrobble) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO lastfm_pending_scrobbles
		(artist, track, album, duration_seconds, timestamp, mb_recording_id, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, p.Artist, p.Track, p.Album, p.DurationSecs, p.Timestamp.Unix(), p.MBRecordingID, p.LastError, now)
	return err
}

// PendingScrobbles returns all pending scrobbles, oldest first.
func (s *Store) PendingScrobbles() ([]PendingScrobble, error) {
	rows, err := s.db.Query(`
		SELECT id, artist, track, album, duration_seconds, timestamp, mb_recording_id, attempts, last_error, created_at
		FROM lastfm_pending_scrobbles
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scrobbles []PendingScrobble
	for rows.Next() {
		var p PendingScrobble
		var album, mbRecordingID, lastError sql.NullString
		var timestamp, createdAt int64

		err := rows.Scan(
			&p.ID, &p.Artist, &p.Track, &album, &p.DurationSecs,
			&timestamp, &mbRecordingID, &p.Attempts, &lastError, &createdAt,
		)
		if err != nil {
			return nil, err
		}

		p.Album = album.String
		p.MBRecordingID = mbRecordingID.String
		p.LastError = lastError.String
		p.Timestamp = time.Unix(timestamp, 0)
		p.CreatedAt = time.Unix(createdAt, 0)

		scrobbles = append(scrobbles, p)
	}

	return scrobbles, rows.Err()
}

// DeletePendingScrobble removes a successfully submitted scrobble.
func (s *Store) DeletePendingScrobble(id int64) error {
	_, err := s.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE id = ?`, id)
	return err
}

// MarkScrobbleAttempt increments the attempt count and records the error.
func (s *Store) MarkScrobbleAttempt(id int64, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE lastfm_pending_scrobbles
		SET attempts = attempts + 1, last_error = ?
		WHERE id = ?
	`, errMsg, id)
	return err
}

// DeleteOldPendingScrobbles drops scrobbles Last.fm would reject anyway.
func (s *Store) DeleteOldPendingScrobbles(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge).Unix()
	_, err := s.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE timestamp < ?`, cutoff)
	return err
}
