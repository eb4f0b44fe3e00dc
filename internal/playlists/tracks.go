package playlists

import (
	"context"
	"database/sql"
	"slices"

	dbutil "github.com/fistopy/fistopy/internal/db"
	"github.com/fistopy/fistopy/internal/library"
)

// Tracks returns all tracks in a playlist, joined with library data.
func (p *Playlists) Tracks(ctx context.Context, playlistID int64) ([]library.TrackCombo, error) {
	ids, err := p.TrackIDs(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return p.lib.TrackCombos(ctx, ids)
}

// TrackIDs returns the track IDs of a playlist in order.
func (p *Playlists) TrackIDs(ctx context.Context, playlistID int64) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TrackCount returns the number of tracks in a playlist.
func (p *Playlists) TrackCount(ctx context.Context, playlistID int64) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?
	`, playlistID).Scan(&count)
	return count, err
}

// AddTracks appends tracks to a playlist by their library track IDs.
func (p *Playlists) AddTracks(ctx context.Context, playlistID int64, trackIDs []string) error {
	if _, err := p.Get(ctx, playlistID); err != nil {
		return err
	}
	if len(trackIDs) == 0 {
		return nil
	}

	return dbutil.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		var maxPos sql.NullInt64
		if err := tx.QueryRowContext(ctx, `
			SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?
		`, playlistID).Scan(&maxPos); err != nil {
			return err
		}
		nextPos := 0
		if maxPos.Valid {
			nextPos = int(maxPos.Int64) + 1
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, position, track_id) VALUES (?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, trackID := range trackIDs {
			if _, err := stmt.ExecContext(ctx, playlistID, nextPos+i, trackID); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE playlists SET last_used_at = ? WHERE id = ?`, p.now().Unix(), playlistID)
		return err
	})
}

// AddAlbum appends every track of an album in disc and track order.
func (p *Playlists) AddAlbum(ctx context.Context, playlistID int64, albumID string) (int, error) {
	album, err := p.lib.AlbumWithTracks(ctx, albumID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(album.Tracks))
	for i, t := range album.Tracks {
		ids[i] = t.ID
	}
	return len(ids), p.AddTracks(ctx, playlistID, ids)
}

// RemoveTrack removes the track at the given position from a playlist.
func (p *Playlists) RemoveTrack(ctx context.Context, playlistID int64, position int) error {
	return p.RemoveTracks(ctx, playlistID, []int{position})
}

// RemoveTracks removes tracks at the given positions from a playlist and
// closes the gaps.
func (p *Playlists) RemoveTracks(ctx context.Context, playlistID int64, positions []int) error {
	if len(positions) == 0 {
		return nil
	}

	// delete from the end so earlier positions stay valid
	sorted := slices.Clone(positions)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	slices.Reverse(sorted)

	return dbutil.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		for _, pos := range sorted {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM playlist_tracks WHERE playlist_id = ? AND position = ?
			`, playlistID, pos)
			if err := checkAffected(res, err); err != nil {
				return err
			}

			if err := closeGap(ctx, tx, playlistID, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

// Move moves one track from one position to another.
func (p *Playlists) Move(ctx context.Context, playlistID int64, from, to int) error {
	count, err := p.TrackCount(ctx, playlistID)
	if err != nil {
		return err
	}
	if from < 0 || from >= count || to < 0 || to >= count {
		return ErrNotFound
	}
	_, err = p.MoveIndices(ctx, playlistID, []int{from}, to-from)
	return err
}

// MoveIndices moves tracks at the given positions by delta.
// Returns the new positions after the move.
func (p *Playlists) MoveIndices(ctx context.Context, playlistID int64, positions []int, delta int) ([]int, error) {
	if len(positions) == 0 || delta == 0 {
		return positions, nil
	}

	count, err := p.TrackCount(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	plan := planMove(positions, count, delta)
	if !plan.valid() {
		return positions, nil
	}

	err = dbutil.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		// park moved tracks on negative positions to free their slots
		for i, pos := range plan.sorted {
			if err := setPosition(ctx, tx, playlistID, pos, -(i + 1)); err != nil {
				return err
			}
		}

		// one row at a time, ordered so no two rows share a position
		for _, r := range plan.shifts() {
			if r.delta > 0 {
				for pos := r.end - 1; pos >= r.start; pos-- {
					if err := setPosition(ctx, tx, playlistID, pos, pos+r.delta); err != nil {
						return err
					}
				}
			} else {
				for pos := r.start; pos < r.end; pos++ {
					if err := setPosition(ctx, tx, playlistID, pos, pos+r.delta); err != nil {
						return err
					}
				}
			}
		}

		for i, pos := range plan.sorted {
			if err := setPosition(ctx, tx, playlistID, -(i + 1), pos+delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return plan.moved(positions), nil
}

// ClearTracks removes all tracks from a playlist.
func (p *Playlists) ClearTracks(ctx context.Context, playlistID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID)
	return err
}

// SetTracks replaces all tracks in a playlist with the given track IDs.
func (p *Playlists) SetTracks(ctx context.Context, playlistID int64, trackIDs []string) error {
	return dbutil.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, position, track_id) VALUES (?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, trackID := range trackIDs {
			if _, err := stmt.ExecContext(ctx, playlistID, i, trackID); err != nil {
				return err
			}
		}
		return nil
	})
}

func setPosition(ctx context.Context, tx *sql.Tx, playlistID int64, from, to int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE playlist_tracks SET position = ? WHERE playlist_id = ? AND position = ?
	`, to, playlistID, from)
	return err
}

// closeGap moves every track after pos up by one, lowest first so
// UNIQUE(playlist_id, position) holds after each row.
func closeGap(ctx context.Context, tx *sql.Tx, playlistID int64, pos int) error {
	var maxPos sql.NullInt64
	if err := tx.QueryRowContext(ctx, `
		SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?
	`, playlistID).Scan(&maxPos); err != nil {
		return err
	}
	if !maxPos.Valid {
		return nil
	}
	for p := pos + 1; p <= int(maxPos.Int64); p++ {
		if err := setPosition(ctx, tx, playlistID, p, p-1); err != nil {
			return err
		}
	}
	return nil
}
