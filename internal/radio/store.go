package radio

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/fistopy/fistopy/internal/db"
	"github.com/fistopy/fistopy/internal/library"
)

func (s *Service) insertRadio(ctx context.Context, r Radio) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO radios (id, type, seed_id, title, created_at) VALUES (?, ?, ?, ?, ?)
	`, r.ID, string(r.Type), dbutil.NullString(r.SeedID), r.Title, r.CreatedAt.Unix())
	return err
}

func scanRadio(row interface{ Scan(...any) error }) (Radio, error) {
	var (
		r         Radio
		typ       string
		seed      sql.NullString
		createdAt int64
	)
	if err := row.Scan(&r.ID, &typ, &seed, &r.Title, &createdAt); err != nil {
		return Radio{}, err
	}
	r.Type = Type(typ)
	r.SeedID = seed.String
	r.CreatedAt = time.Unix(createdAt, 0)
	return r, nil
}

// Get returns a radio by ID.
func (s *Service) Get(ctx context.Context, id string) (Radio, error) {
	r, err := scanRadio(s.db.QueryRowContext(ctx, `
		SELECT id, type, seed_id, title, created_at FROM radios WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Radio{}, library.ErrNotFound
	}
	return r, err
}

// List returns all radios, newest first.
func (s *Service) List(ctx context.Context) ([]Radio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, seed_id, title, created_at FROM radios ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var radios []Radio
	for rows.Next() {
		r, err := scanRadio(rows)
		if err != nil {
			return nil, err
		}
		radios = append(radios, r)
	}
	return radios, rows.Err()
}

// Delete removes a radio and its tracks.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM radios WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return library.ErrNotFound
	}
	return nil
}

// TrackIDs returns the radio's track IDs in order.
func (s *Service) TrackIDs(ctx context.Context, radioID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id FROM radio_tracks WHERE radio_id = ? ORDER BY position
	`, radioID)
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

// Tracks returns the radio's tracks in order.
func (s *Service) Tracks(ctx context.Context, radioID string) ([]library.TrackCombo, error) {
	ids, err := s.TrackIDs(ctx, radioID)
	if err != nil {
		return nil, err
	}
	return s.lib.TrackCombos(ctx, ids)
}

func (s *Service) appendTracks(ctx context.Context, radioID string, tracks []library.TrackCombo) error {
	if len(tracks) == 0 {
		return nil
	}
	now := s.now().Unix()
	return dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position), -1) + 1 FROM radio_tracks WHERE radio_id = ?
		`, radioID).Scan(&next); err != nil {
			return err
		}
		for i, t := range tracks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO radio_tracks (radio_id, position, track_id, added_at) VALUES (?, ?, ?, ?)
			`, radioID, next+i, t.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
}
