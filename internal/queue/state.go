package queue

import (
	"context"
	"database/sql"
	"errors"

	dbutil "github.com/fistopy/fistopy/internal/db"
)

// savedState is the persisted form of the queue. Positions parallels
// TrackIDs; rows of deleted tracks leave gaps in it.
type savedState struct {
	CurrentIndex int
	RadioID      string
	TrackIDs     []string
	Positions    []int
}

func getState(ctx context.Context, db *sql.DB) (savedState, error) {
	var (
		currentIndex int
		radioID      sql.NullString
	)
	err := db.QueryRowContext(ctx, `SELECT current_index, radio_id FROM queue_state WHERE id = 1`).
		Scan(&currentIndex, &radioID)
	if errors.Is(err, sql.ErrNoRows) {
		return savedState{CurrentIndex: -1}, nil
	}
	if err != nil {
		return savedState{}, err
	}

	rows, err := db.QueryContext(ctx, `SELECT position, track_id FROM queue_tracks ORDER BY position`)
	if err != nil {
		return savedState{}, err
	}
	defer rows.Close()

	var (
		ids       []string
		positions []int
	)
	for rows.Next() {
		var (
			pos int
			id  string
		)
		if err := rows.Scan(&pos, &id); err != nil {
			return savedState{}, err
		}
		ids = append(ids, id)
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return savedState{}, err
	}

	return savedState{
		CurrentIndex: currentIndex,
		RadioID:      dbutil.NullStringValue(radioID),
		TrackIDs:     ids,
		Positions:    positions,
	}, nil
}

func saveState(ctx context.Context, db *sql.DB, state savedState) error {
	return dbutil.WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM queue_tracks`); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO queue_state (id, current_index, radio_id)
			VALUES (1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				radio_id = excluded.radio_id
		`, state.CurrentIndex, dbutil.NullString(state.RadioID))
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO queue_tracks (position, track_id) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, id := range state.TrackIDs {
			if _, err := stmt.ExecContext(ctx, i, id); err != nil {
				return err
			}
		}
		return nil
	})
}
