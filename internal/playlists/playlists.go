// Package playlists stores user playlists of library tracks.
package playlists

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fistopy/fistopy/internal/library"
)

var (
	// ErrNotFound is returned for unknown playlists or positions.
	ErrNotFound = errors.New("playlist not found")
	// ErrExists is returned when a playlist name is taken.
	ErrExists = errors.New("playlist already exists")
	// ErrEmptyName is returned for blank playlist names.
	ErrEmptyName = errors.New("playlist name is empty")
)

// Playlist represents a playlist metadata (without tracks).
type Playlist struct {
	ID         int64
	Name       string
	CreatedAt  time.Time
	LastUsedAt time.Time
	TrackCount int
}

// Playlists provides database operations for playlists.
type Playlists struct {
	db  *sql.DB
	lib *library.Library
	now func() time.Time
}

// New creates a new Playlists instance.
func New(db *sql.DB, lib *library.Library) *Playlists {
	return &Playlists{db: db, lib: lib, now: time.Now}
}

// Create creates a new playlist.
func (p *Playlists) Create(ctx context.Context, name string) (Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, ErrEmptyName
	}
	if _, err := p.ByName(ctx, name); err == nil {
		return Playlist{}, ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return Playlist{}, err
	}

	now := p.now()
	result, err := p.db.ExecContext(ctx, `
		INSERT INTO playlists (name, created_at, last_used_at) VALUES (?, ?, ?)
	`, name, now.Unix(), now.Unix())
	if err != nil {
		return Playlist{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Playlist{}, err
	}
	return Playlist{ID: id, Name: name, CreatedAt: time.Unix(now.Unix(), 0), LastUsedAt: time.Unix(now.Unix(), 0)}, nil
}

// Rename renames a playlist.
func (p *Playlists) Rename(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if other, err := p.ByName(ctx, name); err == nil && other.ID != id {
		return ErrExists
	}
	res, err := p.db.ExecContext(ctx, `UPDATE playlists SET name = ? WHERE id = ?`, name, id)
	return checkAffected(res, err)
}

// Delete deletes a playlist and all its tracks.
func (p *Playlists) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	return checkAffected(res, err)
}

const playlistColumns = `
	SELECT p.id, p.name, p.created_at, p.last_used_at,
		(SELECT COUNT(*) FROM playlist_tracks pt WHERE pt.playlist_id = p.id)
	FROM playlists p`

// List returns all playlists, most recently used first.
func (p *Playlists) List(ctx context.Context) ([]Playlist, error) {
	rows, err := p.db.QueryContext(ctx, playlistColumns+` ORDER BY p.last_used_at DESC, p.name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, pl)
	}
	return playlists, rows.Err()
}

// Get returns a playlist by its ID.
func (p *Playlists) Get(ctx context.Context, id int64) (Playlist, error) {
	return p.getOne(ctx, ` WHERE p.id = ?`, id)
}

// ByName returns a playlist by name, ignoring case.
func (p *Playlists) ByName(ctx context.Context, name string) (Playlist, error) {
	return p.getOne(ctx, ` WHERE p.name = ? COLLATE NOCASE`, strings.TrimSpace(name))
}

// Resolve finds a playlist from a numeric ID or a name.
func (p *Playlists) Resolve(ctx context.Context, ref string) (Playlist, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		pl, err := p.Get(ctx, id)
		if !errors.Is(err, ErrNotFound) {
			return pl, err
		}
	}
	return p.ByName(ctx, ref)
}

// UpdateLastUsed updates the last_used_at timestamp for a playlist.
func (p *Playlists) UpdateLastUsed(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `UPDATE playlists SET last_used_at = ? WHERE id = ?`, p.now().Unix(), id)
	return checkAffected(res, err)
}

func (p *Playlists) getOne(ctx context.Context, where string, args ...any) (Playlist, error) {
	pl, err := scanPlaylist(p.db.QueryRowContext(ctx, playlistColumns+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, ErrNotFound
	}
	return pl, err
}

func scanPlaylist(row interface{ Scan(...any) error }) (Playlist, error) {
	var (
		pl                  Playlist
		createdAt, lastUsed int64
	)
	if err := row.Scan(&pl.ID, &pl.Name, &createdAt, &lastUsed, &pl.TrackCount); err != nil {
		return Playlist{}, err
	}
	pl.CreatedAt = time.Unix(createdAt, 0)
	pl.LastUsedAt = time.Unix(lastUsed, 0)
	return pl, nil
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
