package playlists

import (
	"context"
	"errors"
)

// FavoritesName is the playlist holding favorite tracks. It is created on
// first use.
const FavoritesName = "Favorites"

func (p *Playlists) favorites(ctx context.Context, create bool) (Playlist, error) {
	pl, err := p.ByName(ctx, FavoritesName)
	if errors.Is(err, ErrNotFound) && create {
		return p.Create(ctx, FavoritesName)
	}
	return pl, err
}

// IsFavorite checks if a track is in the Favorites playlist.
func (p *Playlists) IsFavorite(ctx context.Context, trackID string) (bool, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM playlist_tracks pt JOIN playlists p ON p.id = pt.playlist_id
		WHERE p.name = ? COLLATE NOCASE AND pt.track_id = ?
	`, FavoritesName, trackID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ToggleFavorite adds a track to Favorites if not there, removes if already favorited.
// Returns the new favorite status (true = now favorited).
func (p *Playlists) ToggleFavorite(ctx context.Context, trackID string) (bool, error) {
	fav, err := p.favorites(ctx, true)
	if err != nil {
		return false, err
	}
	isFav, err := p.IsFavorite(ctx, trackID)
	if err != nil {
		return false, err
	}

	if !isFav {
		return true, p.AddTracks(ctx, fav.ID, []string{trackID})
	}

	ids, err := p.TrackIDs(ctx, fav.ID)
	if err != nil {
		return false, err
	}
	var positions []int
	for i, id := range ids {
		if id == trackID {
			positions = append(positions, i)
		}
	}
	return false, p.RemoveTracks(ctx, fav.ID, positions)
}

// FavoriteTrackIDs returns all track IDs in Favorites as a set.
func (p *Playlists) FavoriteTrackIDs(ctx context.Context) (map[string]bool, error) {
	fav, err := p.favorites(ctx, false)
	if errors.Is(err, ErrNotFound) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	ids, err := p.TrackIDs(ctx, fav.ID)
	if err != nil {
		return nil, err
	}
	favorites := make(map[string]bool, len(ids))
	for _, id := range ids {
		favorites[id] = true
	}
	return favorites, nil
}
