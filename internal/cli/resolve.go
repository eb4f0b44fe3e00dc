package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fistopy/fistopy/internal/library"
)

// errAmbiguous is returned when a reference matches more than one entity.
var errAmbiguous = errors.New("ambiguous reference")

// resolveAlbum accepts an album ID or a search term matching exactly one
// album by title or artist.
func (a *App) resolveAlbum(ctx context.Context, ref string) (library.AlbumWithTracks, error) {
	album, err := a.lib.AlbumWithTracks(ctx, ref)
	if err == nil || !errors.Is(err, library.ErrNotFound) {
		return album, err
	}

	combos, err := a.lib.AlbumCombos(ctx, library.AlbumFilter{Search: ref, IncludeHidden: true, Limit: 10})
	if err != nil {
		return library.AlbumWithTracks{}, err
	}
	switch len(combos) {
	case 0:
		return library.AlbumWithTracks{}, fmt.Errorf("album %q: %w", ref, library.ErrNotFound)
	case 1:
		return a.lib.AlbumWithTracks(ctx, combos[0].ID)
	}
	// an exact title wins over partial matches
	var exact []library.AlbumCombo
	for _, c := range combos {
		if strings.EqualFold(c.Title, ref) {
			exact = append(exact, c)
		}
	}
	if len(exact) == 1 {
		return a.lib.AlbumWithTracks(ctx, exact[0].ID)
	}
	names := make([]string, len(combos))
	for i, c := range combos {
		names[i] = fmt.Sprintf("%s - %s [%s]", c.ArtistString(), c.Title, c.ID)
	}
	return library.AlbumWithTracks{}, fmt.Errorf("album %q: %w: %s", ref, errAmbiguous, strings.Join(names, "; "))
}

// resolveTrack accepts a track ID or a search term matching exactly one
// track.
func (a *App) resolveTrack(ctx context.Context, ref string) (library.TrackCombo, error) {
	t, err := a.lib.TrackCombo(ctx, ref)
	if err == nil || !errors.Is(err, library.ErrNotFound) {
		return t, err
	}

	results, err := a.lib.Search(ctx, ref, 0)
	if err != nil {
		return library.TrackCombo{}, err
	}
	var ids []string
	for _, r := range results {
		if r.Type == library.ResultTrack {
			ids = append(ids, r.TrackID)
		}
	}
	switch len(ids) {
	case 0:
		return library.TrackCombo{}, fmt.Errorf("track %q: %w", ref, library.ErrNotFound)
	case 1:
		return a.lib.TrackCombo(ctx, ids[0])
	}
	if len(ids) > 5 {
		ids = ids[:5]
	}
	return library.TrackCombo{}, fmt.Errorf("track %q: %w (%d candidates, e.g. %s)",
		ref, errAmbiguous, len(ids), strings.Join(ids, ", "))
}

// resolveTracks expands each reference into tracks: track references give
// one track, album references every track of the album.
func (a *App) resolveTracks(ctx context.Context, refs []string, albums bool) ([]library.TrackCombo, error) {
	var out []library.TrackCombo
	for _, ref := range refs {
		if albums {
			album, err := a.resolveAlbum(ctx, ref)
			if err != nil {
				return nil, err
			}
			out = append(out, album.Tracks...)
			continue
		}
		t, err := a.resolveTrack(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// parsePosition converts a 1-based position argument to an index.
func parsePosition(s string, n int) (int, error) {
	pos, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	if pos < 1 || pos > n {
		return 0, fmt.Errorf("position %d out of range 1-%d", pos, n)
	}
	return pos - 1, nil
}
