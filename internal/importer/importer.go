package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fistopy/fistopy/internal/coverart"
	"github.com/fistopy/fistopy/internal/holder"
	"github.com/fistopy/fistopy/internal/library"
)

// Result describes one import.
type Result struct {
	Album   library.AlbumWithTracks
	Skipped bool // already in the database; only flagged as in library
}

// Importer saves resolved albums into the library.
type Importer struct {
	lib    *library.Library
	covers *coverart.Store // nil disables cover storage
	log    zerolog.Logger
}

// New creates an importer. covers may be nil.
func New(lib *library.Library, covers *coverart.Store, log zerolog.Logger) *Importer {
	return &Importer{
		lib:    lib,
		covers: covers,
		log:    log.With().Str("component", "importer").Logger(),
	}
}

// Existing returns the stored album matching item, if any.
func (im *Importer) Existing(ctx context.Context, item Item) (library.AlbumWithTracks, bool, error) {
	a, err := im.lib.AlbumByExternalID(ctx, item.Source, item.ID)
	if errors.Is(err, library.ErrNotFound) {
		return library.AlbumWithTracks{}, false, nil
	}
	if err != nil {
		return library.AlbumWithTracks{}, false, err
	}
	return a, true, nil
}

// IsImported reports whether item is already in the library.
func (im *Importer) IsImported(item Item) bool {
	a, ok, err := im.Existing(context.Background(), item)
	return err == nil && ok && a.IsInLibrary
}

// Import resolves item through src and saves it with IsInLibrary set. An
// album already stored under the same external identifier is not fetched
// again; it is only flagged as in library.
func (im *Importer) Import(ctx context.Context, src Source, item Item) (Result, error) {
	log := im.log.With().Str("source", string(item.Source)).Str("id", item.ID).Logger()

	if existing, ok, err := im.Existing(ctx, item); err != nil {
		return Result{}, err
	} else if ok {
		if !existing.IsInLibrary {
			if err := im.lib.SetInLibrary(ctx, existing.ID, true); err != nil {
				return Result{}, err
			}
			existing.IsInLibrary = true
		}
		log.Debug().Str("album", existing.ID).Msg("already imported")
		return Result{Album: existing, Skipped: true}, nil
	}

	resolved, err := src.Resolve(ctx, item)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", item.Title, err)
	}
	album := resolved.Album
	if len(album.Tracks) == 0 {
		return Result{}, fmt.Errorf("resolve %s: album has no tracks", item.Title)
	}
	album.IsInLibrary = true

	if err := im.lib.SaveAlbumWithTracks(ctx, &album); err != nil {
		return Result{}, fmt.Errorf("save %s: %w", album.Title, err)
	}
	log.Info().Str("album", album.ID).Str("title", album.Title).Int("tracks", len(album.Tracks)).Msg("imported album")

	im.storeCover(ctx, &album, resolved.Cover)
	return Result{Album: album}, nil
}

// storeCover saves the cover and records its paths. Failures are logged;
// an album without art is still imported.
func (im *Importer) storeCover(ctx context.Context, album *library.AlbumWithTracks, data []byte) {
	if im.covers == nil || (len(data) == 0 && album.ImageURL == "") {
		return
	}
	var (
		paths coverart.Paths
		err   error
	)
	if len(data) > 0 {
		paths, err = im.covers.Save(album.ID, data)
	} else {
		paths, err = im.covers.Download(ctx, album.ID, album.ImageURL)
	}
	if err != nil {
		im.log.Warn().Err(err).Str("album", album.ID).Msg("cover art not stored")
		return
	}
	if err := im.lib.SetAlbumCover(ctx, album.ID, paths.Cover, paths.Thumbnail); err != nil {
		im.log.Warn().Err(err).Str("album", album.ID).Msg("cover art not recorded")
		return
	}
	album.CoverPath = paths.Cover
	album.ThumbnailPath = paths.Thumbnail
}

// NewHolder creates an import holder listing src for query. Holders of
// search-only sources follow their Search query, starting with query;
// searches run under ctx.
func (im *Importer) NewHolder(ctx context.Context, src Source, query string) *holder.ImportHolder[Item] {
	if SearchOnly(src) {
		h := holder.NewSearchImport(ctx, src.List, Item.Key, im.IsImported)
		h.Search().Prime(query)
		return h
	}
	fetch := func(ctx context.Context, cursor string) (holder.Page[Item], error) {
		return src.List(ctx, query, cursor)
	}
	return holder.NewImport(fetch, Item.Key, im.IsImported)
}

// ImportSelected imports the selection of h with at most workers albums
// in flight.
func (im *Importer) ImportSelected(
	ctx context.Context,
	h *holder.ImportHolder[Item],
	src Source,
	workers int,
) ([]holder.ItemError[Item], error) {
	return h.ImportSelected(ctx, func(ctx context.Context, item Item) error {
		_, err := im.Import(ctx, src, item)
		return err
	}, workers)
}
