// Package enrich links library albums to the other backends by fuzzy
// matching them against each backend's candidates.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
)

// Backend proposes candidate albums for an artist and title.
type Backend interface {
	AlbumCandidates(ctx context.Context, artist, title string) ([]match.Candidate, error)
}

// SourceResult is the outcome of matching one backend.
type SourceResult struct {
	Source  library.Source
	Match   match.AlbumMatch
	Err     error // ErrNoMatch, a backend failure, or nil
	Linked  bool  // album already carried an identifier for this source
	Applied bool
}

// Result is the outcome of enriching one album.
type Result struct {
	Album   library.AlbumWithTracks
	Sources []SourceResult
}

// Applied returns the sources whose match was merged into the album.
func (r Result) Applied() []library.Source {
	var out []library.Source
	for _, s := range r.Sources {
		if s.Applied {
			out = append(out, s.Source)
		}
	}
	return out
}

// Enricher matches albums against registered backends.
type Enricher struct {
	lib      *library.Library
	backends map[library.Source]Backend
	opts     match.Options
	log      zerolog.Logger
}

func New(lib *library.Library, opts match.Options, log zerolog.Logger) *Enricher {
	return &Enricher{
		lib:      lib,
		backends: make(map[library.Source]Backend),
		opts:     opts,
		log:      log.With().Str("component", "enrich").Logger(),
	}
}

// Register makes b answer for src. Local storage cannot be matched.
func (e *Enricher) Register(src library.Source, b Backend) {
	if src == library.SourceLocal || b == nil {
		return
	}
	e.backends[src] = b
}

// Sources lists the registered backends in priority order.
func (e *Enricher) Sources() []library.Source {
	var out []library.Source
	for _, src := range library.Sources {
		if _, ok := e.backends[src]; ok {
			out = append(out, src)
		}
	}
	return out
}

// Match queries the requested backends concurrently and returns the best
// candidate of each, in priority order. With no sources every registered
// backend is asked. Sources the album is already linked to are skipped
// unless force is set.
func (e *Enricher) Match(
	ctx context.Context,
	album library.AlbumWithTracks,
	force bool,
	sources ...library.Source,
) ([]SourceResult, error) {
	if len(sources) == 0 {
		sources = e.Sources()
	}
	sources = ordered(sources)

	results := make([]SourceResult, len(sources))
	artist := album.ArtistString()

	var g errgroup.Group
	for i, src := range sources {
		results[i].Source = src
		b, ok := e.backends[src]
		if !ok {
			results[i].Err = fmt.Errorf("%s: backend not configured", src)
			continue
		}
		if !force && album.ExternalID(src) != "" {
			results[i].Linked = true
			continue
		}
		g.Go(func() error {
			cands, err := b.AlbumCandidates(ctx, artist, album.Title)
			if err != nil {
				results[i].Err = err
				return nil
			}
			e.log.Debug().Str("source", string(src)).Int("candidates", len(cands)).Str("album", album.Title).Msg("candidates")
			results[i].Match, results[i].Err = match.Best(album, cands, e.opts)
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

// EnrichAlbum matches the stored album albumID against sources and saves
// the matches in priority order. Per-source failures are reported in the
// result, not returned.
func (e *Enricher) EnrichAlbum(
	ctx context.Context,
	albumID string,
	force bool,
	sources ...library.Source,
) (Result, error) {
	album, err := e.lib.AlbumWithTracks(ctx, albumID)
	if err != nil {
		return Result{}, err
	}

	results, err := e.Match(ctx, album, force, sources...)
	if err != nil {
		return Result{}, err
	}

	changed := false
	for i := range results {
		r := &results[i]
		switch {
		case r.Linked:
			continue
		case errors.Is(r.Err, match.ErrNoMatch):
			e.log.Info().Str("source", string(r.Source)).Str("album", album.Title).
				Float64("distance", r.Match.Distance).Msg("no match")
			continue
		case r.Err != nil:
			e.log.Warn().Err(r.Err).Str("source", string(r.Source)).Str("album", album.Title).Msg("matching failed")
			continue
		}
		album = match.Apply(album, r.Match, e.opts)
		r.Applied = true
		changed = true
	}

	if changed {
		if err := e.lib.SaveAlbumWithTracks(ctx, &album); err != nil {
			return Result{}, fmt.Errorf("save %s: %w", album.Title, err)
		}
	}
	return Result{Album: album, Sources: results}, nil
}

// ordered sorts sources by priority and drops duplicates.
func ordered(sources []library.Source) []library.Source {
	want := make(map[library.Source]bool, len(sources))
	for _, s := range sources {
		want[s] = true
	}
	var out []library.Source
	for _, s := range library.Sources {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}
