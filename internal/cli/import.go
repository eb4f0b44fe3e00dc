package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/holder"
	"github.com/fistopy/fistopy/internal/importer"
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/localimport"
	"github.com/fistopy/fistopy/internal/logging"
	"github.com/fistopy/fistopy/internal/ui/picker"
	"github.com/fistopy/fistopy/internal/ui/render"
)

type importOptions struct {
	all         bool
	interactive bool
	limit       int
	workers     int
	ids         []string
}

func newImportCommand(app *App) *cobra.Command {
	opts := importOptions{limit: 50}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "List and import albums from a backend",
		Long: `List importable albums of a backend. With --all every listed album is
imported; with --interactive a picker lets you choose; with --id the given
external identifiers are imported directly.`,
	}
	f := cmd.PersistentFlags()
	f.BoolVar(&opts.all, "all", false, "import every listed album")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "choose albums in a picker")
	f.IntVarP(&opts.limit, "limit", "n", opts.limit, "stop listing after this many albums")
	f.IntVar(&opts.workers, "workers", 0, "albums imported at once (default: import.workers)")
	f.StringSliceVar(&opts.ids, "id", nil, "import these external IDs without listing")
	cmd.MarkFlagsMutuallyExclusive("all", "interactive", "id")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "local [dir] [filter]...",
			Short: "Import albums from a music directory",
			RunE: func(cmd *cobra.Command, args []string) error {
				dir := app.cfg.Library.MusicDir
				if len(args) > 0 {
					dir, args = args[0], args[1:]
				}
				if dir == "" {
					return fmt.Errorf("no directory given and library.music_dir not set")
				}
				if len(opts.ids) > 0 {
					return fmt.Errorf("--id is not supported for local imports")
				}
				src, err := app.localSource(cmd.Context(), dir)
				if err != nil {
					return opErrorWith(errmsg.OpImportList, dir, err)
				}
				return app.runImport(cmd.Context(), src, strings.Join(args, " "), opts)
			},
		},
		&cobra.Command{
			Use:   "youtube [query]...",
			Short: "Import YouTube playlists as albums",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := app.youtubeClient(cmd.Context())
				if err != nil {
					return opError(errmsg.OpImportSearch, err)
				}
				return app.runImport(cmd.Context(), importer.NewYouTubeSource(c), strings.Join(args, " "), opts)
			},
		},
		newImportSpotifyCommand(app, &opts),
		&cobra.Command{
			Use:   "lastfm [filter]...",
			Short: "Import the top albums of the configured Last.fm user",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := app.lastfmClient()
				if err != nil {
					return opError(errmsg.OpImportSearch, err)
				}
				src := importer.NewLastfmSource(c, app.cfg.GetImportConfig().PageSize)
				return app.runImport(cmd.Context(), src, strings.Join(args, " "), opts)
			},
		},
		&cobra.Command{
			Use:   "musicbrainz [query]...",
			Short: "Import MusicBrainz releases",
			RunE: func(cmd *cobra.Command, args []string) error {
				src := importer.NewMusicBrainzSource(app.musicbrainzClient())
				return app.runImport(cmd.Context(), src, strings.Join(args, " "), opts)
			},
		},
	)
	return cmd
}

func newImportSpotifyCommand(app *App, opts *importOptions) *cobra.Command {
	var artistID string
	cmd := &cobra.Command{
		Use:   "spotify [query]...",
		Short: "Import Spotify albums",
		Long: `Search Spotify albums. With --artist the albums of that artist are
listed instead and the query, if any, filters them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.spotifyClient(cmd.Context())
			if err != nil {
				return opError(errmsg.OpImportSearch, err)
			}
			src := importer.NewSpotifySource(c)
			if artistID != "" {
				src = importer.NewSpotifyArtistSource(c, artistID)
			}
			return app.runImport(cmd.Context(), src, strings.Join(args, " "), *opts)
		},
	}
	cmd.Flags().StringVar(&artistID, "artist", "", "list the albums of this Spotify artist ID")
	return cmd
}

// localSource scans dir, reporting progress on stderr.
func (a *App) localSource(ctx context.Context, dir string) (*importer.LocalSource, error) {
	if !localimport.IsDir(dir) {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	cfg := a.cfg.GetImportConfig()
	scanner := localimport.NewScanner(cfg.Workers, a.log)

	progress := make(chan localimport.Progress, 16)
	var wg sync.WaitGroup
	wg.Go(func() {
		for p := range progress {
			if p.Total > 0 && (p.Current == p.Total || p.Current%100 == 0) {
				fmt.Fprintf(a.err, "\rreading tags %d/%d", p.Current, p.Total)
			}
		}
	})
	albums, err := scanner.Scan(ctx, dir, progress)
	close(progress)
	wg.Wait()
	fmt.Fprintln(a.err)
	if err != nil {
		return nil, err
	}
	return importer.NewLocalSource(albums, cfg.PageSize), nil
}

func (a *App) runImport(ctx context.Context, src importer.Source, query string, opts importOptions) error {
	imp := a.importer()
	log := logging.Component(a.log, "import")

	if len(opts.ids) > 0 {
		return a.importIDs(ctx, imp, src, opts.ids)
	}

	h := imp.NewHolder(ctx, src, query)
	defer h.Close()
	if !opts.interactive && query == "" && h.Search() != nil {
		return fmt.Errorf("%s: %w", src.Name(), importer.ErrQueryRequired)
	}

	switch {
	case opts.interactive:
		title := fmt.Sprintf("Import from %s", src.Name())
		if query != "" && h.Search() == nil {
			title += ": " + query
		}
		ok, err := picker.Run(ctx, h, title, itemLabel)
		if err != nil || !ok {
			return err
		}
	default:
		if err := loadUpTo(ctx, h, opts.limit); err != nil {
			if errors.Is(err, importer.ErrQueryRequired) {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			return opError(errmsg.OpImportList, err)
		}
		if !opts.all {
			return a.printItems(h)
		}
		h.SelectAll()
	}

	selected := len(h.Selected())
	if selected == 0 {
		_, err := fmt.Fprintln(a.out, render.MutedStyle.Render("Nothing to import"))
		return err
	}

	sub := h.Subscribe()
	report := func(p holder.Progress[importer.Item]) {
		line := render.Success(itemLabel(p.Item))
		if p.Err != nil {
			line = render.Failure(errmsg.FormatWith(errmsg.OpImportAlbum, p.Item.Title, p.Err))
		}
		fmt.Fprintf(a.out, "[%d/%d] %s\n", p.Done, p.Total, line)
	}
	var wg sync.WaitGroup
	wg.Go(func() {
		for {
			select {
			case p := <-sub.Progress:
				report(p)
			case <-sub.Done:
				for {
					select {
					case p := <-sub.Progress:
						report(p)
					default:
						return
					}
				}
			}
		}
	})

	workers := opts.workers
	if workers <= 0 {
		workers = a.cfg.GetImportConfig().Workers
	}
	failed, err := imp.ImportSelected(ctx, h, src, workers)
	sub.Close()
	wg.Wait()
	if err != nil {
		return opError(errmsg.OpImportAlbum, err)
	}

	a.lib.InvalidateSearchCache()
	log.Info().Str("source", string(src.Name())).Int("imported", selected-len(failed)).Int("failed", len(failed)).Msg("import finished")
	summary := fmt.Sprintf("Imported %d of %s", selected-len(failed), render.Count(selected, "album"))
	if len(failed) > 0 {
		fmt.Fprintln(a.out, render.Warning(summary))
		return fmt.Errorf("%d imports failed", len(failed))
	}
	_, err = fmt.Fprintln(a.out, render.Success(summary))
	return err
}

// importIDs imports albums named by external identifier.
func (a *App) importIDs(ctx context.Context, imp *importer.Importer, src importer.Source, ids []string) error {
	var errs []error
	for _, id := range ids {
		res, err := imp.Import(ctx, src, importer.Item{Source: src.Name(), ID: id, Title: id})
		if err != nil {
			fmt.Fprintln(a.out, render.Failure(errmsg.FormatWith(errmsg.OpImportAlbum, id, err)))
			errs = append(errs, err)
			continue
		}
		verb := "Imported"
		if res.Skipped {
			verb = "Already imported"
		}
		fmt.Fprintf(a.out, "%s %s - %s (%s)\n", render.Success(verb), res.Album.ArtistString(), res.Album.Title, res.Album.ID)
	}
	a.lib.InvalidateSearchCache()
	return errors.Join(errs...)
}

// loadUpTo loads pages until limit items are listed or the source runs out.
func loadUpTo(ctx context.Context, h *holder.ImportHolder[importer.Item], limit int) error {
	for h.HasMore() && (limit <= 0 || h.Len() < limit) {
		if err := h.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) printItems(h *holder.ImportHolder[importer.Item]) error {
	tbl := render.NewTable(render.DefaultWidth+40,
		render.Column{Title: " ", Width: 1},
		render.Column{Title: "Artist", Width: 24},
		render.Column{Title: "Album"},
		render.Column{Title: "Year", Width: 4},
		render.Column{Title: "Details", Width: 24},
		render.Column{Title: "ID", Width: 34},
	)
	for _, it := range h.Items() {
		if h.IsImported(it) {
			tbl.AddStyled(render.MutedStyle, "✓", it.Artist, it.Title, render.Year(it.Year), it.Detail, it.ID)
			continue
		}
		tbl.Add("", it.Artist, it.Title, render.Year(it.Year), it.Detail, it.ID)
	}
	if err := tbl.Render(a.out); err != nil {
		return err
	}
	listed := render.Count(h.Len(), "album")
	if total := h.Total(); total > h.Len() {
		listed += fmt.Sprintf(" of %d", total)
	}
	_, err := fmt.Fprintln(a.out, render.MutedStyle.Render(listed+" listed; use --all, --interactive or --id to import"))
	return err
}

func itemLabel(it importer.Item) string {
	s := it.Title
	if it.Artist != "" {
		s = it.Artist + " - " + s
	}
	if it.Year > 0 {
		s += fmt.Sprintf(" (%d)", it.Year)
	}
	if it.Detail != "" {
		s += " · " + it.Detail
	}
	return s
}

// sourceNames lists the backends accepted by --source flags.
func sourceNames() string {
	names := make([]string, 0, len(library.Sources))
	for _, s := range library.Sources {
		if s != library.SourceLocal {
			names = append(names, string(s))
		}
	}
	return strings.Join(names, ", ")
}
