package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/enrich"
	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/match"
	"github.com/fistopy/fistopy/internal/ui/render"
)

func newMatchCommand(app *App) *cobra.Command {
	var (
		names  []string
		force  bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "match <album>",
		Short: "Link an album to its counterparts on other backends",
		Long: "Search every configured backend (or those given with --source) for the\n" +
			"album, merge the closest match of each and save. Backends: " + sourceNames() + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sources := make([]library.Source, 0, len(names))
			for _, n := range names {
				src, err := library.ParseSource(n)
				if err != nil {
					return err
				}
				sources = append(sources, src)
			}

			album, err := app.resolveAlbum(ctx, args[0])
			if err != nil {
				return opErrorWith(errmsg.OpAlbumLoad, args[0], err)
			}
			e := app.enricher(ctx)

			var results []enrich.SourceResult
			if dryRun {
				results, err = e.Match(ctx, album, force, sources...)
			} else {
				var res enrich.Result
				res, err = e.EnrichAlbum(ctx, album.ID, force, sources...)
				results = res.Sources
			}
			if err != nil {
				return opErrorWith(errmsg.OpMatchAlbum, album.Title, err)
			}
			app.lib.InvalidateSearchCache()
			return app.printMatches(album, results, dryRun)
		},
	}
	cmd.Flags().StringSliceVar(&names, "source", nil, "backends to query (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "query backends the album is already linked to")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the matches without saving")
	return cmd
}

func (a *App) printMatches(album library.AlbumWithTracks, results []enrich.SourceResult, dryRun bool) error {
	fmt.Fprintln(a.out, render.TitleStyle.Render(album.ArtistString()+" - "+album.Title))
	for _, r := range results {
		name := string(r.Source)
		switch {
		case r.Linked:
			fmt.Fprintln(a.out, render.MutedStyle.Render(fmt.Sprintf("  %-12s already linked (%s)", name, album.ExternalID(r.Source))))
		case errors.Is(r.Err, match.ErrNoMatch):
			fmt.Fprintln(a.out, render.Warning(fmt.Sprintf("%-12s no match", name)))
		case r.Err != nil:
			fmt.Fprintln(a.out, render.Failure(fmt.Sprintf("%-12s %v", name, r.Err)))
		default:
			m := r.Match
			verb := "linked"
			if dryRun {
				verb = "would link"
			}
			fmt.Fprintln(a.out, render.Success(fmt.Sprintf("%-12s %s %s - %s [%s] distance %.2f, %d/%d tracks",
				name, verb, m.Candidate.Artist, m.Candidate.Title, m.Candidate.ExternalID,
				m.Distance, len(m.Tracks), len(album.Tracks))))
		}
	}
	return nil
}
