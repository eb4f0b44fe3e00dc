package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/ui/render"
)

func newAlbumsCommand(app *App) *cobra.Command {
	var (
		filter    library.AlbumFilter
		sort      string
		artist    string
		hide      bool
		unhide    bool
		deleteRef bool
	)
	cmd := &cobra.Command{
		Use:   "albums [album]",
		Short: "List albums, or show one album with its tracks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				album, err := app.resolveAlbum(ctx, args[0])
				if err != nil {
					return opErrorWith(errmsg.OpAlbumLoad, args[0], err)
				}
				switch {
				case deleteRef:
					if err := app.lib.DeleteAlbum(ctx, album.ID); err != nil {
						return opErrorWith(errmsg.OpAlbumDelete, album.Title, err)
					}
					fmt.Fprintln(app.out, render.Success("Deleted "+album.Title))
					return nil
				case hide || unhide:
					if err := app.lib.HideAlbum(ctx, album.ID, hide); err != nil {
						return opErrorWith(errmsg.OpAlbumHide, album.Title, err)
					}
					fmt.Fprintln(app.out, render.Success("Updated "+album.Title))
					return nil
				}
				return app.printAlbum(album)
			}

			s, err := library.ParseAlbumSort(sort)
			if err != nil {
				return err
			}
			filter.Sort = s
			if artist != "" {
				id, err := app.artistID(cmd, artist)
				if err != nil {
					return opErrorWith(errmsg.OpArtistLoad, artist, err)
				}
				filter.ArtistID = id
			}
			albums, err := app.lib.AlbumCombos(ctx, filter)
			if err != nil {
				return opError(errmsg.OpLibraryLoad, err)
			}
			return app.printAlbums(albums)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&filter.Search, "search", "s", "", "title or artist substring")
	f.StringVarP(&filter.Tag, "tag", "t", "", "only albums with this tag")
	f.StringVarP(&artist, "artist", "a", "", "only albums credited to this artist")
	f.BoolVar(&filter.OnlyInLibrary, "library", false, "only albums in the library")
	f.BoolVar(&filter.OnlyLocal, "local", false, "only albums with local files")
	f.BoolVar(&filter.IncludeHidden, "hidden", false, "include hidden albums")
	f.StringVar(&sort, "sort", "title", "title, artist, year or added")
	f.BoolVar(&filter.Descending, "desc", false, "reverse the order")
	f.IntVarP(&filter.Limit, "limit", "n", 0, "maximum number of albums")
	f.IntVar(&filter.Offset, "offset", 0, "skip this many albums")
	f.BoolVar(&hide, "hide", false, "hide the album from listings")
	f.BoolVar(&unhide, "unhide", false, "show a hidden album again")
	f.BoolVar(&deleteRef, "delete", false, "delete the album and its tracks")
	cmd.MarkFlagsMutuallyExclusive("hide", "unhide", "delete")
	return cmd
}

// artistID finds the artist named exactly name.
func (a *App) artistID(cmd *cobra.Command, name string) (string, error) {
	artists, err := a.lib.ArtistCombos(cmd.Context(), name)
	if err != nil {
		return "", err
	}
	for _, ar := range artists {
		if strings.EqualFold(ar.Name, name) {
			return ar.ID, nil
		}
	}
	return "", library.ErrNotFound
}

func (a *App) printAlbums(albums []library.AlbumCombo) error {
	tbl := render.NewTable(render.DefaultWidth+40,
		render.Column{Title: "Artist", Width: 24},
		render.Column{Title: "Album"},
		render.Column{Title: "Year", Width: 4},
		render.Column{Title: "Tracks", Width: 6, Right: true},
		render.Column{Title: "Sources", Width: 16},
		render.Column{Title: "ID", Width: 36},
	)
	for _, c := range albums {
		tbl.Add(c.ArtistString(), c.Title, render.Year(c.Year),
			fmt.Sprint(c.TrackCount), albumSources(c.Album), c.ID)
	}
	if err := tbl.Render(a.out); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out, render.MutedStyle.Render(render.Count(len(albums), "album")))
	return err
}

func (a *App) printAlbum(album library.AlbumWithTracks) error {
	fmt.Fprintln(a.out, render.TitleStyle.Render(album.ArtistString()+" - "+album.Title))
	meta := []string{render.Year(album.Year), render.Count(len(album.Tracks), "track"), render.Duration(album.TotalDuration())}
	if len(album.Tags) > 0 {
		meta = append(meta, "tags: "+strings.Join(album.Tags, ", "))
	}
	if s := albumSources(album.Album); s != "" {
		meta = append(meta, s)
	}
	fmt.Fprintln(a.out, render.MutedStyle.Render(render.List(meta...)))
	fmt.Fprintln(a.out, render.MutedStyle.Render("id "+album.ID))
	fmt.Fprintln(a.out)
	return a.printTracks(album.Tracks, false)
}

// printTracks lists tracks; withAlbum adds the album column.
func (a *App) printTracks(tracks []library.TrackCombo, withAlbum bool) error {
	discs := 1
	for _, t := range tracks {
		discs = max(discs, t.Disc)
	}
	cols := []render.Column{
		{Title: "#", Width: 4, Right: true},
		{Title: "Title"},
		{Title: "Artist", Width: 22},
	}
	if withAlbum {
		cols = append(cols, render.Column{Title: "Album", Width: 22})
	}
	cols = append(cols,
		render.Column{Title: "Time", Width: 7, Right: true},
		render.Column{Title: "Plays", Width: 5, Right: true},
		render.Column{Title: "ID", Width: 36},
	)
	tbl := render.NewTable(render.DefaultWidth+50, cols...)
	for _, t := range tracks {
		cells := []string{render.TrackNumber(t.Disc, t.Position, discs), t.Title, t.ArtistString()}
		if withAlbum {
			cells = append(cells, t.AlbumTitle())
		}
		cells = append(cells, render.Duration(t.Duration), fmt.Sprint(t.PlayCount), t.ID)
		if !t.IsPlayable() {
			tbl.AddStyled(render.MutedStyle, cells...)
			continue
		}
		tbl.Add(cells...)
	}
	return tbl.Render(a.out)
}

func albumSources(a library.Album) string {
	var out []string
	if a.IsLocal {
		out = append(out, "local")
	}
	for _, src := range library.Sources {
		if a.ExternalID(src) != "" {
			out = append(out, string(src))
		}
	}
	return strings.Join(out, ",")
}

func newArtistsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artists [search]",
		Short: "List artists with album and track counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var search string
			if len(args) == 1 {
				search = args[0]
			}
			artists, err := app.lib.ArtistCombos(cmd.Context(), search)
			if err != nil {
				return opError(errmsg.OpArtistLoad, err)
			}
			tbl := render.NewTable(render.DefaultWidth,
				render.Column{Title: "Artist"},
				render.Column{Title: "Albums", Width: 6, Right: true},
				render.Column{Title: "Tracks", Width: 6, Right: true},
			)
			for _, ar := range artists {
				tbl.Add(ar.Name, fmt.Sprint(ar.AlbumCount), fmt.Sprint(ar.TrackCount))
			}
			return tbl.Render(app.out)
		},
	}
	return cmd
}

func newTracksCommand(app *App) *cobra.Command {
	var artist string
	cmd := &cobra.Command{
		Use:   "tracks [album]",
		Short: "List the tracks of an album or an artist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch {
			case artist != "":
				tracks, err := app.lib.TracksByArtist(ctx, artist)
				if err != nil {
					return opErrorWith(errmsg.OpTrackLoad, artist, err)
				}
				return app.printTracks(tracks, true)
			case len(args) == 1:
				album, err := app.resolveAlbum(ctx, args[0])
				if err != nil {
					return opErrorWith(errmsg.OpAlbumLoad, args[0], err)
				}
				return app.printTracks(album.Tracks, false)
			}
			return fmt.Errorf("give an album or --artist")
		},
	}
	cmd.Flags().StringVarP(&artist, "artist", "a", "", "list every track credited to this artist")
	return cmd
}

func newSearchCommand(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search artists, albums and tracks of the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			results, err := app.lib.Search(cmd.Context(), query, limit)
			if err != nil {
				return opErrorWith(errmsg.OpLibrarySearch, query, err)
			}
			tbl := render.NewTable(render.DefaultWidth,
				render.Column{Title: "Type", Width: 6},
				render.Column{Title: "Result"},
				render.Column{Title: "ID", Width: 36},
			)
			for _, r := range results {
				item := library.SearchItem{Result: r}
				id := r.AlbumID
				switch r.Type {
				case library.ResultArtist:
					id = r.ArtistID
				case library.ResultTrack:
					id = r.TrackID
				case library.ResultAlbum:
				}
				tbl.Add(r.Type.String(), item.DisplayText(), id)
			}
			if tbl.Len() == 0 {
				_, err := fmt.Fprintln(app.out, render.MutedStyle.Render("No results"))
				return err
			}
			return tbl.Render(app.out)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}

func newStatsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.lib.Counts(cmd.Context())
			if err != nil {
				return opError(errmsg.OpLibraryLoad, err)
			}
			_, err = fmt.Fprintln(app.out, render.List(
				render.Count(c.Artists, "artist"),
				render.Count(c.Albums, "album"),
				render.Count(c.Tracks, "track"),
			))
			return err
		},
	}
}

func newTagCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage album tags",
	}

	add := &cobra.Command{
		Use:   "add <album> <tag>...",
		Short: "Add tags to an album",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			album, err := app.resolveAlbum(cmd.Context(), args[0])
			if err != nil {
				return opErrorWith(errmsg.OpAlbumLoad, args[0], err)
			}
			if err := app.lib.AddAlbumTags(cmd.Context(), album.ID, args[1:]); err != nil {
				return opErrorWith(errmsg.OpTagUpdate, album.Title, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success("Tagged "+album.Title))
			return err
		},
	}

	remove := &cobra.Command{
		Use:   "remove <album> <tag>...",
		Short: "Remove tags from an album",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			album, err := app.resolveAlbum(cmd.Context(), args[0])
			if err != nil {
				return opErrorWith(errmsg.OpAlbumLoad, args[0], err)
			}
			if err := app.lib.RemoveAlbumTags(cmd.Context(), album.ID, args[1:]); err != nil {
				return opErrorWith(errmsg.OpTagUpdate, album.Title, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success("Untagged "+album.Title))
			return err
		},
	}

	list := &cobra.Command{
		Use:   "list [album]",
		Short: "List all tags, or the tags of one album",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				album, err := app.resolveAlbum(cmd.Context(), args[0])
				if err != nil {
					return opErrorWith(errmsg.OpAlbumLoad, args[0], err)
				}
				for _, tag := range album.Tags {
					fmt.Fprintln(app.out, tag)
				}
				return nil
			}
			tags, err := app.lib.Tags(cmd.Context())
			if err != nil {
				return opError(errmsg.OpLibraryLoad, err)
			}
			tbl := render.NewTable(render.DefaultWidth/2,
				render.Column{Title: "Tag"},
				render.Column{Title: "Albums", Width: 6, Right: true},
			)
			for _, tc := range tags {
				tbl.Add(tc.Name, fmt.Sprint(tc.AlbumCount))
			}
			return tbl.Render(app.out)
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}
