package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/playlists"
	"github.com/fistopy/fistopy/internal/ui/render"
)

func newPlaylistCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlist",
		Aliases: []string{"pl"},
		Short:   "Manage playlists",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List playlists, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pls, err := app.playlists.List(cmd.Context())
			if err != nil {
				return opError(errmsg.OpPlaylistLoad, err)
			}
			tbl := render.NewTable(render.DefaultWidth,
				render.Column{Title: "ID", Width: 5, Right: true},
				render.Column{Title: "Playlist"},
				render.Column{Title: "Tracks", Width: 6, Right: true},
				render.Column{Title: "Used", Width: 16},
			)
			for _, p := range pls {
				tbl.Add(fmt.Sprint(p.ID), p.Name, fmt.Sprint(p.TrackCount), render.Ago(p.LastUsedAt))
			}
			return tbl.Render(app.out)
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := app.playlists.Create(cmd.Context(), args[0])
			if err != nil {
				return opErrorWith(errmsg.OpPlaylistCreate, args[0], err)
			}
			_, err = fmt.Fprintln(app.out, render.Success(fmt.Sprintf("Created playlist %q (%d)", pl.Name, pl.ID)))
			return err
		},
	}

	show := &cobra.Command{
		Use:   "show <playlist>",
		Short: "Show the tracks of a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			tracks, err := app.playlists.Tracks(ctx, pl.ID)
			if err != nil {
				return opErrorWith(errmsg.OpPlaylistLoad, pl.Name, err)
			}
			fmt.Fprintln(app.out, render.TitleStyle.Render(pl.Name)+" "+
				render.MutedStyle.Render(render.Count(len(tracks), "track")))
			tbl := render.NewTable(render.DefaultWidth+40,
				render.Column{Title: "#", Width: 4, Right: true},
				render.Column{Title: "Title"},
				render.Column{Title: "Artist", Width: 22},
				render.Column{Title: "Album", Width: 22},
				render.Column{Title: "Time", Width: 7, Right: true},
				render.Column{Title: "ID", Width: 36},
			)
			for i, t := range tracks {
				cells := []string{fmt.Sprint(i + 1), t.Title, t.ArtistString(), t.AlbumTitle(), render.Duration(t.Duration), t.ID}
				if !t.IsPlayable() {
					tbl.AddStyled(render.MutedStyle, cells...)
					continue
				}
				tbl.Add(cells...)
			}
			return tbl.Render(app.out)
		},
	}

	var albums bool
	add := &cobra.Command{
		Use:   "add <playlist> <track|album>...",
		Short: "Append tracks or albums to a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			tracks, err := app.resolveTracks(ctx, args[1:], albums)
			if err != nil {
				return opErrorWith(errmsg.OpPlaylistAddTrack, pl.Name, err)
			}
			ids := make([]string, len(tracks))
			for i, t := range tracks {
				ids[i] = t.ID
			}
			if err := app.playlists.AddTracks(ctx, pl.ID, ids); err != nil {
				return opErrorWith(errmsg.OpPlaylistAddTrack, pl.Name, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success(fmt.Sprintf("Added %s to %s", render.Count(len(ids), "track"), pl.Name)))
			return err
		},
	}
	add.Flags().BoolVar(&albums, "album", false, "arguments are albums")

	remove := &cobra.Command{
		Use:   "remove <playlist> <position>...",
		Short: "Remove tracks by position",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			positions := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				pos, err := parsePosition(arg, pl.TrackCount)
				if err != nil {
					return err
				}
				positions = append(positions, pos)
			}
			if err := app.playlists.RemoveTracks(ctx, pl.ID, positions); err != nil {
				return opErrorWith(errmsg.OpPlaylistRemove, pl.Name, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success(fmt.Sprintf("Removed %s from %s", render.Count(len(positions), "track"), pl.Name)))
			return err
		},
	}

	move := &cobra.Command{
		Use:   "move <playlist> <from> <to>",
		Short: "Move a track to another position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			from, err := parsePosition(args[1], pl.TrackCount)
			if err != nil {
				return err
			}
			to, err := parsePosition(args[2], pl.TrackCount)
			if err != nil {
				return err
			}
			if err := app.playlists.Move(ctx, pl.ID, from, to); err != nil {
				return opErrorWith(errmsg.OpPlaylistMove, pl.Name, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success(fmt.Sprintf("Moved %s to %s", args[1], args[2])))
			return err
		},
	}

	rename := &cobra.Command{
		Use:   "rename <playlist> <name>",
		Short: "Rename a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			if err := app.playlists.Rename(ctx, pl.ID, args[1]); err != nil {
				return opErrorWith(errmsg.OpPlaylistRename, pl.Name, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success(fmt.Sprintf("Renamed %s to %s", pl.Name, args[1])))
			return err
		},
	}

	del := &cobra.Command{
		Use:   "delete <playlist>",
		Short: "Delete a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			if err := app.playlists.Delete(ctx, pl.ID); err != nil {
				return opErrorWith(errmsg.OpPlaylistDelete, pl.Name, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success("Deleted "+pl.Name))
			return err
		},
	}

	fav := &cobra.Command{
		Use:   "fav <track>",
		Short: "Toggle a track in " + playlists.FavoritesName,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := app.resolveTrack(ctx, args[0])
			if err != nil {
				return opErrorWith(errmsg.OpTrackLoad, args[0], err)
			}
			on, err := app.playlists.ToggleFavorite(ctx, t.ID)
			if err != nil {
				return opErrorWith(errmsg.OpPlaylistAddTrack, playlists.FavoritesName, err)
			}
			msg := "Removed " + t.Title + " from " + playlists.FavoritesName
			if on {
				msg = "Added " + t.Title + " to " + playlists.FavoritesName
			}
			_, err = fmt.Fprintln(app.out, render.Success(msg))
			return err
		},
	}

	var output string
	m3u := &cobra.Command{
		Use:   "m3u <playlist>",
		Short: "Write a playlist as extended M3U",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			var w io.Writer = app.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}
			skipped, err := app.playlists.ExportM3U(ctx, pl.ID, w)
			if err != nil {
				return opErrorWith(errmsg.OpPlaylistLoad, pl.Name, err)
			}
			if skipped > 0 {
				fmt.Fprintln(app.err, render.Warning(fmt.Sprintf("%s without a location skipped", render.Count(skipped, "track"))))
			}
			return nil
		},
	}
	m3u.Flags().StringVarP(&output, "output", "o", "", "file to write (default: stdout)")

	cmd.AddCommand(list, create, show, add, remove, move, rename, del, fav, m3u)
	return cmd
}

// playlist resolves a playlist reference and marks it as used.
func (a *App) playlist(ctx context.Context, ref string) (playlists.Playlist, error) {
	pl, err := a.playlists.Resolve(ctx, ref)
	if err != nil {
		return pl, opErrorWith(errmsg.OpPlaylistLoad, ref, err)
	}
	if err := a.playlists.UpdateLastUsed(ctx, pl.ID); err != nil {
		a.log.Warn().Err(err).Int64("playlist", pl.ID).Msg("update last used")
	}
	return pl, nil
}
