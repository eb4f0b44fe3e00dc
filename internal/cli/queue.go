package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/queue"
	"github.com/fistopy/fistopy/internal/ui/render"
)

func newQueueCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show and edit the play queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := app.queueManager(cmd.Context())
			if err != nil {
				return opError(errmsg.OpQueueLoad, err)
			}
			return app.printQueue(q)
		},
	}

	var (
		albums bool
		next   bool
		play   bool
	)
	add := &cobra.Command{
		Use:   "add <track|album>...",
		Short: "Add tracks or albums to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := app.queueManager(ctx)
			if err != nil {
				return opError(errmsg.OpQueueLoad, err)
			}
			tracks, err := app.resolveTracks(ctx, args, albums)
			if err != nil {
				return opError(errmsg.OpQueueAdd, err)
			}
			switch {
			case play:
				q.Replace(tracks...)
			case next:
				q.InsertNext(tracks...)
			default:
				q.Add(tracks...)
			}
			q.Flush()
			_, err = fmt.Fprintln(app.out, render.Success("Queued "+render.Count(len(tracks), "track")))
			return err
		},
	}
	add.Flags().BoolVar(&albums, "album", false, "arguments are albums")
	add.Flags().BoolVar(&next, "next", false, "insert after the current track")
	add.Flags().BoolVar(&play, "play", false, "replace the queue")
	add.MarkFlagsMutuallyExclusive("next", "play")

	step := func(use, short string, move func(*cobra.Command, *queue.Manager, []string) (library.TrackCombo, bool, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				q, err := app.queueManager(cmd.Context())
				if err != nil {
					return opError(errmsg.OpQueueLoad, err)
				}
				t, ok, err := move(cmd, q, args)
				if err != nil {
					return err
				}
				q.Flush()
				if !ok {
					_, err := fmt.Fprintln(app.out, render.Warning("Nothing to play"))
					return err
				}
				if s := app.scrobbler(); s != nil {
					s.NowPlaying(cmd.Context(), scrobbleTrack(t, time.Now()))
				}
				return app.printNowPlaying(t)
			},
		}
	}

	nextCmd := step("next", "Play the next track", func(cmd *cobra.Command, q *queue.Manager, _ []string) (library.TrackCombo, bool, error) {
		return q.Next(cmd.Context())
	})
	nextCmd.Args = cobra.NoArgs
	prevCmd := step("prev", "Play the previous track", func(cmd *cobra.Command, q *queue.Manager, _ []string) (library.TrackCombo, bool, error) {
		return q.Previous(cmd.Context())
	})
	prevCmd.Args = cobra.NoArgs
	jumpCmd := step("jump <position>", "Play the track at a position", func(cmd *cobra.Command, q *queue.Manager, args []string) (library.TrackCombo, bool, error) {
		tracks, _ := q.Tracks()
		i, err := parsePosition(args[0], len(tracks))
		if err != nil {
			return library.TrackCombo{}, false, err
		}
		return q.JumpTo(cmd.Context(), i)
	})
	jumpCmd.Args = cobra.ExactArgs(1)

	remove := &cobra.Command{
		Use:   "remove <position>",
		Short: "Remove the track at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := app.queueManager(cmd.Context())
			if err != nil {
				return opError(errmsg.OpQueueLoad, err)
			}
			tracks, _ := q.Tracks()
			i, err := parsePosition(args[0], len(tracks))
			if err != nil {
				return err
			}
			q.RemoveAt(i)
			q.Flush()
			_, err = fmt.Fprintln(app.out, render.Success("Removed "+tracks[i].Title))
			return err
		},
	}

	move := &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a track to another position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := app.queueManager(cmd.Context())
			if err != nil {
				return opError(errmsg.OpQueueLoad, err)
			}
			tracks, _ := q.Tracks()
			from, err := parsePosition(args[0], len(tracks))
			if err != nil {
				return err
			}
			to, err := parsePosition(args[1], len(tracks))
			if err != nil {
				return err
			}
			q.Move(from, to)
			q.Flush()
			return app.printQueue(q)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := app.queueManager(cmd.Context())
			if err != nil {
				return opError(errmsg.OpQueueLoad, err)
			}
			q.Clear()
			q.Flush()
			_, err = fmt.Fprintln(app.out, render.Success("Queue cleared"))
			return err
		},
	}

	history := func(use, short string, apply func(*queue.Manager) bool) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				q, err := app.queueManager(cmd.Context())
				if err != nil {
					return opError(errmsg.OpQueueLoad, err)
				}
				if !apply(q) {
					_, err := fmt.Fprintln(app.out, render.Warning("Nothing to "+use))
					return err
				}
				q.Flush()
				return app.printQueue(q)
			},
		}
	}

	cmd.AddCommand(add, nextCmd, prevCmd, jumpCmd, remove, move, clearCmd,
		history("undo", "Undo the last queue change", (*queue.Manager).Undo),
		history("redo", "Redo an undone queue change", (*queue.Manager).Redo),
	)
	return cmd
}

func (a *App) printQueue(q *queue.Manager) error {
	tracks, current := q.Tracks()
	if len(tracks) == 0 {
		_, err := fmt.Fprintln(a.out, render.MutedStyle.Render("Queue is empty"))
		return err
	}

	tbl := render.NewTable(render.DefaultWidth,
		render.Column{Title: "#", Width: 4, Right: true},
		render.Column{Title: "Title"},
		render.Column{Title: "Artist", Width: 22},
		render.Column{Title: "Album", Width: 22},
		render.Column{Title: "Time", Width: 7, Right: true},
	)
	for i, t := range tracks {
		cells := []string{fmt.Sprint(i + 1), t.Title, t.ArtistString(), t.AlbumTitle(), render.Duration(t.Duration)}
		switch {
		case i == current:
			tbl.AddStyled(render.CurrentStyle, cells...)
		case !t.IsPlayable():
			tbl.AddStyled(render.MutedStyle, cells...)
		default:
			tbl.Add(cells...)
		}
	}
	if err := tbl.Render(a.out); err != nil {
		return err
	}

	status := render.Count(len(tracks), "track")
	if id := q.RadioID(); id != "" {
		status += " · radio " + id
	}
	_, err := fmt.Fprintln(a.out, render.MutedStyle.Render(status))
	return err
}

func (a *App) printNowPlaying(t library.TrackCombo) error {
	line := render.CurrentStyle.Render("▶ "+t.Title) + " " +
		render.MutedStyle.Render(render.List(t.ArtistString(), t.AlbumTitle(), render.Duration(t.Duration)))
	_, err := fmt.Fprintln(a.out, line)
	return err
}
