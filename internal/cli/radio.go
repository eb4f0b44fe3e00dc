package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/radio"
	"github.com/fistopy/fistopy/internal/ui/render"
)

func newRadioCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "radio",
		Short: "Generate endless queues from a seed",
	}

	var noQueue bool
	start := &cobra.Command{
		Use:   "start <track|album|artist|library> [seed]",
		Short: "Start a radio and make it the queue",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			typ, err := radio.ParseType(args[0])
			if err != nil {
				return err
			}
			seed, err := app.radioSeed(ctx, typ, args[1:])
			if err != nil {
				return opError(errmsg.OpRadioStart, err)
			}

			r, tracks, err := app.radioService().Start(ctx, typ, seed)
			if err != nil {
				return opErrorWith(errmsg.OpRadioStart, seed, err)
			}
			if !noQueue {
				q, err := app.queueManager(ctx)
				if err != nil {
					return opError(errmsg.OpQueueLoad, err)
				}
				q.PlayRadio(r.ID, tracks)
			}
			fmt.Fprintln(app.out, render.Success(fmt.Sprintf("Radio %q started (%s)", r.Title, r.ID)))
			return app.printTracks(tracks, true)
		},
	}
	start.Flags().BoolVar(&noQueue, "no-queue", false, "keep the current queue")

	var count int
	extend := &cobra.Command{
		Use:   "extend [radio-id]",
		Short: "Append tracks to a radio (default: the queue's radio)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := app.queueManager(ctx)
			if err != nil {
				return opError(errmsg.OpQueueLoad, err)
			}
			id := q.RadioID()
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("the queue is not playing a radio; give a radio id")
			}
			n := count
			if n <= 0 {
				n = app.cfg.GetRadioConfig().BufferSize
			}

			tracks, err := app.radioService().Extend(ctx, id, n)
			if err != nil {
				return opErrorWith(errmsg.OpRadioExtend, id, err)
			}
			if id == q.RadioID() {
				q.Add(tracks...)
			}
			fmt.Fprintln(app.out, render.Success("Added "+render.Count(len(tracks), "track")))
			return app.printTracks(tracks, true)
		},
	}
	extend.Flags().IntVarP(&count, "count", "n", 0, "number of tracks (default: radio.buffer_size)")

	show := &cobra.Command{
		Use:   "show [radio-id]",
		Short: "List radios, or the tracks of one radio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := app.radioService()
			if len(args) == 0 {
				radios, err := svc.List(ctx)
				if err != nil {
					return err
				}
				tbl := render.NewTable(render.DefaultWidth,
					render.Column{Title: "Radio"},
					render.Column{Title: "Type", Width: 7},
					render.Column{Title: "Started", Width: 14},
					render.Column{Title: "ID", Width: 36},
				)
				for _, r := range radios {
					tbl.Add(r.Title, string(r.Type), render.Ago(r.CreatedAt), r.ID)
				}
				return tbl.Render(app.out)
			}

			r, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			tracks, err := svc.Tracks(ctx, r.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.out, render.TitleStyle.Render(r.Title)+render.MutedStyle.Render(
				fmt.Sprintf("  %s radio, started %s", r.Type, render.Ago(r.CreatedAt))))
			return app.printTracks(tracks, true)
		},
	}

	remove := &cobra.Command{
		Use:   "delete <radio-id>",
		Short: "Delete a radio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.radioService().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(app.out, render.Success("Deleted radio "+args[0]))
			return err
		},
	}

	cmd.AddCommand(start, extend, show, remove)
	return cmd
}

// radioSeed resolves the seed argument of a radio type.
func (a *App) radioSeed(ctx context.Context, typ radio.Type, args []string) (string, error) {
	if typ == radio.TypeLibrary {
		return "", nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a %s radio needs a seed", typ)
	}
	switch typ {
	case radio.TypeTrack:
		t, err := a.resolveTrack(ctx, args[0])
		return t.ID, err
	case radio.TypeAlbum:
		album, err := a.resolveAlbum(ctx, args[0])
		return album.ID, err
	default:
		return args[0], nil
	}
}
