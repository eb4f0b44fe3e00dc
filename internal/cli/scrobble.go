package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/ui/render"
)

func newScrobbleCommand(app *App) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "scrobble [track]",
		Short: "Scrobble a track, or resubmit queued scrobbles",
		Long: "With a track, records a play of it and scrobbles it to Last.fm. " +
			"Without arguments, resubmits scrobbles that failed earlier.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := app.scrobbler()
			if s == nil {
				return fmt.Errorf("last.fm scrobbling: %w (set lastfm.api_key, api_secret and session_key)", ErrNotConfigured)
			}

			if len(args) == 0 {
				res, err := s.RetryPending(ctx)
				if err != nil {
					return opError(errmsg.OpLastfmScrobble, err)
				}
				msg := fmt.Sprintf("%d sent, %d failed, %d given up", res.Succeeded, res.Failed, res.Skipped)
				if res.Failed > 0 {
					msg = render.Warning(msg)
				} else {
					msg = render.Success(msg)
				}
				_, err = fmt.Fprintln(app.out, msg)
				return err
			}

			t, err := app.resolveTrack(ctx, args[0])
			if err != nil {
				return opErrorWith(errmsg.OpTrackLoad, args[0], err)
			}
			when := time.Now()
			if at != "" {
				when, err = time.ParseInLocation(time.DateTime, at, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --at %q, want %q", at, time.DateTime)
				}
			}
			if err := app.lib.RecordPlay(ctx, t.ID, when); err != nil {
				return opErrorWith(errmsg.OpLastfmScrobble, t.Title, err)
			}
			if err := s.Submit(ctx, scrobbleTrack(t, when)); err != nil {
				return opErrorWith(errmsg.OpLastfmScrobble, t.Title, err)
			}
			_, err = fmt.Fprintln(app.out, render.Success("Scrobbled "+t.ArtistString()+" - "+t.Title))
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "time of the play, "+time.DateTime)
	return cmd
}
