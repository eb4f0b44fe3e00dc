package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/ui/render"
)

// Execute runs the command line. The database and the log are closed
// whether or not the command succeeded.
func Execute(ctx context.Context, args []string) (err error) {
	app := NewApp()
	defer func() {
		err = errors.Join(err, app.close())
	}()
	cmd := NewRootCommand(app)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fistopy",
		Short:         "Import, browse, tag, queue and export music from many sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.open(); err != nil {
				return opError(errmsg.OpInitialize, err)
			}
			return nil
		},
	}
	cmd.SetOut(app.out)
	cmd.SetErr(app.err)
	cmd.PersistentFlags().StringVar(&app.configPath, "config", "", "extra config file, loaded last")
	cmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newImportCommand(app),
		newAlbumsCommand(app),
		newArtistsCommand(app),
		newTracksCommand(app),
		newSearchCommand(app),
		newStatsCommand(app),
		newTagCommand(app),
		newMatchCommand(app),
		newRadioCommand(app),
		newQueueCommand(app),
		newPlaylistCommand(app),
		newExportCommand(app),
		newScrobbleCommand(app),
	)
	return cmd
}

// opError wraps err with the user-facing description of op.
func opError(op errmsg.Op, err error) error {
	if err == nil {
		return nil
	}
	return &userError{msg: errmsg.Format(op, err), err: err}
}

func opErrorWith(op errmsg.Op, context string, err error) error {
	if err == nil {
		return nil
	}
	return &userError{msg: errmsg.FormatWith(op, context, err), err: err}
}

type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// FormatError renders a command failure for the terminal.
func FormatError(err error) string {
	var ue *userError
	if errors.As(err, &ue) {
		return render.Failure(ue.msg)
	}
	return render.Failure(fmt.Sprintf("Error: %v", err))
}
