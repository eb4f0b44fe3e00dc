package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fistopy/fistopy/internal/errmsg"
	"github.com/fistopy/fistopy/internal/export"
	"github.com/fistopy/fistopy/internal/ui/render"
)

type exportOptions struct {
	dir       string
	volume    string
	structure string
	convert   bool
	noConvert bool
	noTags    bool
}

func newExportCommand(app *App) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy albums or playlists to a directory or device",
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "d", "", "target directory (default: export.dir)")
	flags.StringVar(&opts.volume, "volume", "", "mounted device by label, UUID or mount path")
	flags.StringVar(&opts.structure, "structure", "", "flat, hierarchical or single")
	flags.BoolVar(&opts.convert, "convert", false, "convert FLAC to MP3")
	flags.BoolVar(&opts.noConvert, "no-convert", false, "copy FLAC files as they are")
	flags.BoolVar(&opts.noTags, "no-tags", false, "leave the copied tags alone")
	cmd.MarkFlagsMutuallyExclusive("dir", "volume")
	cmd.MarkFlagsMutuallyExclusive("convert", "no-convert")

	album := &cobra.Command{
		Use:   "album <album>...",
		Short: "Export albums",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o, err := app.exportOptions(opts)
			if err != nil {
				return err
			}
			svc := app.exporter()
			var failed int
			for _, ref := range args {
				a, err := app.resolveAlbum(ctx, ref)
				if err != nil {
					return opErrorWith(errmsg.OpAlbumLoad, ref, err)
				}
				job, err := svc.AlbumJob(ctx, a.ID)
				if err != nil {
					return opErrorWith(errmsg.OpAlbumLoad, ref, err)
				}
				if err := app.runExport(cmd, svc, job, o); err != nil {
					return err
				}
				failed += len(job.Errors())
			}
			if failed > 0 {
				return fmt.Errorf("%s failed", render.Count(failed, "track"))
			}
			return nil
		},
	}

	playlist := &cobra.Command{
		Use:   "playlist <playlist>",
		Short: "Export a playlist with its M3U file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o, err := app.exportOptions(opts)
			if err != nil {
				return err
			}
			pl, err := app.playlist(ctx, args[0])
			if err != nil {
				return err
			}
			svc := app.exporter()
			job, err := svc.PlaylistJob(ctx, pl.ID)
			if err != nil {
				return opErrorWith(errmsg.OpPlaylistLoad, pl.Name, err)
			}
			if err := app.runExport(cmd, svc, job, o); err != nil {
				return err
			}
			if n := len(job.Errors()); n > 0 {
				return fmt.Errorf("%s failed", render.Count(n, "track"))
			}
			return nil
		},
	}

	volumes := &cobra.Command{
		Use:   "volumes",
		Short: "List mounted removable devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vols, err := export.DetectVolumes()
			if err != nil {
				return err
			}
			if len(vols) == 0 {
				_, err := fmt.Fprintln(app.out, render.MutedStyle.Render("No removable devices mounted"))
				return err
			}
			for _, v := range vols {
				fmt.Fprintln(app.out, v.String())
			}
			return nil
		},
	}

	cmd.AddCommand(album, playlist, volumes)
	return cmd
}

// exportOptions merges flags over the export section of the config.
func (a *App) exportOptions(opts exportOptions) (export.Options, error) {
	cfg := a.cfg.GetExportConfig()
	out := export.Options{
		Dir:       cfg.Dir,
		Convert:   cfg.Convert,
		WriteTags: *cfg.WriteTags,
	}

	switch {
	case opts.volume != "":
		v, err := export.FindVolume(opts.volume)
		if err != nil {
			return out, err
		}
		out.Dir = v.MountPath
	case opts.dir != "":
		out.Dir = opts.dir
	}
	if out.Dir == "" {
		return out, errors.New("no export directory: use --dir, --volume or export.dir")
	}

	structure := cfg.Structure
	if opts.structure != "" {
		structure = opts.structure
	}
	s, err := export.ParseStructure(structure)
	if err != nil {
		return out, err
	}
	out.Structure = s

	switch {
	case opts.convert:
		out.Convert = true
	case opts.noConvert:
		out.Convert = false
	}
	if opts.noTags {
		out.WriteTags = false
	}
	return out, nil
}

func (a *App) runExport(cmd *cobra.Command, svc *export.Service, job *export.Job, opts export.Options) error {
	fmt.Fprintln(a.out, render.TitleStyle.Render(job.Label()))
	err := svc.Run(cmd.Context(), job, opts, func(p export.Progress) {
		line := fmt.Sprintf("[%d/%d] %s", p.Current, p.Total, p.Track.Title)
		if p.Err != nil {
			line = render.Failure(line + ": " + p.Err.Error())
		}
		fmt.Fprintln(a.err, line)
	})
	if err != nil {
		return opErrorWith(errmsg.OpExportFile, job.Label(), err)
	}

	summary := job.Summary()
	switch {
	case job.IsCanceled():
		summary = render.Warning(summary)
	case len(job.Errors()) > 0:
		summary = render.Failure(summary)
	default:
		summary = render.Success(summary)
	}
	_, err = fmt.Fprintln(a.out, summary)
	return err
}
