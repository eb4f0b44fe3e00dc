package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/playlists"
	"github.com/fistopy/fistopy/internal/tags"
)

// Options controls where and how a job is written.
type Options struct {
	Dir       string
	Structure FolderStructure
	Convert   bool // FLAC to MP3
	WriteTags bool
}

// Service builds and runs export jobs.
type Service struct {
	lib       *library.Library
	playlists *playlists.Playlists
	exporter  *Exporter
	log       zerolog.Logger
}

// New creates an export service.
func New(lib *library.Library, pls *playlists.Playlists, exporter *Exporter, log zerolog.Logger) *Service {
	return &Service{
		lib:       lib,
		playlists: pls,
		exporter:  exporter,
		log:       log.With().Str("component", "export").Logger(),
	}
}

// AlbumJob prepares the export of one album.
func (s *Service) AlbumJob(ctx context.Context, albumID string) (*Job, error) {
	album, err := s.lib.AlbumWithTracks(ctx, albumID)
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, len(album.Tracks))
	for i, t := range album.Tracks {
		tracks[i] = trackFrom(t, album)
	}
	label := album.Title
	if a := album.ArtistString(); a != "" {
		label = a + " - " + label
	}
	return NewJob(label, "", tracks), nil
}

// PlaylistJob prepares the export of a playlist and its M3U file.
func (s *Service) PlaylistJob(ctx context.Context, playlistID int64) (*Job, error) {
	pl, err := s.playlists.Get(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	combos, err := s.playlists.Tracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	albums := make(map[string]library.AlbumWithTracks)
	tracks := make([]Track, len(combos))
	for i, t := range combos {
		album, ok := albums[t.AlbumID]
		if !ok && t.AlbumID != "" {
			album, err = s.lib.AlbumWithTracks(ctx, t.AlbumID)
			if err != nil {
				return nil, err
			}
			albums[t.AlbumID] = album
		}
		tracks[i] = trackFrom(t, album)
	}
	return NewJob(pl.Name, pl.Name, tracks), nil
}

// Run exports every track of job, one at a time. Per-track failures are
// recorded on the job; the returned error is only for failures of the job
// as a whole. onProgress may be nil.
func (s *Service) Run(ctx context.Context, job *Job, opts Options, onProgress func(Progress)) error {
	defer job.complete()
	if opts.Dir == "" {
		return fmt.Errorf("export directory not set")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tracks := job.Tracks()
	for i, t := range tracks {
		if job.IsCanceled() {
			break
		}
		if err := ctx.Err(); err != nil {
			job.Cancel()
			break
		}

		dst, err := s.exportTrack(ctx, t, opts)
		if err != nil {
			s.log.Warn().Err(err).Str("track", t.Title).Msg("export failed")
		}
		job.advance(i, dst, err)
		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: len(tracks), Track: t, Err: err})
		}
	}

	if job.playlist != "" && !job.IsCanceled() {
		if err := writePlaylist(opts.Dir, job.playlist, job); err != nil {
			return fmt.Errorf("write playlist: %w", err)
		}
	}
	s.log.Info().Str("job", job.Label()).Msg(job.Summary())
	return nil
}

func (s *Service) exportTrack(ctx context.Context, t Track, opts Options) (string, error) {
	if t.SrcPath == "" {
		return "", ErrNoLocalFile
	}

	info := TrackInfo{
		Artist:      t.Artist,
		Album:       t.Album,
		Title:       t.Title,
		TrackNumber: t.TrackNum,
		DiscNumber:  t.DiscNum,
		TotalDiscs:  t.DiscTotal,
		Extension:   t.Extension,
	}
	if opts.Convert && NeedsConversion(info.Extension) {
		info.Extension = ".mp3"
	}
	dst := filepath.Join(opts.Dir, GenerateExportPath(info, opts.Structure))

	dst, err := s.exporter.ExportFile(ctx, t.SrcPath, dst, opts.Convert)
	if err != nil {
		return "", err
	}

	if opts.WriteTags && tags.CanWrite(dst) {
		if err := tags.Write(dst, tagFor(t)); err != nil {
			return "", fmt.Errorf("write tags: %w", err)
		}
	}
	return dst, nil
}

// writePlaylist writes <dir>/<name>.m3u with paths relative to dir.
func writePlaylist(dir, name string, job *Job) error {
	path := filepath.Join(dir, sanitizeFilename(name, "Playlist")+".m3u")

	var entries []playlists.M3UEntry
	for i, t := range job.tracks {
		dst := job.written[i]
		if dst == "" {
			continue
		}
		rel, err := filepath.Rel(dir, dst)
		if err != nil {
			rel = dst
		}
		title := t.Title
		if t.TrackArtist != "" {
			title = t.TrackArtist + " - " + title
		}
		entries = append(entries, playlists.M3UEntry{
			Location: filepath.ToSlash(rel),
			Title:    title,
			Duration: t.Duration,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := playlists.WriteM3U(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func trackFrom(t library.TrackCombo, album library.AlbumWithTracks) Track {
	out := Track{
		ID:          t.ID,
		AlbumID:     t.AlbumID,
		SrcPath:     t.LocalPath,
		Artist:      album.ArtistString(),
		TrackArtist: t.ArtistString(),
		Album:       album.Title,
		Title:       t.Title,
		TrackNum:    t.Position,
		DiscNum:     t.Disc,
		Year:        album.Year,
		Duration:    t.Duration,
		Extension:   strings.ToLower(filepath.Ext(t.LocalPath)),
		CoverPath:   album.CoverPath,

		MBReleaseID:      album.MusicBrainzReleaseID,
		MBReleaseGroupID: album.MusicBrainzReleaseGroupID,
		MBRecordingID:    t.MusicBrainzRecordingID,
	}
	if out.Artist == "" {
		out.Artist = out.TrackArtist
	}
	if out.Year == 0 {
		out.Year = t.Year
	}
	for _, at := range album.Tracks {
		if at.Disc > out.DiscTotal {
			out.DiscTotal = at.Disc
		}
		if at.Disc == t.Disc {
			out.TrackTotal++
		}
	}
	return out
}

func tagFor(t Track) *tags.Tag {
	tag := &tags.Tag{
		Title:            t.Title,
		Artist:           t.TrackArtist,
		AlbumArtist:      t.Artist,
		Album:            t.Album,
		TrackNumber:      t.TrackNum,
		TotalTracks:      t.TrackTotal,
		DiscNumber:       t.DiscNum,
		TotalDiscs:       t.DiscTotal,
		Duration:         t.Duration,
		MBReleaseID:      t.MBReleaseID,
		MBReleaseGroupID: t.MBReleaseGroupID,
		MBRecordingID:    t.MBRecordingID,
	}
	if t.Year > 0 {
		tag.Date = strconv.Itoa(t.Year)
	}
	if t.CoverPath != "" {
		// a missing cover is not worth failing the track over
		if data, err := os.ReadFile(t.CoverPath); err == nil {
			tag.CoverArt = data
		}
	}
	return tag
}
