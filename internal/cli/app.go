// Package cli wires the library services into the fistopy command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/coverart"
	"github.com/fistopy/fistopy/internal/enrich"
	"github.com/fistopy/fistopy/internal/export"
	"github.com/fistopy/fistopy/internal/importer"
	"github.com/fistopy/fistopy/internal/lastfm"
	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/logging"
	"github.com/fistopy/fistopy/internal/match"
	"github.com/fistopy/fistopy/internal/musicbrainz"
	"github.com/fistopy/fistopy/internal/playlists"
	"github.com/fistopy/fistopy/internal/queue"
	"github.com/fistopy/fistopy/internal/radio"
	"github.com/fistopy/fistopy/internal/spotify"
	"github.com/fistopy/fistopy/internal/store"
	"github.com/fistopy/fistopy/internal/youtube"
)

// ErrNotConfigured is returned for backends missing from the config file.
var ErrNotConfigured = errors.New("not configured")

// App holds the services shared by commands. Backends are created on
// first use so that commands only need the configuration they touch.
type App struct {
	configPath string
	logLevel   string

	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
	store     *store.Store
	lib       *library.Library
	playlists *playlists.Playlists

	out io.Writer
	err io.Writer

	lastfm      *lastfm.Client
	musicbrainz *musicbrainz.Client
	radio       *radio.Service
	queue       *queue.Manager
}

// NewApp creates an App writing to stdout and stderr.
func NewApp() *App {
	return &App{out: os.Stdout, err: os.Stderr, log: zerolog.Nop()}
}

// open loads the configuration, the logger and the database. Services
// preset by tests are kept.
func (a *App) open() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logCloser == nil {
		log, closer, err := logging.New(a.cfg.Log)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		a.log, a.logCloser = log, closer
	}
	if a.store == nil {
		st, err := store.Open(a.cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.store = st
	}
	a.store.OnSaveError(func(err error) {
		a.log.Error().Err(err).Msg("background save failed")
	})
	a.lib = library.New(a.store.DB())
	a.playlists = playlists.New(a.store.DB(), a.lib)
	return nil
}

// close flushes pending writes and releases the database and the log.
func (a *App) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
		a.logCloser = nil
	}
	return errors.Join(errs...)
}

func (a *App) lastfmClient() (*lastfm.Client, error) {
	if !a.cfg.HasLastfmConfig() {
		return nil, fmt.Errorf("last.fm: %w", ErrNotConfigured)
	}
	if a.lastfm == nil {
		a.lastfm = lastfm.New(a.cfg.Lastfm)
	}
	return a.lastfm, nil
}

func (a *App) spotifyClient(ctx context.Context) (*spotify.Client, error) {
	c, err := spotify.New(ctx, a.cfg.Spotify)
	if errors.Is(err, spotify.ErrNotConfigured) {
		return nil, fmt.Errorf("spotify: %w", ErrNotConfigured)
	}
	return c, err
}

func (a *App) youtubeClient(ctx context.Context) (*youtube.Client, error) {
	c, err := youtube.New(ctx, a.cfg.YouTube)
	if errors.Is(err, youtube.ErrNotConfigured) {
		return nil, fmt.Errorf("youtube: %w", ErrNotConfigured)
	}
	return c, err
}

func (a *App) musicbrainzClient() *musicbrainz.Client {
	if a.musicbrainz == nil {
		a.musicbrainz = musicbrainz.NewClient()
	}
	return a.musicbrainz
}

// radioService builds the radio generator. Without Last.fm radios fall
// back to random library tracks.
func (a *App) radioService() *radio.Service {
	if a.radio != nil {
		return a.radio
	}
	var client radio.LastfmAPI
	if c, err := a.lastfmClient(); err == nil {
		client = c
	}
	a.radio = radio.New(a.store.DB(), a.lib, client, a.cfg.GetRadioConfig(), a.log)
	a.radio.SetFavorites(a.playlists.FavoriteTrackIDs)
	return a.radio
}

// queueManager loads the saved queue, wired to the radio and, when a
// session key is configured, to the scrobbler.
func (a *App) queueManager(ctx context.Context) (*queue.Manager, error) {
	if a.queue != nil {
		return a.queue, nil
	}
	m, err := queue.Load(ctx, a.store, a.lib, a.log)
	if err != nil {
		return nil, err
	}
	m.SetRadio(a.radioService(), a.cfg.GetRadioConfig().BufferSize)
	if s := a.scrobbler(); s != nil {
		m.OnPlay(func(ctx context.Context, t library.TrackCombo, at time.Time) {
			if err := s.Submit(ctx, scrobbleTrack(t, at)); err != nil {
				a.log.Warn().Err(err).Str("track", t.Title).Msg("scrobble not queued")
			}
		})
	}
	a.queue = m
	return m, nil
}

func (a *App) scrobbler() *lastfm.Scrobbler {
	if !a.cfg.CanScrobble() {
		return nil
	}
	c, err := a.lastfmClient()
	if err != nil {
		return nil
	}
	return lastfm.NewScrobbler(c, a.store, logging.Component(a.log, "scrobbler"))
}

// enricher registers every configured backend.
func (a *App) enricher(ctx context.Context) *enrich.Enricher {
	e := enrich.New(a.lib, match.OptionsFromConfig(a.cfg.GetMatchConfig()), a.log)
	e.Register(library.SourceMusicBrainz, a.musicbrainzClient())
	if c, err := a.spotifyClient(ctx); err == nil {
		e.Register(library.SourceSpotify, c)
	}
	if c, err := a.youtubeClient(ctx); err == nil {
		e.Register(library.SourceYouTube, c)
	}
	if c, err := a.lastfmClient(); err == nil {
		e.Register(library.SourceLastfm, c)
	}
	return e
}

func (a *App) importer() *importer.Importer {
	return importer.New(a.lib, coverart.New(a.cfg.CoversDir()), a.log)
}

func (a *App) exporter() *export.Service {
	return export.New(a.lib, a.playlists, export.NewExporter(""), a.log)
}

func scrobbleTrack(t library.TrackCombo, at time.Time) lastfm.ScrobbleTrack {
	return lastfm.ScrobbleTrack{
		Artist:        t.ArtistString(),
		Track:         t.Title,
		Album:         t.AlbumTitle(),
		Duration:      t.Duration,
		Timestamp:     at,
		MBRecordingID: t.MusicBrainzRecordingID,
	}
}
