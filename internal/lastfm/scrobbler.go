package lastfm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fistopy/fistopy/internal/store"
)

// maxAttempts is how often a pending scrobble is retried before it is
// left alone.
const maxAttempts = 10

// pendingMaxAge is how long Last.fm accepts back-dated scrobbles.
const pendingMaxAge = 14 * 24 * time.Hour

// scrobbleAPI is the part of Client used by the Scrobbler.
type scrobbleAPI interface {
	Scrobble(ctx context.Context, track ScrobbleTrack) error
	UpdateNowPlaying(ctx context.Context, track ScrobbleTrack) error
}

// RetryResult summarises a retry of pending scrobbles.
type RetryResult struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Scrobbler submits plays, queueing failed ones in the store for retry.
type Scrobbler struct {
	api   scrobbleAPI
	store *store.Store
	log   zerolog.Logger
}

// NewScrobbler creates a scrobbler. api is usually a *Client.
func NewScrobbler(api scrobbleAPI, st *store.Store, log zerolog.Logger) *Scrobbler {
	return &Scrobbler{api: api, store: st, log: log}
}

// NowPlaying announces a track; failures are only logged.
func (s *Scrobbler) NowPlaying(ctx context.Context, track ScrobbleTrack) {
	if err := s.api.UpdateNowPlaying(ctx, track); err != nil {
		s.log.Debug().Err(err).Str("track", track.Track).Msg("now playing not sent")
	}
}

// Submit scrobbles a play. When Last.fm cannot be reached the play is
// queued and nil is returned; only queueing errors are reported.
func (s *Scrobbler) Submit(ctx context.Context, track ScrobbleTrack) error {
	err := s.api.Scrobble(ctx, track)
	if err == nil {
		return nil
	}
	s.log.Warn().Err(err).Str("artist", track.Artist).Str("track", track.Track).
		Msg("scrobble failed, queued for retry")

	return s.store.AddPendingScrobble(store.PendingScrobble{
		Artist:        track.Artist,
		Track:         track.Track,
		Album:         track.Album,
		DurationSecs:  int(track.Duration.Seconds()),
		Timestamp:     track.Timestamp,
		MBRecordingID: track.MBRecordingID,
		LastError:     err.Error(),
	})
}

// RetryPending resubmits queued scrobbles, oldest first. Scrobbles older
// than Last.fm accepts are dropped.
func (s *Scrobbler) RetryPending(ctx context.Context) (RetryResult, error) {
	var res RetryResult

	if err := s.store.DeleteOldPendingScrobbles(pendingMaxAge); err != nil {
		return res, err
	}
	pending, err := s.store.PendingScrobbles()
	if err != nil {
		return res, err
	}

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p := &pending[i]
		if p.Attempts >= maxAttempts {
			res.Skipped++
			continue
		}

		track := ScrobbleTrack{
			Artist:        p.Artist,
			Track:         p.Track,
			Album:         p.Album,
			Duration:      time.Duration(p.DurationSecs) * time.Second,
			Timestamp:     p.Timestamp,
			MBRecordingID: p.MBRecordingID,
		}

		if err := s.api.Scrobble(ctx, track); err != nil {
			res.Failed++
			if err := s.store.MarkScrobbleAttempt(p.ID, err.Error()); err != nil {
				return res, err
			}
			continue
		}
		res.Succeeded++
		if err := s.store.DeletePendingScrobble(p.ID); err != nil {
			return res, err
		}
	}

	return res, nil
}
