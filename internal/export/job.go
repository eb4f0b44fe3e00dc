package export

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoLocalFile is recorded for tracks that only exist on a streaming
// service.
var ErrNoLocalFile = errors.New("track has no local file")

// Track contains info needed to export a single track.
type Track struct {
	ID          string
	AlbumID     string
	SrcPath     string
	Artist      string // album artist, used for folders
	TrackArtist string
	Album       string
	Title       string
	TrackNum    int
	TrackTotal  int
	DiscNum     int
	DiscTotal   int
	Year        int
	Duration    time.Duration
	Extension   string
	CoverPath   string

	MBReleaseID      string
	MBReleaseGroupID string
	MBRecordingID    string
}

// TrackError records a failed export.
type TrackError struct {
	Track Track
	Err   error
}

func (e TrackError) Error() string {
	return fmt.Sprintf("%s - %s: %v", e.Track.TrackArtist, e.Track.Title, e.Err)
}

// Progress reports one exported (or failed) track.
type Progress struct {
	Current int
	Total   int
	Track   Track
	Err     error
}

// Job tracks the progress of an export operation.
type Job struct {
	mu       sync.Mutex
	id       string
	label    string
	playlist string // M3U name, empty for albums
	tracks   []Track
	current  int
	written  []string
	errors   []TrackError
	canceled bool
	done     bool
}

// NewJob creates a new export job. playlist names the M3U file written
// alongside the tracks and is empty for album exports.
func NewJob(label, playlist string, tracks []Track) *Job {
	return &Job{
		id:       uuid.NewString(),
		label:    label,
		playlist: playlist,
		tracks:   tracks,
		written:  make([]string, len(tracks)),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.id
}

// Label describes the job.
func (j *Job) Label() string {
	return j.label
}

// Tracks returns the tracks to export.
func (j *Job) Tracks() []Track {
	return j.tracks
}

// Progress returns how many tracks have been handled.
func (j *Job) Progress() (current, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current, len(j.tracks)
}

func (j *Job) advance(index int, dst string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.current = index + 1
	if err != nil {
		j.errors = append(j.errors, TrackError{Track: j.tracks[index], Err: err})
		return
	}
	j.written[index] = dst
}

// Written returns the destination of every exported track, in track
// order. Failed tracks are left out.
func (j *Job) Written() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, w := range j.written {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Cancel stops the job before its next track.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.canceled = true
}

// IsCanceled returns true if the job was canceled.
func (j *Job) IsCanceled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.canceled
}

func (j *Job) complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done = true
}

// Done reports whether the job has finished or stopped.
func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}

// Errors returns all export errors.
func (j *Job) Errors() []TrackError {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]TrackError(nil), j.errors...)
}

// Summary returns a one-line status.
func (j *Job) Summary() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	failed := len(j.errors)
	switch {
	case j.canceled:
		return fmt.Sprintf("Export canceled: %d/%d", j.current-failed, len(j.tracks))
	case failed > 0:
		return fmt.Sprintf("Export complete: %d/%d (%d failed)", len(j.tracks)-failed, len(j.tracks), failed)
	}
	return fmt.Sprintf("Export complete: %d files", len(j.tracks))
}
