// Package queue holds the playback queue and persists it between runs.
package queue

import "github.com/fistopy/fistopy/internal/library"

// PlayingQueue is an ordered track list with a playback cursor.
type PlayingQueue struct {
	tracks       []library.TrackCombo
	currentIndex int // -1 if nothing playing
}

// NewQueue creates a new empty playing queue.
func NewQueue() *PlayingQueue {
	return &PlayingQueue{currentIndex: -1}
}

// Current returns the currently playing track, or nil if none.
func (q *PlayingQueue) Current() *library.TrackCombo {
	return q.Track(q.currentIndex)
}

// Track returns the track at index, or nil if out of range.
func (q *PlayingQueue) Track(index int) *library.TrackCombo {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	return &q.tracks[index]
}

// CurrentIndex returns the index of the currently playing track (-1 if none).
func (q *PlayingQueue) CurrentIndex() int {
	return q.currentIndex
}

// Remaining returns how many tracks follow the current one.
func (q *PlayingQueue) Remaining() int {
	return len(q.tracks) - q.currentIndex - 1
}

// Next advances to the next track and returns it.
// Returns nil if there is no next track.
func (q *PlayingQueue) Next() *library.TrackCombo {
	if !q.HasNext() {
		return nil
	}
	q.currentIndex++
	return q.Current()
}

// HasNext returns true if there's a track after the current one.
func (q *PlayingQueue) HasNext() bool {
	return q.currentIndex < len(q.tracks)-1
}

// Previous steps back one track and returns it.
// Returns nil at the start of the queue.
func (q *PlayingQueue) Previous() *library.TrackCombo {
	if !q.HasPrevious() {
		return nil
	}
	q.currentIndex--
	return q.Current()
}

// HasPrevious returns true if there's a track before the current one.
func (q *PlayingQueue) HasPrevious() bool {
	return q.currentIndex > 0
}

// JumpTo sets the current index to the specified position.
// Returns the track at that position, or nil if invalid.
func (q *PlayingQueue) JumpTo(index int) *library.TrackCombo {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	q.currentIndex = index
	return q.Current()
}

// Add appends tracks to the queue without changing playback.
func (q *PlayingQueue) Add(tracks ...library.TrackCombo) {
	q.tracks = append(q.tracks, tracks...)
}

// InsertNext inserts tracks right after the current one. With nothing
// playing they go to the front.
func (q *PlayingQueue) InsertNext(tracks ...library.TrackCombo) {
	at := q.currentIndex + 1
	q.tracks = append(q.tracks[:at], append(append([]library.TrackCombo(nil), tracks...), q.tracks[at:]...)...)
}

// AddAndPlay appends tracks and jumps to the first added track.
// Returns the track to play.
func (q *PlayingQueue) AddAndPlay(tracks ...library.TrackCombo) *library.TrackCombo {
	if len(tracks) == 0 {
		return nil
	}
	insertIndex := len(q.tracks)
	q.tracks = append(q.tracks, tracks...)
	q.currentIndex = insertIndex
	return q.Current()
}

// Replace clears the queue, adds tracks, and sets index to 0.
// Returns the first track to play.
func (q *PlayingQueue) Replace(tracks ...library.TrackCombo) *library.TrackCombo {
	q.tracks = nil
	q.currentIndex = -1
	if len(tracks) == 0 {
		return nil
	}
	q.tracks = append(q.tracks, tracks...)
	q.currentIndex = 0
	return q.Current()
}

// RemoveAt removes the track at the given index.
// Adjusts currentIndex if necessary.
func (q *PlayingQueue) RemoveAt(index int) bool {
	if index < 0 || index >= len(q.tracks) {
		return false
	}
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)

	if q.currentIndex > index {
		q.currentIndex--
	} else if q.currentIndex == index && q.currentIndex >= len(q.tracks) {
		// removed the last track while playing it
		q.currentIndex = len(q.tracks) - 1
	}
	return true
}

// Move moves the track at from to position to, keeping the cursor on the
// same track.
func (q *PlayingQueue) Move(from, to int) bool {
	if from < 0 || from >= len(q.tracks) || to < 0 || to >= len(q.tracks) {
		return false
	}
	if from == to {
		return true
	}

	track := q.tracks[from]
	q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
	q.tracks = append(q.tracks[:to], append([]library.TrackCombo{track}, q.tracks[to:]...)...)

	switch {
	case q.currentIndex == from:
		q.currentIndex = to
	case from < q.currentIndex && to >= q.currentIndex:
		q.currentIndex--
	case from > q.currentIndex && to <= q.currentIndex:
		q.currentIndex++
	}
	return true
}

// Clear removes all tracks and resets playback.
func (q *PlayingQueue) Clear() {
	q.tracks = nil
	q.currentIndex = -1
}

// Tracks returns a copy of all tracks in the queue.
func (q *PlayingQueue) Tracks() []library.TrackCombo {
	out := make([]library.TrackCombo, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Len returns the number of tracks in the queue.
func (q *PlayingQueue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *PlayingQueue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// restore replaces the state wholesale, clamping the cursor.
func (q *PlayingQueue) restore(tracks []library.TrackCombo, index int) {
	q.tracks = tracks
	switch {
	case len(tracks) == 0:
		q.currentIndex = -1
	case index >= len(tracks):
		q.currentIndex = len(tracks) - 1
	case index < -1:
		q.currentIndex = -1
	default:
		q.currentIndex = index
	}
}
