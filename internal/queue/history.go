package queue

import "github.com/fistopy/fistopy/internal/library"

type snapshot struct {
	tracks []library.TrackCombo
	index  int
}

// History maintains queue states for undo/redo.
type History struct {
	states  []snapshot
	current int // index of current state (-1 = before any state)
	maxSize int
}

// NewHistory creates a new history with the given maximum size.
func NewHistory(maxSize int) *History {
	return &History{
		states:  make([]snapshot, 0, maxSize),
		current: -1,
		maxSize: maxSize,
	}
}

// Push saves a snapshot of the queue.
// Clears any redo states and trims if over limit.
func (h *History) Push(q *PlayingQueue) {
	if h.current < len(h.states)-1 {
		h.states = h.states[:h.current+1]
	}

	h.states = append(h.states, snapshot{tracks: q.Tracks(), index: q.CurrentIndex()})
	h.current = len(h.states) - 1

	if len(h.states) > h.maxSize {
		excess := len(h.states) - h.maxSize
		h.states = h.states[excess:]
		h.current -= excess
	}
}

// Undo restores the previous state into q.
func (h *History) Undo(q *PlayingQueue) bool {
	if !h.CanUndo() {
		return false
	}
	h.current--
	h.apply(q)
	return true
}

// Redo restores the next state into q.
func (h *History) Redo(q *PlayingQueue) bool {
	if !h.CanRedo() {
		return false
	}
	h.current++
	h.apply(q)
	return true
}

// CanUndo returns true if there is a previous state to undo to.
func (h *History) CanUndo() bool {
	return h.current > 0
}

// CanRedo returns true if there is a next state to redo to.
func (h *History) CanRedo() bool {
	return h.current < len(h.states)-1
}

func (h *History) apply(q *PlayingQueue) {
	s := h.states[h.current]
	tracks := make([]library.TrackCombo, len(s.tracks))
	copy(tracks, s.tracks)
	q.restore(tracks, s.index)
}
