package queue

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fistopy/fistopy/internal/library"
	"github.com/fistopy/fistopy/internal/store"
)

const historySize = 50

// Extender appends tracks to a radio. *radio.Service implements it.
type Extender interface {
	Extend(ctx context.Context, radioID string, n int) ([]library.TrackCombo, error)
}

// PlayFunc is called when a track becomes current through playback.
type PlayFunc func(ctx context.Context, track library.TrackCombo, at time.Time)

// Manager guards the queue and saves it after every change.
type Manager struct {
	mu         sync.Mutex
	queue      *PlayingQueue
	history    *History
	radioID    string
	store      *store.Store
	lib        *library.Library
	radio      Extender
	bufferSize int
	onPlay     PlayFunc
	log        zerolog.Logger
	now        func() time.Time
}

// Load restores the saved queue. Tracks deleted from the library since
// the last save are dropped; the current track stays current, or the next
// surviving one takes its place.
func Load(ctx context.Context, st *store.Store, lib *library.Library, log zerolog.Logger) (*Manager, error) {
	state, err := getState(ctx, st.DB())
	if err != nil {
		return nil, err
	}
	tracks, err := lib.TrackCombos(ctx, state.TrackIDs)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		queue:   NewQueue(),
		history: NewHistory(historySize),
		radioID: state.RadioID,
		store:   st,
		lib:     lib,
		log:     log.With().Str("component", "queue").Logger(),
		now:     time.Now,
	}
	m.queue.restore(tracks, survivingIndex(state, tracks))
	m.history.Push(m.queue)
	return m, nil
}

// survivingIndex maps the saved current position to an index in tracks,
// the saved tracks still in the library in queue order.
func survivingIndex(state savedState, tracks []library.TrackCombo) int {
	if state.CurrentIndex < 0 || len(tracks) == 0 {
		return -1
	}
	alive := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		alive[t.ID] = true
	}
	n := 0
	for i, id := range state.TrackIDs {
		if !alive[id] {
			continue
		}
		pos := i
		if i < len(state.Positions) {
			pos = state.Positions[i]
		}
		if pos >= state.CurrentIndex {
			return n
		}
		n++
	}
	// nothing survived from the current track on
	return len(tracks) - 1
}

// SetRadio enables radio top-ups. bufferSize is how many tracks to keep
// ahead of the current one.
func (m *Manager) SetRadio(ext Extender, bufferSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.radio = ext
	m.bufferSize = bufferSize
}

// OnPlay registers a callback for tracks started by Next, Previous or
// JumpTo.
func (m *Manager) OnPlay(fn PlayFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPlay = fn
}

// Tracks returns the queued tracks and the current index.
func (m *Manager) Tracks() ([]library.TrackCombo, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Tracks(), m.queue.CurrentIndex()
}

// Current returns the current track, if any.
func (m *Manager) Current() (library.TrackCombo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.queue.Current(); t != nil {
		return *t, true
	}
	return library.TrackCombo{}, false
}

// RadioID returns the radio feeding the queue, or "".
func (m *Manager) RadioID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.radioID
}

// Add appends tracks.
func (m *Manager) Add(tracks ...library.TrackCombo) {
	m.mutate(func(q *PlayingQueue) { q.Add(tracks...) })
}

// InsertNext queues tracks right after the current one.
func (m *Manager) InsertNext(tracks ...library.TrackCombo) {
	m.mutate(func(q *PlayingQueue) { q.InsertNext(tracks...) })
}

// Replace swaps the queue content and detaches any radio.
func (m *Manager) Replace(tracks ...library.TrackCombo) {
	m.mutate(func(q *PlayingQueue) {
		q.Replace(tracks...)
		m.radioID = ""
	})
}

// PlayRadio replaces the queue with the first batch of a radio and keeps
// it attached for later top-ups.
func (m *Manager) PlayRadio(radioID string, tracks []library.TrackCombo) {
	m.mutate(func(q *PlayingQueue) {
		q.Replace(tracks...)
		m.radioID = radioID
	})
}

// RemoveAt removes one track.
func (m *Manager) RemoveAt(index int) bool {
	var ok bool
	m.mutate(func(q *PlayingQueue) { ok = q.RemoveAt(index) })
	return ok
}

// Move moves one track.
func (m *Manager) Move(from, to int) bool {
	var ok bool
	m.mutate(func(q *PlayingQueue) { ok = q.Move(from, to) })
	return ok
}

// Clear empties the queue and detaches any radio.
func (m *Manager) Clear() {
	m.mutate(func(q *PlayingQueue) {
		q.Clear()
		m.radioID = ""
	})
}

// Undo restores the queue before the last change.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.history.Undo(m.queue) {
		return false
	}
	m.save()
	return true
}

// Redo reapplies an undone change.
func (m *Manager) Redo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.history.Redo(m.queue) {
		return false
	}
	m.save()
	return true
}

// Next advances playback, records the play and tops up the radio.
func (m *Manager) Next(ctx context.Context) (library.TrackCombo, bool, error) {
	if _, err := m.FillFromRadio(ctx); err != nil {
		m.log.Warn().Err(err).Msg("radio top-up failed")
	}
	return m.move(ctx, (*PlayingQueue).Next)
}

// Previous steps back and records the play.
func (m *Manager) Previous(ctx context.Context) (library.TrackCombo, bool, error) {
	return m.move(ctx, (*PlayingQueue).Previous)
}

// JumpTo plays the track at index.
func (m *Manager) JumpTo(ctx context.Context, index int) (library.TrackCombo, bool, error) {
	return m.move(ctx, func(q *PlayingQueue) *library.TrackCombo { return q.JumpTo(index) })
}

func (m *Manager) move(ctx context.Context, step func(*PlayingQueue) *library.TrackCombo) (library.TrackCombo, bool, error) {
	m.mu.Lock()
	t := step(m.queue)
	if t == nil {
		m.mu.Unlock()
		return library.TrackCombo{}, false, nil
	}
	track := *t
	onPlay := m.onPlay
	m.save()
	m.mu.Unlock()

	at := m.now()
	if err := m.lib.RecordPlay(ctx, track.ID, at); err != nil {
		return track, true, err
	}
	track.PlayCount++
	track.LastPlayedAt = at
	if onPlay != nil {
		onPlay(ctx, track, at)
	}
	return track, true, nil
}

// FillFromRadio appends radio tracks once fewer than half the buffer is
// left after the current track, bringing it back to a full buffer. It
// returns the number of tracks added.
func (m *Manager) FillFromRadio(ctx context.Context) (int, error) {
	m.mu.Lock()
	radioID, ext, buffer := m.radioID, m.radio, m.bufferSize
	remaining := m.queue.Remaining()
	m.mu.Unlock()

	if radioID == "" || ext == nil || buffer <= 0 {
		return 0, nil
	}
	if remaining*2 >= buffer {
		return 0, nil
	}

	tracks, err := ext.Extend(ctx, radioID, buffer-remaining)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.radioID != radioID {
		// queue was replaced while extending
		return 0, nil
	}
	m.queue.Add(tracks...)
	m.history.Push(m.queue)
	m.save()
	m.log.Debug().Int("added", len(tracks)).Str("radio", radioID).Msg("queue topped up from radio")
	return len(tracks), nil
}

// Flush writes any pending save now.
func (m *Manager) Flush() {
	m.store.Flush()
}

func (m *Manager) mutate(fn func(q *PlayingQueue)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.queue)
	m.history.Push(m.queue)
	m.save()
}

// save schedules a debounced write of the current state. Callers hold mu.
func (m *Manager) save() {
	tracks := m.queue.Tracks()
	state := savedState{
		CurrentIndex: m.queue.CurrentIndex(),
		RadioID:      m.radioID,
		TrackIDs:     make([]string, len(tracks)),
	}
	for i, t := range tracks {
		state.TrackIDs[i] = t.ID
	}
	m.store.SaveDebounced(func(db *sql.DB) error {
		return saveState(context.Background(), db, state)
	})
}
