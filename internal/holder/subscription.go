package holder

import "sync"

const updateBufferSize = 16

// Snapshot is the state of a holder at one point in time.
type Snapshot[T any] struct {
	Items   []T
	HasMore bool
	Loading bool
	Total   int
	Err     error
}

// Progress reports one finished item of an import batch.
type Progress[T any] struct {
	Done  int
	Total int
	Item  T
	Err   error
}

// Subscription provides update channels for a subscriber.
type Subscription[T any] struct {
	Updates  <-chan Snapshot[T]
	Progress <-chan Progress[T]
	Done     <-chan struct{}

	updateCh   chan Snapshot[T]
	progressCh chan Progress[T]
	doneCh     chan struct{}
	once       sync.Once
	owner      *subscribers[T]
}

func newSubscription[T any](owner *subscribers[T]) *Subscription[T] {
	s := &Subscription[T]{
		updateCh:   make(chan Snapshot[T], updateBufferSize),
		progressCh: make(chan Progress[T], updateBufferSize),
		doneCh:     make(chan struct{}),
		owner:      owner,
	}
	s.Updates = s.updateCh
	s.Progress = s.progressCh
	s.Done = s.doneCh
	return s
}

// Close detaches the subscription and closes Done. Safe to call twice.
func (s *Subscription[T]) Close() {
	if s.owner != nil {
		s.owner.remove(s)
	}
	s.close()
}

func (s *Subscription[T]) close() {
	s.once.Do(func() { close(s.doneCh) })
}

// sendUpdate sends a snapshot (non-blocking).
func (s *Subscription[T]) sendUpdate(snap Snapshot[T]) {
	select {
	case s.updateCh <- snap:
	default:
		// Drop if buffer full
	}
}

// sendProgress sends an import progress event (non-blocking).
func (s *Subscription[T]) sendProgress(p Progress[T]) {
	select {
	case s.progressCh <- p:
	default:
	}
}

type subscribers[T any] struct {
	mu   sync.RWMutex
	subs []*Subscription[T]
}

func (l *subscribers[T]) add() *Subscription[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	sub := newSubscription(l)
	l.subs = append(l.subs, sub)
	return sub
}

func (l *subscribers[T]) remove(sub *Subscription[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.subs {
		if s == sub {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

func (l *subscribers[T]) update(snap Snapshot[T]) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.subs {
		s.sendUpdate(snap)
	}
}

func (l *subscribers[T]) progress(p Progress[T]) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.subs {
		s.sendProgress(p)
	}
}

func (l *subscribers[T]) closeAll() {
	l.mu.Lock()
	subs := l.subs
	l.subs = nil
	l.mu.Unlock()
	for _, s := range subs {
		s.close()
	}
}
