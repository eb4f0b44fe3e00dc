package holder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is how long SetQuery waits for typing to settle.
const DefaultDebounce = 300 * time.Millisecond

// SearchFetcher loads one page of results for query.
type SearchFetcher[T any] func(ctx context.Context, query, cursor string) (Page[T], error)

// SearchHolder is a Holder whose results follow a query. Changing the
// query cancels the search in flight; its results are never published.
type SearchHolder[T any] struct {
	*Holder[T]

	search SearchFetcher[T]
	parent context.Context
	delay  time.Duration

	mu      sync.Mutex
	query   string
	timer   *time.Timer
	pending bool // timer armed and not fired
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSearch creates a search holder. Searches run under parent.
func NewSearch[T any](parent context.Context, search SearchFetcher[T], opts ...Option[T]) *SearchHolder[T] {
	s := &SearchHolder[T]{
		search: search,
		parent: parent,
		delay:  DefaultDebounce,
	}
	s.Holder = New(func(ctx context.Context, cursor string) (Page[T], error) {
		return s.search(ctx, s.Query(), cursor)
	}, opts...)
	return s
}

// SetDebounce changes the debounce delay.
func (s *SearchHolder[T]) SetDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Query returns the current query.
func (s *SearchHolder[T]) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetQuery schedules a search for q once the debounce delay elapses
// without another change. An empty query clears the results.
func (s *SearchHolder[T]) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.beginLocked(s.parent, q)
	if !ok {
		return
	}
	s.pending = true
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		if s.ctx == ctx {
			s.pending = false
		}
		s.mu.Unlock()
		_ = s.Holder.LoadMore(ctx)
	})
}

// Prime sets the query without fetching; the next LoadMore runs the
// search.
func (s *SearchHolder[T]) Prime(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(s.parent, q)
}

// Pending reports whether a debounced search is waiting to start.
func (s *SearchHolder[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SearchNow searches for q immediately and waits for the first page. When
// q is already the current query, a debounced search is started at once
// and results already loaded are kept.
func (s *SearchHolder[T]) SearchNow(ctx context.Context, q string) error {
	s.mu.Lock()
	qctx, ok := s.beginLocked(ctx, q)
	if !ok && s.query != "" {
		s.stopTimerLocked()
		s.mu.Unlock()
		if s.Len() > 0 || !s.HasMore() || s.IsLoading() {
			return nil
		}
		if err := s.LoadMore(ctx); !errors.Is(err, ErrBusy) {
			return err
		}
		return nil
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Holder.LoadMore(qctx)
}

// beginLocked cancels the pending or running search and resets the
// results. It reports false when there is nothing to search for.
func (s *SearchHolder[T]) beginLocked(parent context.Context, q string) (context.Context, bool) {
	q = strings.TrimSpace(q)
	if q == s.query && s.ctx != nil && s.ctx.Err() == nil {
		return nil, false
	}
	s.query = q
	s.stopLocked()
	s.Holder.Reset()
	if q == "" {
		return nil, false
	}
	s.ctx, s.cancel = context.WithCancel(parent)
	return s.ctx, true
}

func (s *SearchHolder[T]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

func (s *SearchHolder[T]) stopLocked() {
	s.stopTimerLocked()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.ctx = nil
	}
}

// LoadMore fetches the next page of the current query. It is cancelled
// when the query changes.
func (s *SearchHolder[T]) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	qctx := s.ctx
	s.mu.Unlock()
	if qctx == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(qctx, cancel)
	defer stop()
	return s.Holder.LoadMore(ctx)
}

// LoadAll loads every page of the current query.
func (s *SearchHolder[T]) LoadAll(ctx context.Context) error {
	for s.HasMore() {
		s.mu.Lock()
		idle := s.ctx == nil
		s.mu.Unlock()
		if idle {
			return nil
		}
		if err := s.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close cancels any search and closes every subscription.
func (s *SearchHolder[T]) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
	s.Holder.Close()
}
