// Package holder pages through external content (search results, remote
// playlists, local folders) and keeps the loaded items, the loading state
// and a selection for importing.
package holder

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by LoadMore while a page is already being fetched.
var ErrBusy = errors.New("already loading")

// Page is one page of results. An empty Next marks the last page.
type Page[T any] struct {
	Items []T
	Next  string
	Total int // 0 when unknown
}

// Fetcher loads the page at cursor; the first page has an empty cursor.
type Fetcher[T any] func(ctx context.Context, cursor string) (Page[T], error)

// KeyFunc identifies an item for de-duplication and selection.
type KeyFunc[T any] func(T) string

// Option configures a Holder.
type Option[T any] func(*Holder[T])

// WithKey de-duplicates items by key across pages.
func WithKey[T any](key KeyFunc[T]) Option[T] {
	return func(h *Holder[T]) { h.key = key }
}

// Holder accumulates the pages returned by a Fetcher.
type Holder[T any] struct {
	fetch Fetcher[T]
	key   KeyFunc[T]

	mu        sync.Mutex
	items     []T
	seen      map[string]bool
	cursor    string
	exhausted bool
	loading   bool
	total     int
	err       error
	gen       uint64 // bumped by Reset; loads of an older generation are dropped

	subs subscribers[T]
}

// New creates a holder over fetch.
func New[T any](fetch Fetcher[T], opts ...Option[T]) *Holder[T] {
	h := &Holder[T]{fetch: fetch}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// LoadMore fetches the next page and appends it. It is a no-op once the
// last page has been loaded.
func (h *Holder[T]) LoadMore(ctx context.Context) error {
	h.mu.Lock()
	if h.loading {
		h.mu.Unlock()
		return ErrBusy
	}
	if h.exhausted {
		h.mu.Unlock()
		return nil
	}
	h.loading = true
	cursor := h.cursor
	gen := h.gen
	h.mu.Unlock()
	h.publish()

	page, err := h.fetch(ctx, cursor)

	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		return nil
	}
	h.loading = false
	if err != nil {
		h.err = err
		h.mu.Unlock()
		h.publish()
		return err
	}
	h.err = nil
	h.appendLocked(page.Items)
	// a cursor that does not advance would loop forever
	h.exhausted = page.Next == "" || page.Next == cursor
	h.cursor = page.Next
	if page.Total > 0 {
		h.total = page.Total
	}
	h.mu.Unlock()
	h.publish()
	return nil
}

// LoadAll loads pages until the last one, stopping at the first error.
func (h *Holder[T]) LoadAll(ctx context.Context) error {
	for h.HasMore() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (h *Holder[T]) appendLocked(items []T) {
	for _, it := range items {
		if h.key != nil {
			k := h.key(it)
			if h.seen == nil {
				h.seen = make(map[string]bool)
			}
			if h.seen[k] {
				continue
			}
			h.seen[k] = true
		}
		h.items = append(h.items, it)
	}
}

// Reset drops all items and starts again from the first page. A load in
// flight is discarded when it completes.
func (h *Holder[T]) Reset() {
	h.mu.Lock()
	h.gen++
	h.items = nil
	h.seen = nil
	h.cursor = ""
	h.exhausted = false
	h.loading = false
	h.total = 0
	h.err = nil
	h.mu.Unlock()
	h.publish()
}

// Items returns a copy of the loaded items.
func (h *Holder[T]) Items() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]T(nil), h.items...)
}

// Len returns the number of loaded items.
func (h *Holder[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// HasMore reports whether another page may be loaded.
func (h *Holder[T]) HasMore() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.exhausted
}

// IsLoading reports whether a page is being fetched.
func (h *Holder[T]) IsLoading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

// Err returns the error of the last load, if it failed.
func (h *Holder[T]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Total returns the total reported by the backend, 0 if unknown.
func (h *Holder[T]) Total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// Snapshot returns the current state.
func (h *Holder[T]) Snapshot() Snapshot[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Holder[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Items:   append([]T(nil), h.items...),
		HasMore: !h.exhausted,
		Loading: h.loading,
		Total:   h.total,
		Err:     h.err,
	}
}

// Subscribe creates a new update subscription.
func (h *Holder[T]) Subscribe() *Subscription[T] {
	return h.subs.add()
}

// Close closes every subscription.
func (h *Holder[T]) Close() {
	h.subs.closeAll()
}

func (h *Holder[T]) publish() {
	h.subs.update(h.Snapshot())
}
