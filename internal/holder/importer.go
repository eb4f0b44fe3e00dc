package holder

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ItemError is the failure of importing one item.
type ItemError[T any] struct {
	Item T
	Err  error
}

func (e ItemError[T]) Error() string {
	return fmt.Sprintf("%v: %v", e.Item, e.Err)
}

func (e ItemError[T]) Unwrap() error {
	return e.Err
}

// ImportHolder is a Holder with a selection of items to import.
// Items already imported cannot be selected. The selection outlives the
// query of a searching holder.
type ImportHolder[T any] struct {
	*Holder[T]

	search     *SearchHolder[T] // nil when the listing has no query
	keyOf      KeyFunc[T]
	isImported func(T) bool

	selMu     sync.Mutex
	selected  map[string]T
	order     []string // keys of selected, in selection order
	imported  map[string]bool
	importing bool
}

// NewImport creates an import holder. key identifies items; isImported
// may be nil.
func NewImport[T any](fetch Fetcher[T], key KeyFunc[T], isImported func(T) bool) *ImportHolder[T] {
	return newImport(New(fetch, WithKey(key)), nil, key, isImported)
}

// NewSearchImport creates an import holder whose listing follows a query
// set through Search. Searches run under parent.
func NewSearchImport[T any](parent context.Context, search SearchFetcher[T], key KeyFunc[T], isImported func(T) bool) *ImportHolder[T] {
	s := NewSearch(parent, search, WithKey(key))
	return newImport(s.Holder, s, key, isImported)
}

func newImport[T any](h *Holder[T], s *SearchHolder[T], key KeyFunc[T], isImported func(T) bool) *ImportHolder[T] {
	return &ImportHolder[T]{
		Holder:     h,
		search:     s,
		keyOf:      key,
		isImported: isImported,
		selected:   make(map[string]T),
		imported:   make(map[string]bool),
	}
}

// Search returns the query side of the holder, nil when it cannot search.
func (h *ImportHolder[T]) Search() *SearchHolder[T] {
	return h.search
}

// LoadMore fetches the next page, of the current query when h searches.
func (h *ImportHolder[T]) LoadMore(ctx context.Context) error {
	if h.search != nil {
		return h.search.LoadMore(ctx)
	}
	return h.Holder.LoadMore(ctx)
}

// Close cancels any search and closes every subscription.
func (h *ImportHolder[T]) Close() {
	if h.search != nil {
		h.search.Close()
		return
	}
	h.Holder.Close()
}

// LoadAll loads every remaining page.
func (h *ImportHolder[T]) LoadAll(ctx context.Context) error {
	if h.search != nil {
		return h.search.LoadAll(ctx)
	}
	return h.Holder.LoadAll(ctx)
}

// IsImported reports whether item was imported, now or before.
func (h *ImportHolder[T]) IsImported(item T) bool {
	h.selMu.Lock()
	done := h.imported[h.keyOf(item)]
	h.selMu.Unlock()
	if done {
		return true
	}
	return h.isImported != nil && h.isImported(item)
}

// Select adds item to the selection. It reports false for imported items.
func (h *ImportHolder[T]) Select(item T) bool {
	if h.IsImported(item) {
		return false
	}
	k := h.keyOf(item)
	h.selMu.Lock()
	if _, ok := h.selected[k]; !ok {
		h.order = append(h.order, k)
	}
	h.selected[k] = item
	h.selMu.Unlock()
	return true
}

// Deselect removes item from the selection.
func (h *ImportHolder[T]) Deselect(item T) {
	h.selMu.Lock()
	h.unselectLocked(h.keyOf(item))
	h.selMu.Unlock()
}

func (h *ImportHolder[T]) unselectLocked(k string) {
	if _, ok := h.selected[k]; !ok {
		return
	}
	delete(h.selected, k)
	h.order = slices.DeleteFunc(h.order, func(o string) bool { return o == k })
}

// Toggle flips the selection of item and returns whether it is selected.
func (h *ImportHolder[T]) Toggle(item T) bool {
	if h.IsSelected(item) {
		h.Deselect(item)
		return false
	}
	return h.Select(item)
}

// IsSelected reports whether item is selected.
func (h *ImportHolder[T]) IsSelected(item T) bool {
	h.selMu.Lock()
	defer h.selMu.Unlock()
	_, ok := h.selected[h.keyOf(item)]
	return ok
}

// SelectAll selects every loaded item not yet imported.
func (h *ImportHolder[T]) SelectAll() {
	for _, it := range h.Items() {
		h.Select(it)
	}
}

// ClearSelection deselects everything.
func (h *ImportHolder[T]) ClearSelection() {
	h.selMu.Lock()
	clear(h.selected)
	h.order = nil
	h.selMu.Unlock()
}

// Selected returns the selected items in the order they were selected,
// including items no longer listed.
func (h *ImportHolder[T]) Selected() []T {
	h.selMu.Lock()
	defer h.selMu.Unlock()
	out := make([]T, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, h.selected[k])
	}
	return out
}

// Reset drops items and selection.
func (h *ImportHolder[T]) Reset() {
	h.ClearSelection()
	h.Holder.Reset()
}

// ImportSelected runs fn on every selected item with at most workers
// running at once. Each finished item is reported on the subscriptions'
// Progress channel. Imported items are deselected; failures are returned
// and stay selected. ErrBusy is returned while another batch runs.
func (h *ImportHolder[T]) ImportSelected(
	ctx context.Context,
	fn func(context.Context, T) error,
	workers int,
) ([]ItemError[T], error) {
	h.selMu.Lock()
	if h.importing {
		h.selMu.Unlock()
		return nil, ErrBusy
	}
	h.importing = true
	h.selMu.Unlock()
	defer func() {
		h.selMu.Lock()
		h.importing = false
		h.selMu.Unlock()
	}()

	items := h.Selected()
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		done   int
		failed []ItemError[T]
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, it := range items {
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = fn(ctx, it)
			}

			if err == nil {
				h.selMu.Lock()
				k := h.keyOf(it)
				h.imported[k] = true
				h.unselectLocked(k)
				h.selMu.Unlock()
			}

			mu.Lock()
			done++
			p := Progress[T]{Done: done, Total: len(items), Item: it, Err: err}
			if err != nil {
				failed = append(failed, ItemError[T]{Item: it, Err: err})
			}
			h.subs.progress(p)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	h.publish()

	return failed, ctx.Err()
}
