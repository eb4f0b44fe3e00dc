// Package picker is the interactive selection list of the import command.
package picker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fistopy/fistopy/internal/holder"
	"github.com/fistopy/fistopy/internal/ui/render"
)

// loadAhead is how close to the end of the list the cursor gets before the
// next page is requested.
const loadAhead = 3

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a78bfa"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#303030")).Foreground(lipgloss.Color("#c0c0c0"))
	importedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#42b883"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555"))
)

type snapshotMsg[T any] struct {
	snap holder.Snapshot[T]
}

type loadedMsg struct {
	err error
}

// Model lists the items of an import holder and lets the user select
// which ones to import. Pages are fetched as the cursor approaches the end.
// Holders that search get a query line; "/" focuses it and every edit
// restarts the search after the holder's debounce.
type Model[T any] struct {
	ctx    context.Context
	holder *holder.ImportHolder[T]
	search *holder.SearchHolder[T]
	sub    *holder.Subscription[T]
	label  func(T) string
	title  string

	input     textinput.Model
	searching bool

	items   []T
	total   int
	hasMore bool
	loading bool // a load issued by the picker is running
	busy    bool // the holder reports a load, possibly a debounced one
	err     error

	cursor    cursor
	width     int
	height    int
	confirmed bool
}

// New creates a picker over h. label renders one item.
func New[T any](ctx context.Context, h *holder.ImportHolder[T], title string, label func(T) string) *Model[T] {
	m := &Model[T]{
		ctx:     ctx,
		holder:  h,
		search:  h.Search(),
		sub:     h.Subscribe(),
		label:   label,
		title:   title,
		hasMore: true,
		cursor:  cursor{margin: 2},
		width:   render.DefaultWidth,
		height:  20,
	}
	if m.search != nil {
		ti := textinput.New()
		ti.Prompt = "/ "
		ti.Placeholder = "type to search"
		ti.CharLimit = 256
		ti.Width = m.width - 4
		ti.SetValue(m.search.Query())
		// nothing to list before the first query
		if m.search.Query() == "" {
			m.searching = true
			ti.Focus()
		}
		m.input = ti
	}
	return m
}

// Confirmed reports whether the user accepted the selection.
func (m *Model[T]) Confirmed() bool {
	return m.confirmed
}

func (m *Model[T]) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForUpdate(), m.loadMore()}
	if m.searching {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func (m *Model[T]) waitForUpdate() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		select {
		case snap := <-sub.Updates:
			return snapshotMsg[T]{snap: snap}
		case <-sub.Done:
			return nil
		}
	}
}

func (m *Model[T]) loadMore() tea.Cmd {
	if m.loading || m.busy || !m.hasMore {
		return nil
	}
	if m.search != nil && (m.search.Query() == "" || m.search.Pending()) {
		return nil
	}
	m.loading = true
	h, ctx := m.holder, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: h.LoadMore(ctx)}
	}
}

func (m *Model[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = max(msg.Height-4, 1)
		if m.search != nil {
			m.height = max(m.height-1, 1)
			m.input.Width = max(m.width-4, 10)
		}
		m.cursor.ensureVisible(len(m.items), m.height)
		return m, nil

	case snapshotMsg[T]:
		m.apply(msg.snap)
		return m, tea.Batch(m.waitForUpdate(), m.maybeLoad())

	case loadedMsg:
		m.loading = false
		// a changed query cancels its load; the holder already moved on
		if msg.err != nil && !errors.Is(msg.err, holder.ErrBusy) && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
		}
		m.apply(m.holder.Snapshot())
		return m, m.maybeLoad()

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	if m.searching {
		// cursor blink
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleSearchKey edits the query. enter searches at once, esc keeps the
// query and returns to the list.
func (m *Model[T]) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.sub.Close()
		return m, tea.Quit
	case "esc":
		m.searching = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.input.Blur()
		return m, m.searchNow(m.input.Value())
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != before {
		m.search.SetQuery(q)
		m.err = nil
		m.cursor = cursor{margin: 2}
	}
	return m, cmd
}

func (m *Model[T]) searchNow(q string) tea.Cmd {
	m.err = nil
	m.cursor = cursor{margin: 2}
	m.loading = true
	s, ctx := m.search, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: s.SearchNow(ctx, q)}
	}
}

func (m *Model[T]) apply(snap holder.Snapshot[T]) {
	m.items = snap.Items
	m.total = snap.Total
	m.hasMore = snap.HasMore
	m.busy = snap.Loading && !m.loading
	if snap.Err != nil {
		m.err = snap.Err
	}
	m.cursor.ensureVisible(len(m.items), m.height)
}

// maybeLoad fetches the next page when the cursor is near the end or the
// screen is not yet full.
func (m *Model[T]) maybeLoad() tea.Cmd {
	if m.err != nil {
		return nil
	}
	if m.cursor.pos >= len(m.items)-loadAhead || len(m.items) < m.height {
		return m.loadMore()
	}
	return nil
}

func (m *Model[T]) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.items)
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.sub.Close()
		return m, tea.Quit
	case "/":
		if m.search == nil {
			return m, nil
		}
		m.searching = true
		return m, m.input.Focus()
	case "enter":
		m.confirmed = true
		m.sub.Close()
		return m, tea.Quit
	case "j", "down":
		m.cursor.move(1, n, m.height)
	case "k", "up":
		m.cursor.move(-1, n, m.height)
	case "pgdown", "ctrl+d":
		m.cursor.move(m.height/2, n, m.height)
	case "pgup", "ctrl+u":
		m.cursor.move(-m.height/2, n, m.height)
	case "g", "home":
		m.cursor.jump(0, n, m.height)
	case "G", "end":
		m.cursor.jump(n-1, n, m.height)
	case " ", "x":
		if m.cursor.pos < n {
			m.holder.Toggle(m.items[m.cursor.pos])
			m.cursor.move(1, n, m.height)
		}
	case "a":
		m.holder.SelectAll()
	case "c":
		m.holder.ClearSelection()
	case "r":
		// retry after a failed page
		m.err = nil
	default:
		return m, nil
	}
	return m, m.maybeLoad()
}

func (m *Model[T]) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString(hintStyle.Render("  " + m.status()))
	b.WriteString("\n")
	if m.search != nil {
		b.WriteString(m.input.View())
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	start, end := m.cursor.visible(len(m.items), m.height)
	for i := start; i < end; i++ {
		b.WriteString(m.row(i))
		b.WriteByte('\n')
	}
	if len(m.items) == 0 && !m.loading && !m.busy {
		empty := "  nothing found"
		if m.search != nil && (m.search.Query() == "" || m.search.Pending()) {
			empty = "  type a query"
		}
		b.WriteString(hintStyle.Render(empty))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + hintStyle.Render(" (r to retry)"))
		b.WriteByte('\n')
	}
	hint := "space select · a all · c clear · enter import · q cancel"
	switch {
	case m.searching:
		hint = "enter search · esc back to list"
	case m.search != nil:
		hint = "/ search · " + hint
	}
	b.WriteString(hintStyle.Render(hint))
	return b.String()
}

func (m *Model[T]) row(i int) string {
	it := m.items[i]
	mark := "[ ]"
	style := lipgloss.NewStyle()
	switch {
	case m.holder.IsImported(it):
		mark = "[✓]"
		style = importedStyle
	case m.holder.IsSelected(it):
		mark = "[x]"
		style = selectedStyle
	}
	line := render.TruncateAndPad(mark+" "+m.label(it), max(m.width-2, 10))
	if i == m.cursor.pos {
		return "> " + cursorStyle.Render(line)
	}
	return "  " + style.Render(line)
}

func (m *Model[T]) status() string {
	selected := len(m.holder.Selected())
	s := fmt.Sprintf("%d listed", len(m.items))
	if m.total > 0 {
		s = fmt.Sprintf("%d/%d listed", len(m.items), m.total)
	}
	s += fmt.Sprintf(" · %d selected", selected)
	if m.loading || m.busy {
		s += " · loading…"
	}
	return s
}

// Run shows the picker until the user confirms or cancels. It returns
// whether the selection was confirmed.
func Run[T any](ctx context.Context, h *holder.ImportHolder[T], title string, label func(T) string) (bool, error) {
	m := New(ctx, h, title, label)
	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	return final.(*Model[T]).Confirmed(), nil
}
