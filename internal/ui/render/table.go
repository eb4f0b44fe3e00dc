package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// DefaultWidth is the table width used when the terminal size is unknown.
const DefaultWidth = 100

// columnGap is the space between two columns.
const columnGap = 2

// Column describes one table column. A zero Width shares the space left
// by the fixed columns.
type Column struct {
	Title string
	Width int
	Right bool
}

// Table renders fixed-width text tables with a rule under the header.
type Table struct {
	Columns []Column
	Width   int
	rows    [][]string
	styles  []*lipgloss.Style
}

// NewTable creates a table of the given total width.
func NewTable(width int, cols ...Column) *Table {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Table{Columns: cols, Width: width}
}

// Add appends a row. Missing cells are blank.
func (t *Table) Add(cells ...string) {
	t.rows = append(t.rows, cells)
	t.styles = append(t.styles, nil)
}

// AddStyled appends a row rendered with style, e.g. to mark the current
// queue entry.
func (t *Table) AddStyled(style lipgloss.Style, cells ...string) {
	t.rows = append(t.rows, cells)
	t.styles = append(t.styles, &style)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// widths resolves the flexible columns.
func (t *Table) widths() []int {
	out := make([]int, len(t.Columns))
	fixed, flex := 0, 0
	for i, c := range t.Columns {
		if c.Width > 0 {
			out[i] = c.Width
			fixed += c.Width
		} else {
			flex++
		}
	}
	if flex == 0 {
		return out
	}
	free := t.Width - fixed - columnGap*(len(t.Columns)-1)
	each := max(free/flex, 8)
	for i, c := range t.Columns {
		if c.Width == 0 {
			out[i] = each
		}
	}
	return out
}

// cells fits every cell to its column width so the layout does not
// depend on the content.
func (t *Table) cells(widths []int, row []string) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		if c.Right {
			out[i] = PadLeft(cell, widths[i])
		} else {
			out[i] = TruncateAndPad(cell, widths[i])
		}
	}
	return out
}

// Render writes the header, a rule and every row to w.
func (t *Table) Render(w io.Writer) error {
	widths := t.widths()

	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = t.cells(widths, row)
	}
	last := len(t.Columns) - 1
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(MutedStyle).
		Wrap(false).
		Headers(t.cells(widths, titles(t.Columns))...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			switch {
			case row == table.HeaderRow:
				style = HeaderStyle
			case row < len(t.styles) && t.styles[row] != nil:
				style = *t.styles[row]
			}
			if col < last {
				style = style.PaddingRight(columnGap)
			}
			return style
		})

	_, err := io.WriteString(w, tbl.Render()+"\n")
	return err
}

func titles(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Title
	}
	return out
}
