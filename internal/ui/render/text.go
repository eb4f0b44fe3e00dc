// Package render formats library data for terminal output.
package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// clean drops invalid UTF-8 and control characters other than tab, and
// turns non-breaking spaces into spaces. Tags read from files carry all
// of these and they break column alignment.
func clean(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, dirty) < 0 {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u00a0':
			return ' '
		case dirty(r):
			return -1
		}
		return r
	}, s)
}

func dirty(r rune) bool {
	return r == '\u00a0' || r != '\t' && unicode.IsControl(r)
}

// Truncate cuts s to at most width terminal cells, ending it with an
// ellipsis when something was cut.
func Truncate(s string, width int) string {
	return runewidth.Truncate(clean(s), width, ellipsis)
}

// TruncateAndPad returns s cut or space-filled to exactly width cells.
func TruncateAndPad(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// PadLeft right-aligns s within width.
func PadLeft(s string, width int) string {
	return runewidth.FillLeft(Truncate(s, width), width)
}
