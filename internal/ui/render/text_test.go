package render

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "Sigur Rós", clean("Sigur Rós"))
	assert.Equal(t, "a\tb", clean("a\tb"))
	assert.Equal(t, "ab", clean("a\x00\nb"))
	assert.Equal(t, "ab", clean("a\xffb"))
	assert.Equal(t, "a b", clean("a\u00a0b"))
	assert.Equal(t, "ab", clean("a\u0085b"), "C1 control")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Airbag", 10, "Airbag"},
		{"Airbag", 6, "Airbag"},
		{"Paranoid Android", 11, "Paranoid..."},
		{"Airbag", 3, "..."},
		{"", 4, ""},
		{"東京事変", 7, "東京..."},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.width)
		assert.Equal(t, tt.want, got, "Truncate(%q, %d)", tt.in, tt.width)
		assert.LessOrEqual(t, runewidth.StringWidth(got), tt.width)
	}
}

func TestTruncateAndPad(t *testing.T) {
	assert.Equal(t, "Airbag    ", TruncateAndPad("Airbag", 10))
	assert.Equal(t, "Paranoid...", TruncateAndPad("Paranoid Android", 11))
	assert.Equal(t, "東京 ", TruncateAndPad("東京", 5))
	assert.Equal(t, "     ", TruncateAndPad("", 5))
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, " 4:44", PadLeft("4:44", 5))
	assert.Equal(t, "12:03", PadLeft("12:03", 5))
}
