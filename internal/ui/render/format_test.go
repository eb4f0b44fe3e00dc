package render

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "--:--"},
		{-time.Second, "--:--"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 4*time.Second, "3:04"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{1500 * time.Millisecond, "0:02"},
	}
	for _, tt := range tests {
		if got := Duration(tt.in); got != tt.want {
			t.Errorf("Duration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 tracks"},
		{1, "1 track"},
		{1204, "1,204 tracks"},
	}
	for _, tt := range tests {
		if got := Count(tt.n, "track"); got != tt.want {
			t.Errorf("Count(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestAgo(t *testing.T) {
	if got := Ago(time.Time{}); got != "never" {
		t.Errorf("Ago(zero) = %q", got)
	}
	if got := Ago(time.Now().Add(-3 * time.Hour)); got != "3 hours ago" {
		t.Errorf("Ago(-3h) = %q", got)
	}
}

func TestTrackNumber(t *testing.T) {
	if got := TrackNumber(1, 3, 1); got != "03" {
		t.Errorf("single disc = %q", got)
	}
	if got := TrackNumber(2, 3, 2); got != "2.03" {
		t.Errorf("multi disc = %q", got)
	}
	if got := TrackNumber(1, 0, 1); got != "" {
		t.Errorf("no position = %q", got)
	}
}

func TestList(t *testing.T) {
	if got := List("rock", " ", "", "jazz"); got != "rock, jazz" {
		t.Errorf("List() = %q", got)
	}
}

func TestTable(t *testing.T) {
	tbl := NewTable(40,
		Column{Title: "#", Width: 3, Right: true},
		Column{Title: "Title"},
		Column{Title: "Time", Width: 5, Right: true},
	)
	tbl.Add("1", "Airbag", "4:44")
	tbl.Add("12", "A very long title that will not fit the column", "6:23")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if want := strings.Repeat("─", 40); lines[1] != want {
		t.Errorf("rule = %q, want %q", lines[1], want)
	}
	if !strings.HasPrefix(lines[0], "  #  Title") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "  1  Airbag") || !strings.HasSuffix(lines[2], "4:44") {
		t.Errorf("row = %q", lines[2])
	}
	if !strings.Contains(lines[3], "...") {
		t.Errorf("long title not truncated: %q", lines[3])
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d", tbl.Len())
	}
}

func TestTableStyledRowAndEmpty(t *testing.T) {
	tbl := NewTable(20, Column{Title: "Track"}, Column{Title: "Plays", Width: 5, Right: true})
	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"); len(lines) != 2 {
		t.Errorf("empty table = %q, want header and rule", buf.String())
	}

	tbl.AddStyled(MutedStyle, "Airbag", "3")
	tbl.Add("Lucky")
	buf.Reset()
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Airbag") || !strings.Contains(out, "Lucky") {
		t.Errorf("rows missing:\n%s", out)
	}
}
