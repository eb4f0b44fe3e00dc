package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Duration formats a track length as m:ss, or h:mm:ss past an hour.
// Unknown lengths render as "--:--".
func Duration(d time.Duration) string {
	if d <= 0 {
		return "--:--"
	}
	secs := int(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Ago formats a past time relative to now; the zero time is "never".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// Count formats n with a singular or plural noun: "1 track", "1,204 tracks".
func Count(n int, noun string) string {
	if n != 1 {
		noun += "s"
	}
	return humanize.Comma(int64(n)) + " " + noun
}

// Year formats a release year, blank when unknown.
func Year(y int) string {
	if y <= 0 {
		return ""
	}
	return fmt.Sprint(y)
}

// TrackNumber formats disc and position as "1.03", or "03" for single-disc
// albums.
func TrackNumber(disc, position, discs int) string {
	if position <= 0 {
		return ""
	}
	if discs > 1 && disc > 0 {
		return fmt.Sprintf("%d.%02d", disc, position)
	}
	return fmt.Sprintf("%02d", position)
}

// List joins non-empty values with ", ".
func List(values ...string) string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ", ")
}
