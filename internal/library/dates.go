package library

import (
	"strconv"
	"time"
)

// dateLayouts are the release date forms sources send, by precision.
var dateLayouts = []string{"2006", "2006-01", "2006-01-02"}

// datePrecision is 1 for a year, 2 for a month, 3 for a day and 0 when
// date is none of these.
func datePrecision(date string) int {
	for i, layout := range dateLayouts {
		if len(date) != len(layout) {
			continue
		}
		if _, err := time.Parse(layout, date); err == nil {
			return i + 1
		}
		return 0
	}
	return 0
}

// BestDate picks between an original and a release date string.
// The more precise one wins; at equal precision the original is preferred.
func BestDate(original, release string) string {
	if original == "" || datePrecision(release) > datePrecision(original) {
		return release
	}
	return original
}

// YearOf returns the year of a date string, or 0 if none. Longer
// timestamps ("2009-10-09T12:00:00Z", "1997-00-00") fall back to their
// leading four digits.
func YearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y <= 0 {
		return 0
	}
	if len(date) > 4 || datePrecision(date) > 0 {
		return y
	}
	return 0
}
