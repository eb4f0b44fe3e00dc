package youtube

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sosodev/duration"

	"github.com/fistopy/fistopy/internal/fuzzy"
)

// ParseDuration parses ISO-8601 durations as returned by videos.list,
// e.g. "PT4M13S", "P1DT2H" or "P0D" for live streams. Negative durations
// and trailing numbers without a unit are rejected.
func ParseDuration(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	rest := strings.TrimLeft(s, "PT")
	if d.Negative || rest == "" || strings.ContainsRune("0123456789.", rune(rest[len(rest)-1])) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d.ToTimeDuration(), nil
}

var (
	// noiseRe matches bracketed upload decorations.
	noiseRe = regexp.MustCompile(`(?i)\s*[\(\[](?:full album|album|official(?: music)? (?:video|audio)|official|audio|lyrics?(?: video)?|visuali[sz]er|hd|hq|4k|\d{3,4}p)[\)\]]`)
	// fullAlbumRe matches an unbracketed "Full Album" marker.
	fullAlbumRe = regexp.MustCompile(`(?i)\s*[-|:]?\s*\bfull album\b\s*`)
	// trackNumberRe matches leading numbering: "01.", "1 -", "03)".
	trackNumberRe = regexp.MustCompile(`^\s*\d{1,3}\s*(?:[.)\]:]|-\s)\s*`)
	// dashRe matches the separators used between artist and title.
	dashRe = regexp.MustCompile(`\s+[-–—|]\s+`)
)

func stripNoise(s string) string {
	s = noiseRe.ReplaceAllString(s, "")
	s = fullAlbumRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ChannelArtist derives an artist name from a channel title: "Radiohead -
// Topic" and "RadioheadVEVO" both give "Radiohead".
func ChannelArtist(channel string) string {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimSuffix(channel, " - Topic")
	channel = strings.TrimSuffix(channel, "VEVO")
	channel = strings.TrimSuffix(channel, " Official")
	return strings.TrimSpace(channel)
}

// SplitAlbumTitle guesses artist and album from a playlist title:
// "Artist - Album", "Album by Artist", "Album (Full Album)" and the
// "Album - Title" playlists of Topic channels. When the title names no
// artist the channel is used.
func SplitAlbumTitle(title, channel string) (artist, album string) {
	title = stripNoise(title)

	if rest, ok := strings.CutPrefix(title, "Album - "); ok {
		return ChannelArtist(channel), strings.TrimSpace(rest)
	}
	if parts := dashRe.Split(title, 2); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	if i := strings.LastIndex(strings.ToLower(title), " by "); i > 0 {
		return strings.TrimSpace(title[i+4:]), strings.TrimSpace(title[:i])
	}
	return ChannelArtist(channel), title
}

// CleanTrackTitle strips numbering, decorations and an "Artist - " prefix
// naming the album artist from a video title.
func CleanTrackTitle(title, artist string) string {
	title = stripNoise(title)
	title = trackNumberRe.ReplaceAllString(title, "")

	if parts := dashRe.Split(title, 2); len(parts) == 2 && artist != "" {
		if fuzzy.Normalize(parts[0]) == fuzzy.Normalize(artist) {
			title = parts[1]
		}
	}
	title = trackNumberRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}
