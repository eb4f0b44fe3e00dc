package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// FolderStructure defines how exported files are organized.
type FolderStructure string

const (
	FolderStructureFlat         FolderStructure = "flat"         // Artist - Album/01 - Track.mp3
	FolderStructureHierarchical FolderStructure = "hierarchical" // Artist/Album/01 - Track.mp3
	FolderStructureSingle       FolderStructure = "single"       // Artist - Album - 01 - Track.mp3
)

// ParseStructure validates a folder structure name.
func ParseStructure(s string) (FolderStructure, error) {
	switch fs := FolderStructure(strings.ToLower(s)); fs {
	case FolderStructureFlat, FolderStructureHierarchical, FolderStructureSingle:
		return fs, nil
	}
	return "", fmt.Errorf("unknown folder structure %q", s)
}

// maxNameLen keeps every path component well under FAT32's 255 UTF-16 units.
const maxNameLen = 200

// TrackInfo contains metadata needed for export path generation.
type TrackInfo struct {
	Artist      string
	Album       string
	Title       string
	TrackNumber int
	DiscNumber  int
	TotalDiscs  int
	Extension   string // e.g., ".flac", ".mp3"
}

// GenerateExportPath creates the relative path for an exported track.
func GenerateExportPath(t TrackInfo, structure FolderStructure) string {
	artist := sanitizeFilename(t.Artist, "Unknown Artist")
	album := sanitizeFilename(t.Album, "Unknown Album")
	title := sanitizeFilename(t.Title, "Untitled")

	trackNum := formatTrackNumber(t.TrackNumber, t.DiscNumber, t.TotalDiscs)
	file := title + t.Extension
	if trackNum != "" {
		file = trackNum + " - " + file
	}

	switch structure {
	case FolderStructureFlat:
		return filepath.Join(artist+" - "+album, file)
	case FolderStructureSingle:
		return artist + " - " + album + " - " + file
	default:
		return filepath.Join(artist, album, file)
	}
}

// formatTrackNumber formats track number, including disc for multi-disc albums.
func formatTrackNumber(track, disc, totalDiscs int) string {
	if track <= 0 {
		return ""
	}
	if totalDiscs > 1 && disc > 0 {
		return fmt.Sprintf("%d-%02d", disc, track)
	}
	return fmt.Sprintf("%02d", track)
}

var fatReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "'",
	"<", "",
	">", "",
	"|", "-",
)

// sanitizeFilename makes s safe as a FAT32 path component: illegal and
// control characters go, trailing dots and spaces go, the length is capped
// without splitting a rune. Empty results fall back to def.
func sanitizeFilename(s, def string) string {
	s = fatReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	if runes := []rune(s); len(runes) > maxNameLen {
		s = string(runes[:maxNameLen])
	}
	s = strings.TrimRight(strings.TrimSpace(s), ". ")
	if s == "" {
		return def
	}
	return s
}
