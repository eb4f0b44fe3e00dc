// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryLoad   Op = "load library"
	OpAlbumLoad     Op = "load album"
	OpAlbumDelete   Op = "delete album"
	OpAlbumHide     Op = "hide album"
	OpArtistLoad    Op = "load artists"
	OpTrackLoad     Op = "load tracks"
	OpTagUpdate     Op = "update album tags"
	OpLibrarySearch Op = "search library"

	// Import operations
	OpImportList   Op = "list import candidates"
	OpImportAlbum  Op = "import album"
	OpImportSearch Op = "search external source"

	// Matching
	OpMatchAlbum Op = "match album"

	// Playlist operations
	OpPlaylistCreate   Op = "create playlist"
	OpPlaylistRename   Op = "rename playlist"
	OpPlaylistDelete   Op = "delete playlist"
	OpPlaylistAddTrack Op = "add track to playlist"
	OpPlaylistRemove   Op = "remove track from playlist"
	OpPlaylistMove     Op = "move playlist item"
	OpPlaylistLoad     Op = "load playlist"

	// Queue operations
	OpQueueLoad Op = "load queue"
	OpQueueAdd  Op = "add to queue"

	// Radio
	OpRadioStart  Op = "start radio"
	OpRadioExtend Op = "extend radio"

	// Last.fm
	OpLastfmScrobble Op = "scrobble"

	// Export
	OpExportFile Op = "export file"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
