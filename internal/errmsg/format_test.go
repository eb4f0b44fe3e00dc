package errmsg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Empty(t, Format(OpAlbumDelete, nil))
	assert.Equal(t, "Failed to delete album: not found", Format(OpAlbumDelete, errors.New("not found")))
	assert.Equal(t, "Failed to start radio: library is empty",
		Format(OpRadioStart, errors.New("library is empty")))
}

func TestFormatWith(t *testing.T) {
	boom := errors.New("track not found")
	tests := []struct {
		op   Op
		ctx  string
		err  error
		want string
	}{
		{OpPlaylistAddTrack, "Road trip", nil, ""},
		{OpPlaylistAddTrack, "Road trip", boom, "Failed to add track to playlist 'Road trip': track not found"},
		{OpPlaylistAddTrack, "", boom, "Failed to add track to playlist: track not found"},
		{OpAlbumLoad, "Kid A", fmt.Errorf("outer: %w", errors.New("inner")), "Failed to load album 'Kid A': outer: inner"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatWith(tt.op, tt.ctx, tt.err), "%s %q", tt.op, tt.ctx)
	}
}

func TestOpsReadAsVerbs(t *testing.T) {
	for _, op := range []Op{
		OpLibraryLoad, OpAlbumLoad, OpAlbumDelete, OpAlbumHide, OpArtistLoad, OpTrackLoad,
		OpTagUpdate, OpLibrarySearch, OpImportList, OpImportAlbum, OpImportSearch, OpMatchAlbum,
		OpPlaylistCreate, OpPlaylistRename, OpPlaylistDelete, OpPlaylistAddTrack,
		OpPlaylistRemove, OpPlaylistMove, OpPlaylistLoad, OpQueueLoad, OpQueueAdd,
		OpRadioStart, OpRadioExtend, OpLastfmScrobble, OpExportFile, OpInitialize,
	} {
		assert.NotEmpty(t, op)
		assert.Equal(t, "Failed to "+string(op)+": x", Format(op, errors.New("x")))
	}
}
