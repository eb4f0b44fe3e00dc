package youtube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT4M13S", 4*time.Minute + 13*time.Second},
		{"PT1H2M", time.Hour + 2*time.Minute},
		{"P1DT1S", 24*time.Hour + time.Second},
		{"P1D", 24 * time.Hour},
		{"PT0S", 0},
		{"P0D", 0},
		{"P1W", 7 * 24 * time.Hour},
		{"P1WT30M", 7*24*time.Hour + 30*time.Minute},
		{"PT1.5S", 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "P", "PT", "4:13", "PT4X", "PT4", "-PT4M", "P1H"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitAlbumTitle(t *testing.T) {
	tests := []struct {
		name, title, channel string
		artist, album        string
	}{
		{"dash", "Radiohead - OK Computer (Full Album)", "Some Uploader", "Radiohead", "OK Computer"},
		{"en dash", "Radiohead – OK Computer", "", "Radiohead", "OK Computer"},
		{"topic playlist", "Album - OK Computer", "Radiohead - Topic", "Radiohead", "OK Computer"},
		{"by", "OK Computer by Radiohead", "", "Radiohead", "OK Computer"},
		{"channel fallback", "OK Computer", "RadioheadVEVO", "Radiohead", "OK Computer"},
		{"unbracketed full album", "Kid A Full Album", "Radiohead", "Radiohead", "Kid A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artist, album := SplitAlbumTitle(tt.title, tt.channel)
			assert.Equal(t, tt.artist, artist)
			assert.Equal(t, tt.album, album)
		})
	}
}

func TestCleanTrackTitle(t *testing.T) {
	tests := []struct {
		title, artist, want string
	}{
		{"01. Airbag", "Radiohead", "Airbag"},
		{"Radiohead - Airbag (Official Audio)", "Radiohead", "Airbag"},
		{"3 - Subterranean Homesick Alien", "Radiohead", "Subterranean Homesick Alien"},
		{"Radiohead - 05 - Let Down", "Radiohead", "Let Down"},
		{"Portishead - Roads", "Radiohead", "Portishead - Roads"},
		{"1979", "The Smashing Pumpkins", "1979"},
		{"Paranoid Android [HD]", "", "Paranoid Android"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTrackTitle(tt.title, tt.artist))
		})
	}
}

func TestChannelArtist(t *testing.T) {
	assert.Equal(t, "Radiohead", ChannelArtist("Radiohead - Topic"))
	assert.Equal(t, "Radiohead", ChannelArtist("RadioheadVEVO"))
	assert.Equal(t, "Radiohead", ChannelArtist("Radiohead Official"))
	assert.Equal(t, "Some Uploader", ChannelArtist("Some Uploader"))
}
