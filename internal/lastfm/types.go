package lastfm

import "time"

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist        string
	Track         string
	Album         string
	AlbumArtist   string
	Duration      time.Duration
	Timestamp     time.Time // When playback started
	MBRecordingID string    // Optional MusicBrainz recording ID
}

// SimilarArtist represents a similar artist from Last.fm.
type SimilarArtist struct {
	Name       string
	MatchScore float64 // 0.0-1.0 similarity score
}

// TopTrack represents a top track for an artist from Last.fm.
type TopTrack struct {
	Name      string
	Playcount int
	Rank      int
}

// UserTrack represents a track the user has scrobbled for an artist.
type UserTrack struct {
	Name      string
	Playcount int
}

// TopAlbum is an entry of a user's top albums.
type TopAlbum struct {
	Name      string
	Artist    string
	MBID      string
	URL       string
	Playcount int
	ImageURL  string
}

// TopAlbumsPage is one page of a user's top albums. Pages start at 1.
type TopAlbumsPage struct {
	Albums     []TopAlbum
	Page       int
	TotalPages int
}

// AlbumInfo is an album as described by album.getInfo.
type AlbumInfo struct {
	Name        string
	Artist      string
	MBID        string
	URL         string
	ReleaseDate string
	ImageURL    string
	Tags        []string
	Tracks      []AlbumTrack
}

// AlbumTrack is a track of AlbumInfo.
type AlbumTrack struct {
	Name     string
	Artist   string
	Duration int // seconds
}
