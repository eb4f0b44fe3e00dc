// Package musicbrainz looks up releases on MusicBrainz and their covers on
// the Cover Art Archive. It backs album matching and MusicBrainz imports.
package musicbrainz

import "errors"

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("musicbrainz: not found")

// Release is one edition of an album as listed in search results.
type Release struct {
	ID             string
	Title          string
	Artist         string // joined artist credit
	ArtistID       string // first credited artist
	Date           string
	Country        string
	TrackCount     int // over all media
	DiscCount      int
	ReleaseType    string // primary type of the release group
	ReleaseGroupID string
	Formats        string // "CD, CD"
	Genres         []string
	Label          string
}

// Track is a track of a release.
type Track struct {
	Position    int
	Title       string
	Length      int // milliseconds
	DiscNumber  int // 1-based
	RecordingID string
	TrackID     string
	ISRC        string // first one when there are several
	Artist      string // only set when it differs from the release artist
	ArtistID    string // semicolon-separated
}

// ReleaseDetails is a release with its tracks.
type ReleaseDetails struct {
	Release
	Tracks           []Track
	FirstReleaseDate string // of the release group, for original year
}

type searchResponse struct {
	Count    int             `json:"count"`
	Offset   int             `json:"offset"`
	Releases []releaseResult `json:"releases"`
}

type releaseResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Date         string         `json:"date"`
	Country      string         `json:"country"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	ReleaseGroup *releaseGroup  `json:"release-group"`
	Media        []medium       `json:"media"`
	Genres       []genre        `json:"genres"`
}

// releaseDetailsResponse is a release looked up by ID with recordings,
// labels and the release group included.
type releaseDetailsResponse struct {
	releaseResult
	LabelInfo []struct {
		Label *struct {
			Name string `json:"name"`
		} `json:"label"`
	} `json:"label-info"`
}

type genre struct {
	Name string `json:"name"`
}

type artistCredit struct {
	Name   string `json:"name"`
	Artist struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
	JoinPhrase string `json:"joinphrase"`
}

type releaseGroup struct {
	ID           string  `json:"id"`
	PrimaryType  string  `json:"primary-type"`
	FirstRelease string  `json:"first-release-date"`
	Genres       []genre `json:"genres"`
}

type medium struct {
	Position   int     `json:"position"`
	Format     string  `json:"format"`
	TrackCount int     `json:"track-count"`
	Tracks     []track `json:"tracks"`
}

type track struct {
	ID           string         `json:"id"`
	Position     int            `json:"position"`
	Title        string         `json:"title"`
	Length       int            `json:"length"`
	Recording    *recording     `json:"recording"`
	ArtistCredit []artistCredit `json:"artist-credit"`
}

type recording struct {
	ID     string   `json:"id"`
	Length int      `json:"length"`
	ISRCs  []string `json:"isrcs"`
}
