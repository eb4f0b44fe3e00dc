package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/fistopy/fistopy/internal/search"
)

// SearchResultType indicates the type of search result.
type SearchResultType int

const (
	ResultArtist SearchResultType = iota
	ResultAlbum
	ResultTrack
)

func (t SearchResultType) String() string {
	switch t {
	case ResultArtist:
		return "artist"
	case ResultAlbum:
		return "album"
	case ResultTrack:
		return "track"
	}
	return "unknown"
}

// SearchResult represents a search result from the library.
type SearchResult struct {
	Type        SearchResultType
	ArtistID    string
	Artist      string // first album artist
	AlbumID     string
	Album       string
	AlbumYear   int
	TrackID     string
	TrackTitle  string
	TrackArtist string // track credit, may differ from the album artist
	Disc        int
	Position    int
	Score       float64
}

// SearchItem adapts a SearchResult to search.Item.
type SearchItem struct {
	Result SearchResult
}

// FilterValue returns the searchable text for filtering.
func (s SearchItem) FilterValue() string {
	switch s.Result.Type {
	case ResultArtist:
		return s.Result.Artist
	case ResultAlbum:
		// artist included so "radiohead kid" finds "Radiohead > Kid A"
		return s.Result.Artist + " " + s.Result.Album
	case ResultTrack:
		parts := []string{s.Result.Artist, s.Result.Album, s.Result.TrackTitle}
		if s.Result.TrackArtist != "" && s.Result.TrackArtist != s.Result.Artist {
			parts = append(parts, s.Result.TrackArtist)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// DisplayText returns the display text for search results.
func (s SearchItem) DisplayText() string {
	album := s.Result.Album
	if s.Result.AlbumYear > 0 {
		album = fmt.Sprintf("[%d] %s", s.Result.AlbumYear, album)
	}
	switch s.Result.Type {
	case ResultArtist:
		return s.Result.Artist
	case ResultAlbum:
		return s.Result.Artist + " > " + album
	case ResultTrack:
		track := s.Result.TrackTitle
		if s.Result.TrackArtist != "" && s.Result.TrackArtist != s.Result.Artist {
			track = s.Result.TrackArtist + " - " + track
		}
		if s.Result.Position > 0 {
			if s.Result.Disc > 1 {
				track = fmt.Sprintf("%d.%02d. %s", s.Result.Disc, s.Result.Position, track)
			} else {
				track = fmt.Sprintf("%02d. %s", s.Result.Position, track)
			}
		}
		if s.Result.Album == "" {
			return s.Result.Artist + " > " + track
		}
		return s.Result.Artist + " > " + album + " > " + track
	}
	return ""
}

// RefreshSearchCache reloads the search items from the database. The
// cache stays invalid when a write lands while it loads.
func (l *Library) RefreshSearchCache(ctx context.Context) error {
	l.searchMu.RLock()
	gen := l.searchGen
	l.searchMu.RUnlock()

	results, err := l.loadSearchItems(ctx)
	if err != nil {
		return err
	}
	items := make([]search.Item, len(results))
	for i, r := range results {
		items[i] = SearchItem{Result: r}
	}
	matcher := search.NewTrigramMatcher(items)

	l.searchMu.Lock()
	defer l.searchMu.Unlock()
	l.searchCache = results
	l.searchMatcher = matcher
	l.searchCacheValid = gen == l.searchGen
	return nil
}

// InvalidateSearchCache marks the cache as needing refresh.
func (l *Library) InvalidateSearchCache() {
	l.searchMu.Lock()
	defer l.searchMu.Unlock()
	l.searchCacheValid = false
	l.searchGen++
}

// searchIndex returns the cached items and their matcher, loading them
// first when the cache is invalid.
func (l *Library) searchIndex(ctx context.Context) ([]SearchResult, *search.TrigramMatcher, error) {
	l.searchMu.RLock()
	if l.searchCacheValid {
		defer l.searchMu.RUnlock()
		return l.searchCache, l.searchMatcher, nil
	}
	l.searchMu.RUnlock()

	if err := l.RefreshSearchCache(ctx); err != nil {
		return nil, nil, err
	}
	l.searchMu.RLock()
	defer l.searchMu.RUnlock()
	return l.searchCache, l.searchMatcher, nil
}

// AllSearchItems returns every searchable artist, album and track.
func (l *Library) AllSearchItems(ctx context.Context) ([]SearchResult, error) {
	results, _, err := l.searchIndex(ctx)
	return results, err
}

// Search runs a trigram search over the library. All words of query must
// match. At most limit results are returned when limit > 0.
func (l *Library) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	cache, matcher, err := l.searchIndex(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	matches := matcher.Search(query)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = cache[m.Index]
		results[i].Score = m.Score
	}
	return results, nil
}

func (l *Library) loadSearchItems(ctx context.Context) ([]SearchResult, error) {
	var results []SearchResult

	rows, err := l.db.QueryContext(ctx, `
		SELECT ar.id, ar.name FROM artists ar
		WHERE EXISTS (SELECT 1 FROM track_artists ta WHERE ta.artist_id = ar.id)
		   OR EXISTS (SELECT 1 FROM album_artists aa WHERE aa.artist_id = ar.id)
		ORDER BY ar.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		r := SearchResult{Type: ResultArtist}
		if err := rows.Scan(&r.ArtistID, &r.Artist); err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	albums, err := l.AlbumCombos(ctx, AlbumFilter{})
	if err != nil {
		return nil, err
	}
	for _, a := range albums {
		r := SearchResult{
			Type:      ResultAlbum,
			AlbumID:   a.ID,
			Album:     a.Title,
			AlbumYear: a.Year,
		}
		if len(a.Artists) > 0 {
			r.ArtistID = a.Artists[0].ID
			r.Artist = a.Artists[0].Name
		}
		results = append(results, r)
	}

	tracks, err := l.queryTrackCombos(ctx, `(t.album_id IS NULL OR t.album_id IN (
		SELECT id FROM albums WHERE is_hidden = 0)) ORDER BY t.title COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		r := SearchResult{
			Type:        ResultTrack,
			TrackID:     t.ID,
			TrackTitle:  t.Title,
			TrackArtist: t.ArtistString(),
			Disc:        t.Disc,
			Position:    t.Position,
		}
		if t.Album != nil {
			r.AlbumID = t.Album.ID
			r.Album = t.Album.Title
			r.AlbumYear = t.Album.Year
		}
		if len(t.Artists) > 0 {
			r.ArtistID = t.Artists[0].ID
			r.Artist = t.Artists[0].Name
		}
		results = append(results, r)
	}

	return results, nil
}
