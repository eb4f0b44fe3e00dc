package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	baseURL      = "https://musicbrainz.org/ws/2"
	userAgent    = "Fistopy/0.1 (https://github.com/fistopy/fistopy)"
	rateLimitDur = time.Second // MusicBrainz requires 1 request per second

	// Retry configuration
	maxRetries   = 3
	initialDelay = 2 * time.Second
	maxDelay     = 30 * time.Second

	// PageSize is the number of search results per page.
	PageSize = 25
)

// Client provides access to the MusicBrainz API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	coverURL    string
	interval    time.Duration
	lastRequest time.Time
	mu          sync.Mutex
}

// NewClient creates a new MusicBrainz API client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		coverURL:   coverArtBaseURL,
		interval:   rateLimitDur,
	}
}

// ReleasePage is one page of a release search.
type ReleasePage struct {
	Releases []Release
	Count    int // total matches
	Offset   int
}

// Next returns the offset of the following page, or -1 on the last page.
func (p ReleasePage) Next() int {
	next := p.Offset + len(p.Releases)
	if len(p.Releases) == 0 || next >= p.Count {
		return -1
	}
	return next
}

// SearchReleases searches for album releases matching the query, starting
// at offset. Query can be artist name, album name, or both.
func (c *Client) SearchReleases(ctx context.Context, query string, offset int) (ReleasePage, error) {
	// Wrap user query in parentheses for proper boolean logic
	return c.searchReleases(ctx, "("+query+") AND primarytype:album", offset)
}

// SearchReleasesByArtistAlbum runs a field-specific search, which ranks
// far better than a free-form one when both names are known.
func (c *Client) SearchReleasesByArtistAlbum(ctx context.Context, artist, album string) (ReleasePage, error) {
	var parts []string
	if artist != "" {
		parts = append(parts, "artist:"+luceneQuote(artist))
	}
	if album != "" {
		parts = append(parts, "release:"+luceneQuote(album))
	}
	if len(parts) == 0 {
		return ReleasePage{}, nil
	}
	return c.searchReleases(ctx, strings.Join(parts, " AND "), 0)
}

func (c *Client) searchReleases(ctx context.Context, query string, offset int) (ReleasePage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(PageSize))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	var result searchResponse
	if err := c.getJSON(ctx, "/release", params, &result); err != nil {
		return ReleasePage{}, err
	}

	return ReleasePage{
		Releases: convertReleases(result.Releases),
		Count:    result.Count,
		Offset:   result.Offset,
	}, nil
}

// GetRelease fetches detailed information about a specific release.
func (c *Client) GetRelease(ctx context.Context, mbid string) (*ReleaseDetails, error) {
	params := url.Values{}
	params.Set("inc", "recordings+artist-credits+release-groups+genres+labels+isrcs")

	var result releaseDetailsResponse
	if err := c.getJSON(ctx, "/release/"+url.PathEscape(mbid), params, &result); err != nil {
		return nil, err
	}

	return convertReleaseDetails(result), nil
}

// getJSON performs a rate-limited GET on the web service and decodes the
// JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.waitForRateLimit(ctx); err != nil {
		return err
	}

	params.Set("fmt", "json")
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// waitForRateLimit ensures we don't exceed MusicBrainz rate limits.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.interval {
		if err := sleep(ctx, c.interval-elapsed); err != nil {
			return err
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// doRequestWithRetry executes an HTTP request with exponential backoff retry.
// Retries on 5xx errors and network errors, until the request context ends.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = min(delay*2, maxDelay)
			// Re-apply rate limit after retry delay
			if err := c.waitForRateLimit(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		// Success or client error (4xx) - don't retry
		if resp.StatusCode < 500 {
			return resp, nil
		}

		// Server error (5xx) - retry
		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries+1, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// luceneQuote quotes a phrase for the search syntax.
func luceneQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func convertReleases(results []releaseResult) []Release {
	releases := make([]Release, len(results))
	for i := range results {
		releases[i] = convertRelease(&results[i])
	}
	return releases
}

func convertRelease(r *releaseResult) Release {
	rel := Release{
		ID:      r.ID,
		Title:   r.Title,
		Artist:  extractArtist(r.ArtistCredit),
		Date:    r.Date,
		Country: r.Country,
		Genres:  genreNames(r.Genres),
	}
	if len(r.ArtistCredit) > 0 {
		rel.ArtistID = r.ArtistCredit[0].Artist.ID
	}
	if g := r.ReleaseGroup; g != nil {
		rel.ReleaseType = g.PrimaryType
		rel.ReleaseGroupID = g.ID
		// release-group genres are better populated than release ones
		if len(rel.Genres) == 0 {
			rel.Genres = genreNames(g.Genres)
		}
	}

	formats := make([]string, 0, len(r.Media))
	for _, m := range r.Media {
		rel.TrackCount += m.TrackCount
		if m.Format != "" {
			formats = append(formats, m.Format)
		}
	}
	rel.DiscCount = len(r.Media)
	rel.Formats = strings.Join(formats, ", ")
	return rel
}

func convertReleaseDetails(r releaseDetailsResponse) *ReleaseDetails {
	d := &ReleaseDetails{Release: convertRelease(&r.releaseResult)}
	if r.ReleaseGroup != nil {
		d.FirstReleaseDate = r.ReleaseGroup.FirstRelease
	}
	for _, li := range r.LabelInfo {
		if li.Label != nil && li.Label.Name != "" {
			d.Label = li.Label.Name
			break
		}
	}

	for i, m := range r.Media {
		disc := m.Position
		if disc == 0 {
			disc = i + 1
		}
		for _, t := range m.Tracks {
			d.Tracks = append(d.Tracks, convertTrack(t, disc, d.Artist))
		}
	}
	return d
}

func convertTrack(t track, disc int, releaseArtist string) Track {
	tr := Track{
		Position:   t.Position,
		Title:      t.Title,
		Length:     t.Length,
		DiscNumber: disc,
		TrackID:    t.ID,
	}
	if rec := t.Recording; rec != nil {
		tr.RecordingID = rec.ID
		if len(rec.ISRCs) > 0 {
			tr.ISRC = rec.ISRCs[0]
		}
		if tr.Length == 0 {
			tr.Length = rec.Length
		}
	}
	if artist := extractArtist(t.ArtistCredit); artist != releaseArtist {
		tr.Artist = artist
	}
	ids := make([]string, len(t.ArtistCredit))
	for i, ac := range t.ArtistCredit {
		ids[i] = ac.Artist.ID
	}
	tr.ArtistID = strings.Join(ids, ";")
	return tr
}

// extractArtist joins the credited names with their join phrases.
func extractArtist(credits []artistCredit) string {
	var b strings.Builder
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		b.WriteString(name)
		b.WriteString(c.JoinPhrase)
	}
	return b.String()
}

func genreNames(genres []genre) []string {
	if len(genres) == 0 {
		return nil
	}
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	return names
}
