package musicbrainz

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const (
	coverArtBaseURL = "https://coverartarchive.org"

	// CoverSize is the thumbnail size requested from the archive.
	CoverSize = 500
)

// CoverArtURL returns the archive URL of a release's front cover at size
// pixels (250, 500 or 1200).
func (c *Client) CoverArtURL(releaseMBID string, size int) string {
	base := c.coverURL
	if base == "" {
		base = coverArtBaseURL
	}
	return fmt.Sprintf("%s/release/%s/front-%d", base, releaseMBID, size)
}

// GetCoverArt fetches the front cover for a release from Cover Art Archive.
// Returns the image data as bytes, or nil if no cover art is available.
func (c *Client) GetCoverArt(ctx context.Context, releaseMBID string) ([]byte, error) {
	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.CoverArtURL(releaseMBID, CoverSize), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	// 404 means no cover art available - not an error
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	// redirects to the image host are followed by the client
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return data, nil
}
