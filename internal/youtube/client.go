// Package youtube searches YouTube playlists and reads them as albums
// through the Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/holder"
)

const (
	searchPageSize = 25
	itemsPageSize  = 50 // API maximum
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("youtube api key not configured")

// ErrNotFound is returned for unknown playlists.
var ErrNotFound = errors.New("youtube playlist not found")

// Playlist is a YouTube playlist.
type Playlist struct {
	ID           string
	Title        string
	Channel      string
	Description  string
	ThumbnailURL string
	ItemCount    int
	PublishedAt  string
}

// Video is an entry of a playlist.
type Video struct {
	ID       string
	Title    string
	Channel  string
	Position int // 0-based position in the playlist
	Duration time.Duration
}

// PlaylistCombo is a playlist with all of its playable videos.
type PlaylistCombo struct {
	Playlist
	Videos []Video
}

// Client wraps the YouTube Data API.
type Client struct {
	svc *youtube.Service
}

// New creates a client authenticated with an API key. Extra options are
// passed to the service, e.g. an endpoint for tests.
func New(ctx context.Context, cfg config.YouTubeConfig, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// SearchPlaylists searches playlists. The cursor is a page token.
func (c *Client) SearchPlaylists(ctx context.Context, query, cursor string) (holder.Page[Playlist], error) {
	call := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("playlist").
		MaxResults(searchPageSize).
		Context(ctx)
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	resp, err := call.Do()
	if err != nil {
		return holder.Page[Playlist]{}, fmt.Errorf("search playlists: %w", err)
	}

	page := holder.Page[Playlist]{Next: resp.NextPageToken}
	if resp.PageInfo != nil {
		page.Total = int(resp.PageInfo.TotalResults)
	}
	for _, it := range resp.Items {
		if it.Id == nil || it.Id.PlaylistId == "" || it.Snippet == nil {
			continue
		}
		page.Items = append(page.Items, Playlist{
			ID:           it.Id.PlaylistId,
			Title:        it.Snippet.Title,
			Channel:      it.Snippet.ChannelTitle,
			Description:  it.Snippet.Description,
			ThumbnailURL: bestThumbnail(it.Snippet.Thumbnails),
			PublishedAt:  it.Snippet.PublishedAt,
		})
	}
	return page, nil
}

// Playlist fetches a playlist's metadata.
func (c *Client) Playlist(ctx context.Context, id string) (*Playlist, error) {
	resp, err := c.svc.Playlists.List([]string{"snippet", "contentDetails"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", id, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, ErrNotFound
	}
	it := resp.Items[0]
	p := &Playlist{
		ID:           it.Id,
		Title:        it.Snippet.Title,
		Channel:      it.Snippet.ChannelTitle,
		Description:  it.Snippet.Description,
		ThumbnailURL: bestThumbnail(it.Snippet.Thumbnails),
		PublishedAt:  it.Snippet.PublishedAt,
	}
	if it.ContentDetails != nil {
		p.ItemCount = int(it.ContentDetails.ItemCount)
	}
	return p, nil
}

// PlaylistCombo fetches a playlist with every video, paging through the
// items and looking up durations. Deleted and private videos are skipped.
func (c *Client) PlaylistCombo(ctx context.Context, id string) (*PlaylistCombo, error) {
	p, err := c.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}
	combo := &PlaylistCombo{Playlist: *p}

	token := ""
	for {
		call := c.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(id).
			MaxResults(itemsPageSize).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("playlist %s items: %w", id, err)
		}
		for _, it := range resp.Items {
			if v, ok := convertItem(it); ok {
				combo.Videos = append(combo.Videos, v)
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}

	if err := c.fillDurations(ctx, combo.Videos); err != nil {
		return nil, err
	}
	return combo, nil
}

func convertItem(it *youtube.PlaylistItem) (Video, bool) {
	if it.Snippet == nil {
		return Video{}, false
	}
	id := ""
	if it.ContentDetails != nil {
		id = it.ContentDetails.VideoId
	}
	if id == "" && it.Snippet.ResourceId != nil {
		id = it.Snippet.ResourceId.VideoId
	}
	switch it.Snippet.Title {
	case "Deleted video", "Private video":
		return Video{}, false
	}
	if id == "" {
		return Video{}, false
	}
	return Video{
		ID:       id,
		Title:    it.Snippet.Title,
		Channel:  it.Snippet.VideoOwnerChannelTitle,
		Position: int(it.Snippet.Position),
	}, true
}

// fillDurations looks durations up in batches of 50 ids.
func (c *Client) fillDurations(ctx context.Context, videos []Video) error {
	byID := make(map[string][]int, len(videos))
	ids := make([]string, 0, len(videos))
	for i, v := range videos {
		if _, ok := byID[v.ID]; !ok {
			ids = append(ids, v.ID)
		}
		byID[v.ID] = append(byID[v.ID], i)
	}

	for start := 0; start < len(ids); start += itemsPageSize {
		batch := ids[start:min(start+itemsPageSize, len(ids))]
		resp, err := c.svc.Videos.List([]string{"contentDetails"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("video durations: %w", err)
		}
		for _, v := range resp.Items {
			if v.ContentDetails == nil {
				continue
			}
			d, err := ParseDuration(v.ContentDetails.Duration)
			if err != nil {
				continue
			}
			for _, i := range byID[v.Id] {
				videos[i].Duration = d
			}
		}
	}
	return nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
