package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/fistopy/fistopy/internal/config"
	"github.com/fistopy/fistopy/internal/library"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), config.YouTubeConfig{APIKey: "test"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func fakeAPI(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		switch {
		case strings.HasSuffix(r.URL.Path, "/search"):
			assert.Equal(t, "playlist", q.Get("type"))
			if q.Get("pageToken") == "tok2" {
				fmt.Fprint(w, `{"pageInfo":{"totalResults":2},"items":[
					{"id":{"kind":"youtube#playlist","playlistId":"PL2"},"snippet":{"title":"Kid A","channelTitle":"RadioheadVEVO"}}]}`)
				return
			}
			fmt.Fprint(w, `{"nextPageToken":"tok2","pageInfo":{"totalResults":2},"items":[
				{"id":{"kind":"youtube#playlist","playlistId":"PL1"},"snippet":{"title":"Radiohead - OK Computer (Full Album)","channelTitle":"Uploader",
				 "thumbnails":{"default":{"url":"http://img/default.jpg"},"high":{"url":"http://img/high.jpg"}}}}]}`)
		case strings.HasSuffix(r.URL.Path, "/playlists"):
			if q.Get("id") != "PL1" {
				fmt.Fprint(w, `{"items":[]}`)
				return
			}
			fmt.Fprint(w, `{"items":[{"id":"PL1","snippet":{"title":"Radiohead - OK Computer (Full Album)","channelTitle":"Uploader",
				"thumbnails":{"medium":{"url":"http://img/medium.jpg"}}},"contentDetails":{"itemCount":3}}]}`)
		case strings.HasSuffix(r.URL.Path, "/playlistItems"):
			assert.Equal(t, "PL1", q.Get("playlistId"))
			if q.Get("pageToken") == "" {
				fmt.Fprint(w, `{"nextPageToken":"p2","items":[
					{"snippet":{"title":"01. Airbag","position":0,"videoOwnerChannelTitle":"Radiohead - Topic","resourceId":{"videoId":"v1"}},"contentDetails":{"videoId":"v1"}},
					{"snippet":{"title":"Deleted video","position":1,"resourceId":{"videoId":"gone"}}}]}`)
				return
			}
			fmt.Fprint(w, `{"items":[
				{"snippet":{"title":"Radiohead - Paranoid Android","position":2,"videoOwnerChannelTitle":"Radiohead - Topic","resourceId":{"videoId":"v2"}},"contentDetails":{"videoId":"v2"}}]}`)
		case strings.HasSuffix(r.URL.Path, "/videos"):
			fmt.Fprint(w, `{"items":[
				{"id":"v1","contentDetails":{"duration":"PT4M44S"}},
				{"id":"v2","contentDetails":{"duration":"PT6M23S"}}]}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), config.YouTubeConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSearchPlaylists(t *testing.T) {
	c := newTestClient(t, fakeAPI(t))
	ctx := context.Background()

	page, err := c.SearchPlaylists(ctx, "ok computer", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "PL1", page.Items[0].ID)
	assert.Equal(t, "http://img/high.jpg", page.Items[0].ThumbnailURL)
	assert.Equal(t, "tok2", page.Next)
	assert.Equal(t, 2, page.Total)

	page, err = c.SearchPlaylists(ctx, "ok computer", page.Next)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "PL2", page.Items[0].ID)
	assert.Empty(t, page.Next)
}

func TestPlaylistCombo(t *testing.T) {
	c := newTestClient(t, fakeAPI(t))

	combo, err := c.PlaylistCombo(context.Background(), "PL1")
	require.NoError(t, err)
	assert.Equal(t, 3, combo.ItemCount)
	require.Len(t, combo.Videos, 2)
	assert.Equal(t, "v1", combo.Videos[0].ID)
	assert.Equal(t, 4*time.Minute+44*time.Second, combo.Videos[0].Duration)
	assert.Equal(t, "v2", combo.Videos[1].ID)
	assert.Equal(t, 2, combo.Videos[1].Position)
	assert.Equal(t, 6*time.Minute+23*time.Second, combo.Videos[1].Duration)
}

func TestPlaylistNotFound(t *testing.T) {
	c := newTestClient(t, fakeAPI(t))

	_, err := c.PlaylistCombo(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaylistComboCandidate(t *testing.T) {
	c := newTestClient(t, fakeAPI(t))

	combo, err := c.PlaylistCombo(context.Background(), "PL1")
	require.NoError(t, err)

	cand := combo.Candidate()
	assert.Equal(t, library.SourceYouTube, cand.Source)
	assert.Equal(t, "PL1", cand.ExternalID)
	assert.Equal(t, "Radiohead", cand.Artist)
	assert.Equal(t, "OK Computer", cand.Title)
	require.Len(t, cand.Tracks, 2)
	assert.Equal(t, "Airbag", cand.Tracks[0].Title)
	assert.Equal(t, "Paranoid Android", cand.Tracks[1].Title)
	assert.Equal(t, 2, cand.Tracks[1].Position)
	assert.Empty(t, cand.Tracks[0].Artist, "topic channel of the album artist")

	album := combo.AlbumWithTracks()
	assert.Equal(t, "PL1", album.YoutubePlaylistID)
	require.Len(t, album.Tracks, 2)
	assert.Equal(t, "v2", album.Tracks[1].YoutubeVideoID)
}

func TestAlbumCandidates(t *testing.T) {
	c := newTestClient(t, fakeAPI(t))

	cands, err := c.AlbumCandidates(context.Background(), "Radiohead", "OK Computer")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "OK Computer", cands[0].Title)

	cands, err = c.AlbumCandidates(context.Background(), " ", "")
	require.NoError(t, err)
	assert.Empty(t, cands)
}
