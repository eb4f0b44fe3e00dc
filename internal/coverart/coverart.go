// Package coverart stores album covers and their thumbnails on disk.
package coverart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder for downloaded covers
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nfnt/resize"
)

const (
	// ThumbnailSize is the bounding box of stored thumbnails in pixels.
	ThumbnailSize = 256

	thumbnailQuality = 85
	maxDownloadSize  = 20 << 20
)

// ErrEmpty is returned when there is no image data to store.
var ErrEmpty = errors.New("empty cover art")

// Paths locates a stored cover.
type Paths struct {
	Cover     string
	Thumbnail string
}

// Store writes covers under <dir>/<albumID>/.
type Store struct {
	dir        string
	httpClient *http.Client
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{
		dir:        dir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Dir returns the directory holding the covers of albumID.
func (s *Store) Dir(albumID string) string {
	return filepath.Join(s.dir, albumID)
}

// Download fetches url and stores it for albumID.
func (s *Store) Download(ctx context.Context, albumID, url string) (Paths, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Paths{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Paths{}, fmt.Errorf("download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Paths{}, fmt.Errorf("download cover: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return Paths{}, fmt.Errorf("download cover: %w", err)
	}
	return s.Save(albumID, data)
}

// Save stores the image data as the full cover of albumID and writes a
// JPEG thumbnail next to it. The full image keeps its original encoding.
func (s *Store) Save(albumID string, data []byte) (Paths, error) {
	if len(data) == 0 {
		return Paths{}, ErrEmpty
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Paths{}, fmt.Errorf("decode cover: %w", err)
	}

	dir := s.Dir(albumID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, err
	}

	ext := ".jpg"
	if format == "png" {
		ext = ".png"
	}
	paths := Paths{
		Cover:     filepath.Join(dir, "cover"+ext),
		Thumbnail: filepath.Join(dir, "thumbnail.jpg"),
	}
	if err := os.WriteFile(paths.Cover, data, 0o644); err != nil {
		return Paths{}, err
	}

	thumb := resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return Paths{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := os.WriteFile(paths.Thumbnail, buf.Bytes(), 0o644); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// Remove deletes every stored file of albumID.
func (s *Store) Remove(albumID string) error {
	return os.RemoveAll(s.Dir(albumID))
}
