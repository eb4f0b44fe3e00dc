package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// folderCoverNames are image base names searched next to audio files, in
// priority order.
var folderCoverNames = []string{"cover", "folder", "front", "album", "artwork"}

var imageExts = map[string]string{
	".jpg":  mimeJPEG,
	".jpeg": mimeJPEG,
	".png":  mimePNG,
}

// ExtractCoverArt returns the cover of an audio file: embedded art first,
// then an image like cover.jpg in the same directory. It returns nil data
// when there is none.
func ExtractCoverArt(path string) (data []byte, mimeType string, err error) {
	data, mimeType, err = embeddedArt(path)
	if err != nil || data != nil {
		return data, mimeType, err
	}
	return FolderArt(filepath.Dir(path))
}

func embeddedArt(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// unreadable tags simply have no art
		return nil, "", nil //nolint:nilerr
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, "", nil
	}
	mime := pic.MIMEType
	if mime == "" {
		mime = detectMimeType(pic.Data)
	}
	return pic.Data, mime, nil
}

// FolderArt looks for a cover image in dir, matching names
// case-insensitively.
func FolderArt(dir string) ([]byte, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", err
	}
	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			byName[strings.ToLower(e.Name())] = e.Name()
		}
	}

	for _, base := range folderCoverNames {
		for _, ext := range []string{".jpg", ".jpeg", ".png"} {
			name, ok := byName[base+ext]
			if !ok {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return nil, "", err
			}
			return data, imageExts[ext], nil
		}
	}
	return nil, "", nil
}
