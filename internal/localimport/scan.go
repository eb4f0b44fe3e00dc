// Package localimport scans music directories and groups the files into
// albums ready to be imported.
package localimport

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fistopy/fistopy/internal/fuzzy"
	"github.com/fistopy/fistopy/internal/holder"
	"github.com/fistopy/fistopy/internal/tags"
)

const unknownArtist = "Unknown Artist"

// Progress reports scanning advancement.
type Progress struct {
	Phase   string // "discovering" or "reading"
	Current int
	Total   int // 0 while discovering
}

// Album is a group of files sharing album artist and album title, or a
// directory when the files carry no album tag.
type Album struct {
	Key    string
	Title  string
	Artist string
	Dir    string
	Files  []*tags.Tag // ordered by disc, track, path
}

// Scanner reads music directories.
type Scanner struct {
	workers int
	log     zerolog.Logger
}

// NewScanner creates a scanner reading up to workers files at once.
func NewScanner(workers int, log zerolog.Logger) *Scanner {
	if workers <= 0 {
		workers = 4
	}
	return &Scanner{
		workers: workers,
		log:     log.With().Str("component", "localimport").Logger(),
	}
}

// Discover walks root and returns every music file. Unreadable entries
// are skipped.
func Discover(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if tags.IsMusicFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Scan discovers and reads every music file under root and groups them
// into albums. progress may be nil; sends never block.
func (s *Scanner) Scan(ctx context.Context, root string, progress chan<- Progress) ([]Album, error) {
	report := func(p Progress) {
		if progress == nil {
			return
		}
		select {
		case progress <- p:
		default:
		}
	}

	report(Progress{Phase: "discovering"})
	paths, err := Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("root", root).Int("files", len(paths)).Msg("discovered files")

	results := make([]*tags.Tag, len(paths))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := tags.Read(path)
			if err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
			} else {
				results[i] = t
			}
			report(Progress{Phase: "reading", Current: int(done.Add(1)), Total: len(paths)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]*tags.Tag, 0, len(results))
	for _, t := range results {
		if t != nil {
			files = append(files, t)
		}
	}
	return GroupAlbums(files), nil
}

// GroupAlbums groups tagged files by normalised album artist and album.
// Files without an album tag are grouped by directory, titled after it.
// Albums are ordered by artist then title.
func GroupAlbums(files []*tags.Tag) []Album {
	byKey := make(map[string]*Album)
	var order []string

	for _, f := range files {
		dir := filepath.Dir(f.Path)
		artist := strings.TrimSpace(f.AlbumArtist)
		if artist == "" {
			artist = strings.TrimSpace(f.Artist)
		}
		title := strings.TrimSpace(f.Album)

		var key string
		if title == "" {
			key = "dir:" + dir
			title = filepath.Base(dir)
		} else {
			key = fuzzy.Normalize(artist) + "\x00" + fuzzy.Normalize(title)
		}

		a, ok := byKey[key]
		if !ok {
			a = &Album{Key: key, Title: title, Artist: artist, Dir: dir}
			byKey[key] = a
			order = append(order, key)
		}
		if a.Artist == "" {
			a.Artist = artist
		}
		a.Files = append(a.Files, f)
	}

	albums := make([]Album, 0, len(order))
	for _, key := range order {
		a := byKey[key]
		if a.Artist == "" {
			a.Artist = unknownArtist
		}
		sort.SliceStable(a.Files, func(i, j int) bool {
			fi, fj := a.Files[i], a.Files[j]
			if discOf(fi) != discOf(fj) {
				return discOf(fi) < discOf(fj)
			}
			if fi.TrackNumber != fj.TrackNumber {
				return fi.TrackNumber < fj.TrackNumber
			}
			return fi.Path < fj.Path
		})
		albums = append(albums, *a)
	}
	sort.SliceStable(albums, func(i, j int) bool {
		ai, aj := strings.ToLower(albums[i].Artist), strings.ToLower(albums[j].Artist)
		if ai != aj {
			return ai < aj
		}
		return strings.ToLower(albums[i].Title) < strings.ToLower(albums[j].Title)
	})
	return albums
}

func discOf(t *tags.Tag) int {
	return max(t.DiscNumber, 1)
}

// Paginate serves albums as pages of size for an import holder. The
// cursor is the decimal offset of the page.
func Paginate(albums []Album, size int) holder.Fetcher[Album] {
	if size <= 0 {
		size = 20
	}
	return func(ctx context.Context, cursor string) (holder.Page[Album], error) {
		if err := ctx.Err(); err != nil {
			return holder.Page[Album]{}, err
		}
		offset := 0
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil || n < 0 {
				return holder.Page[Album]{}, fmt.Errorf("invalid cursor %q", cursor)
			}
			offset = n
		}
		offset = min(offset, len(albums))
		end := min(offset+size, len(albums))

		page := holder.Page[Album]{
			Items: albums[offset:end],
			Total: len(albums),
		}
		if end < len(albums) {
			page.Next = strconv.Itoa(end)
		}
		return page, nil
	}
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
