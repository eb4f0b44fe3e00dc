package tags

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// Read reads the metadata of a music file. Missing titles fall back to
// the file name and missing album artists to the track artist.
func Read(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	m, err := tag.ReadFrom(f)
	if err != nil {
		if ext == ExtMP3 {
			// dhowden/tag rejects some UTF-16 ID3 frames
			return readMP3WithID3v2(path)
		}
		return nil, err
	}

	t := &Tag{
		Path:        path,
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
		Genre:       m.Genre(),
	}
	t.TrackNumber, t.TotalTracks = m.Track()
	t.DiscNumber, t.TotalDiscs = m.Disc()
	if y := m.Year(); y > 0 {
		t.Date = strconv.Itoa(y)
	}

	switch ext {
	case ExtMP3:
		readMP3Extended(path, t)
	case ExtFLAC:
		readFLACExtended(path, t)
	case ExtOPUS, ExtOGG:
		if d, err := oggDuration(f); err == nil {
			t.Duration = d
		}
	}

	t.applyFallbacks()
	return t, nil
}

func (t *Tag) applyFallbacks() {
	if t.Title == "" {
		t.Title = strings.TrimSuffix(filepath.Base(t.Path), filepath.Ext(t.Path))
	}
	if t.AlbumArtist == "" {
		t.AlbumArtist = t.Artist
	}
}

func readMP3WithID3v2(path string) (*Tag, error) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	t := &Tag{
		Path:        path,
		Title:       id3tag.Title(),
		Artist:      id3tag.Artist(),
		AlbumArtist: textFrame(id3tag, "TPE2"),
		Album:       id3tag.Album(),
		Genre:       id3tag.Genre(),
	}
	t.TrackNumber, t.TotalTracks = parseNumberPair(textFrame(id3tag, "TRCK"))
	t.DiscNumber, t.TotalDiscs = parseNumberPair(textFrame(id3tag, "TPOS"))
	id3tag.Close()

	readMP3Extended(path, t)
	t.applyFallbacks()
	return t, nil
}

// readMP3Extended reads dates, identifiers and TLEN from ID3v2 frames.
func readMP3Extended(path string, t *Tag) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return
	}
	defer id3tag.Close()

	if d := textFrame(id3tag, "TDRC"); d != "" {
		t.Date = d
	} else if year := textFrame(id3tag, "TYER"); year != "" {
		t.Date = year
		// ID3v2.3 TDAT is DDMM
		if tdat := textFrame(id3tag, "TDAT"); len(tdat) == 4 {
			t.Date = year + "-" + tdat[2:4] + "-" + tdat[0:2]
		}
	}
	t.OriginalDate = textFrame(id3tag, "TDOR")
	if t.OriginalDate == "" {
		t.OriginalDate = textFrame(id3tag, "TORY")
	}
	if t.OriginalDate == "" {
		t.OriginalDate = userFrame(id3tag, "ORIGINALYEAR")
	}

	t.ISRC = textFrame(id3tag, "TSRC")
	t.MBArtistID = userFrame(id3tag, "MusicBrainz Artist Id")
	t.MBReleaseID = userFrame(id3tag, "MusicBrainz Album Id")
	t.MBReleaseGroupID = userFrame(id3tag, "MusicBrainz Release Group Id")
	for _, frame := range id3tag.GetFrames("UFID") {
		if ufid, ok := frame.(id3v2.UFIDFrame); ok && ufid.OwnerIdentifier == musicBrainzOwner {
			t.MBRecordingID = string(ufid.Identifier)
			break
		}
	}

	if ms, err := strconv.Atoi(textFrame(id3tag, "TLEN")); err == nil && ms > 0 {
		t.Duration = time.Duration(ms) * time.Millisecond
	}
}

const musicBrainzOwner = "http://musicbrainz.org"

func textFrame(id3tag *id3v2.Tag, id string) string {
	frames := id3tag.GetFrames(id)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return strings.TrimSpace(tf.Text)
	}
	return ""
}

func userFrame(id3tag *id3v2.Tag, description string) string {
	for _, frame := range id3tag.GetFrames("TXXX") {
		if udf, ok := frame.(id3v2.UserDefinedTextFrame); ok && udf.Description == description {
			return udf.Value
		}
	}
	return ""
}

// readFLACExtended reads Vorbis comments and the stream length.
func readFLACExtended(path string, t *Tag) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return
	}
	if info, err := f.GetStreamInfo(); err == nil && info.SampleRate > 0 {
		t.Duration = time.Duration(float64(info.SampleCount) / float64(info.SampleRate) * float64(time.Second))
	}

	for _, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return
		}
		get := func(key string) string {
			vals, err := cmts.Get(key)
			if err != nil || len(vals) == 0 {
				return ""
			}
			return vals[0]
		}
		if d := get(flacvorbis.FIELD_DATE); d != "" {
			t.Date = d
		}
		t.OriginalDate = get("ORIGINALDATE")
		if t.OriginalDate == "" {
			t.OriginalDate = get("ORIGINALYEAR")
		}
		t.ISRC = get(flacvorbis.FIELD_ISRC)
		t.MBArtistID = get("MUSICBRAINZ_ARTISTID")
		t.MBReleaseID = get("MUSICBRAINZ_ALBUMID")
		t.MBReleaseGroupID = get("MUSICBRAINZ_RELEASEGROUPID")
		t.MBRecordingID = get("MUSICBRAINZ_TRACKID")
		if t.TotalTracks == 0 {
			t.TotalTracks, _ = strconv.Atoi(get("TOTALTRACKS"))
		}
		if t.TotalDiscs == 0 {
			t.TotalDiscs, _ = strconv.Atoi(get("TOTALDISCS"))
		}
		return
	}
}

// oggDuration reads the granule position of the last Ogg page. Opus
// granules count 48 kHz samples.
func oggDuration(f *os.File) (time.Duration, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := min(int64(65536), fi.Size())
	if _, err := f.Seek(-size, io.SeekEnd); err != nil {
		return 0, err
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}
	buf = buf[:n]

	for i := len(buf) - 27; i >= 0; i-- {
		if string(buf[i:i+4]) != "OggS" {
			continue
		}
		var granule int64
		for b := 7; b >= 0; b-- {
			granule = granule<<8 | int64(buf[i+6+b])
		}
		if granule > 0 {
			return time.Duration(float64(granule) / 48000 * float64(time.Second)), nil
		}
		break
	}
	return 0, errors.New("no ogg granule position")
}
