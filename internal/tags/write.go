package tags

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// Write replaces the tags of an existing MP3 or FLAC file.
func Write(path string, t *Tag) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return writeMP3(path, t)
	case ExtFLAC:
		return writeFLAC(path, t)
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

func detectMimeType(data []byte) string {
	if http.DetectContentType(data) == mimePNG {
		return mimePNG
	}
	return mimeJPEG
}

func writeMP3(path string, t *Tag) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		// ID3v2.2 cannot be edited; drop it and start over
		if err := stripID3v2(path); err != nil {
			return fmt.Errorf("strip ID3v2.2 tag: %w", err)
		}
		tag, err = id3v2.Open(path, id3v2.Options{Parse: true})
	}
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.DeleteAllFrames()

	tag.SetTitle(t.Title)
	tag.SetArtist(t.Artist)
	tag.SetAlbum(t.Album)
	tag.SetGenre(t.Genre)

	text := func(id, value string) {
		if value != "" {
			tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
		}
	}
	user := func(desc, value string) {
		if value != "" {
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    id3v2.EncodingUTF8,
				Description: desc,
				Value:       value,
			})
		}
	}

	text("TPE2", t.AlbumArtist)
	if t.TrackNumber > 0 {
		text("TRCK", formatNumberPair(t.TrackNumber, t.TotalTracks))
	}
	if t.DiscNumber > 0 {
		text("TPOS", formatNumberPair(t.DiscNumber, t.TotalDiscs))
	}
	text("TDRC", t.Date)
	text("TDOR", t.OriginalDate)
	text("TSRC", t.ISRC)
	if t.Duration > 0 {
		text("TLEN", strconv.FormatInt(t.Duration.Milliseconds(), 10))
	}

	user("MusicBrainz Artist Id", t.MBArtistID)
	user("MusicBrainz Album Id", t.MBReleaseID)
	user("MusicBrainz Release Group Id", t.MBReleaseGroupID)
	if t.MBRecordingID != "" {
		tag.AddFrame("UFID", id3v2.UFIDFrame{
			OwnerIdentifier: musicBrainzOwner,
			Identifier:      []byte(t.MBRecordingID),
		})
	}

	if len(t.CoverArt) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    detectMimeType(t.CoverArt),
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     t.CoverArt,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}

// stripID3v2 rewrites the file without its leading ID3v2 tag.
func stripID3v2(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 10 || string(data[:3]) != id3Magic {
		return nil
	}
	// syncsafe size, plus header and optional footer
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9]) + 10
	if data[5]&0x10 != 0 {
		size += 10
	}
	if size >= len(data) {
		return fmt.Errorf("ID3v2 tag size %d exceeds file size %d", size, len(data))
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data[size:], info.Mode().Perm())
}

func writeFLAC(path string, t *Tag) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse file: %w", err)
	}

	cmts := flacvorbis.New()
	add := func(key, value string) error {
		if value == "" {
			return nil
		}
		if err := cmts.Add(key, value); err != nil {
			return fmt.Errorf("add %s: %w", strings.ToLower(key), err)
		}
		return nil
	}
	addInt := func(key string, n int) error {
		if n <= 0 {
			return nil
		}
		return add(key, strconv.Itoa(n))
	}

	for _, err := range []error{
		add(flacvorbis.FIELD_TITLE, t.Title),
		add(flacvorbis.FIELD_ARTIST, t.Artist),
		add("ALBUMARTIST", t.AlbumArtist),
		add(flacvorbis.FIELD_ALBUM, t.Album),
		add(flacvorbis.FIELD_GENRE, t.Genre),
		addInt(flacvorbis.FIELD_TRACKNUMBER, t.TrackNumber),
		addInt("TOTALTRACKS", t.TotalTracks),
		addInt("DISCNUMBER", t.DiscNumber),
		addInt("TOTALDISCS", t.TotalDiscs),
		add(flacvorbis.FIELD_DATE, t.Date),
		add("ORIGINALDATE", t.OriginalDate),
		add(flacvorbis.FIELD_ISRC, t.ISRC),
		add("MUSICBRAINZ_ARTISTID", t.MBArtistID),
		add("MUSICBRAINZ_ALBUMID", t.MBReleaseID),
		add("MUSICBRAINZ_RELEASEGROUPID", t.MBReleaseGroupID),
		add("MUSICBRAINZ_TRACKID", t.MBRecordingID),
	} {
		if err != nil {
			return err
		}
	}
	block := cmts.Marshal()

	// a fresh comment block replaces the old one; pictures are replaced
	// only when new art is given
	meta := make([]*flac.MetaDataBlock, 0, len(f.Meta)+2)
	replaced := false
	for _, m := range f.Meta {
		switch {
		case m.Type == flac.VorbisComment:
			if !replaced {
				meta = append(meta, &block)
				replaced = true
			}
		case m.Type == flac.Picture && len(t.CoverArt) > 0:
		default:
			meta = append(meta, m)
		}
	}
	if !replaced {
		meta = append(meta, &block)
	}

	if len(t.CoverArt) > 0 {
		pic, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover,
			"Front Cover",
			t.CoverArt,
			detectMimeType(t.CoverArt),
		)
		if err != nil {
			return fmt.Errorf("create picture: %w", err)
		}
		picBlock := pic.Marshal()
		meta = append(meta, &picBlock)
	}
	f.Meta = meta

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}
