package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbutil "github.com/fistopy/fistopy/internal/db"
)

const albumColumns = `a.id, a.title, a.year, a.is_in_library, a.is_local, a.is_hidden,
	a.youtube_playlist_id, a.spotify_id, a.musicbrainz_release_id, a.musicbrainz_release_group_id,
	a.lastfm_url, a.image_url, a.cover_path, a.thumbnail_path, a.created_at, a.updated_at`

const trackColumns = `t.id, t.album_id, t.title, t.disc_number, t.track_number, t.duration_ms, t.year,
	t.is_in_library, t.youtube_video_id, t.spotify_id, t.musicbrainz_recording_id, t.local_path,
	t.play_count, t.last_played_at, t.created_at`

const artistColumns = `ar.id, ar.name, ar.musicbrainz_id, ar.spotify_id, ar.image_url, ar.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAlbum(sc scanner, extra ...any) (Album, error) {
	var a Album
	var year sql.NullInt64
	var yt, sp, mbRel, mbGroup, lfm, img, cover, thumb sql.NullString
	var created, updated int64

	dest := []any{
		&a.ID, &a.Title, &year, &a.IsInLibrary, &a.IsLocal, &a.IsHidden,
		&yt, &sp, &mbRel, &mbGroup, &lfm, &img, &cover, &thumb, &created, &updated,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return Album{}, err
	}

	a.Year = int(dbutil.NullInt64Value(year))
	a.YoutubePlaylistID = dbutil.NullStringValue(yt)
	a.SpotifyID = dbutil.NullStringValue(sp)
	a.MusicBrainzReleaseID = dbutil.NullStringValue(mbRel)
	a.MusicBrainzReleaseGroupID = dbutil.NullStringValue(mbGroup)
	a.LastfmURL = dbutil.NullStringValue(lfm)
	a.ImageURL = dbutil.NullStringValue(img)
	a.CoverPath = dbutil.NullStringValue(cover)
	a.ThumbnailPath = dbutil.NullStringValue(thumb)
	a.CreatedAt = time.Unix(created, 0)
	a.UpdatedAt = time.Unix(updated, 0)
	return a, nil
}

func scanTrack(sc scanner) (Track, error) {
	var t Track
	var albumID, yt, sp, mb, path sql.NullString
	var disc, pos, duration, year, lastPlayed sql.NullInt64
	var created int64

	err := sc.Scan(
		&t.ID, &albumID, &t.Title, &disc, &pos, &duration, &year,
		&t.IsInLibrary, &yt, &sp, &mb, &path,
		&t.PlayCount, &lastPlayed, &created,
	)
	if err != nil {
		return Track{}, err
	}

	t.AlbumID = dbutil.NullStringValue(albumID)
	t.Disc = int(dbutil.NullInt64Value(disc))
	t.Position = int(dbutil.NullInt64Value(pos))
	t.Duration = time.Duration(dbutil.NullInt64Value(duration)) * time.Millisecond
	t.Year = int(dbutil.NullInt64Value(year))
	t.YoutubeVideoID = dbutil.NullStringValue(yt)
	t.SpotifyID = dbutil.NullStringValue(sp)
	t.MusicBrainzRecordingID = dbutil.NullStringValue(mb)
	t.LocalPath = dbutil.NullStringValue(path)
	t.LastPlayedAt = dbutil.NullTimeValue(lastPlayed)
	t.CreatedAt = time.Unix(created, 0)
	return t, nil
}

func scanArtist(sc scanner, extra ...any) (Artist, error) {
	var a Artist
	var mb, sp, img sql.NullString
	var created int64

	dest := []any{&a.ID, &a.Name, &mb, &sp, &img, &created}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return Artist{}, err
	}
	a.MusicBrainzID = dbutil.NullStringValue(mb)
	a.SpotifyID = dbutil.NullStringValue(sp)
	a.ImageURL = dbutil.NullStringValue(img)
	a.CreatedAt = time.Unix(created, 0)
	return a, nil
}

// AlbumSort selects the ordering of AlbumCombos.
type AlbumSort int

const (
	SortByTitle AlbumSort = iota
	SortByArtist
	SortByYear
	SortByAdded
)

// ParseAlbumSort maps a flag value to an AlbumSort.
func ParseAlbumSort(s string) (AlbumSort, error) {
	switch strings.ToLower(s) {
	case "", "title":
		return SortByTitle, nil
	case "artist":
		return SortByArtist, nil
	case "year":
		return SortByYear, nil
	case "added", "date":
		return SortByAdded, nil
	}
	return 0, fmt.Errorf("unknown sort %q", s)
}

// AlbumFilter narrows and orders AlbumCombos. Zero value lists every
// visible album by title.
type AlbumFilter struct {
	Search        string // title or artist substring
	Tag           string
	ArtistID      string
	OnlyInLibrary bool
	OnlyLocal     bool
	IncludeHidden bool
	Sort          AlbumSort
	Descending    bool
	Limit         int
	Offset        int
}

func (f AlbumFilter) where() (string, []any) {
	conds := []string{"1 = 1"}
	var args []any

	if !f.IncludeHidden {
		conds = append(conds, "a.is_hidden = 0")
	}
	if f.OnlyInLibrary {
		conds = append(conds, "a.is_in_library = 1")
	}
	if f.OnlyLocal {
		conds = append(conds, "a.is_local = 1")
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		conds = append(conds, `(a.title LIKE ? OR EXISTS (
			SELECT 1 FROM album_artists aa JOIN artists ar ON ar.id = aa.artist_id
			WHERE aa.album_id = a.id AND ar.name LIKE ?))`)
		args = append(args, like, like)
	}
	if f.Tag != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM album_tags alt JOIN tags tg ON tg.id = alt.tag_id
			WHERE alt.album_id = a.id AND tg.name = ?)`)
		args = append(args, strings.ToLower(strings.TrimSpace(f.Tag)))
	}
	if f.ArtistID != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM album_artists aa WHERE aa.album_id = a.id AND aa.artist_id = ?)`)
		args = append(args, f.ArtistID)
	}

	return strings.Join(conds, " AND "), args
}

func (f AlbumFilter) orderBy() string {
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	switch f.Sort {
	case SortByArtist:
		return `(SELECT ar.name FROM album_artists aa JOIN artists ar ON ar.id = aa.artist_id
			WHERE aa.album_id = a.id ORDER BY aa.position LIMIT 1) COLLATE NOCASE ` + dir +
			`, a.year, a.title COLLATE NOCASE`
	case SortByYear:
		return `(a.year IS NULL OR a.year = 0), a.year ` + dir + `, a.title COLLATE NOCASE`
	case SortByAdded:
		return `a.created_at ` + dir + `, a.title COLLATE NOCASE`
	case SortByTitle:
	}
	return `a.title COLLATE NOCASE ` + dir + `, a.year`
}

// AlbumCombos lists albums matching filter.
func (l *Library) AlbumCombos(ctx context.Context, filter AlbumFilter) ([]AlbumCombo, error) {
	where, args := filter.where()
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(filter.Offset, 0))
	return l.queryAlbumCombos(ctx, where+" ORDER BY "+filter.orderBy()+" LIMIT ? OFFSET ?", args...)
}

func (l *Library) queryAlbumCombos(ctx context.Context, clause string, args ...any) ([]AlbumCombo, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+albumColumns+`,
			(SELECT COUNT(*) FROM tracks t WHERE t.album_id = a.id),
			(SELECT COALESCE(SUM(t.duration_ms), 0) FROM tracks t WHERE t.album_id = a.id)
		FROM albums a
		WHERE `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var combos []AlbumCombo
	var ids []string
	for rows.Next() {
		var c AlbumCombo
		var durationMs int64
		album, err := scanAlbum(rows, &c.TrackCount, &durationMs)
		if err != nil {
			return nil, err
		}
		c.Album = album
		c.Duration = time.Duration(durationMs) * time.Millisecond
		combos = append(combos, c)
		ids = append(ids, album.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return nil, nil
	}

	artists, err := l.albumArtists(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, err := l.albumTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range combos {
		combos[i].Artists = artists[combos[i].ID]
		combos[i].Tags = tags[combos[i].ID]
	}
	return combos, nil
}

func (l *Library) albumArtists(ctx context.Context, albumIDs []string) (map[string][]Artist, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+artistColumns+`, aa.album_id
		FROM album_artists aa JOIN artists ar ON ar.id = aa.artist_id
		WHERE aa.album_id IN (`+placeholders(len(albumIDs))+`)
		ORDER BY aa.album_id, aa.position
	`, stringArgs(albumIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]Artist)
	for rows.Next() {
		var albumID string
		a, err := scanArtist(rows, &albumID)
		if err != nil {
			return nil, err
		}
		result[albumID] = append(result[albumID], a)
	}
	return result, rows.Err()
}

func (l *Library) trackArtists(ctx context.Context, trackIDs []string) (map[string][]Artist, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+artistColumns+`, ta.track_id
		FROM track_artists ta JOIN artists ar ON ar.id = ta.artist_id
		WHERE ta.track_id IN (`+placeholders(len(trackIDs))+`)
		ORDER BY ta.track_id, ta.position
	`, stringArgs(trackIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]Artist)
	for rows.Next() {
		var trackID string
		a, err := scanArtist(rows, &trackID)
		if err != nil {
			return nil, err
		}
		result[trackID] = append(result[trackID], a)
	}
	return result, rows.Err()
}

func (l *Library) albumTags(ctx context.Context, albumIDs []string) (map[string][]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT alt.album_id, tg.name
		FROM album_tags alt JOIN tags tg ON tg.id = alt.tag_id
		WHERE alt.album_id IN (`+placeholders(len(albumIDs))+`)
		ORDER BY alt.album_id, tg.name
	`, stringArgs(albumIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var albumID, name string
		if err := rows.Scan(&albumID, &name); err != nil {
			return nil, err
		}
		result[albumID] = append(result[albumID], name)
	}
	return result, rows.Err()
}

// AlbumWithTracks loads an album with all of its tracks.
func (l *Library) AlbumWithTracks(ctx context.Context, albumID string) (AlbumWithTracks, error) {
	combos, err := l.queryAlbumCombos(ctx, "a.id = ?", albumID)
	if err != nil {
		return AlbumWithTracks{}, err
	}
	if len(combos) == 0 {
		return AlbumWithTracks{}, ErrNotFound
	}

	tracks, err := l.queryTrackCombos(ctx, `t.album_id = ?
		ORDER BY COALESCE(t.disc_number, 1), t.track_number, t.title COLLATE NOCASE`, albumID)
	if err != nil {
		return AlbumWithTracks{}, err
	}
	return AlbumWithTracks{AlbumCombo: combos[0], Tracks: tracks}, nil
}

// AlbumByExternalID finds an album by its identifier at src. For local
// albums the identifier is the path of any of its tracks.
func (l *Library) AlbumByExternalID(ctx context.Context, src Source, id string) (AlbumWithTracks, error) {
	if id == "" {
		return AlbumWithTracks{}, ErrNotFound
	}

	var clause string
	switch src {
	case SourceYouTube:
		clause = "a.youtube_playlist_id = ?"
	case SourceSpotify:
		clause = "a.spotify_id = ?"
	case SourceMusicBrainz:
		clause = "a.musicbrainz_release_id = ?"
	case SourceLastfm:
		clause = "a.lastfm_url = ?"
	case SourceLocal:
		clause = "EXISTS (SELECT 1 FROM tracks t WHERE t.album_id = a.id AND t.local_path = ?)"
	default:
		return AlbumWithTracks{}, fmt.Errorf("unknown source %q", src)
	}

	var albumID string
	err := l.db.QueryRowContext(ctx, `SELECT a.id FROM albums a WHERE `+clause+` LIMIT 1`, id).Scan(&albumID)
	if errors.Is(err, sql.ErrNoRows) {
		return AlbumWithTracks{}, ErrNotFound
	}
	if err != nil {
		return AlbumWithTracks{}, err
	}
	return l.AlbumWithTracks(ctx, albumID)
}

// queryTrackCombos selects tracks with a WHERE clause (which may carry
// ORDER BY and LIMIT) and joins albums and artists.
func (l *Library) queryTrackCombos(ctx context.Context, clause string, args ...any) ([]TrackCombo, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+trackColumns+` FROM tracks t WHERE `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var combos []TrackCombo
	var trackIDs []string
	albumIDs := make(map[string]bool)
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		combos = append(combos, TrackCombo{Track: t})
		trackIDs = append(trackIDs, t.ID)
		if t.AlbumID != "" {
			albumIDs[t.AlbumID] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return nil, nil
	}

	albums, err := l.albumsByID(ctx, albumIDs)
	if err != nil {
		return nil, err
	}
	artists, err := l.trackArtists(ctx, trackIDs)
	if err != nil {
		return nil, err
	}
	for i := range combos {
		if a, ok := albums[combos[i].AlbumID]; ok {
			combos[i].Album = a
		}
		combos[i].Artists = artists[combos[i].ID]
	}
	return combos, nil
}

func (l *Library) albumsByID(ctx context.Context, ids map[string]bool) (map[string]*Album, error) {
	result := make(map[string]*Album, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT `+albumColumns+` FROM albums a WHERE a.id IN (`+placeholders(len(list))+`)
	`, stringArgs(list)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		result[a.ID] = &a
	}
	return result, rows.Err()
}

// TrackCombo loads a single track.
func (l *Library) TrackCombo(ctx context.Context, trackID string) (TrackCombo, error) {
	combos, err := l.queryTrackCombos(ctx, "t.id = ?", trackID)
	if err != nil {
		return TrackCombo{}, err
	}
	if len(combos) == 0 {
		return TrackCombo{}, ErrNotFound
	}
	return combos[0], nil
}

// TrackCombos loads tracks by ID, preserving the order of ids. Unknown IDs
// are skipped; repeated IDs are repeated.
func (l *Library) TrackCombos(ctx context.Context, ids []string) ([]TrackCombo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	combos, err := l.queryTrackCombos(ctx, "t.id IN ("+placeholders(len(unique))+")", stringArgs(unique)...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]TrackCombo, len(combos))
	for _, c := range combos {
		byID[c.ID] = c
	}

	result := make([]TrackCombo, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// TracksByArtist returns library tracks credited to the named artist.
func (l *Library) TracksByArtist(ctx context.Context, name string) ([]TrackCombo, error) {
	return l.queryTrackCombos(ctx, `t.is_in_library = 1 AND t.id IN (
			SELECT ta.track_id FROM track_artists ta JOIN artists ar ON ar.id = ta.artist_id
			WHERE ar.name = ?)
		ORDER BY t.year, t.album_id, COALESCE(t.disc_number, 1), t.track_number`, name)
}

// RandomTracks returns up to n random library tracks not in exclude.
func (l *Library) RandomTracks(ctx context.Context, n int, exclude []string) ([]TrackCombo, error) {
	if n <= 0 {
		return nil, nil
	}
	clause := "t.is_in_library = 1"
	args := []any{}
	if len(exclude) > 0 {
		clause += " AND t.id NOT IN (" + placeholders(len(exclude)) + ")"
		args = append(args, stringArgs(exclude)...)
	}
	args = append(args, n)
	return l.queryTrackCombos(ctx, clause+" ORDER BY RANDOM() LIMIT ?", args...)
}

// ArtistCombos lists artists whose name contains search, with counts.
func (l *Library) ArtistCombos(ctx context.Context, search string) ([]ArtistCombo, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+artistColumns+`,
			(SELECT COUNT(*) FROM album_artists aa JOIN albums a ON a.id = aa.album_id
				WHERE aa.artist_id = ar.id AND a.is_hidden = 0),
			(SELECT COUNT(*) FROM track_artists ta WHERE ta.artist_id = ar.id)
		FROM artists ar
		WHERE ar.name LIKE ?
		ORDER BY ar.name COLLATE NOCASE
	`, "%"+strings.TrimSpace(search)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var combos []ArtistCombo
	for rows.Next() {
		var c ArtistCombo
		a, err := scanArtist(rows, &c.AlbumCount, &c.TrackCount)
		if err != nil {
			return nil, err
		}
		c.Artist = a
		combos = append(combos, c)
	}
	return combos, rows.Err()
}

// ArtistNames returns the names of artists with tracks in the library.
func (l *Library) ArtistNames(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT ar.name
		FROM artists ar
		JOIN track_artists ta ON ta.artist_id = ar.id
		JOIN tracks t ON t.id = ta.track_id
		WHERE t.is_in_library = 1
		ORDER BY ar.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Tags lists tags with their album counts.
func (l *Library) Tags(ctx context.Context) ([]TagCount, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT tg.name, COUNT(alt.album_id)
		FROM tags tg JOIN album_tags alt ON alt.tag_id = tg.id
		GROUP BY tg.id
		ORDER BY tg.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.AlbumCount); err != nil {
			return nil, err
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

// Counts returns artist, visible album and track totals.
func (l *Library) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := l.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM artists),
			(SELECT COUNT(*) FROM albums WHERE is_hidden = 0),
			(SELECT COUNT(*) FROM tracks)
	`).Scan(&c.Artists, &c.Albums, &c.Tracks)
	return c, err
}
