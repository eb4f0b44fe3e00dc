package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fistopy.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)

	for _, table := range []string{
		"artists", "albums", "album_artists", "tracks", "track_artists", "tags", "album_tags",
		"queue_state", "queue_tracks", "playlists", "playlist_tracks", "radios", "radio_tracks",
		"lastfm_similar_artists", "lastfm_artist_top_tracks", "lastfm_user_artist_tracks",
		"lastfm_pending_scrobbles",
	} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fistopy.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO tags (name) VALUES ('rock')`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestForeignKeysEnforced(t *testing.T) {
	s := openTest(t)

	_, err := s.DB().Exec(`INSERT INTO album_tags (album_id, tag_id) VALUES ('missing', 1)`)
	assert.Error(t, err, "foreign keys must be enforced")
}

func TestSaveDebounced_CoalescesWrites(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := &Store{}

		var calls atomic.Int32
		var last atomic.Int32
		for i := 1; i <= 3; i++ {
			s.SaveDebounced(func(*sql.DB) error {
				calls.Add(1)
				last.Store(int32(i))
				return nil
			})
			time.Sleep(100 * time.Millisecond)
		}

		time.Sleep(saveDebounce)
		synctest.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, int32(3), last.Load())
	})
}

func TestFlush_RunsPendingAndReportsErrors(t *testing.T) {
	s := openTest(t)

	var reported error
	s.OnSaveError(func(err error) { reported = err })

	boom := errors.New("boom")
	s.SaveDebounced(func(*sql.DB) error { return boom })
	s.Flush()

	assert.ErrorIs(t, reported, boom)

	// nothing pending: no-op
	reported = nil
	s.Flush()
	assert.NoError(t, reported)
}

func TestPendingScrobbles(t *testing.T) {
	s := openTest(t)

	now := time.Now().Truncate(time.Second)
	require.NoError(t, s.AddPendingScrobble(PendingScrobble{
		Artist: "Radiohead", Track: "Airbag", Album: "OK Computer", DurationSecs: 284, Timestamp: now,
	}))
	require.NoError(t, s.AddPendingScrobble(PendingScrobble{
		Artist: "Old", Track: "Song", Timestamp: now.Add(-30 * 24 * time.Hour),
	}))

	pending, err := s.PendingScrobbles()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Airbag", pending[0].Track)
	assert.True(t, pending[0].Timestamp.Equal(now))

	require.NoError(t, s.MarkScrobbleAttempt(pending[0].ID, "timeout"))
	require.NoError(t, s.DeleteOldPendingScrobbles(14*24*time.Hour))

	pending, err = s.PendingScrobbles()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "timeout", pending[0].LastError)

	require.NoError(t, s.DeletePendingScrobble(pending[0].ID))
	pending, err = s.PendingScrobbles()
	require.NoError(t, err)
	assert.Empty(t, pending)
}
