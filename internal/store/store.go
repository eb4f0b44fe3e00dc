// Package store opens the SQLite database and owns its schema.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "fistopy"
	dbFileName   = "fistopy.db"
	saveDebounce = 500 * time.Millisecond
)

// Store wraps the database handle and a debounced writer used for state
// that changes often, like the playback queue.
type Store struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   func(*sql.DB) error
	onError   func(error)
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return open(path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", 0)
}

// OpenDefault opens the database in the XDG data directory.
func OpenDefault() (*Store, error) {
	path, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	// every connection to :memory: is a separate database
	return open(":memory:?_pragma=foreign_keys(1)", 1)
}

func open(dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// OnSaveError registers a callback for failures of debounced saves.
func (s *Store) OnSaveError(fn func(error)) {
	s.saveMu.Lock()
	s.onError = fn
	s.saveMu.Unlock()
}

// SaveDebounced schedules fn to run after a quiet period. A later call
// replaces an earlier pending one.
func (s *Store) SaveDebounced(fn func(*sql.DB) error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.pending = fn

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}

	s.saveTimer = time.AfterFunc(saveDebounce, func() {
		s.flush()
	})
}

// Flush runs a pending debounced save immediately.
func (s *Store) Flush() {
	s.saveMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveMu.Unlock()
	s.flush()
}

func (s *Store) flush() {
	s.saveMu.Lock()
	pending := s.pending
	s.pending = nil
	onError := s.onError
	s.saveMu.Unlock()

	if pending == nil {
		return
	}
	if err := pending(s.db); err != nil && onError != nil {
		onError(err)
	}
}

// SchemaVersion returns the highest recorded schema version.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}

// Close flushes pending state and closes the database.
func (s *Store) Close() error {
	s.Flush()
	return s.db.Close()
}
