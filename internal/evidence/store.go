package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"vanguard/internal/faults"
)

// ErrLocked reports that another process holds the gallery open.
var ErrLocked = errors.New("evidence store is locked by another process")

// Options tunes a Store.
type Options struct {
	// ContentType is recorded with artifacts saved through Save.
	ContentType string
	// Clock supplies capture-time identifiers. Defaults to time.Now.
	Clock func() time.Time
}

// Store manages evidence persistence backed by SQLite.
type Store struct {
	path        string
	lockPath    string
	contentType string
	clock       func() time.Time

	openMu sync.Mutex
	db     *sql.DB
	lock   *flock.Flock

	idMu   sync.Mutex
	lastID int64
}

// New returns a store for the database at path. Nothing is opened until the
// first operation or an explicit Open.
func New(path string, opts Options) *Store {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		path:        path,
		lockPath:    strings.TrimSuffix(path, filepath.Ext(path)) + ".lock",
		contentType: opts.ContentType,
		clock:       clock,
	}
}

// Open creates a store and opens its handle immediately.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	store := New(path, opts)
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Open acquires the gallery lock and connects to the database. Calling Open
// on an already open store, or from several goroutines at once, is safe and
// leaves exactly one handle.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.handle(ctx)
	return err
}

func (s *Store) handle(ctx context.Context) (*sql.DB, error) {
	ctx = ensureContext(ctx)
	s.openMu.Lock()
	defer s.openMu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if err := s.openLocked(ctx); err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "evidence", "open", s.path, err)
	}
	return s.db, nil
}

func (s *Store) openLocked(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure data directory: %w", err)
	}

	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock: %s)", ErrLocked, s.lockPath)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		_ = lock.Unlock()
		return fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps every statement on the same handle, which gives
	// read-after-write ordering for free.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return err
	}

	var maxID sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(id) FROM artifacts").Scan(&maxID); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return fmt.Errorf("read latest artifact id: %w", err)
	}

	s.idMu.Lock()
	if maxID.Valid && maxID.Int64 > s.lastID {
		s.lastID = maxID.Int64
	}
	s.idMu.Unlock()

	s.db = db
	s.lock = lock
	return nil
}

// Close releases the database handle and the gallery lock. A closed store
// reopens on its next operation.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.openMu.Lock()
	defer s.openMu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	s.db = nil
	s.lock = nil
	return err
}
