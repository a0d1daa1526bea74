// Package sqlite is the default storage backend: one database file is one
// origin, and every process that opens it is a separate tab.
package sqlite

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

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = time.Second

const eventBuffer = 64

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT,
	origin TEXT NOT NULL,
	revision INTEGER NOT NULL
)`
	getQuery = `SELECT value FROM kv WHERE key = ? AND value IS NOT NULL`
	setQuery = `INSERT INTO kv (key, value, origin, revision)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(revision), 0) + 1 FROM kv))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, origin = excluded.origin, revision = excluded.revision`
	removeQuery = `UPDATE kv SET value = NULL, origin = ?, revision = (SELECT COALESCE(MAX(revision), 0) + 1 FROM kv)
WHERE key = ? AND value IS NOT NULL`
	headQuery    = `SELECT COALESCE(MAX(revision), 0) FROM kv`
	changesQuery = `SELECT key, origin, revision FROM kv WHERE revision > ? ORDER BY revision`
)

var _ model.Storage = (*Storage)(nil)

// Storage keeps values in the kv table. A removed key keeps its row with a
// NULL value so the removal is visible to watchers.
type Storage struct {
	db     *sql.DB
	path   string
	id     string
	poll   time.Duration
	logger *logger.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// New opens (creating if needed) the database file at path.
func New(ctx context.Context, path string, poll time.Duration, logger *logger.Logger) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := NewWithDB(db, poll, logger)
	s.path = path

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("SQLite storage: opened",
		"path", path,
		"origin", s.id)

	return s, nil
}

// NewWithDB wraps an already opened database. The schema is not created and
// Watch relies on polling alone.
func NewWithDB(db *sql.DB, poll time.Duration, logger *logger.Logger) *Storage {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Storage{
		db:     db,
		id:     uuid.NewString(),
		poll:   poll,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *Storage) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Get returns the value for key.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}
	return value, true, nil
}

// Set overwrites key.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, setQuery, key, value, s.id); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Remove deletes key. Removing an absent key changes nothing.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, removeQuery, s.id, key); err != nil {
		return fmt.Errorf("failed to remove key: %w", err)
	}
	return nil
}

// Watch streams changes written by other handles after the call. Changes are
// picked up when the database files change on disk and on every poll tick.
func (s *Storage) Watch(ctx context.Context) (<-chan model.StorageEvent, error) {
	var cursor int64
	if err := s.db.QueryRowContext(ctx, headQuery).Scan(&cursor); err != nil {
		return nil, fmt.Errorf("failed to read head revision: %w", err)
	}

	var watcher *fsnotify.Watcher
	if s.path != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		if err := w.Add(filepath.Dir(s.path)); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch storage directory: %w", err)
		}
		watcher = w
	}

	ch := make(chan model.StorageEvent, eventBuffer)
	go s.watch(ctx, cursor, watcher, ch)

	return ch, nil
}

func (s *Storage) watch(ctx context.Context, cursor int64, watcher *fsnotify.Watcher, ch chan<- model.StorageEvent) {
	defer close(ch)

	var (
		fileEvents <-chan fsnotify.Event
		fileErrors <-chan error
	)
	if watcher != nil {
		defer watcher.Close()
		fileEvents = watcher.Events
		fileErrors = watcher.Errors
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	base := filepath.Base(s.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case ev, ok := <-fileEvents:
			if !ok {
				fileEvents = nil
				continue
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
		case err, ok := <-fileErrors:
			if !ok {
				fileErrors = nil
				continue
			}
			s.logger.Warn("SQLite storage: file watcher error",
				"error", err.Error())
			continue
		case <-ticker.C:
		}

		next, err := s.changes(ctx, cursor, ch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("SQLite storage: failed to read changes",
				"error", err.Error())
			continue
		}
		cursor = next
	}
}

// changes sends every change after cursor made by another handle and
// returns the new cursor.
func (s *Storage) changes(ctx context.Context, cursor int64, ch chan<- model.StorageEvent) (int64, error) {
	rows, err := s.db.QueryContext(ctx, changesQuery, cursor)
	if err != nil {
		return cursor, err
	}
	defer rows.Close()

	var events []model.StorageEvent
	for rows.Next() {
		var (
			ev       model.StorageEvent
			revision int64
		)
		if err := rows.Scan(&ev.Key, &ev.Origin, &revision); err != nil {
			return cursor, err
		}
		cursor = revision
		if ev.Origin != s.id {
			events = append(events, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return cursor, err
	}

	for _, ev := range events {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return cursor, ctx.Err()
		case <-s.done:
			return cursor, nil
		}
	}

	return cursor, nil
}

// Origin returns the handle id.
func (s *Storage) Origin() string {
	return s.id
}

// Close stops every watcher and closes the database.
func (s *Storage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.db.Close()
	})
	return err
}
