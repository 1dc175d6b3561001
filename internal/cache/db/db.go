// Package db reads the Amplenote desktop cache (a SQLite file) strictly
// read-only.
//
// The cache is owned by the Amplenote app; this package never writes to it,
// never migrates it and never keeps a connection open between calls. Each
// operation opens its own connection through DB.Open and closes it on every
// exit path:
//
//	cache := db.New("~/.config/ample-electron/amplenote.db", logger)
//	conn, err := cache.Open(ctx)
//	if err != nil {
//	    return err // errors.Is(err, db.ErrUnavailable)
//	}
//	defer conn.Close()
//
//	tasks, err := conn.Tasks(ctx, db.Filter{})
//
// Tables read:
//   - tasks: flat task columns plus the attrs and content JSON payloads
//   - notes: note rows
//   - notes_search_index: FTS4 index over notes (docid = notes.rowid)
//   - note_references: directed note-to-note edges
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrUnavailable is returned when the cache cannot be opened at all. It is
// the only error class callers are expected to treat as fatal.
var ErrUnavailable = errors.New("amplenote cache unavailable")

// ErrDatabaseNotFound is returned when the cache file does not exist. It
// wraps ErrUnavailable, and the returned error also wraps fs.ErrNotExist.
var ErrDatabaseNotFound = fmt.Errorf("%w: database file not found", ErrUnavailable)

// DB is a connection factory for one cache file. It holds no open handles
// and is safe for concurrent use.
type DB struct {
	path   string
	logger *slog.Logger
}

// New returns a factory for the cache at path. A leading "~" is expanded to
// the user's home directory. A nil logger discards diagnostics.
func New(path string, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DB{path: ExpandHome(path), logger: logger}
}

// Path returns the expanded cache path.
func (db *DB) Path() string {
	return db.path
}

// Conn is a single read-only connection. It is not shared between calls.
type Conn struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens a read-only connection to the cache.
//
// A missing file is reported as ErrDatabaseNotFound before the driver is
// involved, since opening a missing file read-only would otherwise surface as
// a generic "unable to open" driver error.
func (db *DB) Open(ctx context.Context) (*Conn, error) {
	if _, err := os.Stat(db.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrDatabaseNotFound, db.path, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	abs, err := filepath.Abs(db.path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve path: %w", ErrUnavailable, err)
	}

	conn, err := sql.Open("sqlite3", readOnlyDSN(abs))
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrUnavailable, err)
	}
	// One connection per call; nothing is pooled across calls.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}

	return &Conn{conn: conn, logger: db.logger}, nil
}

// Close releases the connection.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	c.conn = nil
	return nil
}

// unavailableCodes are SQLite result codes that mean the cache itself cannot
// be read, as opposed to a bad query against a healthy cache.
var unavailableCodes = []sqlite3.ErrorCode{
	sqlite3.BUSY,
	sqlite3.LOCKED,
	sqlite3.IOERR,
	sqlite3.CORRUPT,
	sqlite3.CANTOPEN,
	sqlite3.NOTADB,
}

// queryError wraps a failed query. Errors that leave the cache unreadable,
// including a missing table, also wrap ErrUnavailable.
func queryError(op string, err error) error {
	for _, code := range unavailableCodes {
		if errors.Is(err, code) {
			return fmt.Errorf("%w: failed to %s: %w", ErrUnavailable, op, err)
		}
	}
	if errors.Is(err, sqlite3.ERROR) && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: failed to %s: %w", ErrUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// readOnlyDSN builds a SQLite URI that opens path without write access. The
// busy timeout covers the app holding a write lock while we read.
func readOnlyDSN(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "busy_timeout(5000)")
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: q.Encode()}
	return u.String()
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// escapeLike escapes LIKE wildcards so s matches literally with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// LikePattern returns a "%s%" pattern for a literal substring match.
func LikePattern(s string) string {
	return "%" + escapeLike(s) + "%"
}
