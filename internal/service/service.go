// Package service exposes the public read operations over the Amplenote
// cache: task search and listing, declarative task queries, and note lookup.
//
// Every operation validates its input before touching storage and opens a
// fresh read-only connection for the duration of the call. Errors fall into
// three classes:
//
//   - ErrInvalidQuery: the caller's input is out of range
//   - ErrUnavailable: the cache file is missing or cannot be opened
//   - anything else: a query against an open cache failed
//
// A by-identity lookup that matches nothing is not an error; it returns
// ok == false.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/query"
)

var (
	// ErrInvalidQuery is re-exported from the query package.
	ErrInvalidQuery = query.ErrInvalidQuery
	// ErrUnavailable is re-exported from the db package.
	ErrUnavailable = db.ErrUnavailable
)

// Config holds configuration shared by the services.
type Config struct {
	// MaxQueryLimit is the largest page size any operation accepts.
	MaxQueryLimit int

	// Logger for service activity
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxQueryLimit: query.DefaultMaxLimit,
		Logger:        slog.New(slog.DiscardHandler),
	}
}

func normalize(config *Config) *Config {
	if config == nil {
		return DefaultConfig()
	}
	c := *config
	if c.MaxQueryLimit <= 0 {
		c.MaxQueryLimit = query.DefaultMaxLimit
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return &c
}

// validatePage rejects a limit outside 1..maxLimit or a negative offset.
func validatePage(limit, offset, maxLimit int) error {
	if limit < 1 || limit > maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d (got %d)", ErrInvalidQuery, maxLimit, limit)
	}
	if offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0 (got %d)", ErrInvalidQuery, offset)
	}
	return nil
}

// withConn opens a connection, runs fn, and closes the connection on every
// path.
func withConn(ctx context.Context, cache *db.DB, fn func(*db.Conn) error) error {
	conn, err := cache.Open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}
