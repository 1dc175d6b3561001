package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// NotesService implements the note operations.
type NotesService struct {
	cache  *db.DB
	config *Config
}

// NewNotesService creates a note service over cache.
func NewNotesService(cache *db.DB, config *Config) *NotesService {
	return &NotesService{cache: cache, config: normalize(config)}
}

// SearchNotes runs a full-text search over note names and bodies.
func (s *NotesService) SearchNotes(ctx context.Context, text string, limit, offset int) ([]schema.NoteSearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: search text is required", ErrInvalidQuery)
	}
	if err := validatePage(limit, offset, s.config.MaxQueryLimit); err != nil {
		return nil, err
	}

	var results []schema.NoteSearchResult
	err := withConn(ctx, s.cache, func(conn *db.Conn) error {
		var err error
		results, err = conn.SearchNotes(ctx, text, limit, offset)
		return err
	})
	return results, err
}

// NoteByUUID returns the note whose remote or local uuid matches.
func (s *NotesService) NoteByUUID(ctx context.Context, uuid string) (schema.Note, bool, error) {
	if strings.TrimSpace(uuid) == "" {
		return schema.Note{}, false, fmt.Errorf("%w: uuid is required", ErrInvalidQuery)
	}

	var note schema.Note
	var ok bool
	err := withConn(ctx, s.cache, func(conn *db.Conn) error {
		var err error
		note, ok, err = conn.NoteByUUID(ctx, uuid)
		return err
	})
	return note, ok, err
}

// NoteByName returns the first note, ordered by name, whose name contains
// name case-insensitively.
func (s *NotesService) NoteByName(ctx context.Context, name string) (schema.Note, bool, error) {
	if strings.TrimSpace(name) == "" {
		return schema.Note{}, false, fmt.Errorf("%w: name is required", ErrInvalidQuery)
	}

	var note schema.Note
	var ok bool
	err := withConn(ctx, s.cache, func(conn *db.Conn) error {
		var err error
		note, ok, err = conn.NoteByName(ctx, name)
		return err
	})
	return note, ok, err
}

// ListNotes returns notes ordered by name.
func (s *NotesService) ListNotes(ctx context.Context, limit, offset int) ([]schema.NoteBasic, error) {
	if err := validatePage(limit, offset, s.config.MaxQueryLimit); err != nil {
		return nil, err
	}

	var notes []schema.NoteBasic
	err := withConn(ctx, s.cache, func(conn *db.Conn) error {
		var err error
		notes, err = conn.ListNotes(ctx, limit, offset)
		return err
	})
	return notes, err
}

// RecentNotes returns the most recently modified notes.
func (s *NotesService) RecentNotes(ctx context.Context, limit int) ([]schema.NoteWithTimestamp, error) {
	if err := validatePage(limit, 0, s.config.MaxQueryLimit); err != nil {
		return nil, err
	}

	var notes []schema.NoteWithTimestamp
	err := withConn(ctx, s.cache, func(conn *db.Conn) error {
		var err error
		notes, err = conn.RecentNotes(ctx, limit)
		return err
	})
	return notes, err
}

// NoteReferences returns the notes linking to uuid and the notes it links to.
func (s *NotesService) NoteReferences(ctx context.Context, uuid string) (schema.NoteReferences, error) {
	if strings.TrimSpace(uuid) == "" {
		return schema.NoteReferences{}, fmt.Errorf("%w: uuid is required", ErrInvalidQuery)
	}

	var refs schema.NoteReferences
	err := withConn(ctx, s.cache, func(conn *db.Conn) error {
		var err error
		refs, err = conn.NoteReferences(ctx, uuid)
		return err
	})
	return refs, err
}
