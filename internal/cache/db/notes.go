package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

const noteColumns = `remote_uuid, local_uuid, name, metadata, text, remote_content, remote_digest`

// SearchNotes runs an FTS4 MATCH against the notes index. query uses SQLite
// full-text syntax; a malformed expression is returned as an error.
func (c *Conn) SearchNotes(ctx context.Context, query string, limit, offset int) ([]schema.NoteSearchResult, error) {
	rows, err := c.conn.QueryContext(ctx, `
		SELECT n.remote_uuid, n.name,
		       snippet(notes_search_index, '[', ']', '...', -1, 32)
		FROM notes_search_index
		JOIN notes n ON notes_search_index.docid = n.rowid
		WHERE notes_search_index MATCH ?
		LIMIT ? OFFSET ?`, query, limit, offset)
	if err != nil {
		return nil, queryError("search notes", err)
	}
	defer rows.Close()

	results := []schema.NoteSearchResult{}
	for rows.Next() {
		var uuid, name, snippet sql.NullString
		if err := rows.Scan(&uuid, &name, &snippet); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, schema.NoteSearchResult{
			UUID:    uuid.String,
			Name:    name.String,
			Snippet: snippet.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("search notes", err)
	}
	return results, nil
}

// NoteByUUID looks a note up by remote or local uuid. ok is false when no
// row matches.
func (c *Conn) NoteByUUID(ctx context.Context, uuid string) (note schema.Note, ok bool, err error) {
	row := c.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE remote_uuid = ? OR local_uuid = ? LIMIT 1`,
		uuid, uuid)
	return scanNote(row)
}

// NoteByName returns the first note, by name, whose name contains name
// case-insensitively.
func (c *Conn) NoteByName(ctx context.Context, name string) (note schema.Note, ok bool, err error) {
	row := c.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE name LIKE ? ESCAPE '\' ORDER BY name LIMIT 1`,
		LikePattern(name))
	return scanNote(row)
}

func scanNote(row *sql.Row) (schema.Note, bool, error) {
	var remoteUUID, localUUID, name sql.NullString
	var metadata, text, remoteContent, remoteDigest sql.NullString
	err := row.Scan(&remoteUUID, &localUUID, &name, &metadata, &text, &remoteContent, &remoteDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Note{}, false, nil
	}
	if err != nil {
		return schema.Note{}, false, queryError("get note", err)
	}
	return schema.Note{
		RemoteUUID:    remoteUUID.String,
		LocalUUID:     localUUID.String,
		Name:          name.String,
		Metadata:      nullable(metadata),
		Text:          nullable(text),
		RemoteContent: nullable(remoteContent),
		RemoteDigest:  nullable(remoteDigest),
	}, true, nil
}

// ListNotes returns notes ordered by name.
func (c *Conn) ListNotes(ctx context.Context, limit, offset int) ([]schema.NoteBasic, error) {
	rows, err := c.conn.QueryContext(ctx, `
		SELECT remote_uuid, local_uuid, name
		FROM notes
		ORDER BY name
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, queryError("list notes", err)
	}
	defer rows.Close()

	notes := []schema.NoteBasic{}
	for rows.Next() {
		var remoteUUID, localUUID, name sql.NullString
		if err := rows.Scan(&remoteUUID, &localUUID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, schema.NoteBasic{
			RemoteUUID: remoteUUID.String,
			LocalUUID:  localUUID.String,
			Name:       name.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list notes", err)
	}
	return notes, nil
}

// RecentNotes returns the most recently updated notes first.
func (c *Conn) RecentNotes(ctx context.Context, limit int) ([]schema.NoteWithTimestamp, error) {
	rows, err := c.conn.QueryContext(ctx, `
		SELECT remote_uuid, local_uuid, name, updated_at
		FROM notes
		ORDER BY updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, queryError("list recent notes", err)
	}
	defer rows.Close()

	notes := []schema.NoteWithTimestamp{}
	for rows.Next() {
		var remoteUUID, localUUID, name, updatedAt sql.NullString
		if err := rows.Scan(&remoteUUID, &localUUID, &name, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, schema.NoteWithTimestamp{
			RemoteUUID: remoteUUID.String,
			LocalUUID:  localUUID.String,
			Name:       name.String,
			UpdatedAt:  updatedAt.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list recent notes", err)
	}
	return notes, nil
}

// NoteReferences resolves both directions of the reference graph around
// uuid. Edges whose other end has no note row are kept with a nil name.
func (c *Conn) NoteReferences(ctx context.Context, uuid string) (schema.NoteReferences, error) {
	referencedBy, err := c.referenceEdges(ctx, `
		SELECT nr.local_uuid, n.name
		FROM note_references nr
		LEFT JOIN notes n ON nr.local_uuid = n.local_uuid
		WHERE nr.referenced_uuid = ?`, uuid)
	if err != nil {
		return schema.NoteReferences{}, queryError("get referencing notes", err)
	}

	references, err := c.referenceEdges(ctx, `
		SELECT nr.referenced_uuid, n.name
		FROM note_references nr
		LEFT JOIN notes n ON nr.referenced_uuid = n.local_uuid
		WHERE nr.local_uuid = ?`, uuid)
	if err != nil {
		return schema.NoteReferences{}, queryError("get referenced notes", err)
	}

	return schema.NoteReferences{ReferencedBy: referencedBy, References: references}, nil
}

func (c *Conn) referenceEdges(ctx context.Context, query, uuid string) ([]schema.NoteReference, error) {
	rows, err := c.conn.QueryContext(ctx, query, uuid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []schema.NoteReference{}
	for rows.Next() {
		var other, name sql.NullString
		if err := rows.Scan(&other, &name); err != nil {
			return nil, err
		}
		edges = append(edges, schema.NoteReference{UUID: other.String, Name: nullable(name)})
	}
	return edges, rows.Err()
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
