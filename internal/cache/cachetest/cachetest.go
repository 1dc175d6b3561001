// Package cachetest builds Amplenote-shaped SQLite cache files for tests.
//
// A Fixture owns a writable connection to a fresh file under t.TempDir().
// Code under test opens the same path read-only through the db package:
//
//	fx := cachetest.New(t)
//	fx.AddNote(cachetest.Note{LocalUUID: "a", Name: "Alpha", Text: "hello"})
//	fx.AddTask(cachetest.Task{UUID: "t1", Attrs: `{"flags": "U"}`})
//	cache := db.New(fx.Path, nil)
package cachetest

import (
	"database/sql"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Schema mirrors the columns of the Amplenote desktop cache that are read.
const Schema = `
CREATE TABLE notes (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_uuid TEXT,
	local_uuid TEXT,
	name TEXT,
	metadata TEXT,
	text TEXT,
	remote_content TEXT,
	remote_digest TEXT,
	updated_at TEXT
);

CREATE TABLE tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT,
	local_uuid TEXT,
	remote_uuid TEXT,
	deleted INTEGER,
	calendar_sync_required INTEGER,
	notify_at INTEGER,
	attrs TEXT,
	content TEXT,
	due INTEGER,
	done INTEGER,
	is_scheduled_bullet INTEGER,
	parent_uuid TEXT
);

CREATE TABLE note_references (
	local_uuid TEXT,
	referenced_uuid TEXT
);

CREATE VIRTUAL TABLE notes_search_index USING fts4(content='notes', name, text);
`

// Fixture is a cache file under construction.
type Fixture struct {
	Path string

	t    testing.TB
	conn *sql.DB
}

// New creates an empty cache file with the Amplenote schema. The file is
// removed with the test's temp dir.
func New(t testing.TB) *Fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "amplenote.db")
	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("failed to open fixture database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := conn.Exec(Schema); err != nil {
		t.Fatalf("failed to create fixture schema: %v", err)
	}
	return &Fixture{Path: path, t: t, conn: conn}
}

// Exec runs arbitrary SQL against the fixture, for rows the helpers cannot
// express (NULL flags, odd column types).
func (f *Fixture) Exec(query string, args ...any) sql.Result {
	f.t.Helper()
	res, err := f.conn.Exec(query, args...)
	if err != nil {
		f.t.Fatalf("fixture exec failed: %v\n%s", err, query)
	}
	return res
}

// Task is one tasks row. Empty Attrs/Content and zero Due/NotifyAt are
// stored as NULL.
type Task struct {
	UUID                 string
	LocalUUID            string
	RemoteUUID           string
	ParentUUID           string
	Deleted              bool
	Done                 bool
	CalendarSyncRequired bool
	IsScheduledBullet    bool
	NotifyAt             int64
	Due                  int64
	Attrs                string
	Content              string
}

// AddTask inserts t and returns its id.
func (f *Fixture) AddTask(t Task) int64 {
	f.t.Helper()
	res := f.Exec(`
		INSERT INTO tasks (uuid, local_uuid, remote_uuid, deleted, calendar_sync_required,
			notify_at, attrs, content, due, done, is_scheduled_bullet, parent_uuid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UUID, t.LocalUUID, t.RemoteUUID, boolInt(t.Deleted), boolInt(t.CalendarSyncRequired),
		nullInt(t.NotifyAt), nullString(t.Attrs), nullString(t.Content), nullInt(t.Due),
		boolInt(t.Done), boolInt(t.IsScheduledBullet), t.ParentUUID)
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("failed to read task id: %v", err)
	}
	return id
}

// Note is one notes row. It is also added to the full-text index.
type Note struct {
	RemoteUUID string
	LocalUUID  string
	Name       string
	Metadata   string
	Text       string
	UpdatedAt  string
}

// AddNote inserts n and indexes its name and text.
func (f *Fixture) AddNote(n Note) {
	f.t.Helper()
	res := f.Exec(`
		INSERT INTO notes (remote_uuid, local_uuid, name, metadata, text, remote_content, remote_digest, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, NULL, ?)`,
		n.RemoteUUID, n.LocalUUID, n.Name, nullString(n.Metadata), n.Text, n.UpdatedAt)
	rowid, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("failed to read note rowid: %v", err)
	}
	f.Exec(`INSERT INTO notes_search_index (docid, name, text) VALUES (?, ?, ?)`, rowid, n.Name, n.Text)
}

// AddReference records the edge from -> to.
func (f *Fixture) AddReference(from, to string) {
	f.t.Helper()
	f.Exec(`INSERT INTO note_references (local_uuid, referenced_uuid) VALUES (?, ?)`, from, to)
}

// GenerateTasks returns count varied tasks. The same seed always yields the
// same tasks. Roughly a tenth have no attrs, a tenth have no due date, and
// flags, points and references are spread across the rest.
func GenerateTasks(count int, seed uint64) []Task {
	rng := rand.New(rand.NewPCG(seed, seed))
	flags := []string{"", "I", "U", "IU", "D", "ID"}
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).Unix()

	tasks := make([]Task, count)
	for i := range tasks {
		task := Task{
			UUID:    fmt.Sprintf("task-%05d", i),
			Done:    i%7 == 0,
			Content: fmt.Sprintf(`[{"type":"paragraph","content":[{"type":"text","text":"Generated task %d"}]}]`, i),
		}
		if i%10 != 3 {
			// Several tasks share a due date so ties exercise the stable sort.
			task.Due = base + int64(rng.IntN(count/4+1))*86400
		}
		if i%10 != 5 {
			task.Attrs = fmt.Sprintf(`{"createdAt": %d, "flags": %q, "points": %d, "streakCount": %d}`,
				base-int64(i)*3600, flags[rng.IntN(len(flags))], rng.IntN(10), rng.IntN(4))
		}
		tasks[i] = task
	}
	return tasks
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
