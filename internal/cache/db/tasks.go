package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// Filter is a set of SQL conditions over native task columns, joined with
// AND. The zero Filter matches every row.
type Filter struct {
	Conditions []string
	Args       []any
}

// Where appends one condition and its arguments.
func (f *Filter) Where(cond string, args ...any) {
	f.Conditions = append(f.Conditions, cond)
	f.Args = append(f.Args, args...)
}

// NumericZero returns a condition matching rows where column holds no usable
// number or holds zero. It agrees with how AssembleTask reads the column:
// NULL, TEXT and BLOB values count as unset.
func NumericZero(column string) string {
	return fmt.Sprintf("(typeof(%[1]s) NOT IN ('integer', 'real') OR %[1]s = 0)", column)
}

// NumericNonZero is the negation of NumericZero.
func NumericNonZero(column string) string {
	return fmt.Sprintf("(typeof(%[1]s) IN ('integer', 'real') AND %[1]s != 0)", column)
}

func (f Filter) clause() string {
	if len(f.Conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.Conditions, " AND ")
}

// TaskRow is one tasks row as stored, before payload parsing.
type TaskRow struct {
	ID                   int64
	UUID                 sql.NullString
	LocalUUID            sql.NullString
	RemoteUUID           sql.NullString
	Deleted              Scalar
	CalendarSyncRequired Scalar
	NotifyAt             Scalar
	Attrs                sql.NullString
	Content              sql.NullString
	Due                  Scalar
	Done                 Scalar
	IsScheduledBullet    Scalar
	ParentUUID           sql.NullString
}

// Scalar scans an integer column without trusting its storage class. SQLite
// lets any column hold any type, so a REAL or TEXT value in a flag or
// timestamp column must not fail the scan of the whole result set.
//
// INTEGER values are used as is. REAL values are truncated toward zero when
// they fit in an int64. Everything else is marked Malformed and left unset.
type Scalar struct {
	Int64     int64
	Valid     bool
	NonZero   bool
	Malformed bool
}

// Int returns a valid Scalar holding n.
func Int(n int64) Scalar {
	return Scalar{Int64: n, Valid: true, NonZero: n != 0}
}

// Scan implements sql.Scanner. It never returns an error.
func (s *Scalar) Scan(v any) error {
	*s = Scalar{}
	switch x := v.(type) {
	case nil:
	case int64:
		*s = Int(x)
	case float64:
		if math.IsNaN(x) || x >= math.MaxInt64 || x < math.MinInt64 {
			s.Malformed = true
			return nil
		}
		s.Int64, s.Valid, s.NonZero = int64(x), true, x != 0
	default:
		s.Malformed = true
	}
	return nil
}

const taskColumns = `id, uuid, local_uuid, remote_uuid, deleted, calendar_sync_required,
	notify_at, attrs, content, due, done, is_scheduled_bullet, parent_uuid`

// FetchTasks returns the raw rows matching f, ordered by id. There is no
// LIMIT: callers filter further in memory before paginating.
func (c *Conn) FetchTasks(ctx context.Context, f Filter) ([]TaskRow, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks` + f.clause() + ` ORDER BY id`

	rows, err := c.conn.QueryContext(ctx, query, f.Args...)
	if err != nil {
		return nil, queryError("query tasks", err)
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var r TaskRow
		if err := rows.Scan(
			&r.ID,
			&r.UUID,
			&r.LocalUUID,
			&r.RemoteUUID,
			&r.Deleted,
			&r.CalendarSyncRequired,
			&r.NotifyAt,
			&r.Attrs,
			&r.Content,
			&r.Due,
			&r.Done,
			&r.IsScheduledBullet,
			&r.ParentUUID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("iterate tasks", err)
	}
	return out, nil
}

// Tasks fetches the rows matching f and assembles them. Malformed payloads
// are logged and dropped per field; they never fail the call.
func (c *Conn) Tasks(ctx context.Context, f Filter) ([]schema.Task, error) {
	rows, err := c.FetchTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	tasks := make([]schema.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, AssembleTask(row, c.logger))
	}
	return tasks, nil
}
