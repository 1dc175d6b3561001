package db

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// AssembleTask converts a raw row into a Task. It never fails: 0/1 columns
// become bools, NULL or 0 timestamps become nil, and a payload that is
// missing, empty or malformed becomes nil. A flag or timestamp column holding
// a non-numeric value reads as false or nil. Malformed values are reported to
// logger at Warn level.
func AssembleTask(row TaskRow, logger *slog.Logger) schema.Task {
	t := schema.Task{
		ID:                   row.ID,
		UUID:                 row.UUID.String,
		LocalUUID:            row.LocalUUID.String,
		RemoteUUID:           row.RemoteUUID.String,
		ParentUUID:           row.ParentUUID.String,
		Deleted:              row.Deleted.NonZero,
		Done:                 row.Done.NonZero,
		CalendarSyncRequired: row.CalendarSyncRequired.NonZero,
		IsScheduledBullet:    row.IsScheduledBullet.NonZero,
		NotifyAt:             epoch(row.NotifyAt),
		Due:                  epoch(row.Due),
	}

	for _, col := range []struct {
		name  string
		value Scalar
	}{
		{"deleted", row.Deleted},
		{"done", row.Done},
		{"calendar_sync_required", row.CalendarSyncRequired},
		{"is_scheduled_bullet", row.IsScheduledBullet},
		{"notify_at", row.NotifyAt},
		{"due", row.Due},
	} {
		if col.value.Malformed {
			warnColumn(logger, row, col.name, "ignoring non-numeric task column", nil)
		}
	}

	if raw, ok := payload(row.Attrs); ok {
		attrs, err := schema.ParseAttributes([]byte(raw))
		if err != nil {
			warnColumn(logger, row, "attrs", "ignoring malformed task payload", err)
		} else {
			t.Attrs = attrs
		}
	}

	if raw, ok := payload(row.Content); ok {
		doc, err := schema.ParseDocument([]byte(raw))
		if err != nil {
			warnColumn(logger, row, "content", "ignoring malformed task payload", err)
		} else {
			t.Content = doc
		}
	}

	return t
}

func epoch(v Scalar) *time.Time {
	if !v.NonZero {
		return nil
	}
	ts := time.Unix(v.Int64, 0).UTC()
	return &ts
}

// payload returns the raw JSON text, treating NULL, blank and a literal
// JSON null as missing.
func payload(v sql.NullString) (string, bool) {
	if !v.Valid {
		return "", false
	}
	s := strings.TrimSpace(v.String)
	if s == "" || s == "null" {
		return "", false
	}
	return s, true
}

func warnColumn(logger *slog.Logger, row TaskRow, column, msg string, err error) {
	if logger == nil {
		return
	}
	args := []any{"task_id", row.ID, "uuid", row.UUID.String, "column", column}
	if err != nil {
		args = append(args, "error", err)
	}
	logger.Warn(msg, args...)
}
