package schema

import (
	"strings"
	"time"
)

// Task is one row of the tasks table with its payload columns parsed.
//
// Tasks are read-only projections rebuilt on every query. Attrs and Content
// are nil whenever the stored payload is missing, empty or malformed.
type Task struct {
	// ===== Identity =====
	ID         int64  `json:"id"`
	UUID       string `json:"uuid"`
	LocalUUID  string `json:"local_uuid"`
	RemoteUUID string `json:"remote_uuid"`
	ParentUUID string `json:"parent_uuid"`

	// ===== State =====
	Deleted              bool `json:"deleted"`
	Done                 bool `json:"done"`
	CalendarSyncRequired bool `json:"calendar_sync_required"`
	IsScheduledBullet    bool `json:"is_scheduled_bullet"`

	// ===== Scheduling (UTC; nil means unset) =====
	NotifyAt *time.Time `json:"notify_at"`
	Due      *time.Time `json:"due"`

	// ===== Payloads =====
	Attrs   *Attributes `json:"attrs"`
	Content Document    `json:"content"`
}

// Text returns the flattened task content, or "" when there is none.
func (t *Task) Text() string {
	return t.Content.PlainText()
}

// HasDue reports whether the task has a due date.
func (t *Task) HasDue() bool {
	return t.Due != nil
}

// MentionsNote reports whether the task points at the note with the given
// uuid: through its references, a link target, or its text.
func (t *Task) MentionsNote(uuid string) bool {
	if uuid == "" {
		return false
	}
	if t.Attrs.HasReference(uuid) {
		return true
	}
	for _, link := range t.Content.Links() {
		if containsFold(link.Attrs.Href, uuid) {
			return true
		}
	}
	return containsFold(t.Text(), uuid)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
