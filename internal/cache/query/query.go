// Package query evaluates declarative task queries against the Amplenote
// cache.
//
// A TaskQuery is compiled into a Plan with two stages: a SQL filter over
// native task columns, and an ordered list of in-memory predicates for
// everything that lives inside the attrs payload. The Engine runs both
// stages, sorts, and only then paginates.
package query

import (
	"errors"
	"fmt"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// ErrInvalidQuery is returned for caller input outside the legal range. It is
// always returned before any storage access.
var ErrInvalidQuery = errors.New("invalid query")

const (
	// DefaultLimit is the page size when a query does not set one.
	DefaultLimit = 20
	// DefaultMaxLimit is the page size ceiling used when none is configured.
	DefaultMaxLimit = 1000
)

// FlagsFilter selects tasks by their urgent/important flags.
type FlagsFilter string

const (
	FlagsUrgent    FlagsFilter = "urgent"    // U and not I
	FlagsImportant FlagsFilter = "important" // I and not U
	FlagsBoth      FlagsFilter = "both"      // I and U
	FlagsNone      FlagsFilter = "none"      // neither I nor U
	FlagsAny       FlagsFilter = "any"       // I or U
)

// Valid reports whether f is a known filter.
func (f FlagsFilter) Valid() bool {
	switch f {
	case FlagsUrgent, FlagsImportant, FlagsBoth, FlagsNone, FlagsAny:
		return true
	}
	return false
}

// SortKey names the field results are ordered by.
type SortKey string

const (
	SortDue          SortKey = "due"
	SortPoints       SortKey = "points"
	SortCreated      SortKey = "created"
	SortCompleted    SortKey = "completed"
	SortStart        SortKey = "start"
	SortVictoryValue SortKey = "victory_value"
	SortStreakCount  SortKey = "streak_count"
)

// SortKeys lists every accepted sort key.
var SortKeys = []SortKey{SortDue, SortPoints, SortCreated, SortCompleted, SortStart, SortVictoryValue, SortStreakCount}

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	for _, known := range SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

// TaskQuery is a declarative task filter. Every pointer field is optional and
// nil means "do not filter on this". Timestamps are epoch seconds and every
// range bound is inclusive.
type TaskQuery struct {
	// ===== Pushed down to SQL =====
	ContentSearch  *string `json:"content_search,omitempty"`
	IncludeDeleted bool    `json:"include_deleted"`
	IncludeDone    bool    `json:"include_done"`
	HasDueDate     *bool   `json:"has_due_date,omitempty"`

	// ===== Ranges =====
	DueBefore       *int64   `json:"due_before,omitempty"`
	DueAfter        *int64   `json:"due_after,omitempty"`
	MinPoints       *float64 `json:"min_points,omitempty"`
	MaxPoints       *float64 `json:"max_points,omitempty"`
	MinVictoryValue *float64 `json:"min_victory_value,omitempty"`
	MaxVictoryValue *float64 `json:"max_victory_value,omitempty"`
	MinStreakCount  *int64   `json:"min_streak_count,omitempty"`
	MaxStreakCount  *int64   `json:"max_streak_count,omitempty"`
	CreatedAfter    *int64   `json:"created_after,omitempty"`
	CreatedBefore   *int64   `json:"created_before,omitempty"`
	CompletedAfter  *int64   `json:"completed_after,omitempty"`
	CompletedBefore *int64   `json:"completed_before,omitempty"`
	StartAfter      *int64   `json:"start_after,omitempty"`
	StartBefore     *int64   `json:"start_before,omitempty"`

	// ===== Attribute predicates =====
	FlagsFilter    *FlagsFilter `json:"flags_filter,omitempty"`
	HasFlags       *string      `json:"has_flags,omitempty"`
	HasDuration    *bool        `json:"has_duration,omitempty"`
	DurationEquals *string      `json:"duration_equals,omitempty"`
	IsRecurring    *bool        `json:"is_recurring,omitempty"`
	HasReferences  *bool        `json:"has_references,omitempty"`
	ReferencesUUID *string      `json:"references_uuid,omitempty"`

	// ===== Ordering and paging =====
	SortBy         SortKey `json:"sort_by"`
	SortDescending bool    `json:"sort_descending"`
	Limit          int     `json:"limit"`
	Offset         int     `json:"offset"`
}

// New returns a query with the defaults applied: sort by due, ascending,
// first page of DefaultLimit.
func New() TaskQuery {
	return TaskQuery{SortBy: SortDue, Limit: DefaultLimit}
}

// Validate checks paging bounds and enumerated values. maxLimit <= 0 means
// DefaultMaxLimit.
func (q *TaskQuery) Validate(maxLimit int) error {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d (got %d)", ErrInvalidQuery, maxLimit, q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0 (got %d)", ErrInvalidQuery, q.Offset)
	}
	if q.FlagsFilter != nil && !q.FlagsFilter.Valid() {
		return fmt.Errorf("%w: flags_filter must be one of urgent, important, both, none, any (got %q)", ErrInvalidQuery, *q.FlagsFilter)
	}
	if !q.SortBy.Valid() {
		return fmt.Errorf("%w: unknown sort_by %q", ErrInvalidQuery, q.SortBy)
	}
	return nil
}

// UnmarshalJSON accepts both snake_case and camelCase field names (the
// camelCase name wins when both are given). Unknown keys are ignored; a known
// key of the wrong JSON type is an ErrInvalidQuery.
func (q *TaskQuery) UnmarshalJSON(data []byte) error {
	fields, err := schema.DecodeFields(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	d := decoder{fields: fields}
	out := New()

	out.ContentSearch = d.str("content_search", "contentSearch")
	out.IncludeDeleted = d.flag("include_deleted", "includeDeleted")
	out.IncludeDone = d.flag("include_done", "includeDone")
	out.HasDueDate = d.bool("has_due_date", "hasDueDate")
	out.DueBefore = d.int("due_before", "dueBefore")
	out.DueAfter = d.int("due_after", "dueAfter")
	out.MinPoints = d.float("min_points", "minPoints")
	out.MaxPoints = d.float("max_points", "maxPoints")
	out.MinVictoryValue = d.float("min_victory_value", "minVictoryValue")
	out.MaxVictoryValue = d.float("max_victory_value", "maxVictoryValue")
	out.MinStreakCount = d.int("min_streak_count", "minStreakCount")
	out.MaxStreakCount = d.int("max_streak_count", "maxStreakCount")
	out.CreatedAfter = d.int("created_after", "createdAfter")
	out.CreatedBefore = d.int("created_before", "createdBefore")
	out.CompletedAfter = d.int("completed_after", "completedAfter")
	out.CompletedBefore = d.int("completed_before", "completedBefore")
	out.StartAfter = d.int("start_after", "startAfter")
	out.StartBefore = d.int("start_before", "startBefore")
	if f := d.str("flags_filter", "flagsFilter"); f != nil {
		ff := FlagsFilter(*f)
		out.FlagsFilter = &ff
	}
	out.HasFlags = d.str("has_flags", "hasFlags")
	out.HasDuration = d.bool("has_duration", "hasDuration")
	out.DurationEquals = d.str("duration_equals", "durationEquals")
	out.IsRecurring = d.bool("is_recurring", "isRecurring")
	out.HasReferences = d.bool("has_references", "hasReferences")
	out.ReferencesUUID = d.str("references_uuid", "referencesUuid")
	if s := d.str("sort_by", "sortBy"); s != nil {
		out.SortBy = SortKey(*s)
	}
	out.SortDescending = d.flag("sort_descending", "sortDescending")
	if n := d.int("limit", ""); n != nil {
		out.Limit = int(*n)
	}
	if n := d.int("offset", ""); n != nil {
		out.Offset = int(*n)
	}

	if d.err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, d.err)
	}
	*q = out
	return nil
}

// decoder keeps the first error so field extraction reads as a flat list.
type decoder struct {
	fields schema.Fields
	err    error
}

func (d *decoder) str(canonical, alias string) *string {
	if d.err != nil {
		return nil
	}
	v, err := d.fields.String(canonical, alias)
	d.err = err
	return v
}

func (d *decoder) bool(canonical, alias string) *bool {
	if d.err != nil {
		return nil
	}
	v, err := d.fields.Bool(canonical, alias)
	d.err = err
	return v
}

func (d *decoder) flag(canonical, alias string) bool {
	v := d.bool(canonical, alias)
	return v != nil && *v
}

func (d *decoder) int(canonical, alias string) *int64 {
	if d.err != nil {
		return nil
	}
	v, err := d.fields.Int(canonical, alias)
	d.err = err
	return v
}

func (d *decoder) float(canonical, alias string) *float64 {
	if d.err != nil {
		return nil
	}
	v, err := d.fields.Float(canonical, alias)
	d.err = err
	return v
}
