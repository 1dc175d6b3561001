package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/query"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
	"github.com/mikekwright/amplenote-cache-mcp/internal/service"
)

// Deps are the services and defaults the built-in tools run against.
type Deps struct {
	Tasks *service.TasksService
	Notes *service.NotesService

	// SearchLimit is the page size for search tools when the caller omits
	// limit; ListLimit is the same for listing tools and query_tasks.
	SearchLimit int
	ListLimit   int

	Logger *slog.Logger
}

// New creates a registry holding every built-in tool.
func New(deps Deps) (*Registry, error) {
	r := NewRegistry()
	if err := Register(r, deps); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds the built-in note and task tools to r.
func Register(r *Registry, deps Deps) error {
	if deps.Tasks == nil || deps.Notes == nil {
		return errors.New("tools: tasks and notes services are required")
	}
	if deps.SearchLimit <= 0 {
		deps.SearchLimit = 10
	}
	if deps.ListLimit <= 0 {
		deps.ListLimit = query.DefaultLimit
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	for _, t := range append(noteTools(deps), taskTools(deps)...) {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// ===== Note tools =====

type pageInput struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type searchInput struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type uuidInput struct {
	UUID string `json:"uuid"`
}

type nameInput struct {
	Name string `json:"name"`
}

func noteTools(deps Deps) []Tool {
	notes := deps.Notes
	return []Tool{
		newTool(deps.Logger, Spec{
			Name:        "search_notes",
			Description: "Full-text search over note names and bodies. Returns uuid, name and a snippet with matches in [brackets].",
			InputSchema: object(map[string]any{
				"query":  str("SQLite full-text query, e.g. roadmap or \"weekly review\""),
				"limit":  integer("Maximum number of results", deps.SearchLimit),
				"offset": integer("Number of results to skip", 0),
			}, "query"),
		}, func() searchInput { return searchInput{Limit: deps.SearchLimit} },
			func(ctx context.Context, in searchInput) (any, error) {
				return notes.SearchNotes(ctx, in.Query, in.Limit, in.Offset)
			}),

		newTool(deps.Logger, Spec{
			Name:        "get_note_by_uuid",
			Description: "Fetch a note by its remote or local uuid. Returns null when no note matches.",
			InputSchema: object(map[string]any{"uuid": str("Remote or local note uuid")}, "uuid"),
		}, func() uuidInput { return uuidInput{} },
			func(ctx context.Context, in uuidInput) (any, error) {
				note, ok, err := notes.NoteByUUID(ctx, in.UUID)
				if err != nil || !ok {
					return nil, err
				}
				return note, nil
			}),

		newTool(deps.Logger, Spec{
			Name:        "get_note_by_name",
			Description: "Fetch the first note, ordered by name, whose name contains the given text (case-insensitive). Returns null when no note matches.",
			InputSchema: object(map[string]any{"name": str("Text to look for in note names")}, "name"),
		}, func() nameInput { return nameInput{} },
			func(ctx context.Context, in nameInput) (any, error) {
				note, ok, err := notes.NoteByName(ctx, in.Name)
				if err != nil || !ok {
					return nil, err
				}
				return note, nil
			}),

		newTool(deps.Logger, Spec{
			Name:        "list_notes",
			Description: "List notes ordered by name.",
			InputSchema: object(map[string]any{
				"limit":  integer("Maximum number of notes", deps.ListLimit),
				"offset": integer("Number of notes to skip", 0),
			}),
		}, func() pageInput { return pageInput{Limit: deps.ListLimit} },
			func(ctx context.Context, in pageInput) (any, error) {
				return notes.ListNotes(ctx, in.Limit, in.Offset)
			}),

		newTool(deps.Logger, Spec{
			Name:        "get_recently_modified_notes",
			Description: "List the most recently modified notes, newest first.",
			InputSchema: object(map[string]any{
				"limit": integer("Maximum number of notes", deps.ListLimit),
			}),
		}, func() pageInput { return pageInput{Limit: deps.ListLimit} },
			func(ctx context.Context, in pageInput) (any, error) {
				return notes.RecentNotes(ctx, in.Limit)
			}),

		newTool(deps.Logger, Spec{
			Name:        "get_note_references",
			Description: "List the notes that link to a note (referenced_by) and the notes it links to (references). Names are null for notes missing from the cache.",
			InputSchema: object(map[string]any{"uuid": str("Local note uuid")}, "uuid"),
		}, func() uuidInput { return uuidInput{} },
			func(ctx context.Context, in uuidInput) (any, error) {
				return notes.NoteReferences(ctx, in.UUID)
			}),
	}
}

// ===== Task tools =====

type listTasksInput struct {
	Limit          int  `json:"limit"`
	Offset         int  `json:"offset"`
	IncludeDeleted bool `json:"include_deleted"`
	IncludeDone    bool `json:"include_done"`
}

type tasksByNoteInput struct {
	NoteUUID       string `json:"note_uuid"`
	IncludeDeleted bool   `json:"include_deleted"`
	IncludeDone    bool   `json:"include_done"`
}

// queryTasksInput accepts either {"query": {...}} or the query object
// itself. limit falls back to the configured list limit.
type queryTasksInput struct {
	Query        query.TaskQuery
	defaultLimit int
}

func (in *queryTasksInput) UnmarshalJSON(data []byte) error {
	fields, err := schema.DecodeFields(data)
	if err != nil {
		return fmt.Errorf("%w: %v", query.ErrInvalidQuery, err)
	}
	if inner, ok := fields["query"]; ok && isObject(inner) {
		data = inner
		if fields, err = schema.DecodeFields(inner); err != nil {
			return fmt.Errorf("%w: %v", query.ErrInvalidQuery, err)
		}
	}

	var q query.TaskQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return err
	}
	if limit, ok := fields["limit"]; !ok || isNull(limit) {
		q.Limit = in.defaultLimit
	}
	in.Query = q
	return nil
}

func taskTools(deps Deps) []Tool {
	tasks := deps.Tasks
	return []Tool{
		newTool(deps.Logger, Spec{
			Name:        "search_tasks",
			Description: "Find open, non-deleted tasks whose text contains the given text (case-insensitive), ordered by due date.",
			InputSchema: object(map[string]any{
				"query":  str("Text to look for in task content"),
				"limit":  integer("Maximum number of tasks", deps.SearchLimit),
				"offset": integer("Number of tasks to skip", 0),
			}, "query"),
		}, func() searchInput { return searchInput{Limit: deps.SearchLimit} },
			func(ctx context.Context, in searchInput) (any, error) {
				return tasks.SearchTasks(ctx, in.Query, in.Limit, in.Offset)
			}),

		newTool(deps.Logger, Spec{
			Name:        "list_tasks",
			Description: "List tasks ordered by due date, undated tasks last. Done and deleted tasks are excluded unless requested.",
			InputSchema: object(map[string]any{
				"limit":           integer("Maximum number of tasks", deps.ListLimit),
				"offset":          integer("Number of tasks to skip", 0),
				"include_deleted": boolean("Include deleted tasks"),
				"include_done":    boolean("Include completed tasks"),
			}),
		}, func() listTasksInput { return listTasksInput{Limit: deps.ListLimit} },
			func(ctx context.Context, in listTasksInput) (any, error) {
				return tasks.ListTasks(ctx, in.Limit, in.Offset, in.IncludeDeleted, in.IncludeDone)
			}),

		newTool(deps.Logger, Spec{
			Name:        "get_tasks_by_note",
			Description: "List every task that references, links to, or mentions a note, ordered by due date.",
			InputSchema: object(map[string]any{
				"note_uuid":       str("Note uuid"),
				"include_deleted": boolean("Include deleted tasks"),
				"include_done":    boolean("Include completed tasks"),
			}, "note_uuid"),
		}, func() tasksByNoteInput { return tasksByNoteInput{} },
			func(ctx context.Context, in tasksByNoteInput) (any, error) {
				return tasks.TasksByNote(ctx, in.NoteUUID, in.IncludeDeleted, in.IncludeDone)
			}),

		newTool(deps.Logger, Spec{
			Name: "query_tasks",
			Description: "Run a declarative task query. Every filter is optional; timestamps are epoch seconds and ranges are inclusive. " +
				"Filters on task attributes exclude tasks that lack the attribute.",
			InputSchema: object(map[string]any{"query": taskQuerySchema(deps.ListLimit)}),
		}, func() queryTasksInput {
			q := query.New()
			q.Limit = deps.ListLimit
			return queryTasksInput{Query: q, defaultLimit: deps.ListLimit}
		}, func(ctx context.Context, in queryTasksInput) (any, error) {
			return tasks.QueryTasks(ctx, in.Query)
		}),
	}
}

func taskQuerySchema(defaultLimit int) map[string]any {
	epoch := func(desc string) map[string]any {
		return map[string]any{"type": "integer", "description": desc + " (epoch seconds, inclusive)"}
	}
	number := func(desc string) map[string]any {
		return map[string]any{"type": "number", "description": desc + " (inclusive)"}
	}
	sortKeys := make([]string, len(query.SortKeys))
	for i, k := range query.SortKeys {
		sortKeys[i] = string(k)
	}

	return object(map[string]any{
		"content_search":    str("Case-insensitive substring of the task text"),
		"include_deleted":   boolean("Include deleted tasks"),
		"include_done":      boolean("Include completed tasks"),
		"has_due_date":      boolean("Only tasks with (true) or without (false) a due date"),
		"due_before":        epoch("Due at or before"),
		"due_after":         epoch("Due at or after"),
		"min_points":        number("Minimum points"),
		"max_points":        number("Maximum points"),
		"min_victory_value": number("Minimum victory value"),
		"max_victory_value": number("Maximum victory value"),
		"min_streak_count":  map[string]any{"type": "integer", "description": "Minimum streak count (inclusive)"},
		"max_streak_count":  map[string]any{"type": "integer", "description": "Maximum streak count (inclusive)"},
		"created_after":     epoch("Created at or after"),
		"created_before":    epoch("Created at or before"),
		"completed_after":   epoch("Completed at or after"),
		"completed_before":  epoch("Completed at or before"),
		"start_after":       epoch("Starts at or after"),
		"start_before":      epoch("Starts at or before"),
		"flags_filter": map[string]any{
			"type":        "string",
			"enum":        []string{"urgent", "important", "both", "none", "any"},
			"description": "urgent: U without I; important: I without U; both; none; any: I or U",
		},
		"has_flags":       str("Every listed flag character must be present, e.g. \"IU\""),
		"has_duration":    boolean("Only tasks with (true) or without (false) a duration"),
		"duration_equals": str("Exact duration, e.g. PT30M"),
		"is_recurring":    boolean("Only recurring (true) or one-off (false) tasks"),
		"has_references":  boolean("Only tasks with (true) or without (false) note references"),
		"references_uuid": str("Only tasks referencing this note uuid"),
		"sort_by": map[string]any{
			"type":    "string",
			"enum":    sortKeys,
			"default": string(query.SortDue),
		},
		"sort_descending": boolean("Sort descending; undated tasks stay last when sorting by due"),
		"limit":           integer("Maximum number of tasks", defaultLimit),
		"offset":          integer("Number of tasks to skip", 0),
	})
}

// ===== Plumbing =====

// tool adapts a typed handler to the Tool interface. Arguments are decoded
// over the value returned by defaults, so omitted fields keep their default.
type tool[In any] struct {
	spec     Spec
	defaults func() In
	run      func(ctx context.Context, in In) (any, error)
	logger   *slog.Logger
}

func newTool[In any](logger *slog.Logger, spec Spec, defaults func() In, run func(context.Context, In) (any, error)) Tool {
	return &tool[In]{spec: spec, defaults: defaults, run: run, logger: logger}
}

func (t *tool[In]) Name() string { return t.spec.Name }
func (t *tool[In]) Spec() Spec   { return t.spec }

func (t *tool[In]) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	start := time.Now()
	in := t.defaults()
	if trimmed := bytes.TrimSpace(input); len(trimmed) > 0 && !isNull(trimmed) {
		if err := json.Unmarshal(trimmed, &in); err != nil {
			t.logger.Debug("tool arguments rejected", "tool", t.spec.Name, "error", err)
			return nil, classify(fmt.Errorf("invalid arguments for %s: %w", t.spec.Name, err))
		}
	}

	out, err := t.run(ctx, in)
	t.logger.Debug("tool called", "tool", t.spec.Name, "duration", time.Since(start), "error", err)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// classify maps service errors onto the two failure channels: an unavailable
// cache stays a plain error, everything else becomes a ToolError.
func classify(err error) error {
	var toolErr *ToolError
	switch {
	case errors.As(err, &toolErr):
		return err
	case errors.Is(err, service.ErrUnavailable):
		return err
	case errors.Is(err, service.ErrInvalidQuery):
		return NewToolError(err.Error(), "adjust the arguments to the documented ranges and retry")
	default:
		return NewToolError(err.Error(), "check the arguments against the tool's input schema")
	}
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func integer(desc string, def int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "default": def}
}

func boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc, "default": false}
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
