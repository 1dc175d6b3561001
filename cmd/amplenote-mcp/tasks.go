package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/query"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
	"github.com/mikekwright/amplenote-cache-mcp/internal/ui"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	GroupID: "query",
	Short:   "List, search and query tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks ordered by due date",
	Run: func(cmd *cobra.Command, args []string) {
		offset, _ := cmd.Flags().GetInt("offset")
		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
		includeDone, _ := cmd.Flags().GetBool("include-done")

		tasks, _ := newServices()
		result, err := tasks.ListTasks(cmd.Context(), limitFlag(cmd, settings.DefaultListLimit), offset, includeDeleted, includeDone)
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

var tasksSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find open tasks whose text contains the given words",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		offset, _ := cmd.Flags().GetInt("offset")

		tasks, _ := newServices()
		result, err := tasks.SearchTasks(cmd.Context(), strings.Join(args, " "), limitFlag(cmd, settings.DefaultSearchLimit), offset)
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

var tasksByNoteCmd = &cobra.Command{
	Use:   "by-note <note-uuid>",
	Short: "List tasks that reference, link to, or mention a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
		includeDone, _ := cmd.Flags().GetBool("include-done")

		tasks, _ := newServices()
		result, err := tasks.TasksByNote(cmd.Context(), args[0], includeDeleted, includeDone)
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

var tasksQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a declarative task query",
	Long: `Filter, sort and page tasks by their attributes.

Timestamp flags accept epoch seconds, RFC 3339, YYYY-MM-DD, or natural
language such as "tomorrow" or "next friday 5pm". Range bounds are
inclusive. Attribute filters skip tasks that lack the attribute.

--json takes a query object in the same shape the query_tasks tool accepts;
flags given alongside it override its fields.

Example usage:
  amplenote-mcp tasks query --flags urgent --due-before "next friday"
  amplenote-mcp tasks query --min-points 3 --sort points --desc
  amplenote-mcp tasks query --json '{"is_recurring": true, "limit": 50}'`,
	Run: func(cmd *cobra.Command, args []string) {
		q, err := buildTaskQuery(cmd, settings.DefaultListLimit, time.Now())
		if err != nil {
			fatal(err)
		}

		tasks, _ := newServices()
		result, err := tasks.QueryTasks(cmd.Context(), q)
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

// Flag names for the query command, grouped by how their values parse.
var (
	epochQueryFlags = map[string]func(*query.TaskQuery) **int64{
		"due-before":       func(q *query.TaskQuery) **int64 { return &q.DueBefore },
		"due-after":        func(q *query.TaskQuery) **int64 { return &q.DueAfter },
		"created-after":    func(q *query.TaskQuery) **int64 { return &q.CreatedAfter },
		"created-before":   func(q *query.TaskQuery) **int64 { return &q.CreatedBefore },
		"completed-after":  func(q *query.TaskQuery) **int64 { return &q.CompletedAfter },
		"completed-before": func(q *query.TaskQuery) **int64 { return &q.CompletedBefore },
		"start-after":      func(q *query.TaskQuery) **int64 { return &q.StartAfter },
		"start-before":     func(q *query.TaskQuery) **int64 { return &q.StartBefore },
	}
	floatQueryFlags = map[string]func(*query.TaskQuery) **float64{
		"min-points":        func(q *query.TaskQuery) **float64 { return &q.MinPoints },
		"max-points":        func(q *query.TaskQuery) **float64 { return &q.MaxPoints },
		"min-victory-value": func(q *query.TaskQuery) **float64 { return &q.MinVictoryValue },
		"max-victory-value": func(q *query.TaskQuery) **float64 { return &q.MaxVictoryValue },
	}
	intQueryFlags = map[string]func(*query.TaskQuery) **int64{
		"min-streak": func(q *query.TaskQuery) **int64 { return &q.MinStreakCount },
		"max-streak": func(q *query.TaskQuery) **int64 { return &q.MaxStreakCount },
	}
	stringQueryFlags = map[string]func(*query.TaskQuery) **string{
		"contains":        func(q *query.TaskQuery) **string { return &q.ContentSearch },
		"has-flags":       func(q *query.TaskQuery) **string { return &q.HasFlags },
		"duration":        func(q *query.TaskQuery) **string { return &q.DurationEquals },
		"references-note": func(q *query.TaskQuery) **string { return &q.ReferencesUUID },
	}
	triStateQueryFlags = map[string]func(*query.TaskQuery) **bool{
		"has-due":        func(q *query.TaskQuery) **bool { return &q.HasDueDate },
		"has-duration":   func(q *query.TaskQuery) **bool { return &q.HasDuration },
		"recurring":      func(q *query.TaskQuery) **bool { return &q.IsRecurring },
		"has-references": func(q *query.TaskQuery) **bool { return &q.HasReferences },
	}
)

func addTaskQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("json", "", "Query object as JSON")

	f.String("due-before", "", "Due at or before this time")
	f.String("due-after", "", "Due at or after this time")
	f.String("created-after", "", "Created at or after this time")
	f.String("created-before", "", "Created at or before this time")
	f.String("completed-after", "", "Completed at or after this time")
	f.String("completed-before", "", "Completed at or before this time")
	f.String("start-after", "", "Starts at or after this time")
	f.String("start-before", "", "Starts at or before this time")

	f.Float64("min-points", 0, "Minimum points")
	f.Float64("max-points", 0, "Maximum points")
	f.Float64("min-victory-value", 0, "Minimum victory value")
	f.Float64("max-victory-value", 0, "Maximum victory value")
	f.Int64("min-streak", 0, "Minimum streak count")
	f.Int64("max-streak", 0, "Maximum streak count")

	f.String("contains", "", "Case-insensitive substring of the task text")
	f.String("has-flags", "", "Every listed flag must be set, e.g. IU")
	f.String("duration", "", "Exact duration, e.g. PT30M")
	f.String("references-note", "", "Only tasks referencing this note uuid")

	f.Bool("has-due", false, "Only tasks with (true) or without (false) a due date")
	f.Bool("has-duration", false, "Only tasks with (true) or without (false) a duration")
	f.Bool("recurring", false, "Only recurring (true) or one-off (false) tasks")
	f.Bool("has-references", false, "Only tasks with (true) or without (false) note references")

	f.String("flags", "", "urgent, important, both, none or any")
	f.String("sort", string(query.SortDue), "Sort key: due, points, created, completed, start, victory_value, streak_count")
	f.Bool("desc", false, "Sort descending")
	f.Bool("include-deleted", false, "Include deleted tasks")
	f.Bool("include-done", false, "Include completed tasks")
	f.Int("limit", 0, "Maximum number of tasks (default from settings)")
	f.Int("offset", 0, "Number of tasks to skip")
}

// buildTaskQuery starts from --json (or an empty query) and applies every
// flag the user set explicitly.
func buildTaskQuery(cmd *cobra.Command, defaultLimit int, now time.Time) (query.TaskQuery, error) {
	f := cmd.Flags()

	q := query.New()
	q.Limit = defaultLimit
	if raw, _ := f.GetString("json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return query.TaskQuery{}, fmt.Errorf("--json: %w", err)
		}
		if fields, err := schema.DecodeFields([]byte(raw)); err == nil {
			if _, ok := fields["limit"]; !ok {
				q.Limit = defaultLimit
			}
		}
	}

	for name, field := range epochQueryFlags {
		if !f.Changed(name) {
			continue
		}
		v, _ := f.GetString(name)
		secs, err := ui.ParseEpoch(v, now)
		if err != nil {
			return query.TaskQuery{}, fmt.Errorf("--%s: %w", name, err)
		}
		*field(&q) = &secs
	}
	for name, field := range floatQueryFlags {
		if f.Changed(name) {
			v, _ := f.GetFloat64(name)
			*field(&q) = &v
		}
	}
	for name, field := range intQueryFlags {
		if f.Changed(name) {
			v, _ := f.GetInt64(name)
			*field(&q) = &v
		}
	}
	for name, field := range stringQueryFlags {
		if f.Changed(name) {
			v, _ := f.GetString(name)
			*field(&q) = &v
		}
	}
	for name, field := range triStateQueryFlags {
		if f.Changed(name) {
			v, _ := f.GetBool(name)
			*field(&q) = &v
		}
	}

	if f.Changed("flags") {
		v, _ := f.GetString("flags")
		ff := query.FlagsFilter(strings.ToLower(v))
		q.FlagsFilter = &ff
	}
	if f.Changed("sort") {
		v, _ := f.GetString("sort")
		q.SortBy = query.SortKey(strings.ToLower(v))
	}
	if f.Changed("desc") {
		q.SortDescending, _ = f.GetBool("desc")
	}
	if f.Changed("include-deleted") {
		q.IncludeDeleted, _ = f.GetBool("include-deleted")
	}
	if f.Changed("include-done") {
		q.IncludeDone, _ = f.GetBool("include-done")
	}
	if f.Changed("limit") {
		q.Limit, _ = f.GetInt("limit")
	}
	if f.Changed("offset") {
		q.Offset, _ = f.GetInt("offset")
	}
	return q, nil
}

func init() {
	for _, cmd := range []*cobra.Command{tasksListCmd, tasksSearchCmd} {
		cmd.Flags().Int("limit", 0, "Maximum number of tasks (default from settings)")
		cmd.Flags().Int("offset", 0, "Number of tasks to skip")
	}
	for _, cmd := range []*cobra.Command{tasksListCmd, tasksByNoteCmd} {
		cmd.Flags().Bool("include-deleted", false, "Include deleted tasks")
		cmd.Flags().Bool("include-done", false, "Include completed tasks")
	}
	addTaskQueryFlags(tasksQueryCmd)

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksSearchCmd)
	tasksCmd.AddCommand(tasksByNoteCmd)
	tasksCmd.AddCommand(tasksQueryCmd)
	rootCmd.AddCommand(tasksCmd)
}
