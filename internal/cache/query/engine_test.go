package query

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/cachetest"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

func engineFor(t *testing.T, fx *cachetest.Fixture) *Engine {
	t.Helper()
	return NewEngine(db.New(fx.Path, nil))
}

func uuids(tasks []schema.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.UUID
	}
	return out
}

func TestEngine_InvalidQueryBeforeStorage(t *testing.T) {
	// The cache file does not exist: an invalid query must fail on
	// validation, never reaching the open.
	e := NewEngine(db.New(filepath.Join(t.TempDir(), "missing.db"), nil))

	q := New()
	q.Limit = 0
	_, err := e.Execute(context.Background(), q)
	require.ErrorIs(t, err, ErrInvalidQuery)
	require.NotErrorIs(t, err, db.ErrUnavailable)

	_, err = e.Execute(context.Background(), New())
	require.ErrorIs(t, err, db.ErrDatabaseNotFound)
}

func TestEngine_DefaultExclusions(t *testing.T) {
	fx := cachetest.New(t)
	fx.AddTask(cachetest.Task{UUID: "open"})
	fx.AddTask(cachetest.Task{UUID: "done", Done: true})
	fx.AddTask(cachetest.Task{UUID: "deleted", Deleted: true})
	fx.Exec(`INSERT INTO tasks (uuid, deleted, done) VALUES ('nulls', NULL, NULL)`)

	e := engineFor(t, fx)
	ctx := context.Background()

	got, err := e.Execute(ctx, New())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"open", "nulls"}, uuids(got))

	q := New()
	q.IncludeDone = true
	q.IncludeDeleted = true
	got, err = e.Execute(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 4)
}

func TestEngine_MinPointsExcludesAttrless(t *testing.T) {
	fx := cachetest.New(t)
	fx.AddTask(cachetest.Task{UUID: "none"})
	fx.AddTask(cachetest.Task{UUID: "malformed", Attrs: `{"points": "x"}`})
	fx.AddTask(cachetest.Task{UUID: "no-points", Attrs: `{"flags": "I"}`})
	fx.AddTask(cachetest.Task{UUID: "low", Attrs: `{"points": 1}`})
	fx.AddTask(cachetest.Task{UUID: "high", Attrs: `{"points": 8}`})

	q := New()
	q.MinPoints = ptr(1.0)
	q.SortBy = SortPoints
	got, err := engineFor(t, fx).Execute(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"low", "high"}, uuids(got))
	for _, task := range got {
		require.NotNil(t, task.Attrs)
		require.GreaterOrEqual(t, *task.Attrs.Points, 1.0)
	}
}

func TestEngine_FlagsScenario(t *testing.T) {
	fx := cachetest.New(t)
	fx.AddTask(cachetest.Task{UUID: "u", Attrs: `{"flags": "U"}`})
	fx.AddTask(cachetest.Task{UUID: "i", Attrs: `{"flags": "I"}`})
	fx.AddTask(cachetest.Task{UUID: "iu", Attrs: `{"flags": "IU"}`})
	e := engineFor(t, fx)

	q := New()
	q.FlagsFilter = ptr(FlagsBoth)
	got, err := e.Execute(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"iu"}, uuids(got))

	q = New()
	q.HasFlags = ptr("IU")
	got, err = e.Execute(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"iu"}, uuids(got))
}

func TestEngine_ContentSearch(t *testing.T) {
	fx := cachetest.New(t)
	fx.AddTask(cachetest.Task{UUID: "ticket", Content: `[{"type":"paragraph","content":[
		{"type":"text","text":"Review the "},
		{"type":"link","attrs":{"href":"https://tracker/TICKET-123"},"content":[{"type":"text","text":"TICKET-123"}]},
		{"type":"text","text":" today"}]}]`})
	fx.AddTask(cachetest.Task{UUID: "href-only", Content: `[{"type":"paragraph","content":[
		{"type":"link","attrs":{"href":"https://tracker/TICKET-123"},"content":[{"type":"text","text":"the tracker"}]}]}]`})
	fx.AddTask(cachetest.Task{UUID: "broken", Content: `[{"type":"paragraph","content":[{"type":"video","text":"TICKET-123"}]}]`})
	fx.AddTask(cachetest.Task{UUID: "other", Content: `[{"type":"paragraph","content":[{"type":"text","text":"Water plants"}]}]`})

	q := New()
	q.ContentSearch = ptr("ticket-123")
	got, err := engineFor(t, fx).Execute(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"ticket"}, uuids(got))
	require.Equal(t, "Review the TICKET-123 today", got[0].Text())
}

func TestEngine_DueSortLaw(t *testing.T) {
	fx := cachetest.New(t)
	for _, task := range cachetest.GenerateTasks(60, 7) {
		fx.AddTask(task)
	}

	got, err := engineFor(t, fx).Execute(context.Background(), TaskQuery{
		IncludeDone: true, SortBy: SortDue, Limit: 1000,
	})
	require.NoError(t, err)
	require.Len(t, got, 60)

	seenUndated := false
	var last int64
	for _, task := range got {
		if task.Due == nil {
			seenUndated = true
			continue
		}
		require.False(t, seenUndated, "dated task %s after an undated one", task.UUID)
		require.GreaterOrEqual(t, task.Due.Unix(), last)
		last = task.Due.Unix()
	}
	require.True(t, seenUndated, "fixture should contain undated tasks")
}

func TestEngine_PaginationLaw(t *testing.T) {
	fx := cachetest.New(t)
	for _, task := range cachetest.GenerateTasks(80, 42) {
		fx.AddTask(task)
	}
	e := engineFor(t, fx)
	ctx := context.Background()

	queries := map[string]func(*TaskQuery){
		"default":        func(*TaskQuery) {},
		"points desc":    func(q *TaskQuery) { q.SortBy, q.SortDescending = SortPoints, true },
		"streak filter":  func(q *TaskQuery) { q.MinStreakCount = ptr(int64(1)) },
		"flags any":      func(q *TaskQuery) { q.FlagsFilter = ptr(FlagsAny); q.SortBy = SortCreated },
		"include done":   func(q *TaskQuery) { q.IncludeDone = true },
		"due after only": func(q *TaskQuery) { q.DueAfter = ptr(int64(1704100000)) },
	}

	for name, modify := range queries {
		t.Run(name, func(t *testing.T) {
			for _, k := range []int{1, 3, 7} {
				page := func(offset, limit int) []schema.Task {
					q := New()
					modify(&q)
					q.Offset, q.Limit = offset, limit
					res, err := e.Execute(ctx, q)
					require.NoError(t, err)
					return res
				}

				first := page(0, k)
				second := page(k, k)
				both := page(0, 2*k)

				require.Equal(t, ids(both), append(ids(first), ids(second)...), "k=%d", k)
				for _, id := range ids(first) {
					require.False(t, slices.Contains(ids(second), id), "k=%d: id %d on both pages", k, id)
				}
			}
		})
	}
}

func TestEngine_PaginationAfterFilter(t *testing.T) {
	fx := cachetest.New(t)
	// Ten attr-less tasks first, then three matching ones: a storage-level
	// LIMIT would return nothing for limit=3.
	for range 10 {
		fx.AddTask(cachetest.Task{UUID: "plain"})
	}
	for _, id := range []string{"a", "b", "c"} {
		fx.AddTask(cachetest.Task{UUID: id, Attrs: `{"points": 5}`})
	}

	q := New()
	q.MinPoints = ptr(5.0)
	q.Limit = 3
	got, err := engineFor(t, fx).Execute(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, uuids(got))
}

func TestEngine_ContentSearchMatchesFlattenedText(t *testing.T) {
	fx := cachetest.New(t)
	fx.AddTask(cachetest.Task{UUID: "spanning", Content: `[{"type":"paragraph","content":[
		{"type":"text","text":"Review the "},
		{"type":"link","attrs":{"href":"https://tracker/TICKET-123"},"content":[{"type":"text","text":"TICKET-123"}]}]}]`})
	fx.AddTask(cachetest.Task{UUID: "escaped", Content: `[{"type":"paragraph","content":[
		{"type":"text","text":"say \"hi\" to C:\\temp"}]}]`})
	fx.AddTask(cachetest.Task{UUID: "unicode", Content: `[{"type":"paragraph","content":[
		{"type":"text","text":"ÜBER planning"}]}]`})
	e := engineFor(t, fx)

	tests := map[string]string{
		"review the ticket": "spanning",
		`"hi" to c:\temp`:   "escaped",
		"über":              "unicode",
	}
	for needle, want := range tests {
		t.Run(needle, func(t *testing.T) {
			q := New()
			q.ContentSearch = ptr(needle)
			got, err := e.Execute(context.Background(), q)
			require.NoError(t, err)
			require.Equal(t, []string{want}, uuids(got))
		})
	}
}

func TestEngine_NonNumericColumnsReadAsUnset(t *testing.T) {
	fx := cachetest.New(t)
	fx.AddTask(cachetest.Task{UUID: "plain", Due: 1700000000})
	fx.Exec(`INSERT INTO tasks (uuid, due, done, deleted) VALUES ('textdue', 'soon', 'yes', '')`)
	fx.Exec(`INSERT INTO tasks (uuid, due) VALUES ('realdue', 1700000000.5)`)
	e := engineFor(t, fx)
	ctx := context.Background()

	got, err := e.Execute(ctx, New())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"plain", "textdue", "realdue"}, uuids(got))

	q := New()
	q.HasDueDate = ptr(true)
	got, err = e.Execute(ctx, q)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"plain", "realdue"}, uuids(got))

	q.HasDueDate = ptr(false)
	got, err = e.Execute(ctx, q)
	require.NoError(t, err)
	require.Equal(t, []string{"textdue"}, uuids(got))
}
