package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/query"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// TasksService implements the task operations.
type TasksService struct {
	engine *query.Engine
	config *Config
}

// NewTasksService creates a task service over cache.
func NewTasksService(cache *db.DB, config *Config) *TasksService {
	config = normalize(config)
	engine := query.NewEngineWithConfig(cache, &query.Config{
		MaxLimit: config.MaxQueryLimit,
		Logger:   config.Logger,
	})
	return &TasksService{engine: engine, config: config}
}

// SearchTasks returns open, non-deleted tasks whose text contains text
// (case-insensitive), ordered by due date.
func (s *TasksService) SearchTasks(ctx context.Context, text string, limit, offset int) ([]schema.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: search text is required", ErrInvalidQuery)
	}
	q := query.New()
	q.ContentSearch = &text
	q.Limit, q.Offset = limit, offset
	return s.engine.Execute(ctx, q)
}

// ListTasks returns tasks ordered by due date.
func (s *TasksService) ListTasks(ctx context.Context, limit, offset int, includeDeleted, includeDone bool) ([]schema.Task, error) {
	q := query.New()
	q.Limit, q.Offset = limit, offset
	q.IncludeDeleted, q.IncludeDone = includeDeleted, includeDone
	return s.engine.Execute(ctx, q)
}

// TasksByNote returns every task pointing at the note: listed in its
// references, linked from its content, or mentioned in its text. Results are
// ordered by due date and not paginated.
func (s *TasksService) TasksByNote(ctx context.Context, noteUUID string, includeDeleted, includeDone bool) ([]schema.Task, error) {
	noteUUID = strings.TrimSpace(noteUUID)
	if noteUUID == "" {
		return nil, fmt.Errorf("%w: note uuid is required", ErrInvalidQuery)
	}

	q := query.New()
	q.IncludeDeleted, q.IncludeDone = includeDeleted, includeDone
	plan := query.Compile(q)

	pattern := db.LikePattern(noteUUID)
	plan.Pushdown.Where(`(content LIKE ? ESCAPE '\' OR attrs LIKE ? ESCAPE '\')`, pattern, pattern)
	plan.Predicates = append(plan.Predicates, query.Predicate{
		Name:  "mentions_note",
		Match: func(t *schema.Task) bool { return t.MentionsNote(noteUUID) },
	})

	tasks, err := s.engine.Select(ctx, plan)
	if err != nil {
		return nil, err
	}
	query.Sort(tasks, query.SortDue, false)
	return tasks, nil
}

// QueryTasks runs a declarative query.
func (s *TasksService) QueryTasks(ctx context.Context, q query.TaskQuery) ([]schema.Task, error) {
	return s.engine.Execute(ctx, q)
}
