package query

import (
	"context"
	"log/slog"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// Config holds configuration for the Engine.
type Config struct {
	// MaxLimit is the largest page size a query may ask for.
	MaxLimit int

	// Logger for query activity
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxLimit: DefaultMaxLimit,
		Logger:   slog.New(slog.DiscardHandler),
	}
}

// Engine executes task queries. It keeps no state between calls; every
// Execute opens and closes its own connection.
type Engine struct {
	cache  *db.DB
	config *Config
}

// NewEngine creates an engine over cache with the default configuration.
func NewEngine(cache *db.DB) *Engine {
	return NewEngineWithConfig(cache, DefaultConfig())
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(cache *db.DB, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = DefaultMaxLimit
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{cache: cache, config: config}
}

// MaxLimit returns the configured page size ceiling.
func (e *Engine) MaxLimit() int {
	return e.config.MaxLimit
}

// Execute runs q: validate, push down, fetch, filter, sort, paginate.
// Invalid queries fail with ErrInvalidQuery before the cache is opened.
func (e *Engine) Execute(ctx context.Context, q TaskQuery) ([]schema.Task, error) {
	if err := q.Validate(e.config.MaxLimit); err != nil {
		return nil, err
	}

	plan := Compile(q)
	tasks, err := e.Select(ctx, plan)
	if err != nil {
		return nil, err
	}

	Sort(tasks, q.SortBy, q.SortDescending)
	page := Paginate(tasks, q.Offset, q.Limit)

	e.config.Logger.Debug("task query executed",
		"predicates", plan.Names(),
		"matched", len(tasks),
		"returned", len(page),
		"sort_by", string(q.SortBy),
		"offset", q.Offset,
		"limit", q.Limit)
	return page, nil
}

// Select runs both stages of plan and returns the matching tasks in fetch
// order (by id). It does not sort or paginate.
func (e *Engine) Select(ctx context.Context, plan Plan) ([]schema.Task, error) {
	conn, err := e.cache.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	candidates, err := conn.Tasks(ctx, plan.Pushdown)
	if err != nil {
		return nil, err
	}

	matched := make([]schema.Task, 0, len(candidates))
	for i := range candidates {
		if plan.Matches(&candidates[i]) {
			matched = append(matched, candidates[i])
		}
	}

	e.config.Logger.Debug("task candidates filtered",
		"candidates", len(candidates),
		"matched", len(matched))
	return matched, nil
}

// Paginate returns tasks[offset : offset+limit], clamped to the slice. The
// result is never nil.
func Paginate(tasks []schema.Task, offset, limit int) []schema.Task {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(tasks) || limit <= 0 {
		return []schema.Task{}
	}
	end := len(tasks)
	if limit < end-offset {
		end = offset + limit
	}
	return tasks[offset:end]
}
