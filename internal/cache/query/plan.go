package query

import (
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// Predicate is one named in-memory filter.
type Predicate struct {
	Name  string
	Match func(*schema.Task) bool
}

// Plan is a compiled TaskQuery.
//
// Pushdown only touches native columns; Predicates run over the rows it
// returns. Pagination is never part of the plan: it runs after both stages
// and the sort.
type Plan struct {
	Pushdown   db.Filter
	Predicates []Predicate
}

// Matches reports whether t passes every predicate, in order.
func (p *Plan) Matches(t *schema.Task) bool {
	for _, pred := range p.Predicates {
		if !pred.Match(t) {
			return false
		}
	}
	return true
}

// Names returns the predicate names in evaluation order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Predicates))
	for i, pred := range p.Predicates {
		names[i] = pred.Name
	}
	return names
}

// Compile builds the plan for q. It does not validate q.
func Compile(q TaskQuery) Plan {
	var p Plan
	p.Pushdown = pushdown(q)

	add := func(name string, match func(*schema.Task) bool) {
		p.Predicates = append(p.Predicates, Predicate{Name: name, Match: match})
	}

	if q.ContentSearch != nil && *q.ContentSearch != "" {
		add("content_search", contentContains(*q.ContentSearch))
	}
	if q.DueAfter != nil || q.DueBefore != nil {
		add("due", dueWithin(q.DueAfter, q.DueBefore))
	}
	if q.MinPoints != nil || q.MaxPoints != nil {
		add("points", floatWithin(pointsOf, q.MinPoints, q.MaxPoints))
	}
	if q.MinVictoryValue != nil || q.MaxVictoryValue != nil {
		add("victory_value", floatWithin(victoryValueOf, q.MinVictoryValue, q.MaxVictoryValue))
	}
	if q.MinStreakCount != nil || q.MaxStreakCount != nil {
		add("streak_count", intWithin(streakCountOf, q.MinStreakCount, q.MaxStreakCount))
	}
	if q.CreatedAfter != nil || q.CreatedBefore != nil {
		add("created_at", intWithin(createdAtOf, q.CreatedAfter, q.CreatedBefore))
	}
	if q.CompletedAfter != nil || q.CompletedBefore != nil {
		add("completed_at", intWithin(completedAtOf, q.CompletedAfter, q.CompletedBefore))
	}
	if q.StartAfter != nil || q.StartBefore != nil {
		add("start_at", intWithin(startAtOf, q.StartAfter, q.StartBefore))
	}
	if q.FlagsFilter != nil {
		add("flags_filter", flagsMatch(*q.FlagsFilter))
	}
	if q.HasFlags != nil && *q.HasFlags != "" {
		add("has_flags", hasAllFlags(*q.HasFlags))
	}
	if q.HasDuration != nil {
		add("has_duration", hasDuration(*q.HasDuration))
	}
	if q.DurationEquals != nil {
		add("duration_equals", durationEquals(*q.DurationEquals))
	}
	if q.IsRecurring != nil {
		add("is_recurring", isRecurring(*q.IsRecurring))
	}
	if q.HasReferences != nil {
		add("has_references", hasReferences(*q.HasReferences))
	}
	if q.ReferencesUUID != nil {
		add("references_uuid", referencesUUID(*q.ReferencesUUID))
	}

	return p
}

// pushdown translates the native-column part of q into SQL. Flag and
// timestamp columns are tested with the same numeric reading AssembleTask
// applies, so a stray TEXT value is treated as unset on both sides.
//
// content_search is never pushed down. The column holds raw JSON, and a
// LIKE over it misses phrases spanning nodes, JSON-escaped characters and
// non-ASCII case variants that the flattened text matches.
func pushdown(q TaskQuery) db.Filter {
	var f db.Filter
	if !q.IncludeDeleted {
		f.Where(db.NumericZero("deleted"))
	}
	if !q.IncludeDone {
		f.Where(db.NumericZero("done"))
	}
	if q.HasDueDate != nil {
		if *q.HasDueDate {
			f.Where(db.NumericNonZero("due"))
		} else {
			f.Where(db.NumericZero("due"))
		}
	}
	return f
}
