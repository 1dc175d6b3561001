package query

import (
	"cmp"
	"slices"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// sortValue extracts the sort key of t as a float64. ok is false when the key
// is absent.
func sortValue(key SortKey, t *schema.Task) (v float64, ok bool) {
	if key == SortDue {
		if t.Due == nil {
			return 0, false
		}
		return float64(t.Due.Unix()), true
	}

	a := t.Attrs
	if a == nil {
		return 0, false
	}
	var f *float64
	var i *int64
	switch key {
	case SortPoints:
		f = a.Points
	case SortVictoryValue:
		f = a.VictoryValue
	case SortCreated:
		i = a.CreatedAt
	case SortCompleted:
		i = a.CompletedAt
	case SortStart:
		i = a.StartAt
	case SortStreakCount:
		i = a.StreakCount
	}
	switch {
	case f != nil:
		return *f, true
	case i != nil:
		return float64(*i), true
	}
	return 0, false
}

// Sort orders tasks in place, stably, by key.
//
// A task missing the key sorts below every present value, so it comes first
// ascending and last descending. The due key is the exception: a task with
// no due date is always last, in either direction.
func Sort(tasks []schema.Task, key SortKey, descending bool) {
	slices.SortStableFunc(tasks, func(x, y schema.Task) int {
		xv, xok := sortValue(key, &x)
		yv, yok := sortValue(key, &y)

		switch {
		case !xok && !yok:
			return 0
		case !xok || !yok:
			// Absent sorts low: first ascending, last descending.
			missingFirst := !descending
			if key == SortDue {
				missingFirst = false
			}
			if !xok == missingFirst {
				return -1
			}
			return 1
		}

		c := cmp.Compare(xv, yv)
		if descending {
			c = -c
		}
		return c
	})
}
