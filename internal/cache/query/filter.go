package query

import (
	"strings"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// Field accessors over Attributes. Each returns nil when the bag or the
// field is absent.

func pointsOf(a *schema.Attributes) *float64       { return a.Points }
func victoryValueOf(a *schema.Attributes) *float64 { return a.VictoryValue }
func streakCountOf(a *schema.Attributes) *int64    { return a.StreakCount }
func createdAtOf(a *schema.Attributes) *int64      { return a.CreatedAt }
func completedAtOf(a *schema.Attributes) *int64    { return a.CompletedAt }
func startAtOf(a *schema.Attributes) *int64        { return a.StartAt }

// attrs wraps an attribute-scoped predicate so that a task without
// Attributes never matches.
func attrs(match func(*schema.Attributes) bool) func(*schema.Task) bool {
	return func(t *schema.Task) bool {
		return t.Attrs != nil && match(t.Attrs)
	}
}

func contentContains(needle string) func(*schema.Task) bool {
	needle = strings.ToLower(needle)
	return func(t *schema.Task) bool {
		if t.Content == nil {
			return false
		}
		return strings.Contains(strings.ToLower(t.Text()), needle)
	}
}

func dueWithin(after, before *int64) func(*schema.Task) bool {
	return func(t *schema.Task) bool {
		if t.Due == nil {
			return false
		}
		due := t.Due.Unix()
		return within(due, after, before)
	}
}

func floatWithin(field func(*schema.Attributes) *float64, lo, hi *float64) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		v := field(a)
		return v != nil && within(*v, lo, hi)
	})
}

func intWithin(field func(*schema.Attributes) *int64, lo, hi *int64) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		v := field(a)
		return v != nil && within(*v, lo, hi)
	})
}

// within reports lo <= v <= hi, with a nil bound left open.
func within[T int64 | float64](v T, lo, hi *T) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func flagsMatch(filter FlagsFilter) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		urgent := a.HasFlag(schema.FlagUrgent)
		important := a.HasFlag(schema.FlagImportant)
		switch filter {
		case FlagsUrgent:
			return urgent && !important
		case FlagsImportant:
			return important && !urgent
		case FlagsBoth:
			return urgent && important
		case FlagsNone:
			return !urgent && !important
		case FlagsAny:
			return urgent || important
		}
		return false
	})
}

func hasAllFlags(want string) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		return a.HasAllFlags(want)
	})
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

func hasDuration(want bool) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		return nonEmpty(a.Duration) == want
	})
}

func durationEquals(want string) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		return a.Duration != nil && *a.Duration == want
	})
}

func isRecurring(want bool) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		return nonEmpty(a.Repeat) == want
	})
}

func hasReferences(want bool) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		return (len(a.References) > 0) == want
	})
}

func referencesUUID(uuid string) func(*schema.Task) bool {
	return attrs(func(a *schema.Attributes) bool {
		return a.HasReference(uuid)
	})
}
