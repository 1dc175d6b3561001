package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskQuery_UnmarshalDefaults(t *testing.T) {
	var q TaskQuery
	require.NoError(t, json.Unmarshal([]byte(`{}`), &q))

	require.Equal(t, New(), q)
	require.Equal(t, SortDue, q.SortBy)
	require.Equal(t, DefaultLimit, q.Limit)
	require.Zero(t, q.Offset)
	require.False(t, q.IncludeDeleted)
	require.False(t, q.IncludeDone)
	require.Nil(t, q.MinPoints)
}

func TestTaskQuery_UnmarshalNames(t *testing.T) {
	var q TaskQuery
	require.NoError(t, json.Unmarshal([]byte(`{
		"content_search": "ticket",
		"include_done": true,
		"has_due_date": false,
		"min_points": 2,
		"maxVictoryValue": 5.5,
		"minStreakCount": 1,
		"createdAfter": 1700000000,
		"completed_before": 1800000000,
		"startBefore": 1900000000,
		"flagsFilter": "both",
		"hasFlags": "IU",
		"hasDuration": true,
		"durationEquals": "PT1H",
		"isRecurring": false,
		"hasReferences": true,
		"referencesUuid": "note-1",
		"sortBy": "points",
		"sortDescending": true,
		"limit": 50,
		"offset": 10,
		"some_future_field": [1, 2, 3]
	}`), &q))

	require.Equal(t, "ticket", *q.ContentSearch)
	require.True(t, q.IncludeDone)
	require.False(t, *q.HasDueDate)
	require.Equal(t, 2.0, *q.MinPoints)
	require.Equal(t, 5.5, *q.MaxVictoryValue)
	require.Equal(t, int64(1), *q.MinStreakCount)
	require.Equal(t, int64(1700000000), *q.CreatedAfter)
	require.Equal(t, int64(1800000000), *q.CompletedBefore)
	require.Equal(t, int64(1900000000), *q.StartBefore)
	require.Equal(t, FlagsBoth, *q.FlagsFilter)
	require.Equal(t, "IU", *q.HasFlags)
	require.True(t, *q.HasDuration)
	require.Equal(t, "PT1H", *q.DurationEquals)
	require.False(t, *q.IsRecurring)
	require.True(t, *q.HasReferences)
	require.Equal(t, "note-1", *q.ReferencesUUID)
	require.Equal(t, SortPoints, q.SortBy)
	require.True(t, q.SortDescending)
	require.Equal(t, 50, q.Limit)
	require.Equal(t, 10, q.Offset)
}

func TestTaskQuery_UnmarshalAliasWins(t *testing.T) {
	var q TaskQuery
	require.NoError(t, json.Unmarshal([]byte(`{"sort_by": "due", "sortBy": "created"}`), &q))
	require.Equal(t, SortCreated, q.SortBy)
}

func TestTaskQuery_UnmarshalNullIsUnset(t *testing.T) {
	var q TaskQuery
	require.NoError(t, json.Unmarshal([]byte(`{"min_points": null, "limit": null, "sort_by": null}`), &q))
	require.Nil(t, q.MinPoints)
	require.Equal(t, DefaultLimit, q.Limit)
	require.Equal(t, SortDue, q.SortBy)
}

func TestTaskQuery_UnmarshalWrongTypes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"string for number", `{"min_points": "3"}`},
		{"fraction for limit", `{"limit": 2.5}`},
		{"string for bool", `{"include_done": "yes"}`},
		{"number for string", `{"has_flags": 1}`},
		{"not an object", `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q TaskQuery
			err := json.Unmarshal([]byte(tt.raw), &q)
			require.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestTaskQuery_Validate(t *testing.T) {
	bad := FlagsFilter("sometimes")

	tests := []struct {
		name    string
		modify  func(*TaskQuery)
		wantErr bool
	}{
		{"defaults", func(*TaskQuery) {}, false},
		{"limit at ceiling", func(q *TaskQuery) { q.Limit = 1000 }, false},
		{"limit zero", func(q *TaskQuery) { q.Limit = 0 }, true},
		{"limit over ceiling", func(q *TaskQuery) { q.Limit = 1001 }, true},
		{"negative offset", func(q *TaskQuery) { q.Offset = -1 }, true},
		{"unknown flags filter", func(q *TaskQuery) { q.FlagsFilter = &bad }, true},
		{"unknown sort key", func(q *TaskQuery) { q.SortBy = "priority" }, true},
		{"empty sort key", func(q *TaskQuery) { q.SortBy = "" }, true},
		{"inverted range is allowed", func(q *TaskQuery) {
			lo, hi := 5.0, 1.0
			q.MinPoints, q.MaxPoints = &lo, &hi
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			tt.modify(&q)
			err := q.Validate(1000)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidQuery)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTaskQuery_ValidateCustomCeiling(t *testing.T) {
	q := New()
	q.Limit = 50
	require.ErrorIs(t, q.Validate(25), ErrInvalidQuery)
	require.NoError(t, q.Validate(0))
}

func TestTaskQuery_MarshalRoundTrip(t *testing.T) {
	q := New()
	points := 3.0
	q.MinPoints = &points
	q.SortBy = SortStreakCount

	data, err := json.Marshal(q)
	require.NoError(t, err)

	var back TaskQuery
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, q, back)
}
