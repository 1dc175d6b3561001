package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Attributes
	}{
		{
			name: "empty object",
			raw:  `{}`,
			want: &Attributes{},
		},
		{
			name: "canonical names",
			raw: `{"created_at": 1700000000, "completed_at": 1700000100, "flags": "IU",
				"points": 2.5, "streak_count": 3, "duration": "PT30M", "repeat": "RRULE:FREQ=DAILY"}`,
			want: &Attributes{
				CreatedAt:   ptr(int64(1700000000)),
				CompletedAt: ptr(int64(1700000100)),
				Flags:       ptr("IU"),
				Points:      ptr(2.5),
				StreakCount: ptr(int64(3)),
				Duration:    ptr("PT30M"),
				Repeat:      ptr("RRULE:FREQ=DAILY"),
			},
		},
		{
			name: "external names",
			raw: `{"createdAt": 1, "completedAt": 2, "crossedOutAt": 3, "startAt": 4,
				"startRule": "P1D", "dueDayPart": "M", "pointsUpdatedAt": 5,
				"victoryValue": 1.5, "streakCount": 7}`,
			want: &Attributes{
				CreatedAt:       ptr(int64(1)),
				CompletedAt:     ptr(int64(2)),
				CrossedOutAt:    ptr(int64(3)),
				StartAt:         ptr(int64(4)),
				StartRule:       ptr("P1D"),
				DueDayPart:      ptr("M"),
				PointsUpdatedAt: ptr(int64(5)),
				VictoryValue:    ptr(1.5),
				StreakCount:     ptr(int64(7)),
			},
		},
		{
			name: "external name wins over canonical",
			raw:  `{"created_at": 1, "createdAt": 2}`,
			want: &Attributes{CreatedAt: ptr(int64(2))},
		},
		{
			name: "unknown keys ignored",
			raw:  `{"flags": "D", "somethingNew": {"nested": true}}`,
			want: &Attributes{Flags: ptr("D")},
		},
		{
			name: "null is absent",
			raw:  `{"points": null, "flags": null}`,
			want: &Attributes{},
		},
		{
			name: "zero is not absent",
			raw:  `{"points": 0, "streak_count": 0}`,
			want: &Attributes{Points: ptr(0.0), StreakCount: ptr(int64(0))},
		},
		{
			name: "integral float accepted for integer field",
			raw:  `{"created_at": 1700000000.0}`,
			want: &Attributes{CreatedAt: ptr(int64(1700000000))},
		},
		{
			name: "references keep order and duplicates",
			raw:  `{"references": ["b", "a", "b"]}`,
			want: &Attributes{References: []string{"b", "a", "b"}},
		},
		{
			name: "empty references present",
			raw:  `{"references": []}`,
			want: &Attributes{References: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAttributes([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseAttributes() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAttributes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAttributes_IntegerBounds(t *testing.T) {
	got, err := ParseAttributes([]byte(`{"created_at": 9223372036854775807, "start_at": -9223372036854775808, "streak_count": 1e3}`))
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	want := &Attributes{
		CreatedAt:   ptr(int64(9223372036854775807)),
		StartAt:     ptr(int64(-9223372036854775808)),
		StreakCount: ptr(int64(1000)),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseAttributes() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAttributes_EmptyVersusAbsentReferences(t *testing.T) {
	absent, err := ParseAttributes([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	empty, err := ParseAttributes([]byte(`{"references": []}`))
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	if absent.References != nil {
		t.Errorf("absent references = %#v, want nil", absent.References)
	}
	if empty.References == nil {
		t.Errorf("empty references = nil, want non-nil empty slice")
	}
}

func TestParseAttributes_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", `{"flags": "IU"`},
		{"not an object", `["flags"]`},
		{"null payload", `null`},
		{"empty input", ``},
		{"string for integer", `{"created_at": "1700000000"}`},
		{"fraction for integer", `{"streak_count": 1.5}`},
		{"integer just past int64", `{"createdAt": 9223372036854775808}`},
		{"exponent past int64", `{"streak_count": 1e19}`},
		{"integer below int64", `{"start_at": -9223372036854777856}`},
		{"number for string", `{"flags": 3}`},
		{"string for float", `{"points": "high"}`},
		{"object for references", `{"references": {"a": 1}}`},
		{"non-string reference", `{"references": ["a", 2]}`},
		{"bad value under external name", `{"victoryValue": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAttributes([]byte(tt.raw))
			if err == nil {
				t.Fatalf("ParseAttributes() = %+v, want error", got)
			}
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("error = %v, want ErrMalformedPayload", err)
			}
			if got != nil {
				t.Errorf("ParseAttributes() returned %+v alongside error", got)
			}
		})
	}
}

func TestAttributes_Flags(t *testing.T) {
	tests := []struct {
		name      string
		flags     *string
		all       string
		urgent    bool
		important bool
		hasAll    bool
	}{
		{name: "absent", flags: nil, all: "UI"},
		{name: "empty", flags: ptr(""), all: "", hasAll: true},
		{name: "urgent only", flags: ptr("U"), all: "UI", urgent: true},
		{name: "both", flags: ptr("IU"), all: "UI", urgent: true, important: true, hasAll: true},
		{name: "duplicates", flags: ptr("UIU"), all: "IUI", urgent: true, important: true, hasAll: true},
		{name: "delegated", flags: ptr("DI"), all: "D", important: true, hasAll: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Attributes{Flags: tt.flags}
			if got := a.HasFlag(FlagUrgent); got != tt.urgent {
				t.Errorf("HasFlag(U) = %v, want %v", got, tt.urgent)
			}
			if got := a.HasFlag(FlagImportant); got != tt.important {
				t.Errorf("HasFlag(I) = %v, want %v", got, tt.important)
			}
			if got := a.HasAllFlags(tt.all); got != tt.hasAll {
				t.Errorf("HasAllFlags(%q) = %v, want %v", tt.all, got, tt.hasAll)
			}
		})
	}
}

func TestAttributes_NilReceiver(t *testing.T) {
	var a *Attributes
	if a.HasFlag(FlagUrgent) {
		t.Error("nil Attributes reported a flag")
	}
	if a.HasReference("x") {
		t.Error("nil Attributes reported a reference")
	}
	if got := a.FlagString(); got != "" {
		t.Errorf("FlagString() = %q, want empty", got)
	}
}

func TestAttributes_MarshalJSON(t *testing.T) {
	a, err := ParseAttributes([]byte(`{"createdAt": 10, "victoryValue": 2, "flags": "I"}`))
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"created_at":10,"flags":"I","victory_value":2}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
