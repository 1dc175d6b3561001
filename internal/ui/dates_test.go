package ui

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) // a Wednesday

	tests := []struct {
		in   string
		want time.Time
	}{
		{"1704100000", time.Unix(1704100000, 0).UTC()},
		{"2024-02-01T08:30:00Z", time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)},
		{"2024-02-01", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in, now)
		if err != nil {
			t.Errorf("ParseTime(%q) failed: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTime_NaturalLanguage(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	got, err := ParseTime("tomorrow", now)
	if err != nil {
		t.Fatalf("ParseTime(tomorrow) failed: %v", err)
	}
	if y, m, d := got.Date(); y != 2024 || m != time.January || d != 11 {
		t.Errorf("tomorrow = %v, want 2024-01-11", got)
	}

	got, err = ParseTime("next friday", now)
	if err != nil {
		t.Fatalf("ParseTime(next friday) failed: %v", err)
	}
	if got.Weekday() != time.Friday || !got.After(now) {
		t.Errorf("next friday = %v", got)
	}
}

func TestParseTime_Invalid(t *testing.T) {
	now := time.Now()
	for _, in := range []string{"", "   ", "flibbertigibbet"} {
		if _, err := ParseTime(in, now); err == nil {
			t.Errorf("ParseTime(%q) should fail", in)
		}
	}
}

func TestParseEpoch(t *testing.T) {
	got, err := ParseEpoch("2024-01-01T00:00:00Z", time.Now())
	if err != nil {
		t.Fatalf("ParseEpoch failed: %v", err)
	}
	if got != 1704067200 {
		t.Errorf("ParseEpoch = %d, want 1704067200", got)
	}
}
