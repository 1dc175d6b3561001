package schema

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTask_MentionsNote(t *testing.T) {
	linkDoc, err := ParseDocument([]byte(`[{"type": "paragraph", "content": [
		{"type": "link", "attrs": {"href": "https://www.amplenote.com/notes/abc-123"}, "content": [{"type": "text", "text": "plan"}]}
	]}]`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	textDoc, err := ParseDocument([]byte(`[{"type": "paragraph", "content": [{"type": "text", "text": "see ABC-123"}]}]`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"reference", Task{Attrs: &Attributes{References: []string{"abc-123"}}}, true},
		{"link href", Task{Content: linkDoc}, true},
		{"text mention, case-insensitive", Task{Content: textDoc}, true},
		{"unrelated", Task{Attrs: &Attributes{References: []string{"zzz"}}}, false},
		{"empty task", Task{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.MentionsNote("abc-123"); got != tt.want {
				t.Errorf("MentionsNote() = %v, want %v", got, tt.want)
			}
		})
	}

	if (&Task{Content: textDoc}).MentionsNote("") {
		t.Error("MentionsNote(\"\") = true, want false")
	}
}

func TestTask_MarshalJSON(t *testing.T) {
	due := time.Unix(1700000000, 0).UTC()
	task := Task{ID: 7, UUID: "u-7", Due: &due, Done: true}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`"id":7`,
		`"due":"2023-11-14T22:13:20Z"`,
		`"notify_at":null`,
		`"attrs":null`,
		`"content":null`,
		`"done":true`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Marshal() = %s, missing %s", s, want)
		}
	}
}
