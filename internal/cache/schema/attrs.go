package schema

import (
	"fmt"
	"strings"
)

// Task flag characters. A flags string packs independent markers; order and
// repetition carry no meaning.
const (
	FlagImportant = 'I'
	FlagUrgent    = 'U'
	FlagDelegated = 'D'
)

// Attributes is the sparse metadata bag stored in a task's attrs column.
//
// Every field is optional and a nil field means the key was absent. Zero is a
// real value and is never used to stand in for "absent".
type Attributes struct {
	// Timestamps, epoch seconds.
	CreatedAt       *int64 `json:"created_at,omitempty"`
	CompletedAt     *int64 `json:"completed_at,omitempty"`
	CrossedOutAt    *int64 `json:"crossed_out_at,omitempty"`
	StartAt         *int64 `json:"start_at,omitempty"`
	PointsUpdatedAt *int64 `json:"points_updated_at,omitempty"`

	// ISO 8601 durations and recurrence rules. Kept opaque.
	Notify    *string `json:"notify,omitempty"`
	Duration  *string `json:"duration,omitempty"`
	Repeat    *string `json:"repeat,omitempty"`
	StartRule *string `json:"start_rule,omitempty"`

	DueDayPart *string `json:"due_day_part,omitempty"`
	Flags      *string `json:"flags,omitempty"`

	Points       *float64 `json:"points,omitempty"`
	VictoryValue *float64 `json:"victory_value,omitempty"`
	StreakCount  *int64   `json:"streak_count,omitempty"`

	// References keeps order and duplicates. nil means absent; an empty
	// non-nil slice means the key was present with no entries.
	References []string `json:"references,omitempty"`
}

// ParseAttributes parses an attrs payload. Unknown keys are ignored; a known
// key holding the wrong JSON type fails the whole payload.
func ParseAttributes(raw []byte) (*Attributes, error) {
	fields, err := DecodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: attrs: %v", ErrMalformedPayload, err)
	}

	var a Attributes
	p := attrParser{fields: fields}
	a.CreatedAt = p.int("created_at", "createdAt")
	a.CompletedAt = p.int("completed_at", "completedAt")
	a.CrossedOutAt = p.int("crossed_out_at", "crossedOutAt")
	a.StartAt = p.int("start_at", "startAt")
	a.PointsUpdatedAt = p.int("points_updated_at", "pointsUpdatedAt")
	a.Notify = p.str("notify", "")
	a.Duration = p.str("duration", "")
	a.Repeat = p.str("repeat", "")
	a.StartRule = p.str("start_rule", "startRule")
	a.DueDayPart = p.str("due_day_part", "dueDayPart")
	a.Flags = p.str("flags", "")
	a.Points = p.float("points", "")
	a.VictoryValue = p.float("victory_value", "victoryValue")
	a.StreakCount = p.int("streak_count", "streakCount")
	a.References = p.strings("references", "")

	if p.err != nil {
		return nil, fmt.Errorf("%w: attrs: %v", ErrMalformedPayload, p.err)
	}
	return &a, nil
}

// attrParser keeps the first error so field extraction reads as a flat list.
type attrParser struct {
	fields Fields
	err    error
}

func (p *attrParser) int(canonical, alias string) *int64 {
	if p.err != nil {
		return nil
	}
	v, err := p.fields.Int(canonical, alias)
	p.err = err
	return v
}

func (p *attrParser) float(canonical, alias string) *float64 {
	if p.err != nil {
		return nil
	}
	v, err := p.fields.Float(canonical, alias)
	p.err = err
	return v
}

func (p *attrParser) str(canonical, alias string) *string {
	if p.err != nil {
		return nil
	}
	v, err := p.fields.String(canonical, alias)
	p.err = err
	return v
}

func (p *attrParser) strings(canonical, alias string) []string {
	if p.err != nil {
		return nil
	}
	v, err := p.fields.Strings(canonical, alias)
	p.err = err
	return v
}

// FlagString returns the flags string, or "" when the key is absent.
func (a *Attributes) FlagString() string {
	if a == nil || a.Flags == nil {
		return ""
	}
	return *a.Flags
}

// HasFlag reports whether flag appears anywhere in the flags string.
func (a *Attributes) HasFlag(flag rune) bool {
	return strings.ContainsRune(a.FlagString(), flag)
}

// HasAllFlags reports whether every character of want is set.
func (a *Attributes) HasAllFlags(want string) bool {
	flags := a.FlagString()
	for _, r := range want {
		if !strings.ContainsRune(flags, r) {
			return false
		}
	}
	return true
}

// HasReference reports whether uuid is among the references.
func (a *Attributes) HasReference(uuid string) bool {
	if a == nil {
		return false
	}
	for _, ref := range a.References {
		if ref == uuid {
			return true
		}
	}
	return false
}
