package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseTime reads a timestamp argument. It accepts epoch seconds, RFC 3339,
// a bare date (2006-01-02, midnight local time), or natural language such as
// "tomorrow" or "next friday 5pm" resolved against now.
func ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, now.Location()); err == nil {
		return t, nil
	}

	r, err := dateParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q (use epoch seconds, RFC 3339, YYYY-MM-DD or e.g. \"next friday\")", s)
	}
	return r.Time, nil
}

// ParseEpoch is ParseTime returning epoch seconds.
func ParseEpoch(s string, now time.Time) (int64, error) {
	t, err := ParseTime(s, now)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
