package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/schema"
)

// Format selects how results are written.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat validates a --format value. An empty value picks table on a
// terminal and json otherwise.
func ParseFormat(s string, isTerminal bool) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		if isTerminal {
			return FormatTable, nil
		}
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatTable:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml or table)", s)
}

// Render writes v in the given format. A nil v is a not-found result.
func Render(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		return renderYAML(w, v)
	case FormatTable:
		return renderTable(w, v)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// renderYAML goes through JSON so field names and omitted fields match the
// JSON output exactly.
func renderYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plainNumbers(doc)); err != nil {
		return fmt.Errorf("failed to write yaml: %w", err)
	}
	return enc.Close()
}

// plainNumbers replaces json.Number with int64 or float64 so YAML prints
// epoch seconds as integers.
func plainNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, item := range v {
			v[k] = plainNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = plainNumbers(item)
		}
		return v
	}
	return v
}

func renderTable(w io.Writer, v any) error {
	var headers []string
	var rows [][]string

	switch v := v.(type) {
	case nil:
		_, err := fmt.Fprintln(w, RenderWarn("not found"))
		return err
	case []schema.Task:
		headers = []string{"ID", "Due", "Flags", "Points", "Text"}
		for _, t := range v {
			rows = append(rows, []string{strconv.FormatInt(t.ID, 10), formatTime(t.Due), t.Attrs.FlagString(), formatPoints(t.Attrs), truncate(t.Text(), 60)})
		}
	case []schema.NoteBasic:
		headers = []string{"UUID", "Local UUID", "Name"}
		for _, n := range v {
			rows = append(rows, []string{n.RemoteUUID, n.LocalUUID, n.Name})
		}
	case []schema.NoteWithTimestamp:
		headers = []string{"UUID", "Local UUID", "Name", "Updated"}
		for _, n := range v {
			rows = append(rows, []string{n.RemoteUUID, n.LocalUUID, n.Name, n.UpdatedAt})
		}
	case []schema.NoteSearchResult:
		headers = []string{"UUID", "Name", "Snippet"}
		for _, r := range v {
			rows = append(rows, []string{r.UUID, r.Name, truncate(r.Snippet, 80)})
		}
	case schema.Note:
		headers = []string{"Field", "Value"}
		rows = [][]string{
			{"uuid", v.RemoteUUID},
			{"local_uuid", v.LocalUUID},
			{"name", v.Name},
			{"text", truncate(deref(v.Text), 200)},
		}
	case schema.NoteReferences:
		headers = []string{"Direction", "UUID", "Name"}
		for _, r := range v.ReferencedBy {
			rows = append(rows, []string{"referenced by", r.UUID, deref(r.Name)})
		}
		for _, r := range v.References {
			rows = append(rows, []string{"references", r.UUID, deref(r.Name)})
		}
	default:
		return renderYAML(w, v)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, RenderMuted("no results"))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatPoints(a *schema.Attributes) string {
	if a == nil || a.Points == nil {
		return ""
	}
	return strconv.FormatFloat(*a.Points, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncate shortens s to n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
