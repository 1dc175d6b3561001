package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node type discriminators used in the content payload.
const (
	NodeParagraph = "paragraph"
	NodeText      = "text"
	NodeLink      = "link"
	NodeHardBreak = "hard_break"
)

// Mark is a formatting mark on a text run.
type Mark string

const (
	MarkEmphasis Mark = "em"
	MarkStrong   Mark = "strong"
	MarkCode     Mark = "code"
)

func (m Mark) valid() bool {
	switch m {
	case MarkEmphasis, MarkStrong, MarkCode:
		return true
	}
	return false
}

// Document is the rich-text content of a task: an ordered list of paragraphs.
// A nil Document means the task has no (parseable) content.
type Document []Paragraph

// Paragraph holds inline nodes in order.
type Paragraph struct {
	Content []Inline
}

// Inline is one of TextNode, LinkNode or HardBreakNode. The set is closed.
type Inline interface {
	inline()
	appendText(sb *strings.Builder)
}

// TextNode is a run of text with optional marks.
type TextNode struct {
	Text  string
	Marks []Mark
}

// LinkAttrs are the attributes of a link node.
type LinkAttrs struct {
	Href        string  `json:"href"`
	Description *string `json:"description,omitempty"`
	Media       *string `json:"media,omitempty"`
}

// LinkNode is a hyperlink whose visible label is a sequence of text runs.
type LinkNode struct {
	Attrs   LinkAttrs
	Content []TextNode
}

// HardBreakNode is a forced line break.
type HardBreakNode struct {
	Marks []Mark
}

func (TextNode) inline()      {}
func (LinkNode) inline()      {}
func (HardBreakNode) inline() {}

func (n TextNode) appendText(sb *strings.Builder) { sb.WriteString(n.Text) }

func (n LinkNode) appendText(sb *strings.Builder) {
	for _, label := range n.Content {
		sb.WriteString(label.Text)
	}
}

func (HardBreakNode) appendText(sb *strings.Builder) { sb.WriteByte('\n') }

// PlainText flattens the document: text runs verbatim, link labels
// concatenated, one newline per hard break. Paragraphs are joined with no
// separator.
func (d Document) PlainText() string {
	var sb strings.Builder
	for _, p := range d {
		for _, node := range p.Content {
			node.appendText(&sb)
		}
	}
	return sb.String()
}

// Links returns every link node in document order.
func (d Document) Links() []LinkNode {
	var links []LinkNode
	for _, p := range d {
		for _, node := range p.Content {
			if link, ok := node.(LinkNode); ok {
				links = append(links, link)
			}
		}
	}
	return links
}

// rawNode is the wire shape shared by every node type.
type rawNode struct {
	Type    string             `json:"type"`
	Text    *string            `json:"text"`
	Marks   []rawMark          `json:"marks"`
	Attrs   *rawLinkAttrs      `json:"attrs"`
	Content *[]json.RawMessage `json:"content"`
}

type rawMark struct {
	Type Mark `json:"type"`
}

type rawLinkAttrs struct {
	Href        *string `json:"href"`
	Description *string `json:"description"`
	Media       *string `json:"media"`
}

// ParseDocument parses a content payload: a JSON array of paragraph nodes.
// Any unknown node type or structural mismatch fails the whole document.
func ParseDocument(raw []byte) (Document, error) {
	var paragraphs []json.RawMessage
	if err := json.Unmarshal(raw, &paragraphs); err != nil {
		return nil, fmt.Errorf("%w: content: %v", ErrMalformedPayload, err)
	}
	if paragraphs == nil {
		return nil, fmt.Errorf("%w: content: expected array, got null", ErrMalformedPayload)
	}

	doc := make(Document, 0, len(paragraphs))
	for i, item := range paragraphs {
		p, err := parseParagraph(item)
		if err != nil {
			return nil, fmt.Errorf("%w: content[%d]: %v", ErrMalformedPayload, i, err)
		}
		doc = append(doc, p)
	}
	return doc, nil
}

func decodeNode(raw json.RawMessage) (rawNode, error) {
	var n rawNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return rawNode{}, err
	}
	return n, nil
}

func parseParagraph(raw json.RawMessage) (Paragraph, error) {
	n, err := decodeNode(raw)
	if err != nil {
		return Paragraph{}, err
	}
	if n.Type != NodeParagraph {
		return Paragraph{}, fmt.Errorf("expected %s node, got %q", NodeParagraph, n.Type)
	}
	if n.Content == nil {
		return Paragraph{}, fmt.Errorf("paragraph: missing content")
	}

	p := Paragraph{Content: make([]Inline, 0, len(*n.Content))}
	for i, item := range *n.Content {
		node, err := parseInline(item)
		if err != nil {
			return Paragraph{}, fmt.Errorf("content[%d]: %w", i, err)
		}
		p.Content = append(p.Content, node)
	}
	return p, nil
}

func parseInline(raw json.RawMessage) (Inline, error) {
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	switch n.Type {
	case NodeText:
		text, err := textFromRaw(n)
		if err != nil {
			return nil, err
		}
		return text, nil
	case NodeHardBreak:
		marks, err := marksFromRaw(n.Marks)
		if err != nil {
			return nil, err
		}
		return HardBreakNode{Marks: marks}, nil
	case NodeLink:
		link, err := linkFromRaw(n)
		if err != nil {
			return nil, err
		}
		return link, nil
	default:
		return nil, fmt.Errorf("unknown inline node type %q", n.Type)
	}
}

func textFromRaw(n rawNode) (TextNode, error) {
	if n.Type != NodeText {
		return TextNode{}, fmt.Errorf("expected %s node, got %q", NodeText, n.Type)
	}
	if n.Text == nil {
		return TextNode{}, fmt.Errorf("text: missing text")
	}
	marks, err := marksFromRaw(n.Marks)
	if err != nil {
		return TextNode{}, err
	}
	return TextNode{Text: *n.Text, Marks: marks}, nil
}

func linkFromRaw(n rawNode) (LinkNode, error) {
	if n.Attrs == nil || n.Attrs.Href == nil {
		return LinkNode{}, fmt.Errorf("link: missing attrs.href")
	}
	if n.Content == nil {
		return LinkNode{}, fmt.Errorf("link: missing content")
	}

	link := LinkNode{
		Attrs: LinkAttrs{
			Href:        *n.Attrs.Href,
			Description: n.Attrs.Description,
			Media:       n.Attrs.Media,
		},
		Content: make([]TextNode, 0, len(*n.Content)),
	}
	for i, item := range *n.Content {
		child, err := decodeNode(item)
		if err != nil {
			return LinkNode{}, fmt.Errorf("link content[%d]: %w", i, err)
		}
		text, err := textFromRaw(child)
		if err != nil {
			return LinkNode{}, fmt.Errorf("link content[%d]: %w", i, err)
		}
		link.Content = append(link.Content, text)
	}
	return link, nil
}

func marksFromRaw(raw []rawMark) ([]Mark, error) {
	if raw == nil {
		return nil, nil
	}
	marks := make([]Mark, 0, len(raw))
	for _, m := range raw {
		if !m.Type.valid() {
			return nil, fmt.Errorf("unknown mark %q", m.Type)
		}
		marks = append(marks, m.Type)
	}
	return marks, nil
}

// JSON output mirrors the stored node shape.

type markJSON struct {
	Type Mark `json:"type"`
}

func marksJSON(marks []Mark) []markJSON {
	if marks == nil {
		return nil
	}
	out := make([]markJSON, len(marks))
	for i, m := range marks {
		out[i] = markJSON{Type: m}
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (n TextNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string     `json:"type"`
		Text  string     `json:"text"`
		Marks []markJSON `json:"marks,omitempty"`
	}{NodeText, n.Text, marksJSON(n.Marks)})
}

// MarshalJSON implements json.Marshaler.
func (n LinkNode) MarshalJSON() ([]byte, error) {
	content := n.Content
	if content == nil {
		content = []TextNode{}
	}
	return json.Marshal(struct {
		Type    string     `json:"type"`
		Attrs   LinkAttrs  `json:"attrs"`
		Content []TextNode `json:"content"`
	}{NodeLink, n.Attrs, content})
}

// MarshalJSON implements json.Marshaler.
func (n HardBreakNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string     `json:"type"`
		Marks []markJSON `json:"marks,omitempty"`
	}{NodeHardBreak, marksJSON(n.Marks)})
}

// MarshalJSON implements json.Marshaler.
func (p Paragraph) MarshalJSON() ([]byte, error) {
	content := p.Content
	if content == nil {
		content = []Inline{}
	}
	return json.Marshal(struct {
		Type    string   `json:"type"`
		Content []Inline `json:"content"`
	}{NodeParagraph, content})
}
