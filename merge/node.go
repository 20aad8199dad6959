package merge

import (
	"encoding/json"
	"strings"
)

// ElementType is the type tag of an element node. The empty type is a plain paragraph.
type ElementType string

const (
	TypeParagraph    ElementType = ""
	TypeImage        ElementType = "image"
	TypeCursor       ElementType = "cursor"
	TypeHeadingOne   ElementType = "heading-one"
	TypeHeadingTwo   ElementType = "heading-two"
	TypeHeadingThree ElementType = "heading-three"
)

// VoidTypes lists the element types that are merged as atomic leaves.
// Their children are never recursed into.
var VoidTypes = map[ElementType]bool{
	TypeCursor: true,
}

// IsVoid reports whether elements of this type are treated as atomic during a merge.
func (t ElementType) IsVoid() bool {
	return VoidTypes[t]
}

// Node is either an *Element or a *Text.
type Node interface {
	node()
}

// Element is a node with an ordered list of children.
type Element struct {
	Type     ElementType
	URL      string
	ID       string
	Children []Node

	// Extra holds attributes this package does not know about, so they survive a round trip.
	Extra map[string]json.RawMessage

	// badChildren holds a children value that was present but not a list.
	badChildren json.RawMessage
}

// Text is a leaf node holding a run of text with its marks.
type Text struct {
	Text  string
	Marks Marks

	// Extra holds marks this package does not know about.
	Extra map[string]json.RawMessage
}

// Marks are the boolean formatting flags of a text leaf.
type Marks struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
	Code      bool `json:"code,omitempty"`
}

func (*Element) node() {}
func (*Text) node()    {}

// ChildList returns the element's children and whether they form a usable list.
// A missing children field counts as an empty list; a children field of the wrong shape does not.
func (e *Element) ChildList() ([]Node, bool) {
	if e.badChildren != nil {
		return nil, false
	}
	if e.Children == nil {
		return []Node{}, true
	}
	return e.Children, true
}

// shallow returns a copy of the element sharing its children.
func (e *Element) shallow() *Element {
	c := *e
	return &c
}

// Document is the ordered list of root-level nodes.
type Document []Node

// NewDocument returns the document every new canonical store starts with: one empty paragraph.
func NewDocument() Document {
	return Document{
		&Element{Children: []Node{&Text{}}},
	}
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneNodes(d))
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = CloneNode(n)
	}
	return out
}

// CloneNode deep-copies a single node.
func CloneNode(n Node) Node {
	switch n := n.(type) {
	case *Element:
		c := *n
		c.Children = cloneNodes(n.Children)
		c.Extra = cloneExtra(n.Extra)
		if n.badChildren != nil {
			c.badChildren = append(json.RawMessage(nil), n.badChildren...)
		}
		return &c
	case *Text:
		c := *n
		c.Extra = cloneExtra(n.Extra)
		return &c
	}
	return nil
}

func cloneExtra(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// NodeText returns the concatenated text of all leaves under n.
func NodeText(n Node) string {
	var b strings.Builder
	writeText(&b, n)
	return b.String()
}

func writeText(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Text:
		b.WriteString(n.Text)
	case *Element:
		for _, c := range n.Children {
			writeText(b, c)
		}
	}
}

// PlainText returns the text of each root node, one per line.
func (d Document) PlainText() string {
	lines := make([]string, len(d))
	for i, n := range d {
		lines[i] = NodeText(n)
	}
	return strings.Join(lines, "\n")
}
