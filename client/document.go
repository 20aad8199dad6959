package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/burntcarrot/slatepad/merge"
)

// renderLine returns the editable text of a root node. Images get a placeholder line.
func renderLine(n merge.Node) string {
	if el, ok := n.(*merge.Element); ok && el.Type == merge.TypeImage {
		return "[image " + el.URL + "]"
	}
	return merge.NodeText(n)
}

// toText renders a document as plain text, one line per root node.
func toText(doc merge.Document) string {
	lines := make([]string, len(doc))
	for i, n := range doc {
		lines[i] = renderLine(n)
	}
	return strings.Join(lines, "\n")
}

// fromText turns edited text back into a snapshot, using base (the last
// document seen from the server) for structure. A line that still renders
// the same as the base node at that index keeps the node untouched, marks and
// cursors included. A changed line becomes an element of the same type with a
// single text child carrying the marks of the first leaf. Extra lines become paragraphs.
func fromText(text string, base merge.Document) merge.Document {
	lines := strings.Split(text, "\n")
	doc := make(merge.Document, len(lines))

	for i, line := range lines {
		if i >= len(base) {
			doc[i] = paragraph(line)
			continue
		}

		n := base[i]
		if renderLine(n) == line {
			doc[i] = merge.CloneNode(n)
			continue
		}

		el, ok := n.(*merge.Element)
		if !ok || el.Type == merge.TypeImage || el.Type.IsVoid() {
			doc[i] = paragraph(line)
			continue
		}
		doc[i] = &merge.Element{
			Type:     el.Type,
			URL:      el.URL,
			ID:       el.ID,
			Extra:    el.Extra,
			Children: []merge.Node{&merge.Text{Text: line, Marks: firstMarks(el)}},
		}
	}
	return doc
}

func paragraph(text string) *merge.Element {
	return &merge.Element{Children: []merge.Node{&merge.Text{Text: text}}}
}

func firstMarks(n merge.Node) merge.Marks {
	switch n := n.(type) {
	case *merge.Text:
		return n.Marks
	case *merge.Element:
		for _, c := range n.Children {
			if t, ok := c.(*merge.Text); ok {
				return t.Marks
			}
		}
	}
	return merge.Marks{}
}

// sameDocument compares two documents by their JSON encoding.
func sameDocument(a, b merge.Document) bool {
	x, err := json.Marshal(a)
	if err != nil {
		return false
	}
	y, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(x, y)
}

// saveDocument writes doc to path as indented JSON.
func saveDocument(path string, doc merge.Document) error {
	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644) // skipcq: GSC-G302
}

// loadDocument reads a JSON document from path.
func loadDocument(path string) (merge.Document, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc merge.Document
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
