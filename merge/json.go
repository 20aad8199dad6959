package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The wire format is Slate's: an element is any object with a "children" key,
// a text leaf is any object with a "text" key and no "children" key.

// UnmarshalJSON decodes a list of nodes.
func (d *Document) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*d = nil
		return nil
	}
	nodes, err := decodeNodes(data)
	if err != nil {
		return err
	}
	*d = Document(nodes)
	return nil
}

// ParseNode decodes a single node of either kind.
func ParseNode(data []byte) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownNode, err)
	}
	if _, ok := fields["children"]; ok {
		e := &Element{}
		if err := e.decode(fields); err != nil {
			return nil, err
		}
		return e, nil
	}
	if _, ok := fields["text"]; ok {
		t := &Text{}
		if err := t.decode(fields); err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, ErrUnknownNode
}

func decodeNodes(data []byte) ([]Node, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	nodes := make([]Node, len(raws))
	for i, raw := range raws {
		n, err := ParseNode(raw)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i] = n
	}
	return nodes, nil
}

// UnmarshalJSON decodes an element. A children value that is not a list is kept as is.
func (e *Element) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*e = Element{}
	return e.decode(fields)
}

func (e *Element) decode(fields map[string]json.RawMessage) error {
	for k, v := range fields {
		switch k {
		case "children":
			if !isList(v) {
				e.badChildren = v
				continue
			}
			children, err := decodeNodes(v)
			if err != nil {
				return err
			}
			e.Children = children
		case "type":
			var s string
			if json.Unmarshal(v, &s) != nil {
				e.setExtra(k, v)
				continue
			}
			e.Type = ElementType(s)
		case "url":
			var s string
			if json.Unmarshal(v, &s) != nil {
				e.setExtra(k, v)
				continue
			}
			e.URL = s
		case "id":
			// Cursor ids are numbers in some clients and strings in others.
			var id json.Number
			if err := json.Unmarshal(v, &id); err == nil {
				e.ID = id.String()
				continue
			}
			var s string
			if json.Unmarshal(v, &s) != nil {
				e.setExtra(k, v)
				continue
			}
			e.ID = s
		default:
			e.setExtra(k, v)
		}
	}
	return nil
}

func (e *Element) setExtra(k string, v json.RawMessage) {
	if e.Extra == nil {
		e.Extra = make(map[string]json.RawMessage)
	}
	e.Extra[k] = v
}

// MarshalJSON encodes an element. Children are always written, as an empty list when missing.
func (e *Element) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Extra)+4)
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.Type != TypeParagraph {
		out["type"] = mustString(string(e.Type))
	}
	if e.URL != "" {
		out["url"] = mustString(e.URL)
	}
	if e.ID != "" {
		out["id"] = mustString(e.ID)
	}
	switch {
	case e.badChildren != nil:
		out["children"] = e.badChildren
	default:
		children := e.Children
		if children == nil {
			children = []Node{}
		}
		raw, err := json.Marshal(children)
		if err != nil {
			return nil, err
		}
		out["children"] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a text leaf.
func (t *Text) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*t = Text{}
	return t.decode(fields)
}

func (t *Text) decode(fields map[string]json.RawMessage) error {
	for k, v := range fields {
		var flag *bool
		switch k {
		case "text":
			if err := json.Unmarshal(v, &t.Text); err != nil {
				return fmt.Errorf("%w: text is not a string", ErrUnknownNode)
			}
			continue
		case "bold":
			flag = &t.Marks.Bold
		case "italic":
			flag = &t.Marks.Italic
		case "underline":
			flag = &t.Marks.Underline
		case "code":
			flag = &t.Marks.Code
		}
		if flag == nil || json.Unmarshal(v, flag) != nil {
			if t.Extra == nil {
				t.Extra = make(map[string]json.RawMessage)
			}
			t.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON encodes a text leaf. Only marks that are set are written.
func (t *Text) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(t.Extra)+5)
	for k, v := range t.Extra {
		out[k] = v
	}
	out["text"] = mustString(t.Text)
	marks := map[string]bool{
		"bold":      t.Marks.Bold,
		"italic":    t.Marks.Italic,
		"underline": t.Marks.Underline,
		"code":      t.Marks.Code,
	}
	for k, set := range marks {
		if set {
			out[k] = json.RawMessage("true")
		}
	}
	return json.Marshal(out)
}

func mustString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func isList(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '['
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// isSet reports whether a raw value is present and not null, false, 0 or "".
func isSet(data []byte) bool {
	switch string(bytes.TrimSpace(data)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
