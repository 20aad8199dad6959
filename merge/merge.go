// Package merge holds the rich-text document model and the snapshot merge engine.
//
// Two snapshots are merged by walking both node lists side by side and aligning
// nodes by index. There is no identity, causality or tombstone metadata: when one
// side inserts or removes a sibling, every later sibling shifts and may be paired
// with an unrelated node on the other side.
package merge

import (
	"encoding/json"
	"fmt"
)

// DefaultMaxDepth is the nesting limit used when Engine.MaxDepth is zero.
const DefaultMaxDepth = 64

// Engine merges two document snapshots into one.
type Engine struct {
	Text Reconciler

	// MaxDepth limits element nesting. Zero means DefaultMaxDepth.
	MaxDepth int
}

// DefaultEngine drops removed text segments and uses DefaultMaxDepth.
var DefaultEngine = Engine{}

// Merge merges local and remote with DefaultEngine.
// Documents nested deeper than DefaultMaxDepth are returned unmerged as local.
func Merge(local, remote Document) Document {
	doc, err := DefaultEngine.Merge(local, remote)
	if err != nil {
		return local
	}
	return doc
}

// Merge combines local and remote into a new document. Neither input is modified,
// though nodes copied verbatim share their children with the input they came from.
func (e Engine) Merge(local, remote Document) (Document, error) {
	if local == nil || remote == nil {
		if local != nil {
			return local, nil
		}
		return remote, nil
	}
	nodes, err := e.mergeLists(local, remote, 0)
	if err != nil {
		return nil, err
	}
	return Document(nodes), nil
}

func (e Engine) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

func (e Engine) mergeLists(local, remote []Node, depth int) ([]Node, error) {
	if depth > e.maxDepth() {
		return nil, fmt.Errorf("%w (%d)", ErrMaxDepth, e.maxDepth())
	}

	// The longer list decides the shape of the result; local wins ties.
	localIsReference := len(local) >= len(remote)
	n := len(local)
	if !localIsReference {
		n = len(remote)
	}

	result := make([]Node, 0, n)
	for i := 0; i < n; i++ {
		left, right := at(local, i), at(remote, i)
		reference := right
		if localIsReference {
			reference = left
		}

		switch ref := reference.(type) {
		case *Element:
			if ref.Type.IsVoid() || left == nil || right == nil {
				result = append(result, ref.shallow())
				continue
			}
			merged, err := e.mergeElement(ref, left, right, depth+1)
			if err != nil {
				return nil, err
			}
			result = append(result, merged)

		case *Text:
			if left == nil || right == nil {
				c := *ref
				result = append(result, &c)
				continue
			}
			result = append(result, &Text{
				Text:  e.Text.Combine(leafText(left), leafText(right)),
				Marks: ref.Marks,
				Extra: ref.Extra,
			})

		case nil:
			// Decoding never yields nil nodes; only documents built in code can hold one.
			continue
		}
	}
	return result, nil
}

// mergeElement builds the element at one index from the reference node's
// attributes and the merged children of both sides. If either side has no usable
// child list, a side's children are taken as they are: local's when it has a list
// or a malformed value that is set, otherwise remote's.
func (e Engine) mergeElement(ref *Element, left, right Node, depth int) (*Element, error) {
	merged := ref.shallow()
	merged.Children, merged.badChildren = nil, nil

	l, lok := childList(left)
	r, rok := childList(right)
	lraw, rraw := rawChildren(left), rawChildren(right)
	switch {
	case lok && rok:
		children, err := e.mergeLists(l, r, depth)
		if err != nil {
			return nil, err
		}
		merged.Children = children
	case lok:
		merged.Children = l
	case isSet(lraw):
		merged.badChildren = lraw
	case rok:
		merged.Children = r
	case rraw != nil:
		merged.badChildren = rraw
	default:
		merged.badChildren = lraw
	}
	return merged, nil
}

// rawChildren returns the malformed children value of n, if any.
func rawChildren(n Node) json.RawMessage {
	if el, ok := n.(*Element); ok {
		return el.badChildren
	}
	return nil
}

func childList(n Node) ([]Node, bool) {
	if el, ok := n.(*Element); ok {
		return el.ChildList()
	}
	return nil, false
}

func leafText(n Node) string {
	if t, ok := n.(*Text); ok {
		return t.Text
	}
	return ""
}

func at(nodes []Node, i int) Node {
	if i < len(nodes) {
		return nodes[i]
	}
	return nil
}
