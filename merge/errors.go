package merge

import "errors"

// Decoding errors
var (
	// ErrUnknownNode indicates a JSON object that is neither an element nor a text leaf.
	ErrUnknownNode = errors.New("node has neither children nor text")
)

// Merge errors
var (
	// ErrMaxDepth indicates that a document nests deeper than the engine allows.
	ErrMaxDepth = errors.New("document exceeds maximum nesting depth")
)
