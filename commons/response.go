package commons

import "github.com/burntcarrot/slatepad/merge"

// Response is the answer to a submitted snapshot.
// Data is only set for the caller whose request drained the queue.
type Response struct {
	Success bool           `json:"success"`
	Data    merge.Document `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Identity is handed out by the login stub. There is no authentication.
type Identity struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}
