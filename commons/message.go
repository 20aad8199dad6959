package commons

import (
	"github.com/burntcarrot/slatepad/merge"
	"github.com/google/uuid"
)

// Message represents the message sent over the WebSocket connection.
type Message struct {
	Username string `json:"username,omitempty"`

	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID represents the client's UUID. It is set by the server.
	ID uuid.UUID `json:"ID"`

	// Document carries a full snapshot: the canonical document for docSync, the client's snapshot for sendData.
	Document merge.Document `json:"document,omitempty"`

	// Response answers a sendData message.
	Response *Response `json:"response,omitempty"`
}

// MessageType represents the type of the message.
type MessageType string

// Currently, slatepad supports 4 message types:
// - docSync (server pushes the canonical document)
// - docReq (client asks for the canonical document)
// - sendData (client submits a snapshot)
// - ack (server answers a sendData)

const (
	DocSyncMessage  MessageType = "docSync"
	DocReqMessage   MessageType = "docReq"
	SendDataMessage MessageType = "sendData"
	AckMessage      MessageType = "ack"
)
