// Package hub fans pipeline output (camera JPEGs, result batches, status)
// out to websocket and in-process subscribers over channels.
package hub

import "errors"

// ErrBroadcastFull is returned when the broadcast queue is saturated.
var ErrBroadcastFull = errors.New("hub: broadcast queue full")

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG frames)
	BinaryMessage
)

// Message is one broadcast payload. Data is shared by every subscriber and
// must not be modified after Broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
