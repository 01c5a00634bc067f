// Package hub fans messages out to websocket clients. One goroutine owns the
// client set; producers never block on slow readers.
package hub

// MessageType selects the websocket frame type.
type MessageType int

const (
	JSONMessage MessageType = iota
	BinaryMessage
)

// Message is one frame to broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
