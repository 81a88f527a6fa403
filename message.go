package wsocket

import "fmt"

// MessageType discriminates the Message variants.
type MessageType int

const (
	// TextMessage carries UTF-8 text in Data.
	TextMessage MessageType = iota + 1
	// BinaryMessage carries opaque bytes in Data.
	BinaryMessage
	// PingMessage is a peer liveness probe; Data is its payload.
	PingMessage
	// PongMessage answers a ping; Data is its payload.
	PongMessage
	// CloseMessage carries the close handshake code and reason.
	CloseMessage
)

// String returns the frame name used on the wire.
func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	case PingMessage:
		return "ping"
	case PongMessage:
		return "pong"
	case CloseMessage:
		return "close"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Message is one WebSocket frame as seen by the caller: inbound from the
// peer via Session.Recv, outbound via Session.Send. Code and Reason are
// meaningful only when Type is CloseMessage.
type Message struct {
	Type   MessageType
	Data   []byte
	Code   int
	Reason string
}

// Text builds a text message.
func Text(s string) Message {
	return Message{Type: TextMessage, Data: []byte(s)}
}

// Binary builds a binary message.
func Binary(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Ping builds a ping message.
func Ping(data []byte) Message {
	return Message{Type: PingMessage, Data: data}
}

// Pong builds a pong message.
func Pong(data []byte) Message {
	return Message{Type: PongMessage, Data: data}
}

// CloseWith builds a close message with a status code and reason.
func CloseWith(code int, reason string) Message {
	return Message{Type: CloseMessage, Code: code, Reason: reason}
}
