package server

import "github.com/google/uuid"

// Handshake sentinels exchanged before a connection becomes a participant.
const (
	// HelloSentinel is sent by the server immediately after accept.
	HelloSentinel = "$$hello$$"

	// AuthPrefix must prefix the client's first message; the remainder is
	// taken as the client's display name.
	AuthPrefix = "$$auth$$"
)

// ClientID uniquely identifies one connection for its lifetime. IDs are
// assigned at accept time and never reused.
type ClientID string

func newClientID() ClientID {
	return ClientID(uuid.NewString())
}

// Event is one item drained by Poll. The concrete types are Connected,
// Message, and Disconnected. Events from the same client are delivered in
// the order they were produced.
type Event interface {
	event()
}

// Connected is emitted once when a client completes the handshake and is
// inserted into the registry.
type Connected struct {
	ID   ClientID
	Name string
}

// Message is emitted for every application frame received from a
// registered client.
type Message struct {
	From ClientID
	Name string

	// Payload is the raw frame content. For text frames it is valid UTF-8.
	Payload []byte

	// Binary reports whether the frame was a binary frame.
	Binary bool

	srv *Server
}

// Disconnected is emitted exactly once when a registered client's
// connection closes, cleanly or with error.
type Disconnected struct {
	ID   ClientID
	Name string
}

func (Connected) event()    {}
func (Message) event()      {}
func (Disconnected) event() {}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Payload)
}

// Reply sends a text message back to the sender. It returns
// ErrTargetNotFound if the sender has since disconnected.
func (m Message) Reply(payload string) error {
	if m.srv == nil {
		return ErrTargetNotFound
	}
	return m.srv.SendText(m.From, payload)
}

// ReplyBinary sends a binary message back to the sender. It returns
// ErrTargetNotFound if the sender has since disconnected.
func (m Message) ReplyBinary(payload []byte) error {
	if m.srv == nil {
		return ErrTargetNotFound
	}
	return m.srv.SendBinary(m.From, payload)
}
