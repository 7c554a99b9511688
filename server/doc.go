// Package server bridges an asynchronous WebSocket server with a
// synchronous, tick-driven consumer.
//
// The server package implements:
//   - Connection acceptance and the $$hello$$/$$auth$$ handshake
//   - A concurrent registry of authenticated clients
//   - An inbound event queue drained once per tick
//   - Targeted sends, replies, and best-effort broadcast
//   - Connection lifecycle management and cleanup
//
// Architecture:
//
// Each accepted connection is owned by a dedicated goroutine that performs
// the handshake, reads frames, and pushes events into a shared queue. A
// second goroutine per connection drains a buffered send channel to the
// socket, so no two writers ever race on the same connection.
//
// The synchronous side never touches a socket. It calls Poll once per tick,
// which drains everything accumulated since the last tick without blocking,
// and sends through SendText, SendBinary, Broadcast, or an event's Reply.
//
// Handshake Protocol:
//
// On accept the server sends the literal "$$hello$$". The client's first
// message must be "$$auth$$" followed by its display name. Anything else
// closes the connection before it is ever registered; such a connection
// produces no events.
//
// Usage:
//
//	srv := server.New(server.Config{BindAddr: "localhost:8080"})
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//
//	// once per tick
//	for _, ev := range srv.Poll() {
//		switch ev := ev.(type) {
//		case server.Message:
//			ev.Reply("Pong!")
//		}
//	}
//
// Concurrency:
//
// The registry and the event queue are the only shared mutable structures;
// both are internally synchronized. Poll never blocks, regardless of how
// many connections are active or how fast they produce.
package server
