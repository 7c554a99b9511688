package server

import "time"

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Per-connection outbound buffer. Deliveries beyond this are dropped.
	sendBufferSize = 256

	defaultHandshakeTimeout = 10 * time.Second
)

// Config holds the server options. The zero value is usable; BindAddr
// defaults to a random loopback port.
type Config struct {
	// BindAddr is the TCP address the listener binds to, e.g. "localhost:8080".
	BindAddr string

	// MaxConnections rejects new upgrades once this many connections are
	// active (including connections still in the handshake). Zero means
	// unlimited.
	MaxConnections int

	// HandshakeTimeout bounds how long a client may take to send its
	// $$auth$$ message after the greeting. Zero selects a default of 10s.
	HandshakeTimeout time.Duration

	// QueueCapacity bounds the inbound event queue. Zero means unbounded;
	// when bounded, the oldest event is dropped to admit a new one, so
	// producers never block.
	QueueCapacity int
}

func (c Config) withDefaults() Config {
	if c.BindAddr == "" {
		c.BindAddr = "127.0.0.1:0"
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	return c
}
