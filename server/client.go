package server

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// outFrame is one queued outbound write.
type outFrame struct {
	messageType int
	data        []byte
}

// client owns one accepted connection. The run goroutine is the only reader
// of the socket and the sole remover of the registry entry; writePump is the
// only writer, fed by the buffered send channel.
type client struct {
	id   ClientID
	name string
	srv  *Server
	conn *websocket.Conn
	send chan outFrame
	done chan struct{}

	closeOnce sync.Once
}

func newClient(srv *Server, conn *websocket.Conn) *client {
	return &client{
		id:   newClientID(),
		srv:  srv,
		conn: conn,
		send: make(chan outFrame, sendBufferSize),
		done: make(chan struct{}),
	}
}

// enqueue stages an outbound frame on the client's write path. It never
// blocks; it reports false when the client is closing or its buffer is
// full, in which case the delivery is dropped.
func (c *client) enqueue(messageType int, data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- outFrame{messageType: messageType, data: data}:
		return true
	default:
		return false
	}
}

// close signals both pumps to stop. Safe to call from any goroutine, any
// number of times.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// run drives the connection end-to-end: greeting, auth, registration, read
// loop, removal. Errors here terminate only this connection.
func (c *client) run() {
	go c.writePump()

	defer func() {
		c.close()
		c.srv.active.Add(-1)
	}()

	c.enqueue(websocket.TextMessage, []byte(HelloSentinel))

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.HandshakeTimeout))

	_, first, err := c.conn.ReadMessage()
	if err != nil {
		log.Printf("Handshake with %s failed: %v", c.conn.RemoteAddr(), err)
		return
	}

	name, ok := strings.CutPrefix(string(first), AuthPrefix)
	if !ok {
		log.Printf("Rejecting %s: first message is not an auth message", c.conn.RemoteAddr())
		return
	}
	c.name = name

	// From here on the client is a participant. The deferred removal below
	// is the only writer of the remove side for this id, which guarantees
	// exactly one Disconnected event.
	c.srv.registry.insert(c)
	c.srv.queue.push(Connected{ID: c.id, Name: c.name})
	log.Printf("Client %s from %s registered as %q", c.id, c.conn.RemoteAddr(), c.name)

	defer func() {
		if c.srv.registry.remove(c.id) != nil {
			c.srv.queue.push(Disconnected{ID: c.id, Name: c.name})
			log.Printf("Client %s (%q) disconnected", c.id, c.name)
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("Read from client %s failed: %v", c.id, err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			c.srv.queue.push(Message{
				From:    c.id,
				Name:    c.name,
				Payload: data,
				Binary:  messageType == websocket.BinaryMessage,
				srv:     c.srv,
			})
		}
	}
}

// writePump pumps staged frames to the connection and keeps it alive with
// periodic pings. It owns the socket's write side and closes the socket on
// exit, which in turn unblocks run's read loop.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(frame.messageType, frame.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
