package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Server accepts WebSocket connections and bridges them to a synchronous
// consumer through Poll. Construct with New, start with Start (or mount
// ServeWS on an existing router), and call Poll once per tick.
type Server struct {
	cfg      Config
	registry *registry
	queue    *eventQueue
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	active  atomic.Int64
	started atomic.Bool
	closed  atomic.Bool
}

// ClientInfo describes one registered client.
type ClientInfo struct {
	ID   ClientID `json:"id"`
	Name string   `json:"name"`
}

// New creates a server with the given configuration. No goroutine starts
// and no port is bound until Start or the first upgrade.
func New(cfg Config) *Server {
	return &Server{
		cfg:      cfg.withDefaults(),
		registry: newRegistry(),
		queue:    newEventQueue(cfg.QueueCapacity),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in development
				// TODO: Configure this for production
				return true
			},
		},
	}
}

// Start binds the configured address and begins accepting connections on
// /ws in the background. A bind failure is returned synchronously, before
// any connection goroutine is spawned.
func (s *Server) Start() error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("failed to bind %s: %w", s.cfg.BindAddr, err)
	}
	s.listener = ln

	router := http.NewServeMux()
	router.HandleFunc("/ws", s.ServeWS)
	s.httpServer = &http.Server{Handler: router}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("WebSocket server error: %v", err)
		}
	}()

	log.Printf("WebSocket server listening on ws://%s/ws", ln.Addr())
	return nil
}

// Addr returns the bound listener address, or nil before Start. Useful when
// binding port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ServeWS upgrades an HTTP request and hands the connection to its
// lifecycle goroutine. It can be mounted on any router instead of, or in
// addition to, Start.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	if s.cfg.MaxConnections > 0 && int(s.active.Load()) >= s.cfg.MaxConnections {
		log.Printf("Rejecting connection from %s: %d connections active", r.RemoteAddr, s.active.Load())
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.active.Add(1)
	go newClient(s, conn).run()
}

// Poll drains every event accumulated since the previous call and returns
// them in arrival order. It never blocks; an empty tick returns nil. This
// is the synchronous consumer's only entry point for inbound traffic.
func (s *Server) Poll() []Event {
	return s.queue.drain()
}

// SendText delivers a text message to one client. It returns
// ErrTargetNotFound if the client was never registered or has already
// disconnected; a full outbound buffer drops the delivery instead.
func (s *Server) SendText(id ClientID, payload string) error {
	return s.send(id, websocket.TextMessage, []byte(payload))
}

// SendBinary delivers a binary message to one client, with the same
// contract as SendText.
func (s *Server) SendBinary(id ClientID, payload []byte) error {
	return s.send(id, websocket.BinaryMessage, payload)
}

func (s *Server) send(id ClientID, messageType int, data []byte) error {
	c, ok := s.registry.get(id)
	if !ok {
		return ErrTargetNotFound
	}
	if !c.enqueue(messageType, data) {
		log.Printf("Dropped delivery to client %s: send buffer full or closing", id)
	}
	return nil
}

// Broadcast delivers a text message to every registered client,
// best-effort. Clients that disconnect mid-broadcast or have a full buffer
// are skipped.
func (s *Server) Broadcast(payload string) {
	s.broadcast(websocket.TextMessage, []byte(payload))
}

// BroadcastBinary is Broadcast for binary payloads.
func (s *Server) BroadcastBinary(payload []byte) {
	s.broadcast(websocket.BinaryMessage, payload)
}

func (s *Server) broadcast(messageType int, data []byte) {
	s.registry.forEach(func(c *client) {
		if !c.enqueue(messageType, data) {
			log.Printf("Dropped broadcast delivery to client %s", c.id)
		}
	})
}

// Clients returns a snapshot of the registered clients, ordered by id.
func (s *Server) Clients() []ClientInfo {
	var infos []ClientInfo
	s.registry.forEach(func(c *client) {
		infos = append(infos, ClientInfo{ID: c.id, Name: c.name})
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// ClientCount returns the number of registered clients.
func (s *Server) ClientCount() int {
	return s.registry.len()
}

// DroppedEvents reports how many inbound events were evicted under the
// bounded queue policy.
func (s *Server) DroppedEvents() uint64 {
	return s.queue.droppedCount()
}

// Shutdown stops accepting connections and closes every registered client.
// Connections still in the handshake terminate on their own via the
// handshake deadline. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.registry.forEach(func(c *client) {
		c.close()
	})
	return err
}
