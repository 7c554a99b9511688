package server

import "sync"

// registry is the shared directory of registered clients. Structural
// mutation happens only from connection goroutines: insert on handshake
// completion, remove (exactly once, by the owning goroutine) on close.
type registry struct {
	mu      sync.RWMutex
	clients map[ClientID]*client
}

func newRegistry() *registry {
	return &registry{clients: make(map[ClientID]*client)}
}

func (r *registry) insert(c *client) {
	r.mu.Lock()
	r.clients[c.id] = c
	r.mu.Unlock()
}

// remove deletes and returns the entry for id, or nil if it was already
// removed. Removing twice is a no-op the second time.
func (r *registry) remove(id ClientID) *client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return nil
	}
	delete(r.clients, id)
	return c
}

func (r *registry) get(id ClientID) (*client, bool) {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	return c, ok
}

// forEach visits a snapshot of the registered clients. A client removed
// after the snapshot is taken may still be visited; its send channel
// simply drops the delivery.
func (r *registry) forEach(f func(*client)) {
	r.mu.RLock()
	snapshot := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		f(c)
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
