package chat

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/yuunalein/wsbridge/server"
)

// maxHistory bounds the in-memory transcript kept for the REST API.
const maxHistory = 200

// Room relays messages between every registered client. Update is invoked
// by the tick runner; Members and History serve the admin API and may be
// called from other goroutines.
type Room struct {
	srv *server.Server

	mu      sync.RWMutex
	members map[server.ClientID]string
	history []string
}

// NewRoom creates a room backed by the given bridge server.
func NewRoom(srv *server.Server) *Room {
	return &Room{
		srv:     srv,
		members: make(map[server.ClientID]string),
	}
}

// Update drains one tick's worth of events and applies them to the room.
func (r *Room) Update(ctx context.Context) {
	for _, ev := range r.srv.Poll() {
		switch ev := ev.(type) {
		case server.Connected:
			r.addMember(ev.ID, ev.Name)
			r.announce(fmt.Sprintf("* %s joined", ev.Name))

		case server.Message:
			r.handleMessage(ev)

		case server.Disconnected:
			r.removeMember(ev.ID)
			r.announce(fmt.Sprintf("* %s left", ev.Name))
		}
	}
}

func (r *Room) handleMessage(msg server.Message) {
	if msg.Binary {
		// The messenger protocol is text-only.
		return
	}

	text := msg.Text()
	if strings.TrimSpace(text) == "/who" {
		if err := msg.Reply("members: " + strings.Join(r.Members(), ", ")); err != nil {
			log.Printf("Reply to %s failed: %v", msg.Name, err)
		}
		return
	}

	r.announce(fmt.Sprintf("%s: %s", msg.Name, text))
}

// announce appends a line to the transcript and broadcasts it.
func (r *Room) announce(line string) {
	r.mu.Lock()
	r.history = append(r.history, line)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
	r.mu.Unlock()

	r.srv.Broadcast(line)
}

func (r *Room) addMember(id server.ClientID, name string) {
	r.mu.Lock()
	r.members[id] = name
	r.mu.Unlock()
}

func (r *Room) removeMember(id server.ClientID) {
	r.mu.Lock()
	delete(r.members, id)
	r.mu.Unlock()
}

// Members returns the current member names, sorted.
func (r *Room) Members() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.members))
	for _, name := range r.members {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// History returns a copy of the retained transcript, oldest first.
func (r *Room) History() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.history...)
}
