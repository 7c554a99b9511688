package server

import "sync"

// eventQueue is the multi-producer/single-consumer buffer between the
// connection goroutines and the tick loop. Pushes complete even when nobody
// is draining; drain returns immediately with whatever has accumulated.
type eventQueue struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	dropped  uint64
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{capacity: capacity}
}

// push appends an event, evicting the oldest one first when the queue is at
// capacity. It never blocks the caller.
func (q *eventQueue) push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && len(q.events) >= q.capacity {
		copy(q.events, q.events[1:])
		q.events = q.events[:len(q.events)-1]
		q.dropped++
	}
	q.events = append(q.events, ev)
}

// drain removes and returns all accumulated events in FIFO order. It
// returns nil when the queue is empty and never waits for more.
func (q *eventQueue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// droppedCount reports how many events were evicted under the bounded
// policy since startup.
func (q *eventQueue) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
