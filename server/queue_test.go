package server

import (
	"fmt"
	"sync"
	"testing"
)

func TestQueueDrainEmpty(t *testing.T) {
	q := newEventQueue(0)

	if events := q.drain(); events != nil {
		t.Errorf("Expected nil from empty drain, got %v", events)
	}
}

func TestQueueFIFO(t *testing.T) {
	q := newEventQueue(0)

	q.push(Connected{ID: "a", Name: "Alice"})
	q.push(Message{From: "a", Payload: []byte("one")})
	q.push(Message{From: "a", Payload: []byte("two")})
	q.push(Disconnected{ID: "a", Name: "Alice"})

	events := q.drain()
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	if _, ok := events[0].(Connected); !ok {
		t.Errorf("Expected Connected first, got %T", events[0])
	}
	if msg, ok := events[1].(Message); !ok || msg.Text() != "one" {
		t.Errorf("Expected Message \"one\" second, got %v", events[1])
	}
	if msg, ok := events[2].(Message); !ok || msg.Text() != "two" {
		t.Errorf("Expected Message \"two\" third, got %v", events[2])
	}
	if _, ok := events[3].(Disconnected); !ok {
		t.Errorf("Expected Disconnected last, got %T", events[3])
	}

	// A second drain starts from a clean slate
	if events := q.drain(); events != nil {
		t.Errorf("Expected nil after drain, got %v", events)
	}
}

func TestQueuePushWithoutConsumer(t *testing.T) {
	q := newEventQueue(0)

	// Pushes must complete even if nobody ever drains
	for i := 0; i < 10000; i++ {
		q.push(Message{From: "a", Payload: []byte("x")})
	}

	if got := len(q.drain()); got != 10000 {
		t.Errorf("Expected 10000 events, got %d", got)
	}
}

func TestQueueBoundedDropsOldest(t *testing.T) {
	q := newEventQueue(3)

	for i := 0; i < 5; i++ {
		q.push(Message{From: "a", Payload: []byte(fmt.Sprintf("%d", i))})
	}

	events := q.drain()
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}

	// The two oldest were evicted; order of the survivors is preserved
	for i, want := range []string{"2", "3", "4"} {
		if got := events[i].(Message).Text(); got != want {
			t.Errorf("Event %d: expected %q, got %q", i, want, got)
		}
	}

	if q.droppedCount() != 2 {
		t.Errorf("Expected 2 dropped events, got %d", q.droppedCount())
	}
}

func TestQueueConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	q := newEventQueue(0)

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			id := ClientID(fmt.Sprintf("client-%d", p))
			for i := 0; i < perProducer; i++ {
				q.push(Message{From: id, Payload: []byte(fmt.Sprintf("%d", i))})
			}
		}(p)
	}
	wg.Wait()

	events := q.drain()
	if len(events) != producers*perProducer {
		t.Fatalf("Expected %d events, got %d", producers*perProducer, len(events))
	}

	next := make(map[ClientID]int)
	for _, ev := range events {
		msg := ev.(Message)
		want := fmt.Sprintf("%d", next[msg.From])
		if msg.Text() != want {
			t.Fatalf("Client %s: expected %q next, got %q", msg.From, want, msg.Text())
		}
		next[msg.From]++
	}
}
