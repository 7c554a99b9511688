package server

import (
	"sync"
	"testing"
)

func testClient(id ClientID, name string) *client {
	return &client{
		id:   id,
		name: name,
		send: make(chan outFrame, sendBufferSize),
		done: make(chan struct{}),
	}
}

func TestRegistryInsertGetRemove(t *testing.T) {
	r := newRegistry()
	c := testClient("a", "Alice")

	if _, ok := r.get("a"); ok {
		t.Error("Expected lookup miss before insert")
	}

	r.insert(c)

	got, ok := r.get("a")
	if !ok || got != c {
		t.Error("Expected to find the inserted client")
	}
	if r.len() != 1 {
		t.Errorf("Expected length 1, got %d", r.len())
	}

	if removed := r.remove("a"); removed != c {
		t.Error("Expected remove to return the client")
	}
	if _, ok := r.get("a"); ok {
		t.Error("Expected lookup miss after remove")
	}

	// Removing twice is a no-op the second time
	if removed := r.remove("a"); removed != nil {
		t.Error("Expected second remove to return nil")
	}
}

func TestRegistryForEachSnapshot(t *testing.T) {
	r := newRegistry()
	r.insert(testClient("a", "Alice"))
	r.insert(testClient("b", "Bob"))

	// Removing a client mid-iteration must not break the walk
	visited := 0
	r.forEach(func(c *client) {
		visited++
		r.remove("b")
	})

	if visited != 2 {
		t.Errorf("Expected to visit 2 clients, got %d", visited)
	}
	if r.len() != 1 {
		t.Errorf("Expected 1 client remaining, got %d", r.len())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := newRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ClientID(rune('a' + i))
			c := testClient(id, "x")
			r.insert(c)
			r.forEach(func(*client) {})
			if _, ok := r.get(id); !ok {
				t.Errorf("Client %s missing after insert", id)
			}
			r.remove(id)
		}(i)
	}
	wg.Wait()

	if r.len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.len())
	}
}
