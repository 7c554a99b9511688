package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yuunalein/wsbridge/chat"
	"github.com/yuunalein/wsbridge/server"
)

type testEnv struct {
	ws   *server.Server
	room *chat.Room
	http *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ws := server.New(server.Config{})
	room := chat.NewRoom(ws)
	ts := httptest.NewServer(NewServer(ws, room, ""))
	t.Cleanup(ts.Close)

	return &testEnv{ws: ws, room: room, http: ts}
}

func (e *testEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
}

func dialAndAuth(t *testing.T, url, name string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("Failed to read greeting: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(server.AuthPrefix+name)); err != nil {
		t.Fatalf("Failed to auth: %v", err)
	}

	return conn
}

func waitForClients(t *testing.T, ws *server.Server, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for ws.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, ws.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body interface{}) int {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestListClients(t *testing.T) {
	env := newTestEnv(t)

	var empty struct {
		Count int `json:"count"`
	}
	if status := getJSON(t, env.http.URL+"/api/clients", &empty); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if empty.Count != 0 {
		t.Errorf("Expected 0 clients, got %d", empty.Count)
	}

	dialAndAuth(t, env.wsURL(), "Alice")
	waitForClients(t, env.ws, 1)

	var listed struct {
		Count   int                 `json:"count"`
		Clients []server.ClientInfo `json:"clients"`
	}
	getJSON(t, env.http.URL+"/api/clients", &listed)
	if listed.Count != 1 || len(listed.Clients) != 1 || listed.Clients[0].Name != "Alice" {
		t.Errorf("Unexpected client list: %+v", listed)
	}
}

func TestSendMessageToClient(t *testing.T) {
	env := newTestEnv(t)

	conn := dialAndAuth(t, env.wsURL(), "Alice")
	waitForClients(t, env.ws, 1)

	id := env.ws.Clients()[0].ID
	url := fmt.Sprintf("%s/api/clients/%s/message", env.http.URL, id)

	if status := postJSON(t, url, map[string]string{"message": "hi Alice"}); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(data) != "hi Alice" {
		t.Errorf("Expected \"hi Alice\", got %q", data)
	}
}

func TestSendMessageToUnknownClientIs404(t *testing.T) {
	env := newTestEnv(t)

	url := env.http.URL + "/api/clients/bogus/message"
	if status := postJSON(t, url, map[string]string{"message": "hi"}); status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", status)
	}
}

func TestSendMessageRequiresBody(t *testing.T) {
	env := newTestEnv(t)

	url := env.http.URL + "/api/clients/bogus/message"
	if status := postJSON(t, url, map[string]string{}); status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", status)
	}
}

func TestBroadcast(t *testing.T) {
	env := newTestEnv(t)

	alice := dialAndAuth(t, env.wsURL(), "Alice")
	bob := dialAndAuth(t, env.wsURL(), "Bob")
	waitForClients(t, env.ws, 2)

	if status := postJSON(t, env.http.URL+"/api/broadcast", map[string]string{"message": "hi all"}); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	for _, conn := range []*websocket.Conn{alice, bob} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read: %v", err)
		}
		if string(data) != "hi all" {
			t.Errorf("Expected \"hi all\", got %q", data)
		}
	}
}

func TestRoomStatus(t *testing.T) {
	env := newTestEnv(t)

	dialAndAuth(t, env.wsURL(), "Alice")
	waitForClients(t, env.ws, 1)

	deadline := time.Now().Add(2 * time.Second)
	for len(env.room.Members()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Room never saw the Connected event")
		}
		env.room.Update(context.Background())
		time.Sleep(5 * time.Millisecond)
	}

	var room struct {
		Members []string `json:"members"`
		History []string `json:"history"`
	}
	if status := getJSON(t, env.http.URL+"/api/room", &room); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(room.Members) != 1 || room.Members[0] != "Alice" {
		t.Errorf("Unexpected members: %v", room.Members)
	}
	if len(room.History) != 1 || room.History[0] != "* Alice joined" {
		t.Errorf("Unexpected history: %v", room.History)
	}
}
