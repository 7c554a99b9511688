package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/yuunalein/wsbridge/chat"
	"github.com/yuunalein/wsbridge/server"
)

// Server is the REST and WebSocket front of the demo.
type Server struct {
	ws     *server.Server
	room   *chat.Room
	router *mux.Router
}

// NewServer wires the routes. staticDir is served at the root; pass "" to
// disable the static handler.
func NewServer(ws *server.Server, room *chat.Room, staticDir string) *Server {
	s := &Server{
		ws:     ws,
		room:   room,
		router: mux.NewRouter(),
	}

	s.setupRoutes(staticDir)
	return s
}

func (s *Server) setupRoutes(staticDir string) {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/clients", s.handleListClients).Methods("GET")
	api.HandleFunc("/clients/{id}/message", s.handleSendMessage).Methods("POST")
	api.HandleFunc("/broadcast", s.handleBroadcast).Methods("POST")
	api.HandleFunc("/room", s.handleRoom).Methods("GET")

	s.router.HandleFunc("/ws", s.ws.ServeWS)

	if staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// messageRequest is the body of broadcast and per-client message posts.
type messageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients := s.ws.Clients()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(clients),
		"clients": clients,
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := server.ClientID(mux.Vars(r)["id"])

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := s.ws.SendText(id, req.Message); err != nil {
		if errors.Is(err, server.ErrTargetNotFound) {
			respondError(w, http.StatusNotFound, "client not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.ws.Broadcast(req.Message)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "sent",
		"recipients": s.ws.ClientCount(),
	})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"members": s.room.Members(),
		"history": s.room.History(),
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
