package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WorkerStatus is one worker slot as reported by the status endpoint.
type WorkerStatus struct {
	Slot        int    `json:"slot"`
	Name        string `json:"name"`
	Alive       bool   `json:"alive"`
	Restarts    int    `json:"restarts"`
	Connections int    `json:"connections"`
}

// WorkerStatuses snapshots every worker slot.
func (s *SocketServer) WorkerStatuses() []WorkerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]WorkerStatus, 0, len(s.workers))
	for slot, w := range s.workers {
		status := WorkerStatus{Slot: slot, Restarts: s.restarts[slot]}
		if w != nil {
			status.Name = w.name
			status.Alive = w.alive()
			status.Connections = w.connCount()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *SocketServer) adminRouter() chi.Router {
	router := chi.NewRouter()
	router.Get("/healthz", s.handleHealth)
	router.Get("/workers", s.handleWorkers)
	return router
}

func (s *SocketServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *SocketServer) handleWorkers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.WorkerStatuses()); err != nil {
		http.Error(w, "Failed to encode worker statuses: "+err.Error(), http.StatusInternalServerError)
	}
}
