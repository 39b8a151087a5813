package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAdminHealthz(t *testing.T) {
	s, err := New(Config{Address: "127.0.0.1:0"}, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	rec := httptest.NewRecorder()
	s.adminRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("Expected body 'ok', got %q", body)
	}
}

func TestAdminWorkersEndpoint(t *testing.T) {
	addr := fmt.Sprintf("127.0.0.1:%d", getRandomPort(t))
	s, err := New(Config{Address: addr, Workers: 2}, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	s.respawnDead(context.Background())
	t.Cleanup(s.Close)
	waitForDial(t, "tcp", addr).Close()

	rec := httptest.NewRecorder()
	s.adminRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var statuses []WorkerStatus
	if err := json.NewDecoder(rec.Body).Decode(&statuses); err != nil {
		t.Fatalf("Failed to decode worker statuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 worker slots, got %d", len(statuses))
	}
	for _, status := range statuses {
		if !status.Alive {
			t.Errorf("Expected worker in slot %d to be alive", status.Slot)
		}
		if status.Name == "" {
			t.Errorf("Expected worker in slot %d to be named", status.Slot)
		}
		if status.Restarts != 0 {
			t.Errorf("Expected 0 restarts in slot %d, got %d", status.Slot, status.Restarts)
		}
	}
}

func TestAdminUnknownRouteNotFound(t *testing.T) {
	s, err := New(Config{Address: "127.0.0.1:0"}, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	rec := httptest.NewRecorder()
	s.adminRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
