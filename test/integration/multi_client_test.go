package integration

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/luisarboleda17/socket-server/client"
	"github.com/luisarboleda17/socket-server/proto"
	"github.com/luisarboleda17/socket-server/server"
)

// Concurrent clients against a single worker each get their own
// replies on their own connection.
func TestConcurrentClients(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Text(func(msg proto.Message) any {
			return "echo: " + msg.(proto.TextMessage).Text
		})

	addr := startServer(t, server.Config{}, registry)

	const clients = 8
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := client.New("tcp", addr)
			if err := c.Connect(); err != nil {
				t.Errorf("Client %d failed to connect: %v", id, err)
				return
			}
			defer c.Close(false)
			want := fmt.Sprintf("echo: client-%d", id)

			for round := 0; round < 5; round++ {
				if err := c.Send(proto.TextMessage{Text: fmt.Sprintf("client-%d", id)}); err != nil {
					t.Errorf("Client %d failed to send: %v", id, err)
					return
				}
				msg, err := c.Receive()
				if err != nil {
					t.Errorf("Client %d failed to receive: %v", id, err)
					return
				}
				if text, ok := msg.(proto.TextMessage); !ok || text.Text != want {
					t.Errorf("Client %d got %v, want %s", id, msg, want)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

// Multiple workers share one listen address and every connection is
// served regardless of which worker accepted it.
func TestWorkerPoolSharesPort(t *testing.T) {
	var mu sync.Mutex
	startups := 0
	registry := server.NewHandlerRegistry().
		Startup(func() {
			mu.Lock()
			startups++
			mu.Unlock()
		}).
		Text(func(msg proto.Message) any {
			return "echo: " + msg.(proto.TextMessage).Text
		})

	addr := startServer(t, server.Config{Workers: 3}, registry)

	// Workers start concurrently; give the remaining hooks a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := startups
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 3 worker startups, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := client.New("tcp", addr)
			if err := c.Connect(); err != nil {
				t.Errorf("Client %d failed to connect: %v", id, err)
				return
			}
			defer c.Close(false)
			if err := c.Send(proto.TextMessage{Text: "shared"}); err != nil {
				t.Errorf("Client %d failed to send: %v", id, err)
				return
			}
			msg, err := c.Receive()
			if err != nil {
				t.Errorf("Client %d failed to receive: %v", id, err)
				return
			}
			if text, ok := msg.(proto.TextMessage); !ok || text.Text != "echo: shared" {
				t.Errorf("Client %d got %v", id, msg)
			}
		}(i)
	}
	wg.Wait()
}

// A handler panic drops only the offending connection.
func TestPanickingHandlerIsolated(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Event("boom", func(msg proto.Message) any {
			panic("handler exploded")
		}).
		Text(func(msg proto.Message) any {
			return "echo: " + msg.(proto.TextMessage).Text
		})

	addr := startServer(t, server.Config{}, registry)

	victim := newConnectedClient(t, addr)
	if err := victim.Send(proto.EventMessage{Name: "boom", Data: nil}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if _, err := victim.Receive(); err == nil {
		t.Fatal("Expected the panicking connection to drop")
	}

	// The worker survived; a fresh connection works.
	healthy := newConnectedClient(t, addr)
	if err := healthy.Send(proto.TextMessage{Text: "alive"}); err != nil {
		t.Fatalf("Failed to send on fresh connection: %v", err)
	}
	msg, err := healthy.Receive()
	if err != nil {
		t.Fatalf("Worker did not survive the handler panic: %v", err)
	}
	if text, ok := msg.(proto.TextMessage); !ok || text.Text != "echo: alive" {
		t.Errorf("Expected 'echo: alive', got %v", msg)
	}
}
