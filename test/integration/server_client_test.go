package integration

import (
	"errors"
	"io"
	"iter"
	"testing"

	"github.com/luisarboleda17/socket-server/client"
	"github.com/luisarboleda17/socket-server/proto"
	"github.com/luisarboleda17/socket-server/server"
)

// Test a complete session: event request, JSON reply, quit, stream end.
func TestPingQuitSession(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Event("ping", func(msg proto.Message) any {
			ev := msg.(proto.EventMessage)
			return map[string]any{"event": "pong", "data": ev.Data}
		}).
		Event("quit", func(msg proto.Message) any {
			return proto.CloseMessage{}
		})

	addr := startServer(t, server.Config{}, registry)
	c := newConnectedClient(t, addr)

	if err := c.Send(proto.EventMessage{Name: "ping", Data: map[string]any{"n": 1.0}}); err != nil {
		t.Fatalf("Failed to send ping: %v", err)
	}

	msg, err := c.Receive()
	if err != nil {
		t.Fatalf("Failed to receive pong: %v", err)
	}
	jm, ok := msg.(proto.JSONMessage)
	if !ok {
		t.Fatalf("Expected JSONMessage, got %T", msg)
	}
	reply := jm.Value.(map[string]any)
	if reply["event"] != "pong" {
		t.Errorf("Expected pong event, got %v", reply["event"])
	}
	if reply["data"].(map[string]any)["n"] != 1.0 {
		t.Errorf("Pong did not echo the request data: %v", reply["data"])
	}

	if err := c.Send(proto.EventMessage{Name: "quit", Data: "bye"}); err != nil {
		t.Fatalf("Failed to send quit: %v", err)
	}
	if _, err := c.Receive(); !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF after quit, got %v", err)
	}
}

func TestTextEcho(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Text(func(msg proto.Message) any {
			return "echo: " + msg.(proto.TextMessage).Text
		})

	addr := startServer(t, server.Config{}, registry)
	c := newConnectedClient(t, addr)

	if err := c.Send(proto.TextMessage{Text: "hello"}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	msg, err := c.Receive()
	if err != nil {
		t.Fatalf("Failed to receive: %v", err)
	}
	if text, ok := msg.(proto.TextMessage); !ok || text.Text != "echo: hello" {
		t.Errorf("Expected 'echo: hello', got %v", msg)
	}
}

// An unmatched message is dropped without closing the connection.
func TestUnmatchedMessageKeepsConnection(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Text(func(msg proto.Message) any {
			return "echo: " + msg.(proto.TextMessage).Text
		})

	addr := startServer(t, server.Config{}, registry)
	c := newConnectedClient(t, addr)

	// No JSON handler registered.
	if err := c.Send(proto.JSONMessage{Value: map[string]any{"unmatched": true}}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if err := c.Send(proto.TextMessage{Text: "still here"}); err != nil {
		t.Fatalf("Failed to send follow-up: %v", err)
	}

	msg, err := c.Receive()
	if err != nil {
		t.Fatalf("Connection did not survive the unmatched message: %v", err)
	}
	if text, ok := msg.(proto.TextMessage); !ok || text.Text != "echo: still here" {
		t.Errorf("Expected 'echo: still here', got %v", msg)
	}
}

// A streaming handler produces one reply per yielded value.
func TestStreamedReplies(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Event("count", func(msg proto.Message) any {
			return iter.Seq[any](func(yield func(any) bool) {
				for i := 1; i <= 3; i++ {
					if !yield(map[string]any{"n": i}) {
						return
					}
				}
			})
		})

	addr := startServer(t, server.Config{}, registry)
	c := newConnectedClient(t, addr)

	if err := c.Send(proto.EventMessage{Name: "count", Data: nil}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	for i := 1; i <= 3; i++ {
		msg, err := c.Receive()
		if err != nil {
			t.Fatalf("Failed to receive reply %d: %v", i, err)
		}
		jm, ok := msg.(proto.JSONMessage)
		if !ok {
			t.Fatalf("Expected JSONMessage, got %T", msg)
		}
		if jm.Value.(map[string]any)["n"] != float64(i) {
			t.Errorf("Expected n=%d, got %v", i, jm.Value)
		}
	}
}

// A ws client speaks the same protocol against a ws server.
func TestWebSocketClientSession(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Text(func(msg proto.Message) any {
			return "echo: " + msg.(proto.TextMessage).Text
		}).
		Event("quit", func(msg proto.Message) any {
			return proto.CloseMessage{}
		})

	addr := startServer(t, server.Config{Network: server.NetworkWS}, registry)

	c := client.New("ws", addr)
	if err := c.Connect(); err != nil {
		t.Fatalf("Failed to connect over ws: %v", err)
	}
	t.Cleanup(func() { c.Close(false) })

	if err := c.Send(proto.TextMessage{Text: "hello"}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	msg, err := c.Receive()
	if err != nil {
		t.Fatalf("Failed to receive: %v", err)
	}
	if text, ok := msg.(proto.TextMessage); !ok || text.Text != "echo: hello" {
		t.Errorf("Expected 'echo: hello', got %v", msg)
	}

	if err := c.Send(proto.EventMessage{Name: "quit", Data: "bye"}); err != nil {
		t.Fatalf("Failed to send quit: %v", err)
	}
	if _, err := c.Receive(); !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF after quit, got %v", err)
	}
}

// A malformed frame drops the connection server-side.
func TestMalformedFrameDropsConnection(t *testing.T) {
	registry := server.NewHandlerRegistry().
		Text(func(msg proto.Message) any { return nil })

	addr := startServer(t, server.Config{}, registry)
	c := newConnectedClient(t, addr)

	// Drive the bad bytes through a raw dialer; the client cannot
	// produce malformed frames.
	conn := dialRaw(t, addr)
	if _, err := conn.Write([]byte("0010not json!!")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	assertPeerClosed(t, conn)

	// The well-behaved client on the same worker is unaffected.
	if err := c.Send(proto.TextMessage{Text: "fine"}); err != nil {
		t.Fatalf("Healthy connection was dropped: %v", err)
	}
}
