package integration

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/luisarboleda17/socket-server/client"
	"github.com/luisarboleda17/socket-server/server"
)

func getRandomPort(t *testing.T) int {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to get port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

// startServer runs a server for the duration of the test and returns
// its address once it accepts connections.
func startServer(t *testing.T, cfg server.Config, registry *server.HandlerRegistry) string {
	t.Helper()
	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf("127.0.0.1:%d", getRandomPort(t))
	}

	srv, err := server.New(cfg, registry)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			t.Errorf("Server failed: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("Server did not shut down in time")
		}
	})

	waitForDial(t, cfg.Address)
	return cfg.Address
}

func waitForDial(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Server at %s never came up", addr)
}

func dialRaw(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// assertPeerClosed reads until the peer ends the stream, failing the
// test if it does not within the deadline.
func assertPeerClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 256)
	for {
		if _, err := conn.Read(buf); err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				t.Fatal("Peer did not close the connection")
			}
			return
		}
	}
}

// newConnectedClient dials addr and closes the client with the test.
func newConnectedClient(t *testing.T, addr string) *client.Client {
	t.Helper()
	c := client.New("tcp", addr)
	if err := c.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { c.Close(false) })
	return c
}
