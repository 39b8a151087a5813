package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Worker owns one listening socket and spawns a connection handler
// goroutine per accepted connection, uncapped. It is a supervised
// task: a panic or a failed bind kills it and the supervisor respawns
// a fresh worker into its slot.
type Worker struct {
	name     string
	cfg      Config
	registry *HandlerRegistry

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	conns map[string]*connection
}

func newWorker(cfg Config, registry *HandlerRegistry) *Worker {
	return &Worker{
		name:     generateWorkerId(),
		cfg:      cfg,
		registry: registry,
		done:     make(chan struct{}),
		conns:    make(map[string]*connection),
	}
}

func (w *Worker) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Worker crashed", "worker", w.name, "panic", fmt.Sprint(r))
		}
	}()

	if w.registry.startup != nil {
		w.registry.startup()
	}

	ln, err := listen(w.cfg.Network, w.cfg.Address)
	if err != nil {
		slog.Error("Worker failed to bind", "worker", w.name, "network", w.cfg.Network, "addr", w.cfg.Address, "error", err.Error())
		return
	}
	defer ln.Close()
	stopAccept := context.AfterFunc(ctx, func() { ln.Close() })
	defer stopAccept()

	slog.Info("Listening for connections", "worker", w.name, "network", w.cfg.Network, "addr", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return // exits when the listener is closed on cancellation
			}
			slog.Error("Accept failed", "worker", w.name, "error", err.Error())
			return
		}

		c := newConnection(conn, w.registry, w.name)
		w.track(c)
		go func() {
			c.run(ctx)
			w.untrack(c)
		}()
	}
}

func (w *Worker) track(c *connection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conns[c.id] = c
}

func (w *Worker) untrack(c *connection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, c.id)
}

func (w *Worker) connCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}

// terminate stops the worker abruptly: the listener closes and every
// live connection is dropped without a courtesy close.
func (w *Worker) terminate() {
	if w.cancel != nil {
		w.cancel()
	}

	w.mu.Lock()
	conns := make([]*connection, 0, len(w.conns))
	for _, c := range w.conns {
		conns = append(conns, c)
	}
	w.mu.Unlock()

	for _, c := range conns {
		c.close(true)
	}
}

// join waits for the worker goroutine to exit, bounded by timeout.
func (w *Worker) join(timeout time.Duration) {
	select {
	case <-w.done:
	case <-time.After(timeout):
		slog.Warn("Timed out waiting for worker to stop", "worker", w.name)
	}
}

func (w *Worker) alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}
