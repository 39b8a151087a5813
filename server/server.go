package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// monitorInterval is how often the supervisor checks its worker slots.
const monitorInterval = time.Second

// Config is the immutable server configuration.
type Config struct {
	// Address is a host:port pair for tcp/ws or a filesystem path for
	// unix. A stale unix socket file is removed before binding.
	Address string

	// Network is one of NetworkTCP, NetworkUnix or NetworkWS.
	Network string

	// Workers is the size of the supervised worker pool.
	Workers int

	// AdminAddress optionally exposes the status endpoint. Empty
	// disables it.
	AdminAddress string
}

// SocketServer supervises a fixed-size pool of workers: it spawns
// them, watches them once per monitor interval and respawns any that
// died. Respawning is the only fault-recovery mechanism and carries no
// backoff, so a persistently failing bind respawns once per interval.
type SocketServer struct {
	cfg      Config
	registry *HandlerRegistry

	mu       sync.Mutex
	workers  []*Worker
	restarts []int
}

func New(cfg Config, registry *HandlerRegistry) (*SocketServer, error) {
	if cfg.Network == "" {
		cfg.Network = NetworkTCP
	}
	switch cfg.Network {
	case NetworkTCP, NetworkUnix, NetworkWS:
	case NetworkUDP:
		// The accept-based handling path assumes a connection-oriented
		// transport; a datagram mode needs its own per-peer session
		// model first.
		return nil, errors.New("udp transport is not implemented, use tcp, unix or ws")
	default:
		return nil, fmt.Errorf("unknown network %q", cfg.Network)
	}
	if cfg.Address == "" {
		return nil, errors.New("bind address is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if registry == nil {
		registry = NewHandlerRegistry()
	}

	return &SocketServer{
		cfg:      cfg,
		registry: registry,
		workers:  make([]*Worker, cfg.Workers),
		restarts: make([]int, cfg.Workers),
	}, nil
}

func setupLogger() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler))
}

// Start runs the server until an interrupt or termination signal,
// then stops every worker and returns.
func (s *SocketServer) Start() error {
	setupLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve runs the monitoring loop until ctx is cancelled.
func (s *SocketServer) Serve(ctx context.Context) error {
	if s.cfg.Network == NetworkUnix {
		if err := os.Remove(s.cfg.Address); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale socket %s: %w", s.cfg.Address, err)
		}
	}

	if s.cfg.AdminAddress != "" {
		admin := &http.Server{Addr: s.cfg.AdminAddress, Handler: s.adminRouter()}
		go func() {
			slog.Info("Starting admin server", "addr", s.cfg.AdminAddress)
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Admin server failed", "addr", s.cfg.AdminAddress, "error", err.Error())
			}
		}()
		defer admin.Close()
	}

	slog.Info("Starting socket server", "network", s.cfg.Network, "addr", s.cfg.Address, "workers", s.cfg.Workers)

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	s.respawnDead(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down server")
			s.Close()
			return nil
		case <-ticker.C:
			s.respawnDead(ctx)
		}
	}
}

// respawnDead fills every empty or dead worker slot with a fresh
// worker bound to the same configuration.
func (s *SocketServer) respawnDead(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for slot, w := range s.workers {
		if w != nil && w.alive() {
			continue
		}
		if w != nil {
			s.restarts[slot]++
			slog.Warn("Respawning dead worker", "worker", w.name, "slot", slot)
		}

		fresh := newWorker(s.cfg, s.registry)
		fresh.start(ctx)
		s.workers[slot] = fresh
	}
}

// Close forcibly terminates every worker and joins each with a bounded
// wait. In-flight connections are dropped, not drained.
func (s *SocketServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.workers {
		if w != nil {
			w.terminate()
		}
	}
	for _, w := range s.workers {
		if w != nil {
			w.join(time.Second)
		}
	}
}
