package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/luisarboleda17/socket-server/proto"
	"github.com/luisarboleda17/socket-server/server"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	addr := flag.String("addr", "", "Bind address (host:port or socket path)")
	network := flag.String("network", "", "Transport network: tcp, unix or ws")
	workers := flag.Int("workers", 0, "Workers quantity")
	admin := flag.String("admin", "", "Admin status endpoint address")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", *configPath, "error", err.Error())
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Address = *addr
	}
	if *network != "" {
		cfg.Network = *network
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *admin != "" {
		cfg.AdminAddress = *admin
	}

	registry := server.NewHandlerRegistry().
		Startup(func() {
			slog.Info("Worker ready")
		}).
		Text(func(msg proto.Message) any {
			text := msg.(proto.TextMessage)
			return "echo: " + text.Text
		}).
		JSON(func(msg proto.Message) any {
			slog.Info("JSON message received")
			return nil
		}).
		Event("ping", func(msg proto.Message) any {
			ev := msg.(proto.EventMessage)
			slog.Info("Ping received", "data", ev.Data)
			return map[string]any{"event": "pong", "data": ev.Data}
		}).
		Event("quit", func(msg proto.Message) any {
			return proto.CloseMessage{}
		})

	srv, err := server.New(cfg, registry)
	if err != nil {
		slog.Error("Failed to create server", "error", err.Error())
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		slog.Error("Server exited with error", "error", err.Error())
		os.Exit(1)
	}
}
