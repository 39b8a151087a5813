package main

import (
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/luisarboleda17/socket-server/client"
	"github.com/luisarboleda17/socket-server/proto"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5564", "Server address")
	network := flag.String("network", "tcp", "Transport network: tcp or unix")
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))

	c := client.New(*network, *addr)
	if err := c.Connect(); err != nil {
		slog.Error("Failed to connect", "addr", *addr, "error", err.Error())
		os.Exit(1)
	}
	defer c.Close(true)

	if err := c.Send(proto.EventMessage{Name: "ping", Data: map[string]any{"n": 1}}); err != nil {
		slog.Error("Failed to send", "error", err.Error())
		os.Exit(1)
	}

	for {
		msg, err := c.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Info("Server closed the stream")
				return
			}
			slog.Error("Receive failed", "error", err.Error())
			os.Exit(1)
		}

		switch m := msg.(type) {
		case proto.TextMessage:
			slog.Info("Text message received", "text", m.Text)
		case proto.EventMessage:
			slog.Info("Event received", "name", m.Name)
		case proto.JSONMessage:
			slog.Info("JSON message received", "value", m.Value)
			// The pong answers the ping; ask the server to end the session.
			if err := c.Send(proto.EventMessage{Name: "quit", Data: "done"}); err != nil {
				slog.Error("Failed to send quit", "error", err.Error())
				os.Exit(1)
			}
		default:
			slog.Info("Message received", "contentType", msg.ContentType())
		}
	}
}
