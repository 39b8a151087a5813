package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/luisarboleda17/socket-server/proto"
)

// connection owns one accepted socket and its frame parser. A single
// goroutine runs the read/dispatch/reply loop; messages from one
// connection are handled strictly sequentially.
type connection struct {
	id       string
	conn     Conn
	parser   *proto.Parser
	registry *HandlerRegistry
	worker   string

	closeOnce sync.Once
	closed    atomic.Bool
}

func newConnection(conn Conn, registry *HandlerRegistry, worker string) *connection {
	return &connection{
		id:       generateConnId(),
		conn:     conn,
		parser:   proto.NewParser(),
		registry: registry,
		worker:   worker,
	}
}

func (c *connection) run(ctx context.Context) {
	slog.Info("Client connected", "worker", c.worker, "id", c.id, "addr", c.conn.RemoteAddr())

	for !c.closed.Load() {
		select {
		case <-ctx.Done():
			// Supervisor-issued cancellation: abrupt, no courtesy close.
			c.close(true)
			return
		default:
		}

		data, err := c.conn.Read()
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				continue
			}
			if errors.Is(err, io.EOF) {
				slog.Info("Client disconnected", "worker", c.worker, "id", c.id)
			} else if !c.closed.Load() {
				slog.Warn("Connection read failed", "worker", c.worker, "id", c.id, "error", err.Error())
			}
			c.close(true)
			return
		}

		c.parser.Feed(data)
		for !c.closed.Load() {
			msg, err := c.parser.Next()
			if err != nil {
				slog.Warn("Dropping connection on malformed frame", "worker", c.worker, "id", c.id, "error", err.Error())
				c.close(true)
				return
			}
			if msg == nil {
				break
			}
			c.dispatch(msg)
		}
	}
}

// close transitions the connection to Closed exactly once. Unless
// terminate is set, a CloseMessage is sent best-effort first so the
// peer can end its receive stream cleanly.
func (c *connection) close(terminate bool) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		slog.Info("Closing connection", "worker", c.worker, "id", c.id)

		if !terminate {
			if err := c.send(proto.CloseMessage{}); err != nil {
				slog.Debug("Courtesy close failed", "worker", c.worker, "id", c.id, "error", err.Error())
			}
		}
		c.conn.Close()
	})
}

func (c *connection) send(msg proto.Message) error {
	frame, err := proto.Encode(msg)
	if err != nil {
		return err
	}
	return c.conn.Write(frame)
}
