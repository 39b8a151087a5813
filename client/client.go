package client

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/luisarboleda17/socket-server/proto"
)

const (
	// pollInterval bounds blocking reads so Receive stays responsive
	// to a local Close. Not a network timeout.
	pollInterval = 100 * time.Millisecond

	readBufferSize = 64 * 1024
)

// errReadTimeout marks a poll-interval expiry; Receive retries on it.
var errReadTimeout = errors.New("read timed out")

// Client is the outbound counterpart of the server: it connects,
// sends messages and consumes the incoming stream one message at a
// time. Receive is not safe for concurrent use.
type Client struct {
	network string
	addr    string

	transport Transport
	parser    *proto.Parser
	listening atomic.Bool
}

// New creates a client for the given network ("tcp", "unix" or "ws")
// and address. Call Connect before sending or receiving.
func New(network, addr string) *Client {
	var transport Transport
	if network == "ws" {
		transport = NewWSTransport(addr)
	} else {
		transport = NewTCPTransport(network, addr)
	}
	return NewWithTransport(network, addr, transport)
}

// NewWithTransport creates a client over a caller-supplied transport.
func NewWithTransport(network, addr string, transport Transport) *Client {
	return &Client{
		network:   network,
		addr:      addr,
		transport: transport,
		parser:    proto.NewParser(),
	}
}

func (c *Client) Connect() error {
	if err := c.transport.Connect(); err != nil {
		return err
	}
	c.listening.Store(true)
	slog.Info("Connected to server", "network", c.network, "addr", c.addr)
	return nil
}

// Send encodes msg and writes the full frame.
func (c *Client) Send(msg proto.Message) error {
	frame, err := proto.Encode(msg)
	if err != nil {
		return err
	}
	return c.transport.Write(frame)
}

// Receive blocks until the next decoded message arrives. Receiving a
// CloseMessage closes the local socket and returns io.EOF without
// surfacing the sentinel; any transport or framing error closes the
// socket and is returned, ending the stream abnormally. Looping on
// Receive until an error is the client's message stream.
func (c *Client) Receive() (proto.Message, error) {
	for {
		msg, err := c.parser.Next()
		if err != nil {
			c.shutdown()
			return nil, err
		}
		if msg != nil {
			if _, ok := msg.(proto.CloseMessage); ok {
				slog.Info("Server closed the connection", "addr", c.addr)
				c.shutdown()
				return nil, io.EOF
			}
			return msg, nil
		}

		if !c.listening.Load() {
			return nil, net.ErrClosed
		}

		data, err := c.transport.Read()
		if len(data) > 0 {
			c.parser.Feed(data)
			continue
		}
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				continue
			}
			c.shutdown()
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
	}
}

// Close releases the socket. When graceful, a CloseMessage is sent
// best-effort first so the peer learns about the shutdown; its
// failure is swallowed.
func (c *Client) Close(graceful bool) error {
	if graceful {
		if err := c.Send(proto.CloseMessage{}); err != nil {
			slog.Debug("Courtesy close failed", "addr", c.addr, "error", err.Error())
		}
	}
	c.listening.Store(false)
	return c.transport.Close()
}

func (c *Client) shutdown() {
	c.listening.Store(false)
	c.transport.Close()
}
