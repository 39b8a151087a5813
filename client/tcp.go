package client

import (
	"errors"
	"io"
	"net"
	"time"
)

// TCPTransport carries frames over a stream socket (tcp or unix).
type TCPTransport struct {
	network string
	addr    string
	conn    net.Conn
	buf     []byte
}

func NewTCPTransport(network, addr string) *TCPTransport {
	return &TCPTransport{
		network: network,
		addr:    addr,
		buf:     make([]byte, readBufferSize),
	}
}

func (t *TCPTransport) Connect() error {
	conn, err := net.Dial(t.network, t.addr)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *TCPTransport) Read() ([]byte, error) {
	if t.conn == nil {
		return nil, net.ErrClosed
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		return nil, err
	}

	n, err := t.conn.Read(t.buf)
	if n > 0 {
		data := make([]byte, n)
		copy(data, t.buf[:n])
		return data, nil
	}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, errReadTimeout
		}
		return nil, err
	}
	return nil, io.EOF
}

func (t *TCPTransport) Write(data []byte) error {
	if t.conn == nil {
		return net.ErrClosed
	}
	_, err := t.conn.Write(data)
	return err
}

func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
