package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// netConn adapts a stream socket (tcp or unix) to the Conn interface.
type netConn struct {
	conn net.Conn
	buf  []byte
}

func newNetConn(conn net.Conn) *netConn {
	return &netConn{conn: conn, buf: make([]byte, readBufferSize)}
}

func (c *netConn) Read() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buf)
	if n > 0 {
		data := make([]byte, n)
		copy(data, c.buf[:n])
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

func (c *netConn) Write(data []byte) error {
	_, err := c.conn.Write(data)
	return err
}

func (c *netConn) Close() error {
	return c.conn.Close()
}

func (c *netConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// streamListener wraps a net.Listener as a connListener.
type streamListener struct {
	ln net.Listener
}

func listenStream(network, addr string) (*streamListener, error) {
	var ln net.Listener
	var err error

	switch network {
	case NetworkUnix:
		// SO_REUSEPORT does not apply to unix sockets. Only the first
		// worker binds; later workers fail and keep getting respawned.
		ln, err = net.Listen(network, addr)
	default:
		lc := net.ListenConfig{Control: reusePort}
		ln, err = lc.Listen(context.Background(), network, addr)
	}
	if err != nil {
		return nil, err
	}
	return &streamListener{ln: ln}, nil
}

func (l *streamListener) Accept() (Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newNetConn(conn), nil
}

func (l *streamListener) Close() error {
	return l.ln.Close()
}

func (l *streamListener) Addr() string {
	return l.ln.Addr().String()
}
