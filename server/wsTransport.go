package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// wsConn adapts a WebSocket connection to the Conn interface. Wire
// frames travel inside binary WebSocket messages. Reads go through a
// pump goroutine because a deadline expiry on a gorilla connection is
// fatal, which would break poll-and-retry.
type wsConn struct {
	conn  *websocket.Conn
	reads chan wsRead
	done  chan struct{}
	once  sync.Once
}

type wsRead struct {
	data []byte
	err  error
}

func newWSConn(conn *websocket.Conn) *wsConn {
	c := &wsConn{
		conn:  conn,
		reads: make(chan wsRead),
		done:  make(chan struct{}),
	}
	go c.readPump()
	return c
}

func (c *wsConn) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		select {
		case c.reads <- wsRead{data: data, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *wsConn) Read() ([]byte, error) {
	select {
	case r := <-c.reads:
		if r.err != nil {
			if websocket.IsCloseError(r.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, r.err
		}
		return r.data, nil
	case <-time.After(pollInterval):
		return nil, errReadTimeout
	case <-c.done:
		return nil, net.ErrClosed
	}
}

func (c *wsConn) Write(data []byte) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// wsListener serves the /ws upgrade endpoint and hands upgraded
// connections to the worker's accept loop. The underlying TCP listener
// carries SO_REUSEPORT like any stream listener, so WebSocket workers
// share the bind address the same way.
type wsListener struct {
	ln     net.Listener
	server *http.Server
	conns  chan Conn
	done   chan struct{}
	once   sync.Once
}

func listenWS(addr string) (*wsListener, error) {
	stream, err := listenStream(NetworkTCP, addr)
	if err != nil {
		return nil, err
	}

	l := &wsListener{
		ln:    stream.ln,
		conns: make(chan Conn),
		done:  make(chan struct{}),
	}

	router := chi.NewRouter()
	router.Get("/ws", l.handleUpgrade)
	l.server = &http.Server{Handler: router}

	go func() {
		if err := l.server.Serve(l.ln); err != nil && err != http.ErrServerClosed {
			slog.Error("WebSocket listener failed", "addr", addr, "error", err.Error())
		}
	}()

	return l, nil
}

func (l *wsListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}

	select {
	case l.conns <- newWSConn(conn):
	case <-l.done:
		conn.Close()
	}
}

func (l *wsListener) Accept() (Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *wsListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return l.server.Close()
}

func (l *wsListener) Addr() string {
	return l.ln.Addr().String()
}
