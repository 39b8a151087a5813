package client

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSTransport carries frames inside binary WebSocket messages, the
// counterpart of the server's ws listener. Reads go through a pump
// goroutine because a deadline expiry on a gorilla connection is fatal,
// which would break poll-and-retry.
type WSTransport struct {
	addr  string
	conn  *websocket.Conn
	reads chan wsRead
	done  chan struct{}
	once  sync.Once
}

type wsRead struct {
	data []byte
	err  error
}

func NewWSTransport(addr string) *WSTransport {
	return &WSTransport{addr: addr}
}

// wsURL maps a host:port to the server's upgrade endpoint. Full ws://
// and wss:// URLs pass through untouched.
func wsURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + "/ws"
}

func (t *WSTransport) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t.addr), nil)
	if err != nil {
		return err
	}
	t.conn = conn
	t.reads = make(chan wsRead)
	t.done = make(chan struct{})
	go t.readPump()
	return nil
}

func (t *WSTransport) readPump() {
	for {
		_, data, err := t.conn.ReadMessage()
		select {
		case t.reads <- wsRead{data: data, err: err}:
		case <-t.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (t *WSTransport) Read() ([]byte, error) {
	if t.conn == nil {
		return nil, net.ErrClosed
	}
	select {
	case r := <-t.reads:
		if r.err != nil {
			if websocket.IsCloseError(r.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, r.err
		}
		return r.data, nil
	case <-time.After(pollInterval):
		return nil, errReadTimeout
	case <-t.done:
		return nil, net.ErrClosed
	}
}

func (t *WSTransport) Write(data []byte) error {
	if t.conn == nil {
		return net.ErrClosed
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (t *WSTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	t.once.Do(func() { close(t.done) })
	return t.conn.Close()
}
