package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Networks accepted by Config.Network.
const (
	NetworkTCP  = "tcp"
	NetworkUnix = "unix"
	NetworkWS   = "ws"
	NetworkUDP  = "udp"
)

const (
	// pollInterval bounds every blocking read and accept so loops can
	// re-check cancellation. Cooperative polling, not a network timeout.
	pollInterval = 100 * time.Millisecond

	// readBufferSize is how much is read from a socket at a time (64KB).
	readBufferSize = 64 * 1024
)

// errReadTimeout marks a poll-interval expiry on a blocking read. The
// caller retries instead of treating it as a transport failure.
var errReadTimeout = errors.New("read timed out")

// Conn is one accepted connection as seen by a connection handler.
// Read blocks for at most the poll interval and returns errReadTimeout
// on expiry; a zero-length peer shutdown surfaces as io.EOF.
type Conn interface {
	Read() ([]byte, error)
	Write([]byte) error
	Close() error
	RemoteAddr() string
}

// connListener is the accept side a worker binds. Accept unblocks with
// an error once Close is called.
type connListener interface {
	Accept() (Conn, error)
	Close() error
	Addr() string
}

// listen binds a listener for the configured network on addr. Stream
// networks get SO_REUSEPORT so multiple workers can share one address
// where the platform allows it.
func listen(network, addr string) (connListener, error) {
	switch network {
	case NetworkTCP, NetworkUnix:
		return listenStream(network, addr)
	case NetworkWS:
		return listenWS(addr)
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}

func generateWorkerId() string {
	return "worker-" + uuid.NewString()[:8]
}

func generateConnId() string {
	return "conn-" + uuid.NewString()[:8]
}
