//go:build linux || darwin

package server

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reusePort enables SO_REUSEPORT before bind so every worker can bind
// its own listener on the shared address.
func reusePort(network, address string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
