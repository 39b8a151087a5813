//go:build !linux && !darwin

package server

import "syscall"

// reusePort is a no-op where SO_REUSEPORT is unavailable. Only the
// first worker to bind succeeds there; later workers fail and are
// respawned, an accepted cross-platform caveat.
func reusePort(network, address string, c syscall.RawConn) error {
	return nil
}
