//go:build !linux && !darwin

package channel

import "net"

// Platforms without peer credentials on Unix sockets rely on the 0600 socket
// mode alone.
func peerUIDMatchesCurrentUser(net.Conn) (bool, error) {
	return true, nil
}
