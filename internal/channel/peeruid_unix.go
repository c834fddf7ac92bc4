//go:build linux || darwin

package channel

import (
	"fmt"
	"net"
	"os"
)

// peerUIDMatchesCurrentUser reports whether the process on the other end of
// conn runs as the same user as this one.
func peerUIDMatchesCurrentUser(conn net.Conn) (bool, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return false, fmt.Errorf("connection is not unix")
	}
	uid, err := senderUID(unixConn)
	if err != nil {
		return false, err
	}
	return uid == uint32(os.Getuid()), nil
}
