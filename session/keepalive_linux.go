//go:build linux

package session

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// configureKeepalive pushes keepalive configuration past what
// net.TCPConn exposes portably, reaching into the raw fd via
// golang.org/x/sys/unix. Falls back silently if the platform rejects a
// socket option; keepalive is best-effort, never fatal to the
// connection.
func configureKeepalive(conn *net.TCPConn, interval time.Duration) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	idleSecs := int(interval / time.Second)
	if idleSecs <= 0 {
		idleSecs = 30
	}
	var sockErr error
	ctrlErr := rawConn.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, idleSecs); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 10); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3); e != nil {
			sockErr = e
			return
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
