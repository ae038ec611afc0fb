//go:build !linux

package session

import (
	"net"
	"time"
)

// configureKeepalive is the portable fallback for platforms where
// reaching into the raw socket isn't worth the per-OS syscall surface:
// Go 1.21+'s (*net.TCPConn).SetKeepAliveConfig exposes interval/idle/
// count directly.
func configureKeepalive(conn *net.TCPConn, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return conn.SetKeepAliveConfig(net.KeepAliveConfig{
		Enable:   true,
		Idle:     interval,
		Interval: 10 * time.Second,
		Count:    3,
	})
}
