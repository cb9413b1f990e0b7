//go:build unix

package tcp

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// dualStackControl sets IPV6_V6ONLY on IPv6 sockets before they connect
func dualStackControl(allow bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		if network != "tcp6" {
			return nil
		}
		v6only := 1
		if allow {
			v6only = 0
		}
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, v6only)
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
