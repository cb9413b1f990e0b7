//go:build !unix

package tcp

import "syscall"

// dualStackControl is a no-op where the platform default is used
func dualStackControl(bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
