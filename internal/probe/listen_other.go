//go:build !linux

package probe

import "net"

func listenTCP(host string, port, _ int) (net.Listener, error) {
	return listenTCPPortable(host, port)
}
