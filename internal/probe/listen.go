package probe

import (
	"net"
	"strconv"
)

// listenTCPPortable listens through the net package. The backlog is
// left to the OS default (somaxconn).
func listenTCPPortable(host string, port int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}
