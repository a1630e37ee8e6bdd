//go:build linux

package probe

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenTCP opens an IPv4 listening socket with an explicit accept
// backlog, which net.Listen does not expose. Non-IPv4 hosts go through
// the portable path.
func listenTCP(host string, port, backlog int) (net.Listener, error) {
	ip := net.ParseIP(host).To4()
	if ip == nil {
		return listenTCPPortable(host, port)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener dups the descriptor, so the file is closed either way
	f := os.NewFile(uintptr(fd), fmt.Sprintf("tcp:%s:%d", host, port))
	defer f.Close()

	return net.FileListener(f)
}
