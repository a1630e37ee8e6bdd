package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// UDPClient sends message to host:port as one datagram and waits for a
// single reply. The socket is left unconnected so that ICMP errors do
// not surface: a missing listener looks the same as a lost packet.
func (r *Runner) UDPClient(ctx context.Context, host string, port int, message string) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	serverAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", addr, err)
	}

	network := "udp6"
	if serverAddr.IP == nil || serverAddr.IP.To4() != nil {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return fmt.Errorf("failed to open UDP socket: %w", err)
	}
	defer conn.Close()

	release := watchContext(ctx, conn)
	defer release()

	startTime := time.Now()
	if _, err := conn.WriteToUDP([]byte(message), serverAddr); err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}
	r.logger.Printf("[UDP] Sent to %s -> %s", addr, message)

	if err := conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}

	buffer := make([]byte, r.config.BufferSize)
	n, replyAddr, err := conn.ReadFromUDP(buffer)
	if err != nil {
		if ctx.Err() != nil {
			r.logger.Printf("[UDP] Interrupted while waiting for a reply.")
			return nil
		}
		if isTimeout(err) {
			r.logger.Printf("[UDP] No response (server may not reply or UDP is blocked).")
			return nil
		}
		return fmt.Errorf("failed to receive from %s: %w", addr, err)
	}

	r.logger.Printf("[UDP] Received reply from %s: %s", replyAddr, decodeText(buffer[:n]))
	r.logger.Printf("[UDP] Round-trip time: %v", time.Since(startTime))
	return nil
}
